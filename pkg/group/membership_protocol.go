package group

import "sync"

// MembershipProtocolName is the registry key for the membership layer.
const MembershipProtocolName = "MEMBERSHIP"

// MembershipProtocol is the C4 membership surface: it holds the
// current View and injects VIEW_CHANGE both downward (so lower layers
// such as the reliable-delivery layer can drop state for departed
// members) and upward (so C5/C6 and the application see the new
// membership), atomically with respect to the membership snapshot.
type MembershipProtocol struct {
	BaseProtocol

	mutex sync.RWMutex
	view  *View
}

// NewMembershipProtocol builds a MembershipProtocol with no view yet
// installed.
func NewMembershipProtocol() *MembershipProtocol {
	return &MembershipProtocol{}
}

func (m *MembershipProtocol) Name() string { return MembershipProtocolName }

// CurrentView returns the last installed View, possibly nil before the
// first InstallView call.
func (m *MembershipProtocol) CurrentView() *View {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.view
}

// InstallView atomically replaces the current view and propagates a
// VIEW_CHANGE both downward and upward from this layer. An operation
// reading CurrentView either sees the full old view or the full new
// one, never a partial update.
func (m *MembershipProtocol) InstallView(v *View) {
	m.mutex.Lock()
	m.view = v
	m.mutex.Unlock()

	evt := NewEvent(EvViewChange, v)
	m.PassDown(evt)
	m.PassUp(evt)
}

func (m *MembershipProtocol) Down(event *Event) *Event {
	return m.PassDown(event)
}

func (m *MembershipProtocol) Up(event *Event) *Event {
	return m.PassUp(event)
}

func (m *MembershipProtocol) ProvidedServices() []EventType {
	return []EventType{EvViewChange, EvTmpView}
}
