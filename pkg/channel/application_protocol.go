// Package channel implements C7: the application-facing surface of a
// stack. ApplicationProtocol is the topmost layer, grounded on the
// teacher's top-of-stack Deliver callback pattern
// (pkg/mcast/core/deliver.go generalized from a single fixed callback
// to a pluggable Receiver); Channel is the connect/send/get-state
// facade built on top of it, grounded on the teacher's
// request/response Peer wrapper but reshaped around the spec's
// CLOSED/OPEN/CONNECTED state machine.
package channel

import (
	"sync"
	"sync/atomic"

	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
)

// ApplicationProtocolName is the registry key for this layer.
const ApplicationProtocolName = "APPLICATION"

// ApplicationProtocol is the top of the stack. It answers
// GET_APPLSTATE synchronously on behalf of the application, delivers
// inbound messages to a Receiver, tracks the current View, and
// funnels GET_STATE_OK replies to whichever goroutine is blocked in
// Channel.GetState.
type ApplicationProtocol struct {
	group.BaseProtocol

	receiver atomic.Value // Receiver
	provider atomic.Value // StateProvider

	viewMu sync.RWMutex
	view   *group.View

	stateResults chan *statetransfer.StateTransferInfo
}

// NewApplicationProtocol builds an ApplicationProtocol with no
// receiver or state provider set; both can be attached later via
// SetReceiver/SetStateProvider.
func NewApplicationProtocol() *ApplicationProtocol {
	return &ApplicationProtocol{
		stateResults: make(chan *statetransfer.StateTransferInfo, 1),
	}
}

func (a *ApplicationProtocol) Name() string { return ApplicationProtocolName }

func (a *ApplicationProtocol) Down(event *group.Event) *group.Event {
	return a.PassDown(event)
}

func (a *ApplicationProtocol) Up(event *group.Event) *group.Event {
	switch event.Type {
	case group.EvGetApplState:
		return group.NewEvent(group.EvGetApplStateOK, a.currentState())

	case group.EvGetStateOK:
		info, ok := event.Arg.(*statetransfer.StateTransferInfo)
		if ok {
			select {
			case a.stateResults <- info:
			default:
				// A prior result was never collected; drop the older one
				// rather than block this layer forever.
				select {
				case <-a.stateResults:
				default:
				}
				a.stateResults <- info
			}
		}
		return nil

	case group.EvViewChange:
		if v, ok := event.Arg.(*group.View); ok {
			a.viewMu.Lock()
			a.view = v
			a.viewMu.Unlock()
		}
		return nil

	case group.EvMsg:
		if msg, ok := event.Arg.(*group.Message); ok {
			if r, ok := a.receiver.Load().(Receiver); ok && r != nil {
				r.Receive(msg)
			}
		}
		return nil

	default:
		return a.PassUp(event)
	}
}

// SetReceiver installs r as the callback for inbound messages. Safe to
// call at any time, including while the stack is running.
func (a *ApplicationProtocol) SetReceiver(r Receiver) {
	a.receiver.Store(r)
}

// SetStateProvider installs p as the callback answering GET_APPLSTATE.
func (a *ApplicationProtocol) SetStateProvider(p StateProvider) {
	a.provider.Store(p)
}

func (a *ApplicationProtocol) currentState() []byte {
	p, ok := a.provider.Load().(StateProvider)
	if !ok || p == nil {
		return nil
	}
	return p()
}

// CurrentView returns the last View delivered to this layer.
func (a *ApplicationProtocol) CurrentView() *group.View {
	a.viewMu.RLock()
	defer a.viewMu.RUnlock()
	return a.view
}

// awaitStateResult blocks for the next GET_STATE_OK delivered to this
// layer, or returns false if done fires first.
func (a *ApplicationProtocol) awaitStateResult(done <-chan struct{}) (*statetransfer.StateTransferInfo, bool) {
	select {
	case info := <-a.stateResults:
		return info, true
	case <-done:
		return nil, false
	}
}
