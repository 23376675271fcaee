package statetransfer

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// Protocol implements C5: it sits above the reliable-delivery and
// stability layers and below the application, brokering a GET_STATE
// request into a digest-then-state exchange with a chosen provider,
// per the DIGEST-BEFORE-STATE ordering invariant.
type Protocol struct {
	group.BaseProtocol

	local          group.Address
	log            group.Logger
	membership     *group.MembershipProtocol
	flushSupported bool

	mu                      sync.Mutex
	waitingForStateResponse bool
	startTime               time.Time
	stopTime                time.Time
	target                  *group.Address

	requestersLock sync.Mutex
	requesters     []group.Address

	stats Stats
}

// NewProtocol builds a state-transfer layer. membership is consulted
// to pick a provider and to detect a provider leaving mid-transfer.
// The flushSupported field, when true, skips the close-barrier/digest
// dance and serves state directly; NewProtocol leaves it false and
// nothing in this package sets it, so digests always guard
// consistency.
func NewProtocol(local group.Address, membership *group.MembershipProtocol, log group.Logger) *Protocol {
	return &Protocol{
		local:      local,
		membership: membership,
		log:        log,
	}
}

func (p *Protocol) Name() string { return ProtocolName }

func (p *Protocol) RequiredDownServices() []group.EventType {
	return []group.EventType{
		group.EvCloseBarrier,
		group.EvOpenBarrier,
		group.EvGetDigest,
		group.EvOverwriteDigest,
		group.EvSuspendStable,
		group.EvResumeStable,
	}
}

func (p *Protocol) ProvidedServices() []group.EventType {
	return []group.EventType{group.EvGetState, group.EvGetStateOK}
}

func (p *Protocol) Down(event *group.Event) *group.Event {
	if event.Type != group.EvGetState {
		return p.PassDown(event)
	}
	info, ok := event.Arg.(*StateTransferInfo)
	if !ok {
		if p.log != nil {
			p.log.Errorf("GET_STATE event with unexpected payload type %T", event.Arg)
		}
		return nil
	}
	p.handleGetState(info)
	return nil
}

func (p *Protocol) Up(event *group.Event) *group.Event {
	switch event.Type {
	case group.EvMsg:
		return p.handleMessage(event)
	case group.EvViewChange:
		if v, ok := event.Arg.(*group.View); ok {
			p.onViewChange(v)
		}
		return p.PassUp(event)
	default:
		return p.PassUp(event)
	}
}

func (p *Protocol) handleMessage(event *group.Event) *group.Event {
	msg, ok := event.Arg.(*group.Message)
	if !ok {
		return p.PassUp(event)
	}
	h, ok := msg.Headers.Get(protocolID)
	if !ok {
		return p.PassUp(event)
	}
	hdr, ok := h.(*StateHeader)
	if !ok {
		return p.PassUp(event)
	}
	switch hdr.Type {
	case TypeReq:
		p.handleStateReq(hdr.Sender)
		return nil
	case TypeRsp:
		p.handleStateRsp(hdr, msg.Payload)
		return nil
	default:
		return p.PassUp(event)
	}
}

// handleGetState picks a provider per the no-target/self-target/
// explicit-target rules and kicks off the request, or synthesizes an
// immediate empty response when there is nobody to ask.
func (p *Protocol) handleGetState(info *StateTransferInfo) {
	view := p.currentView()

	var target group.Address
	switch {
	case info.Target != nil && *info.Target == p.local:
		if p.log != nil {
			p.log.Warnf("GET_STATE requested with self as target, treating as no provider")
		}
		p.deliverStateOK(&StateTransferInfo{State: nil})
		return
	case info.Target != nil:
		target = *info.Target
	default:
		target = p.pickProvider(view)
		if target == "" {
			p.deliverStateOK(&StateTransferInfo{State: nil})
			return
		}
	}

	p.mu.Lock()
	p.waitingForStateResponse = true
	p.startTime = time.Now()
	t := target
	p.target = &t
	p.mu.Unlock()

	p.PassDown(group.NewEvent(group.EvSuspendStable, group.SuspendStableArg{Timeout: info.Timeout}))

	hdr := &StateHeader{Type: TypeReq, ID: time.Now().UnixNano(), Sender: p.local}
	msg := group.NewMessage(p.local, &target, nil).WithHeader(protocolID, hdr)
	p.PassDown(group.NewEvent(group.EvMsg, msg))
}

// pickProvider returns the first member other than the local address,
// or "" if the local node is alone in its own view.
func (p *Protocol) pickProvider(view *group.View) group.Address {
	if view == nil {
		return ""
	}
	for _, m := range view.Members {
		if m != p.local {
			return m
		}
	}
	return ""
}

func (p *Protocol) currentView() *group.View {
	if p.membership == nil {
		return nil
	}
	return p.membership.CurrentView()
}

// handleStateReq is the provider side. The first concurrent requester
// drives the close-barrier/digest/application-state/open-barrier
// sequence; later arrivals while that is in flight ride along and are
// answered by the same response.
func (p *Protocol) handleStateReq(sender group.Address) {
	p.requestersLock.Lock()
	wasEmpty := len(p.requesters) == 0
	p.requesters = append(p.requesters, sender)
	p.requestersLock.Unlock()

	if p.flushSupported {
		state := p.fetchApplicationState()
		p.respondToRequesters(nil, state)
		return
	}

	if !wasEmpty {
		return
	}

	p.PassDown(group.NewEvent(group.EvCloseBarrier, nil))
	digestEvt := p.PassDown(group.NewEvent(group.EvGetDigest, nil))
	var digest *group.Digest
	if digestEvt != nil {
		digest, _ = digestEvt.Arg.(*group.Digest)
	}
	state := p.fetchApplicationState()
	p.PassDown(group.NewEvent(group.EvOpenBarrier, nil))

	p.respondToRequesters(digest, state)
}

// fetchApplicationState asks the layer above synchronously: the
// application-facing layer is expected to answer EvGetApplState by
// returning EvGetApplStateOK directly from its own Up(), so no extra
// synchronization is needed here.
func (p *Protocol) fetchApplicationState() []byte {
	result := p.PassUp(group.NewEvent(group.EvGetApplState, nil))
	if result == nil {
		return nil
	}
	state, _ := result.Arg.([]byte)
	return state
}

// respondToRequesters fans the same response out to every requester
// that piled up while the fetch was in flight. Sends are independent
// per destination, so they run concurrently via errgroup rather than
// serially blocking on one slow requester before reaching the next.
func (p *Protocol) respondToRequesters(digest *group.Digest, state []byte) {
	p.requestersLock.Lock()
	pending := p.requesters
	p.requesters = nil
	p.requestersLock.Unlock()

	var g errgroup.Group
	for _, requester := range pending {
		requester := requester
		g.Go(func() error {
			hdr := &StateHeader{Type: TypeRsp, ID: time.Now().UnixNano(), Sender: p.local, Digest: digest}
			dest := requester
			msg := group.NewMessage(p.local, &dest, state).WithHeader(protocolID, hdr)
			p.PassDown(group.NewEvent(group.EvMsg, msg))
			p.stats.recordSent(len(state))
			return nil
		})
	}
	_ = g.Wait()
}

// handleStateRsp is the requester side: install the digest before
// delivering state upward, per the digest-before-state invariant, and
// always reopen the barrier even if nothing was waiting.
func (p *Protocol) handleStateRsp(hdr *StateHeader, state []byte) {
	digestsInUse := !p.flushSupported
	if digestsInUse {
		p.PassDown(group.NewEvent(group.EvCloseBarrier, nil))
		defer p.PassDown(group.NewEvent(group.EvOpenBarrier, nil))
	}

	p.mu.Lock()
	p.waitingForStateResponse = false
	p.mu.Unlock()

	if hdr.Digest != nil && digestsInUse {
		p.PassDown(group.NewEvent(group.EvOverwriteDigest, hdr.Digest))
	}

	p.mu.Lock()
	p.stopTime = time.Now()
	p.mu.Unlock()

	p.PassDown(group.NewEvent(group.EvResumeStable, nil))

	p.deliverStateOK(&StateTransferInfo{
		Provider: hdr.Sender,
		State:    state,
	})
}

func (p *Protocol) deliverStateOK(info *StateTransferInfo) {
	p.PassUp(group.NewEvent(group.EvGetStateOK, info))
}

// onViewChange synthesizes the crash-recovery response described for
// an unresponsive provider: if the node we're waiting on dropped out
// of the new view, stop waiting and deliver a nil state rather than
// hanging forever.
func (p *Protocol) onViewChange(v *group.View) {
	p.mu.Lock()
	waiting := p.waitingForStateResponse
	target := p.target
	p.mu.Unlock()

	if !waiting || target == nil || v.Contains(*target) {
		return
	}

	p.mu.Lock()
	p.waitingForStateResponse = false
	p.mu.Unlock()

	p.PassDown(group.NewEvent(group.EvResumeStable, nil))
	p.deliverStateOK(&StateTransferInfo{Target: target, State: nil})
}

// StatsSnapshot exposes the provider-side counters for tests and for
// the Prometheus collectors in metrics.go.
func (p *Protocol) StatsSnapshot() Snapshot {
	return p.stats.Snapshot()
}
