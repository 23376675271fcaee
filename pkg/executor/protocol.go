package executor

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// taskState mirrors the spec's pending-task states held at the
// coordinator.
type taskState int

const (
	stateQueued taskState = iota
	stateDispatched
	stateCancelled
	stateDone
)

type pendingTask struct {
	Owner      Owner
	Descriptor TaskDescriptor
	State      taskState
	Consumer   group.Address
}

type submission struct {
	future     *Future
	descriptor TaskDescriptor
}

// Protocol is C6: it sits above the membership layer, tracks who the
// current coordinator is, and implements both the submitter role
// (Submit) and the coordinator/consumer roles driven by incoming wire
// frames.
type Protocol struct {
	group.BaseProtocol

	local      group.Address
	membership *group.MembershipProtocol
	log        group.Logger
	shutdown   atomic.Bool

	nextRequestID atomic.Int64

	consumerLock      sync.Mutex
	runRequests       []*pendingTask
	awaitingConsumers []group.Address
	seenOwners        map[Owner]bool // coordinator-side dedup surviving completion

	submissionsLock sync.Mutex
	pending         map[int64]*submission

	executionLock sync.Mutex
	executing     map[Owner]context.CancelFunc // consumer-side, owners currently running locally

	dispatchCh chan dispatched // delivered to a local ExecutionRunner
}

type dispatched struct {
	owner      Owner
	descriptor TaskDescriptor
}

// NewProtocol builds an executor layer.
func NewProtocol(local group.Address, membership *group.MembershipProtocol, log group.Logger) *Protocol {
	return &Protocol{
		local:      local,
		membership: membership,
		log:        log,
		seenOwners: make(map[Owner]bool),
		pending:    make(map[int64]*submission),
		executing:  make(map[Owner]context.CancelFunc),
		dispatchCh: make(chan dispatched, 8),
	}
}

func (p *Protocol) Name() string { return ProtocolName }

func (p *Protocol) Down(event *group.Event) *group.Event {
	return p.PassDown(event)
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

func (p *Protocol) coordinator() group.Address {
	if p.membership == nil {
		return ""
	}
	view := p.membership.CurrentView()
	return view.Coordinator()
}

func (p *Protocol) isCoordinator() bool {
	return p.coordinator() == p.local
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
	hdr, ok := h.(*FrameHeader)
	if !ok {
		return p.PassUp(event)
	}

	switch hdr.Type {
	case RunRequest:
		descriptor, err := decodeDescriptor(msg.Payload)
		if err != nil {
			p.logf("executor: bad RUN_REQUEST payload from %s: %v", msg.Src, err)
			return nil
		}
		p.handleRunRequest(hdr.Owner, descriptor)
	case ConsumerReady:
		p.handleConsumerReady(msg.Src)
	case ConsumerUnready:
		p.handleConsumerUnready(msg.Src)
	case TaskDispatch:
		descriptor, err := decodeDescriptor(msg.Payload)
		if err != nil {
			p.logf("executor: bad TASK_DISPATCH payload for %v: %v", hdr.Owner, err)
			return nil
		}
		p.deliverDispatch(hdr.Owner, descriptor)
	case TaskResult:
		p.resolveSubmission(hdr.Owner, msg.Payload, nil, false)
	case TaskException:
		p.resolveSubmission(hdr.Owner, nil, newRemoteError(msg.Payload), false)
	case TaskCancelled:
		p.resolveSubmission(hdr.Owner, nil, nil, true)
	case CancelRequest:
		p.handleCancelRequest(hdr.Owner, hdr.Interrupt)
	}
	return nil
}

func (p *Protocol) logf(format string, args ...interface{}) {
	if p.log != nil {
		p.log.Errorf(format, args...)
	}
}

// Submit assigns a fresh request id, registers a local future, and
// sends RUN_REQUEST to the current coordinator.
func (p *Protocol) Submit(descriptor TaskDescriptor) (*Future, error) {
	if p.shutdown.Load() {
		return nil, ErrShutdown
	}
	id := p.nextRequestID.Add(1) - 1
	owner := Owner{Address: p.local, RequestID: id}
	fut := newFuture(owner, func(mayInterrupt bool) error { return p.cancel(owner, mayInterrupt) })

	p.submissionsLock.Lock()
	p.pending[id] = &submission{future: fut, descriptor: descriptor}
	p.submissionsLock.Unlock()

	p.sendRunRequest(owner, descriptor)
	return fut, nil
}

// Shutdown stops accepting new submissions; outstanding ones are
// unaffected.
func (p *Protocol) Shutdown() { p.shutdown.Store(true) }

func (p *Protocol) sendRunRequest(owner Owner, descriptor TaskDescriptor) {
	body, err := encodeDescriptor(descriptor)
	if err != nil {
		p.logf("executor: failed encoding descriptor for %v: %v", owner, err)
		return
	}
	dest := p.coordinator()
	if dest == "" {
		return
	}
	p.sendFrame(RunRequest, owner, dest, body)
}

func (p *Protocol) sendFrame(t FrameType, owner Owner, dest group.Address, payload []byte) {
	p.sendFrameInterrupt(t, owner, dest, payload, false)
}

func (p *Protocol) sendFrameInterrupt(t FrameType, owner Owner, dest group.Address, payload []byte, interrupt bool) {
	hdr := &FrameHeader{Type: t, Owner: owner, Interrupt: interrupt}
	msg := group.NewMessage(p.local, &dest, payload).WithHeader(protocolID, hdr)
	p.PassDown(group.NewEvent(group.EvMsg, msg))
}

// handleRunRequest is the coordinator-side entry point: append to the
// FIFO queue unless this owner has already been seen (dedup across a
// coordinator-failover resubmission), then attempt a match.
func (p *Protocol) handleRunRequest(owner Owner, descriptor TaskDescriptor) {
	p.consumerLock.Lock()
	if p.seenOwners[owner] {
		p.consumerLock.Unlock()
		return
	}
	p.seenOwners[owner] = true
	p.runRequests = append(p.runRequests, &pendingTask{Owner: owner, Descriptor: descriptor, State: stateQueued})
	p.tryDispatchLocked()
	p.consumerLock.Unlock()
}

func (p *Protocol) handleConsumerReady(consumer group.Address) {
	p.consumerLock.Lock()
	p.awaitingConsumers = append(p.awaitingConsumers, consumer)
	p.tryDispatchLocked()
	p.consumerLock.Unlock()
}

func (p *Protocol) handleConsumerUnready(consumer group.Address) {
	p.consumerLock.Lock()
	defer p.consumerLock.Unlock()
	for i, c := range p.awaitingConsumers {
		if c == consumer {
			p.awaitingConsumers = append(p.awaitingConsumers[:i], p.awaitingConsumers[i+1:]...)
			return
		}
	}
}

// tryDispatchLocked matches queued tasks against ready consumers FIFO,
// pairing as many as it can in one pass. The actual TASK_DISPATCH
// sends are independent per-consumer RPCs, so they fan out
// concurrently via errgroup instead of serializing one slow send
// behind another. Must be called with consumerLock held.
func (p *Protocol) tryDispatchLocked() {
	type match struct {
		task     *pendingTask
		consumer group.Address
	}
	var matches []match
	for len(p.awaitingConsumers) > 0 {
		idx := -1
		for i, t := range p.runRequests {
			if t.State == stateQueued {
				idx = i
				break
			}
		}
		if idx == -1 {
			break
		}
		task := p.runRequests[idx]
		consumer := p.awaitingConsumers[0]
		p.awaitingConsumers = p.awaitingConsumers[1:]

		task.State = stateDispatched
		task.Consumer = consumer
		matches = append(matches, match{task: task, consumer: consumer})
	}

	var g errgroup.Group
	for _, m := range matches {
		m := m
		g.Go(func() error {
			body, err := encodeDescriptor(m.task.Descriptor)
			if err != nil {
				p.logf("executor: failed encoding dispatch for %v: %v", m.task.Owner, err)
				return nil
			}
			p.sendFrame(TaskDispatch, m.task.Owner, m.consumer, body)
			return nil
		})
	}
	_ = g.Wait()
}

// queueDepth reports how many submissions are still waiting for a
// consumer, per this node's view of the coordinator's queue.
func (p *Protocol) queueDepth() int {
	p.consumerLock.Lock()
	defer p.consumerLock.Unlock()
	n := 0
	for _, t := range p.runRequests {
		if t.State == stateQueued {
			n++
		}
	}
	return n
}

// readyConsumerCount reports how many consumers are currently
// advertised as ready.
func (p *Protocol) readyConsumerCount() int {
	p.consumerLock.Lock()
	defer p.consumerLock.Unlock()
	return len(p.awaitingConsumers)
}

// AwaitingConsumerOwners returns a read-only snapshot of the owners
// still queued for a consumer (not yet dispatched), guarded by the
// same lock used for mutation — the observable test hook the design
// calls for so a test can assert the coordinator's queue is empty of
// a given owner after a cancel returns.
func (p *Protocol) AwaitingConsumerOwners() []Owner {
	p.consumerLock.Lock()
	defer p.consumerLock.Unlock()
	owners := make([]Owner, 0, len(p.runRequests))
	for _, t := range p.runRequests {
		if t.State == stateQueued {
			owners = append(owners, t.Owner)
		}
	}
	return owners
}

// RunRequestOwners returns a read-only snapshot of every owner the
// coordinator currently holds in its run_requests queue, regardless of
// state — used by tests asserting a resent RUN_REQUEST landed exactly
// once on the new coordinator after a view change.
func (p *Protocol) RunRequestOwners() []Owner {
	p.consumerLock.Lock()
	defer p.consumerLock.Unlock()
	owners := make([]Owner, 0, len(p.runRequests))
	for _, t := range p.runRequests {
		owners = append(owners, t.Owner)
	}
	return owners
}

// handleCancelRequest routes an incoming CANCEL_REQUEST by role. A node
// that is both coordinator and the consumer currently executing owner
// (self-dispatch) must be checked for the latter first: otherwise it
// would rediscover itself as coordinator, forward the interrupt to
// "the consumer" (itself) over the wire, and loop forever re-handling
// its own forwarded message instead of ever actually interrupting.
func (p *Protocol) handleCancelRequest(owner Owner, interrupt bool) {
	p.executionLock.Lock()
	_, executingLocally := p.executing[owner]
	p.executionLock.Unlock()

	if executingLocally && interrupt {
		p.handleCancelAtConsumer(owner)
		return
	}
	if p.isCoordinator() {
		p.handleCancelAtCoordinator(owner, interrupt)
		return
	}
	p.handleCancelAtConsumer(owner)
}

// handleCancelAtCoordinator implements both cancel flavors: a not-yet
// dispatched task is always dropped and TASK_CANCELLED is replied
// directly, regardless of interrupt, since there is nothing running to
// interrupt. A dispatched task is only forwarded to its consumer when
// interrupt is true; a plain cancel against a running task is a no-op,
// matching the spec's "interrupt is the only way to affect a dispatched
// task" rule.
func (p *Protocol) handleCancelAtCoordinator(owner Owner, interrupt bool) {
	p.consumerLock.Lock()
	for i, t := range p.runRequests {
		if t.Owner != owner {
			continue
		}
		if t.State == stateQueued {
			p.runRequests = append(p.runRequests[:i], p.runRequests[i+1:]...)
			p.consumerLock.Unlock()
			p.sendFrame(TaskCancelled, owner, owner.Address, nil)
			return
		}
		if t.State == stateDispatched && interrupt {
			consumer := t.Consumer
			p.consumerLock.Unlock()
			p.sendFrameInterrupt(CancelRequest, owner, consumer, nil, true)
			return
		}
		p.consumerLock.Unlock()
		return
	}
	p.consumerLock.Unlock()
}

func (p *Protocol) handleCancelAtConsumer(owner Owner) {
	p.executionLock.Lock()
	cancel, ok := p.executing[owner]
	p.executionLock.Unlock()
	if ok {
		cancel()
	}
}

// cancel is called from Future.Cancel: it always goes to the
// coordinator, which knows whether the task is still queued or
// already dispatched.
func (p *Protocol) cancel(owner Owner, mayInterrupt bool) error {
	p.sendFrameInterrupt(CancelRequest, owner, p.coordinator(), nil, mayInterrupt)
	return nil
}

func (p *Protocol) deliverDispatch(owner Owner, descriptor TaskDescriptor) {
	select {
	case p.dispatchCh <- dispatched{owner: owner, descriptor: descriptor}:
	default:
		p.logf("executor: dispatch channel full, dropping task %v", owner)
	}
}

func (p *Protocol) resolveSubmission(owner Owner, result []byte, err error, cancelled bool) {
	p.submissionsLock.Lock()
	sub, ok := p.pending[owner.RequestID]
	if ok {
		delete(p.pending, owner.RequestID)
	}
	p.submissionsLock.Unlock()
	if !ok {
		return
	}
	if cancelled {
		sub.future.resolve(nil, ErrCancelled)
		return
	}
	sub.future.resolve(result, err)
}

// onViewChange recomputes nothing itself (coordinator() always reads
// the live view) but resends every still-outstanding submission so a
// newly elected coordinator learns about work the old one may have
// lost. The coordinator's seenOwners dedup makes this safe even when
// the coordinator did not actually change.
func (p *Protocol) onViewChange(v *group.View) {
	p.submissionsLock.Lock()
	toResend := make(map[int64]*submission, len(p.pending))
	for id, sub := range p.pending {
		toResend[id] = sub
	}
	p.submissionsLock.Unlock()

	for id, sub := range toResend {
		owner := Owner{Address: p.local, RequestID: id}
		p.sendRunRequest(owner, sub.descriptor)
	}
}
