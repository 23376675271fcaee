package transport

import (
	"sync"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// ReliableProtocol is the reference reliable-FIFO delivery layer the
// spec calls an external collaborator: it stamps outgoing messages
// with a per-sender sequence number, passes incoming ones up in the
// order the Transport hands them over (it does not reorder, retransmit
// or drop duplicates, so per-sender FIFO holds only as far as the
// Transport preserves it), maintains the Digest checkpoint, and honors
// CLOSE_BARRIER/OPEN_BARRIER by buffering upward delivery while the
// barrier is closed. Barrier closes nest: N closes require N opens.
type ReliableProtocol struct {
	group.BaseProtocol

	mutex        sync.Mutex
	sendSeq      uint64
	recvState    map[group.Address]*group.SeqRange
	barrierDepth int
	pending      []*group.Event
}

// NewReliableProtocol builds an empty ReliableProtocol.
func NewReliableProtocol() *ReliableProtocol {
	return &ReliableProtocol{
		recvState: make(map[group.Address]*group.SeqRange),
	}
}

func (r *ReliableProtocol) Name() string { return ProtocolName }

func (r *ReliableProtocol) ProvidedServices() []group.EventType {
	return []group.EventType{group.EvGetDigest, group.EvOverwriteDigest, group.EvCloseBarrier, group.EvOpenBarrier}
}

func (r *ReliableProtocol) Down(event *group.Event) *group.Event {
	switch event.Type {
	case group.EvMsg:
		msg, ok := event.Arg.(*group.Message)
		if !ok {
			return r.PassDown(event)
		}
		r.mutex.Lock()
		r.sendSeq++
		seq := r.sendSeq
		r.mutex.Unlock()
		stamped := msg.WithHeader(protocolID, &SeqHeader{Seq: seq})
		return r.PassDown(group.NewEvent(group.EvMsg, stamped))

	case group.EvCloseBarrier:
		r.mutex.Lock()
		r.barrierDepth++
		r.mutex.Unlock()
		return nil

	case group.EvOpenBarrier:
		r.mutex.Lock()
		r.barrierDepth--
		if r.barrierDepth < 0 {
			r.barrierDepth = 0
		}
		flush := r.barrierDepth == 0
		var toFlush []*group.Event
		if flush {
			toFlush = r.pending
			r.pending = nil
		}
		r.mutex.Unlock()
		if flush {
			for _, e := range toFlush {
				r.PassUp(e)
			}
		}
		return nil

	case group.EvGetDigest:
		return group.NewEvent(group.EvGetDigest, r.snapshot())

	case group.EvOverwriteDigest:
		d, ok := event.Arg.(*group.Digest)
		if ok {
			r.install(d)
		}
		return nil

	default:
		return r.PassDown(event)
	}
}

func (r *ReliableProtocol) Up(event *group.Event) *group.Event {
	if event.Type != group.EvMsg {
		return r.PassUp(event)
	}
	msg, ok := event.Arg.(*group.Message)
	if !ok {
		return r.PassUp(event)
	}

	r.mutex.Lock()
	var seq uint64
	if h, ok := msg.Headers.Get(protocolID); ok {
		if sh, ok := h.(*SeqHeader); ok {
			seq = sh.Seq
		}
	}
	state, ok := r.recvState[msg.Src]
	if !ok {
		state = &group.SeqRange{}
		r.recvState[msg.Src] = state
	}
	if seq > state.HighestReceived {
		state.HighestReceived = seq
	}
	state.HighestDelivered = state.HighestReceived

	closed := r.barrierDepth > 0
	if closed {
		r.pending = append(r.pending, event)
	}
	r.mutex.Unlock()

	if closed {
		return nil
	}
	return r.PassUp(event)
}

func (r *ReliableProtocol) snapshot() *group.Digest {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	entries := make(map[group.Address]group.SeqRange, len(r.recvState))
	for addr, st := range r.recvState {
		entries[addr] = *st
	}
	return group.NewDigest(entries)
}

func (r *ReliableProtocol) install(d *group.Digest) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.recvState = make(map[group.Address]*group.SeqRange)
	for _, addr := range d.Senders() {
		rng, _ := d.Get(addr)
		cp := rng
		r.recvState[addr] = &cp
	}
}
