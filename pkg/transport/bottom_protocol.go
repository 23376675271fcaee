package transport

import (
	"context"
	"sync"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// BottomProtocol is the lowest layer of a Stack: it owns the wire
// Transport, turns EvMsg-down events into Unicast/Multicast calls, and
// pumps whatever the Transport receives back up as EvMsg-up events.
type BottomProtocol struct {
	group.BaseProtocol

	local     group.Address
	transport Transport
	log       group.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBottomProtocol wraps t as the stack's bottom layer.
func NewBottomProtocol(local group.Address, t Transport, log group.Logger) *BottomProtocol {
	ctx, cancel := context.WithCancel(context.Background())
	return &BottomProtocol{
		local:     local,
		transport: t,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (b *BottomProtocol) Name() string { return "TRANSPORT" }

func (b *BottomProtocol) Down(event *group.Event) *group.Event {
	if event.Type != group.EvMsg {
		return b.PassDown(event)
	}
	msg, ok := event.Arg.(*group.Message)
	if !ok {
		return b.PassDown(event)
	}
	payload, err := group.Encode(msg)
	if err != nil {
		b.log.Errorf("transport: failed encoding message: %v", err)
		return nil
	}
	if msg.IsMulticast() {
		if err := b.transport.Multicast(b.ctx, payload); err != nil {
			b.log.Errorf("transport: multicast failed: %v", err)
		}
	} else {
		if err := b.transport.Unicast(b.ctx, *msg.Dest, payload); err != nil {
			b.log.Errorf("transport: unicast to %s failed: %v", *msg.Dest, err)
		}
	}
	return nil
}

func (b *BottomProtocol) Up(event *group.Event) *group.Event {
	// Nothing below the bottom layer; received messages enter through
	// poll's own PassUp, so an Up call here is simply propagated.
	return b.PassUp(event)
}

func (b *BottomProtocol) Start() error {
	b.wg.Add(1)
	go b.poll()
	return nil
}

func (b *BottomProtocol) Stop() error {
	b.cancel()
	_ = b.transport.Close()
	b.wg.Wait()
	return nil
}

// poll drains the transport's receive channel and injects each
// decoded Message as an EvMsg event travelling up through this same
// layer's up-neighbor.
func (b *BottomProtocol) poll() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case recv, ok := <-b.transport.Listen():
			if !ok {
				return
			}
			msg, err := group.Decode(recv.Payload)
			if err != nil {
				b.log.Errorf("transport: failed decoding message from %s: %v", recv.From, err)
				continue
			}
			b.PassUp(group.NewEvent(group.EvMsg, msg))
		}
	}
}
