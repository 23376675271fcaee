// Package loopback provides an in-process Transport implementation
// used by tests and local development, grounded on the teacher's
// ReliableTransport poll/consume loop
// (pkg/mcast/core/transport.go): each send is enqueued by the sending
// goroutine directly onto the destination's buffered channel, which
// the receiver drains through Listen; a send gives up after 250ms if
// that channel stays full.
package loopback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/transport"
)

// ErrUnknownDestination is returned by Unicast when no node with that
// address is registered on the bus.
var ErrUnknownDestination = errors.New("loopback: unknown destination")

// Bus is the shared medium a set of loopback Transports register on,
// modelling a single local-area group for tests. It is the "network"
// all Transports created from it can see each other over.
type Bus struct {
	mutex sync.Mutex
	nodes map[group.Address]*Transport
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{nodes: make(map[group.Address]*Transport)}
}

// NewTransport registers a new node of the given address on the bus
// and returns its Transport handle.
func (b *Bus) NewTransport(addr group.Address) *Transport {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	t := &Transport{
		bus:      b,
		local:    addr,
		producer: make(chan transport.Received, 256),
		done:     make(chan struct{}),
	}
	b.nodes[addr] = t
	return t
}

func (b *Bus) deregister(addr group.Address) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.nodes, addr)
}

func (b *Bus) deliver(from, dest group.Address, payload []byte) error {
	b.mutex.Lock()
	target, ok := b.nodes[dest]
	b.mutex.Unlock()
	if !ok {
		return ErrUnknownDestination
	}
	return target.enqueue(from, payload)
}

func (b *Bus) broadcast(from group.Address, payload []byte) {
	b.mutex.Lock()
	targets := make([]*Transport, 0, len(b.nodes))
	for addr, t := range b.nodes {
		if addr == from {
			continue
		}
		targets = append(targets, t)
	}
	b.mutex.Unlock()
	for _, t := range targets {
		_ = t.enqueue(from, payload)
	}
}

// Transport is a single node's handle onto a Bus.
type Transport struct {
	bus      *Bus
	local    group.Address
	producer chan transport.Received
	done     chan struct{}
	closeOne sync.Once
}

func (t *Transport) enqueue(from group.Address, payload []byte) error {
	select {
	case <-t.done:
		return nil
	case t.producer <- transport.Received{From: from, Payload: payload}:
		return nil
	case <-time.After(250 * time.Millisecond):
		return errors.New("loopback: receiver too slow, message dropped")
	}
}

// Unicast implements transport.Transport.
func (t *Transport) Unicast(ctx context.Context, dest group.Address, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return t.bus.deliver(t.local, dest, payload)
}

// Multicast implements transport.Transport.
func (t *Transport) Multicast(ctx context.Context, payload []byte) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	t.bus.broadcast(t.local, payload)
	return nil
}

// Listen implements transport.Transport.
func (t *Transport) Listen() <-chan transport.Received {
	return t.producer
}

// LocalAddress implements transport.Transport.
func (t *Transport) LocalAddress() group.Address {
	return t.local
}

// Close implements transport.Transport.
func (t *Transport) Close() error {
	t.closeOne.Do(func() {
		t.bus.deregister(t.local)
		close(t.done)
		close(t.producer)
	})
	return nil
}
