// Package transport hosts the external collaborators the spec treats
// as interfaces only: a best-effort/unicast-capable wire transport, a
// reliable-FIFO delivery layer with digest and barrier support, and a
// stability (message-GC) layer that can be suspended during state
// transfer. Concrete implementations here are reference quality,
// sufficient to host and exercise the state-transfer and executor
// protocols end to end in tests.
package transport

import (
	"context"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// Transport is the wire-level primitive every node is given. It makes
// no ordering or reliability promises beyond best-effort delivery; the
// ReliableDelivery layer built on top of it adds sequence numbers and
// the Digest but does not reorder what arrives.
type Transport interface {
	// Unicast sends payload to exactly one address.
	Unicast(ctx context.Context, dest group.Address, payload []byte) error

	// Multicast sends payload to every other currently known member.
	Multicast(ctx context.Context, payload []byte) error

	// Listen returns the channel of raw payloads arriving from other
	// members, tagged with their sender.
	Listen() <-chan Received

	// LocalAddress returns the address this transport was bound to.
	LocalAddress() group.Address

	// Close shuts the transport down; Listen's channel is closed.
	Close() error
}

// Received pairs an inbound payload with the address that sent it.
type Received struct {
	From    group.Address
	Payload []byte
}
