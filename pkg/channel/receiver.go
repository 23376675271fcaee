package channel

import "github.com/jabolina/grouptoolkit/pkg/group"

// Receiver is the application callback invoked for every message
// delivered to this member, in delivery order.
type Receiver interface {
	Receive(msg *group.Message)
}

// ReceiverFunc adapts a plain function to a Receiver.
type ReceiverFunc func(msg *group.Message)

func (f ReceiverFunc) Receive(msg *group.Message) { f(msg) }

// StateProvider is called once per GET_APPLSTATE request reaching
// this member as a state-transfer provider. It must return a snapshot
// safe to hand to another member; a nil return means "no state yet".
type StateProvider func() []byte
