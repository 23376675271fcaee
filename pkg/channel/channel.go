package channel

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
)

// ErrTimeout is returned by GetState when no response arrives within
// the requested timeout and the provider has not crashed out of the
// view either (it is simply slow).
var ErrTimeout = fmt.Errorf("group: state transfer timed out")

// Channel is the application-facing facade over a Stack: Connect/
// Disconnect/Close drive the CLOSED/OPEN/CONNECTED state machine,
// Send/GetState are the two operations an application actually needs.
type Channel struct {
	local      group.Address
	stack      *group.Stack
	app        *ApplicationProtocol
	membership *group.MembershipProtocol

	state   atomic.Int32
	getMu   sync.Mutex
	cluster string
}

// NewChannel wires a Channel around an already-assembled stack. app
// must be the stack's topmost layer and membership the layer holding
// its View, so GetView/GetAddress and the state machine can observe
// them directly rather than traveling through the stack.
func NewChannel(local group.Address, stack *group.Stack, app *ApplicationProtocol, membership *group.MembershipProtocol) *Channel {
	c := &Channel{local: local, stack: stack, app: app, membership: membership}
	c.state.Store(int32(Closed))
	return c
}

// State returns the channel's current lifecycle state.
func (c *Channel) State() State { return State(c.state.Load()) }

func (c *Channel) IsOpen() bool      { s := c.State(); return s == Open || s == Connected }
func (c *Channel) IsConnected() bool { return c.State() == Connected }

// GetAddress returns this member's address.
func (c *Channel) GetAddress() group.Address { return c.local }

// GetView returns the last view delivered to the application layer,
// which may be nil before the first view is installed.
func (c *Channel) GetView() *group.View { return c.app.CurrentView() }

// Connect starts the underlying stack and joins clusterName. Joining a
// cluster's view is outside this package's scope (it is the job of an
// external membership/discovery protocol that installs a View via the
// MembershipProtocol this Channel was built with); Connect itself only
// drives the OPEN transition and then CONNECTED once the stack has
// started successfully, since a stack with no membership protocol
// wired below it has nothing further to wait for. A Channel left OPEN
// by Disconnect returns to CONNECTED without restarting the stack.
func (c *Channel) Connect(clusterName string) error {
	if c.state.CompareAndSwap(int32(Open), int32(Connected)) {
		c.cluster = clusterName
		return nil
	}
	if !c.state.CompareAndSwap(int32(Closed), int32(Open)) {
		return fmt.Errorf("group: channel already %s, cannot connect", c.State())
	}
	c.cluster = clusterName
	if err := c.stack.Start(); err != nil {
		c.state.Store(int32(Closed))
		return err
	}
	c.state.Store(int32(Connected))
	return nil
}

// Disconnect returns the Channel to OPEN while keeping the stack
// running; the installed view is left as it is. Send and GetState fail
// until the Channel reconnects.
func (c *Channel) Disconnect() error {
	if !c.state.CompareAndSwap(int32(Connected), int32(Open)) {
		return nil
	}
	return nil
}

// Close stops the stack and moves the Channel to CLOSED permanently;
// a closed Channel must be discarded, not reconnected.
func (c *Channel) Close() error {
	prev := State(c.state.Swap(int32(Closed)))
	if prev == Closed {
		return nil
	}
	return c.stack.Stop()
}

// SetReceiver installs r to receive every inbound application message.
func (c *Channel) SetReceiver(r Receiver) { c.app.SetReceiver(r) }

// SetStateProvider installs p to answer state-transfer requests from
// other members asking this one for its application state.
func (c *Channel) SetStateProvider(p StateProvider) { c.app.SetStateProvider(p) }

// Send multicasts msg to the current view, or unicasts it if msg.Dest
// is set.
func (c *Channel) Send(msg *group.Message) error {
	if msg == nil {
		return group.ErrNilArgument
	}
	if !c.IsConnected() {
		return group.ErrChannelClosed
	}
	c.stack.Down(group.NewEvent(group.EvMsg, msg))
	return nil
}

// GetState asks target (or, if nil, whichever member the state-transfer
// layer picks) for its application state, blocking up to timeout. Only
// one GetState call may be outstanding at a time, mirroring the
// single-outstanding-request invariant the state-transfer layer itself
// enforces.
func (c *Channel) GetState(target *group.Address, timeout time.Duration) ([]byte, group.Address, error) {
	if !c.IsConnected() {
		return nil, "", group.ErrChannelClosed
	}

	c.getMu.Lock()
	defer c.getMu.Unlock()

	done := make(chan struct{})
	timer := time.AfterFunc(timeout, func() { close(done) })
	defer timer.Stop()

	c.stack.Down(group.NewEvent(group.EvGetState, &statetransfer.StateTransferInfo{
		Target:  target,
		Timeout: timeout,
	}))

	info, ok := c.app.awaitStateResult(done)
	if !ok {
		return nil, "", ErrTimeout
	}
	return info.State, info.Provider, nil
}
