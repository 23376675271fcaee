package statetransfer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
	"github.com/jabolina/grouptoolkit/pkg/transport"
	"github.com/jabolina/grouptoolkit/pkg/transport/loopback"
)

// appStub sits at the top of a test stack. It answers GET_APPLSTATE
// with a fixed byte slice and forwards every GET_STATE_OK it observes
// onto a channel the test can block on.
type appStub struct {
	group.BaseProtocol

	state    []byte
	okEvents chan *statetransfer.StateTransferInfo
}

func newAppStub(state []byte) *appStub {
	return &appStub{state: state, okEvents: make(chan *statetransfer.StateTransferInfo, 8)}
}

func (a *appStub) Name() string { return "APP" }

func (a *appStub) Down(event *group.Event) *group.Event { return a.PassDown(event) }

func (a *appStub) Up(event *group.Event) *group.Event {
	switch event.Type {
	case group.EvGetApplState:
		return group.NewEvent(group.EvGetApplStateOK, a.state)
	case group.EvGetStateOK:
		if info, ok := event.Arg.(*statetransfer.StateTransferInfo); ok {
			a.okEvents <- info
		}
		return nil
	default:
		return a.PassUp(event)
	}
}

func (a *appStub) waitForStateOK(t *testing.T, timeout time.Duration) *statetransfer.StateTransferInfo {
	t.Helper()
	select {
	case info := <-a.okEvents:
		return info
	case <-time.After(timeout):
		t.Fatal("timed out waiting for GET_STATE_OK")
		return nil
	}
}

// node bundles together everything a single test member needs: its
// stack, membership layer, application stub, and transport.
type node struct {
	addr       group.Address
	stack      *group.Stack
	membership *group.MembershipProtocol
	app        *appStub
	stp        *statetransfer.Protocol
}

func newNode(t *testing.T, bus *loopback.Bus, addr group.Address, appState []byte) *node {
	t.Helper()
	log := group.NewDefaultLogger()
	tr := bus.NewTransport(addr)
	membership := group.NewMembershipProtocol()
	stp := statetransfer.NewProtocol(addr, membership, log)
	app := newAppStub(appState)

	var t0 transport.Transport = tr
	s := group.NewStack()
	// Bottom to top: transport, reliable delivery, stability, membership,
	// state-transfer, application.
	s.InsertAtTop(transport.NewBottomProtocol(addr, t0, log))
	s.InsertAtTop(transport.NewReliableProtocol())
	s.InsertAtTop(transport.NewStabilityProtocol())
	s.InsertAtTop(membership)
	s.InsertAtTop(stp)
	s.InsertAtTop(app)

	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	return &node{addr: addr, stack: s, membership: membership, app: app, stp: stp}
}

func TestStateTransfer_AloneInViewGetsEmptyStateImmediately(t *testing.T) {
	bus := loopback.NewBus()
	a := newNode(t, bus, "A", nil)

	a.membership.InstallView(group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A"}))

	a.stack.Down(group.NewEvent(group.EvGetState, &statetransfer.StateTransferInfo{Timeout: time.Second}))

	info := a.app.waitForStateOK(t, time.Second)
	require.Nil(t, info.State)
}

func TestStateTransfer_TwoMembersTransfersApplicationState(t *testing.T) {
	bus := loopback.NewBus()
	providerState := []byte("hello from B")

	a := newNode(t, bus, "A", nil)
	b := newNode(t, bus, "B", providerState)

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)

	a.stack.Down(group.NewEvent(group.EvGetState, &statetransfer.StateTransferInfo{Timeout: 2 * time.Second}))

	info := a.app.waitForStateOK(t, 2*time.Second)
	require.Equal(t, providerState, info.State)
	require.Equal(t, group.Address("B"), info.Provider)

	snap := b.stp.StatsSnapshot()
	require.Equal(t, uint64(1), snap.NumStateReqs)
	require.Equal(t, uint64(len(providerState)), snap.NumBytesSent)
}

func TestStateTransfer_ProviderLeavingViewUnblocksWaiter(t *testing.T) {
	bus := loopback.NewBus()
	a := newNode(t, bus, "A", nil)

	// "ghost" is a view member with no registered transport: sending it
	// a STATE_REQ silently fails, modelling a provider that crashed
	// before it could answer.
	initial := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "ghost"})
	a.membership.InstallView(initial)

	a.stack.Down(group.NewEvent(group.EvGetState, &statetransfer.StateTransferInfo{Timeout: 5 * time.Second}))

	next := group.NewView(group.ViewId{Id: 2, Creator: "A"}, []group.Address{"A"})
	a.membership.InstallView(next)

	info := a.app.waitForStateOK(t, time.Second)
	require.Nil(t, info.State)
}
