package channel_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/channel"
	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
	"github.com/jabolina/grouptoolkit/pkg/transport"
	"github.com/jabolina/grouptoolkit/pkg/transport/loopback"
)

type recordingReceiver struct {
	received chan *group.Message
}

func newRecordingReceiver() *recordingReceiver {
	return &recordingReceiver{received: make(chan *group.Message, 8)}
}

func (r *recordingReceiver) Receive(msg *group.Message) { r.received <- msg }

type member struct {
	ch         *channel.Channel
	membership *group.MembershipProtocol
}

func newMember(t *testing.T, bus *loopback.Bus, addr group.Address) *member {
	t.Helper()
	log := group.NewDefaultLogger()
	tr := bus.NewTransport(addr)
	membership := group.NewMembershipProtocol()
	stp := statetransfer.NewProtocol(addr, membership, log)
	app := channel.NewApplicationProtocol()

	var t0 transport.Transport = tr
	s := group.NewStack()
	s.InsertAtTop(transport.NewBottomProtocol(addr, t0, log))
	s.InsertAtTop(transport.NewReliableProtocol())
	s.InsertAtTop(transport.NewStabilityProtocol())
	s.InsertAtTop(membership)
	s.InsertAtTop(stp)
	s.InsertAtTop(app)

	ch := channel.NewChannel(addr, s, app, membership)
	t.Cleanup(func() { _ = ch.Close() })

	return &member{ch: ch, membership: membership}
}

func TestChannel_ConnectSendReceive(t *testing.T) {
	bus := loopback.NewBus()
	a := newMember(t, bus, "A")
	b := newMember(t, bus, "B")

	require.NoError(t, a.ch.Connect("demo"))
	require.NoError(t, b.ch.Connect("demo"))
	require.True(t, a.ch.IsConnected())

	receiver := newRecordingReceiver()
	b.ch.SetReceiver(receiver)

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)

	require.NoError(t, a.ch.Send(group.NewMessage("A", nil, []byte("hi"))))

	select {
	case msg := <-receiver.received:
		require.Equal(t, []byte("hi"), msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("message never delivered")
	}
}

func TestChannel_SendOnClosedChannelFails(t *testing.T) {
	bus := loopback.NewBus()
	a := newMember(t, bus, "A")

	err := a.ch.Send(group.NewMessage("A", nil, []byte("x")))
	require.ErrorIs(t, err, group.ErrChannelClosed)
}

func TestChannel_SendNilMessageFails(t *testing.T) {
	bus := loopback.NewBus()
	a := newMember(t, bus, "A")
	require.NoError(t, a.ch.Connect("demo"))
	a.membership.InstallView(group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A"}))

	err := a.ch.Send(nil)
	require.ErrorIs(t, err, group.ErrNilArgument)
}

func TestChannel_GetStateFromOtherMember(t *testing.T) {
	bus := loopback.NewBus()
	a := newMember(t, bus, "A")
	b := newMember(t, bus, "B")

	require.NoError(t, a.ch.Connect("demo"))
	require.NoError(t, b.ch.Connect("demo"))
	b.ch.SetStateProvider(func() []byte { return []byte("b-state") })

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)

	state, provider, err := a.ch.GetState(nil, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, []byte("b-state"), state)
	require.Equal(t, group.Address("B"), provider)
}
