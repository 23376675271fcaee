package executor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/executor"
	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/transport"
	"github.com/jabolina/grouptoolkit/pkg/transport/loopback"
)

type echoTask struct{ args []byte }

func (e echoTask) Run(ctx context.Context) ([]byte, error) {
	return e.args, nil
}

type blockingTask struct{}

func (blockingTask) Run(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type sleepTask struct {
	d    time.Duration
	name []byte
}

func (s sleepTask) Run(ctx context.Context) ([]byte, error) {
	select {
	case <-time.After(s.d):
		return s.name, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func init() {
	executor.RegisterTask("echo", func(args []byte) (executor.Task, error) {
		return echoTask{args: args}, nil
	})
	executor.RegisterTask("block", func(args []byte) (executor.Task, error) {
		return blockingTask{}, nil
	})
	executor.RegisterTask("sleep-300", func(args []byte) (executor.Task, error) {
		return sleepTask{d: 300 * time.Millisecond, name: []byte("slow")}, nil
	})
	executor.RegisterTask("sleep-100", func(args []byte) (executor.Task, error) {
		return sleepTask{d: 100 * time.Millisecond, name: []byte("fast")}, nil
	})
}

type execNode struct {
	addr       group.Address
	stack      *group.Stack
	membership *group.MembershipProtocol
	proto      *executor.Protocol
}

func newExecNode(t *testing.T, bus *loopback.Bus, addr group.Address) *execNode {
	t.Helper()
	log := group.NewDefaultLogger()
	tr := bus.NewTransport(addr)
	membership := group.NewMembershipProtocol()
	proto := executor.NewProtocol(addr, membership, log)

	var t0 transport.Transport = tr
	s := group.NewStack()
	s.InsertAtTop(transport.NewBottomProtocol(addr, t0, log))
	s.InsertAtTop(transport.NewReliableProtocol())
	s.InsertAtTop(transport.NewStabilityProtocol())
	s.InsertAtTop(membership)
	s.InsertAtTop(proto)

	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })

	return &execNode{addr: addr, stack: s, membership: membership, proto: proto}
}

func TestExecutor_SubmitDispatchAndResolve(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	b := newExecNode(t, bus, "B")

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go executor.NewExecutionRunner(b.proto).Run(ctx)

	time.Sleep(20 * time.Millisecond) // let CONSUMER_READY land before we submit

	fut, err := a.proto.Submit(executor.TaskDescriptor{Constructor: "echo", Args: []byte("payload")})
	require.NoError(t, err)

	getCtx, getCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer getCancel()
	result, err := fut.Get(getCtx)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), result)
}

func TestExecutor_CancelBeforeDispatchIsDropped(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")

	a.membership.InstallView(group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A"}))

	fut, err := a.proto.Submit(executor.TaskDescriptor{Constructor: "echo", Args: []byte("x")})
	require.NoError(t, err)

	require.NoError(t, fut.Cancel(false))

	getCtx, getCancel := context.WithTimeout(context.Background(), time.Second)
	defer getCancel()
	_, err = fut.Get(getCtx)
	require.ErrorIs(t, err, executor.ErrCancelled)
}

func TestExecutor_InterruptDispatchedTask(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	b := newExecNode(t, bus, "B")

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go executor.NewExecutionRunner(b.proto).Run(ctx)

	time.Sleep(20 * time.Millisecond)

	fut, err := a.proto.Submit(executor.TaskDescriptor{Constructor: "block"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond) // let TASK_DISPATCH land
	require.NoError(t, fut.Cancel(true))

	getCtx, getCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer getCancel()
	_, err = fut.Get(getCtx)
	require.ErrorIs(t, err, executor.ErrCancelled)
}

// TestExecutor_InterruptSelfDispatchedTask covers the case where the
// coordinator is also the consumer a task is dispatched to: the
// CANCEL_REQUEST the coordinator "forwards" targets itself, and must be
// handled as a local interrupt rather than rediscovered as a fresh
// coordinator-side cancel, which would forward to itself forever.
func TestExecutor_InterruptSelfDispatchedTask(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	a.membership.InstallView(group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A"}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go executor.NewExecutionRunner(a.proto).Run(ctx)

	time.Sleep(20 * time.Millisecond) // let CONSUMER_READY land before we submit

	fut, err := a.proto.Submit(executor.TaskDescriptor{Constructor: "block"})
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond) // let TASK_DISPATCH land
	require.NoError(t, fut.Cancel(true))

	getCtx, getCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer getCancel()
	_, err = fut.Get(getCtx)
	require.ErrorIs(t, err, executor.ErrCancelled)
}

func TestExecutor_CancelBeforeDispatchEmptiesAwaitingQueue(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	a.membership.InstallView(group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A"}))

	fut, err := a.proto.Submit(executor.TaskDescriptor{Constructor: "sleep-300"})
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond) // let RUN_REQUEST land on A
	require.Len(t, a.proto.AwaitingConsumerOwners(), 1)

	require.NoError(t, fut.Cancel(false))

	require.Empty(t, a.proto.AwaitingConsumerOwners())
}

// TestExecutor_CompletionServiceDeliversFastestFirst covers seed case 4:
// two consumers race a 300ms and a 100ms task through a completion
// service; completion order must deliver the 100ms task first.
func TestExecutor_CompletionServiceDeliversFastestFirst(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	b := newExecNode(t, bus, "B")
	c := newExecNode(t, bus, "C")

	view := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B", "C"})
	a.membership.InstallView(view)
	b.membership.InstallView(view)
	c.membership.InstallView(view)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go executor.NewExecutionRunner(b.proto).Run(ctx)
	go executor.NewExecutionRunner(c.proto).Run(ctx)

	time.Sleep(20 * time.Millisecond) // let both CONSUMER_READY advertisements land

	cs := executor.NewCompletionService(a.proto)
	submitCtx, submitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer submitCancel()

	slow, err := cs.SubmitTracked(submitCtx, executor.TaskDescriptor{Constructor: "sleep-300"})
	require.NoError(t, err)
	fast, err := cs.SubmitTracked(submitCtx, executor.TaskDescriptor{Constructor: "sleep-100"})
	require.NoError(t, err)

	first, err := cs.Take(submitCtx)
	require.NoError(t, err)
	require.Equal(t, fast.Owner(), first.Owner())

	second, err := cs.Take(submitCtx)
	require.NoError(t, err)
	require.Equal(t, slow.Owner(), second.Owner())
}

// TestExecutor_CoordinatorFailoverResendsOnce covers seed case 6: a
// submitter's RUN_REQUEST lands on the original coordinator, which then
// leaves the view before dispatching it; the submitter's pending future
// drives a single resend to the newly elected coordinator, deduplicated
// by owner so it appears there exactly once.
func TestExecutor_CoordinatorFailoverResendsOnce(t *testing.T) {
	bus := loopback.NewBus()
	a := newExecNode(t, bus, "A")
	b := newExecNode(t, bus, "B")
	c := newExecNode(t, bus, "C")

	initial := group.NewView(group.ViewId{Id: 1, Creator: "A"}, []group.Address{"A", "B", "C"})
	a.membership.InstallView(initial)
	b.membership.InstallView(initial)
	c.membership.InstallView(initial)

	fut, err := b.proto.Submit(executor.TaskDescriptor{Constructor: "echo", Args: []byte("x")})
	require.NoError(t, err)
	require.Equal(t, group.Address("B"), fut.Owner().Address)
	require.Equal(t, int64(0), fut.Owner().RequestID)

	time.Sleep(20 * time.Millisecond) // let RUN_REQUEST land on A
	require.Len(t, a.proto.RunRequestOwners(), 1)

	require.NoError(t, a.stack.Stop())

	next := group.NewView(group.ViewId{Id: 2, Creator: "B"}, []group.Address{"C", "B"})
	b.membership.InstallView(next)
	c.membership.InstallView(next)

	time.Sleep(50 * time.Millisecond) // let the resent RUN_REQUEST land on C

	owners := c.proto.RunRequestOwners()
	require.Len(t, owners, 1)
	require.Equal(t, fut.Owner(), owners[0])
}
