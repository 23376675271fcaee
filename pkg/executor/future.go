package executor

import (
	"context"
	"errors"
)

// ErrCancelled is returned by Future.Get when the submission completed
// as cancelled rather than with a result.
var ErrCancelled = errors.New("executor: task was cancelled")

// ErrShutdown is returned by Submit when the executor has been shut
// down and is rejecting new submissions.
var ErrShutdown = errors.New("executor: rejected, shut down")

// Future is resolved exactly once, by a TASK_RESULT, TASK_EXCEPTION,
// or TASK_CANCELLED frame naming its request id, or by a successful
// Cancel call before dispatch.
type Future struct {
	owner  Owner
	done   chan struct{}
	result []byte
	err    error

	cancel func(mayInterrupt bool) error
}

func newFuture(owner Owner, cancel func(mayInterrupt bool) error) *Future {
	return &Future{owner: owner, done: make(chan struct{}), cancel: cancel}
}

func (f *Future) resolve(result []byte, err error) {
	select {
	case <-f.done:
		return // already resolved
	default:
	}
	f.result = result
	f.err = err
	close(f.done)
}

// Owner returns the (address, request_id) pair identifying this
// submission across the group.
func (f *Future) Owner() Owner { return f.owner }

// Get blocks until the future resolves or ctx is done.
func (f *Future) Get(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel asks the coordinator to drop the task if it hasn't been
// dispatched yet, or to interrupt the consumer running it when
// mayInterrupt is true.
func (f *Future) Cancel(mayInterrupt bool) error {
	return f.cancel(mayInterrupt)
}
