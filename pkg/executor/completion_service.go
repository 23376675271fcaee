package executor

import "context"

// CompletionService hands back submitted futures in completion order
// rather than submission order, the "completion-service variant"
// named by the spec's normal-submission-flow step 5. A caller takes a
// future with Take once it knows it no longer needs to wait on a
// specific request id.
type CompletionService struct {
	protocol *Protocol
	results  chan *Future
}

// NewCompletionService wraps protocol; every future returned by
// SubmitTracked also gets pushed onto results as soon as it resolves.
// The queue holds 64 futures; one that resolves while it is full is
// not queued.
func NewCompletionService(protocol *Protocol) *CompletionService {
	return &CompletionService{protocol: protocol, results: make(chan *Future, 64)}
}

// SubmitTracked behaves like Protocol.Submit but additionally arranges
// for the future to be pushed onto the completion queue once resolved.
// If ctx is done before the future resolves, it is never queued.
func (c *CompletionService) SubmitTracked(ctx context.Context, descriptor TaskDescriptor) (*Future, error) {
	fut, err := c.protocol.Submit(descriptor)
	if err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-fut.done:
		case <-ctx.Done():
			return
		}
		select {
		case c.results <- fut:
		default:
		}
	}()
	return fut, nil
}

// Take blocks until a tracked submission completes, returning it in
// completion order.
func (c *CompletionService) Take(ctx context.Context) (*Future, error) {
	select {
	case fut := <-c.results:
		return fut, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
