package executor

import "context"

// ExecutionRunner drives one consumer slot: it advertises readiness to
// the coordinator, waits for a dispatch, executes the task, reports
// the result, and re-advertises — until ctx is cancelled, at which
// point it advertises CONSUMER_UNREADY and returns.
type ExecutionRunner struct {
	protocol *Protocol
}

// NewExecutionRunner builds a runner bound to protocol.
func NewExecutionRunner(protocol *Protocol) *ExecutionRunner {
	return &ExecutionRunner{protocol: protocol}
}

// Run blocks, executing dispatched tasks in order, until ctx is done.
func (r *ExecutionRunner) Run(ctx context.Context) {
	p := r.protocol
	for {
		p.advertiseReady()

		select {
		case <-ctx.Done():
			p.advertiseUnready()
			return
		case d := <-p.dispatchCh:
			r.execute(ctx, d)
		}
	}
}

func (p *Protocol) advertiseReady() {
	p.sendFrame(ConsumerReady, Owner{Address: p.local}, p.coordinator(), nil)
}

func (p *Protocol) advertiseUnready() {
	p.sendFrame(ConsumerUnready, Owner{Address: p.local}, p.coordinator(), nil)
}

func (r *ExecutionRunner) execute(parent context.Context, d dispatched) {
	p := r.protocol
	task, err := d.descriptor.Build()
	if err != nil {
		p.sendFrame(TaskException, d.owner, d.owner.Address, []byte(err.Error()))
		return
	}

	runCtx, cancel := context.WithCancel(parent)
	p.executionLock.Lock()
	p.executing[d.owner] = cancel
	p.executionLock.Unlock()
	defer func() {
		p.executionLock.Lock()
		delete(p.executing, d.owner)
		p.executionLock.Unlock()
		cancel()
	}()

	result, err := task.Run(runCtx)
	switch {
	case runCtx.Err() != nil:
		p.sendFrame(TaskCancelled, d.owner, d.owner.Address, nil)
	case err != nil:
		p.sendFrame(TaskException, d.owner, d.owner.Address, []byte(err.Error()))
	default:
		p.sendFrame(TaskResult, d.owner, d.owner.Address, result)
	}
}
