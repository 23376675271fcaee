package executor

// remoteError wraps the exception message a consumer sent back in a
// TASK_EXCEPTION frame, so Future.Get returns an error the caller can
// inspect without needing executor-specific types at the call site.
type remoteError struct {
	message string
}

func newRemoteError(payload []byte) error {
	return &remoteError{message: string(payload)}
}

func (e *remoteError) Error() string { return "executor: task failed: " + e.message }
