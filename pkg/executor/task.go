package executor

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sync"
)

// Task is the unit of work dispatched to a consumer. Run must honor
// ctx: when the owning submission is cancelled with interrupt=true,
// ctx is cancelled and Run is expected to return promptly.
type Task interface {
	Run(ctx context.Context) ([]byte, error)
}

// Constructor rebuilds a Task from the arguments carried over the
// wire. Since a Go func value cannot be serialized, a non-serializable
// callable is represented as a (constructor name, argument bytes) pair
// instead: the constructor is registered ahead of time on every node
// that may act as a consumer, and only the name and arguments travel
// the network.
type Constructor func(args []byte) (Task, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// RegisterTask makes a constructor available under name on this
// process. It must be called (with the same name) on every node that
// may run as a consumer before a TaskDescriptor naming it is dispatched
// there.
func RegisterTask(name string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = ctor
}

func lookupTask(name string) (Constructor, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	ctor, ok := registry[name]
	return ctor, ok
}

// TaskDescriptor is the portable carrier for a submission: a
// constructor name known on every consumer, plus opaque arguments for
// it. This is what actually travels as the message payload for
// RUN_REQUEST and TASK_DISPATCH frames.
type TaskDescriptor struct {
	Constructor string
	Args        []byte
}

// Build reconstructs the Task this descriptor names, failing if no
// constructor was registered under that name on this node.
func (d TaskDescriptor) Build() (Task, error) {
	ctor, ok := lookupTask(d.Constructor)
	if !ok {
		return nil, fmt.Errorf("executor: no task constructor registered for %q", d.Constructor)
	}
	return ctor(d.Args)
}

func encodeDescriptor(d TaskDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(d); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeDescriptor(payload []byte) (TaskDescriptor, error) {
	var d TaskDescriptor
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&d); err != nil {
		return TaskDescriptor{}, err
	}
	return d, nil
}
