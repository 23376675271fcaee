package group

import (
	"fmt"
	"sync"
)

// ProtocolID is the small integer key a protocol uses to tag and
// retrieve its own Header on a Message. The mapping from a protocol's
// name to its id is the only process-wide state in this module, and
// must be fully populated before any Stack built from it is started.
type ProtocolID uint16

// idRegistry is a name -> id registry, populated at stack-configuration
// time. It is intentionally the one piece of global state the design
// notes call out: every other piece of state lives on a Stack or
// Channel instance.
type idRegistry struct {
	mutex sync.Mutex
	names map[string]ProtocolID
	next  ProtocolID
}

var registry = &idRegistry{names: make(map[string]ProtocolID), next: 1}

// RegisterProtocolName assigns (or returns the existing) ProtocolID for
// name. Safe to call repeatedly with the same name.
func RegisterProtocolName(name string) ProtocolID {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if id, ok := registry.names[name]; ok {
		return id
	}
	id := registry.next
	registry.next++
	registry.names[name] = id
	return id
}

// LookupProtocolID returns the id registered for name, if any.
func LookupProtocolID(name string) (ProtocolID, bool) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	id, ok := registry.names[name]
	return id, ok
}

// MustProtocolID is like LookupProtocolID but panics when the name was
// never registered; intended for programmer errors at wiring time, not
// runtime faults.
func MustProtocolID(name string) ProtocolID {
	id, ok := LookupProtocolID(name)
	if !ok {
		panic(fmt.Sprintf("group: protocol name %q was never registered", name))
	}
	return id
}
