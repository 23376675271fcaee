package group

// Protocol is a single layer in the stack. Implementations receive
// events from their neighbors via Up/Down and return either nil (the
// event was fully consumed) or an Event to keep propagating — usually
// the same event, sometimes a transformed one.
//
// Up/Down entry points must be safe to call concurrently from
// arbitrary goroutines (transport I/O threads, application threads,
// timers); a layer owns whatever synchronization it needs internally.
type Protocol interface {
	// Name identifies the protocol, used for FindByName and for the
	// config-exchange key space.
	Name() string

	// Up handles an event arriving from the layer below, travelling
	// toward the application.
	Up(event *Event) *Event

	// Down handles an event arriving from the layer above, travelling
	// toward the network.
	Down(event *Event) *Event

	// RequiredUpServices lists the event types this protocol needs its
	// up-neighbor (or the application above it) to understand and
	// honor, e.g. a state-transfer layer needs the layer above it to
	// answer GET_APPLSTATE.
	RequiredUpServices() []EventType

	// RequiredDownServices lists the event types this protocol needs
	// its down-neighbor to honor, e.g. state-transfer needs
	// CLOSE_BARRIER/OPEN_BARRIER/GET_DIGEST/OVERWRITE_DIGEST.
	RequiredDownServices() []EventType

	// ProvidedServices lists the event types this protocol itself
	// honors when it receives them from its neighbors, used by Stack
	// to validate RequiredUpServices/RequiredDownServices at start.
	ProvidedServices() []EventType

	// Start and Stop are lifecycle hooks, invoked bottom-to-top and
	// top-to-bottom respectively by the owning Stack. Both must be
	// idempotent.
	Start() error
	Stop() error

	// setNeighbors wires the non-owning up/down references; called
	// only by Stack during composition.
	setNeighbors(up, down Protocol)
	upNeighbor() Protocol
	downNeighbor() Protocol
}

// BaseProtocol implements the neighbor bookkeeping and the
// zero-requirement/no-op lifecycle methods every layer needs, so
// concrete protocols can embed it and only override Up/Down and the
// methods where they actually differ — matching the teacher's pattern
// of small, focused layer structs.
type BaseProtocol struct {
	up   Protocol
	down Protocol
}

func (b *BaseProtocol) setNeighbors(up, down Protocol) {
	b.up = up
	b.down = down
}

func (b *BaseProtocol) upNeighbor() Protocol   { return b.up }
func (b *BaseProtocol) downNeighbor() Protocol { return b.down }

// PassUp forwards event to the up-neighbor's Up method, or returns the
// event unchanged if there is no up-neighbor (we are the top layer).
func (b *BaseProtocol) PassUp(event *Event) *Event {
	if b.up == nil {
		return event
	}
	return b.up.Up(event)
}

// PassDown forwards event to the down-neighbor's Down method, or
// returns the event unchanged if there is no down-neighbor (we are the
// bottom layer).
func (b *BaseProtocol) PassDown(event *Event) *Event {
	if b.down == nil {
		return event
	}
	return b.down.Down(event)
}

// RequiredUpServices default: none.
func (b *BaseProtocol) RequiredUpServices() []EventType { return nil }

// RequiredDownServices default: none.
func (b *BaseProtocol) RequiredDownServices() []EventType { return nil }

// ProvidedServices default: none.
func (b *BaseProtocol) ProvidedServices() []EventType { return nil }

// Start default: no-op, idempotent by construction.
func (b *BaseProtocol) Start() error { return nil }

// Stop default: no-op, idempotent by construction.
func (b *BaseProtocol) Stop() error { return nil }
