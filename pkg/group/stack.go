package group

import "fmt"

// Stack is an ordered chain of protocols, top to bottom. The top layer
// is closest to the application; the bottom layer is closest to the
// network. It owns every Protocol it holds; Protocols only hold
// non-owning up/down references set up during composition.
type Stack struct {
	// layers is ordered top-first.
	layers  []Protocol
	started bool
}

// NewStack builds an empty Stack.
func NewStack() *Stack {
	return &Stack{}
}

// InsertAtTop adds p as the new topmost layer.
func (s *Stack) InsertAtTop(p Protocol) {
	s.layers = append([]Protocol{p}, s.layers...)
	s.relink()
}

// InsertAtBottom adds p as the new bottommost layer.
func (s *Stack) InsertAtBottom(p Protocol) {
	s.layers = append(s.layers, p)
	s.relink()
}

// relink recomputes every layer's up/down neighbor after an insert.
func (s *Stack) relink() {
	for i, p := range s.layers {
		var up, down Protocol
		if i > 0 {
			up = s.layers[i-1]
		}
		if i < len(s.layers)-1 {
			down = s.layers[i+1]
		}
		p.setNeighbors(up, down)
	}
}

// FindByName returns the layer registered under name, if any.
func (s *Stack) FindByName(name string) (Protocol, bool) {
	for _, p := range s.layers {
		if p.Name() == name {
			return p, true
		}
	}
	return nil, false
}

// FindProtocol returns the first layer assignable to T.
func FindProtocol[T Protocol](s *Stack) (T, bool) {
	var zero T
	for _, p := range s.layers {
		if t, ok := p.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// Layers returns the stack's layers, top first. The returned slice must
// not be mutated.
func (s *Stack) Layers() []Protocol {
	return s.layers
}

// Validate checks that every layer's required up/down services are
// honored somewhere in the composed chain, failing loudly (a
// configuration error, not a panic) rather than silently dropping
// events at runtime.
func (s *Stack) Validate() error {
	providedAbove := make(map[int]map[EventType]bool, len(s.layers))
	providedBelow := make(map[int]map[EventType]bool, len(s.layers))

	acc := map[EventType]bool{}
	for i, p := range s.layers {
		providedAbove[i] = cloneSet(acc)
		for _, svc := range p.ProvidedServices() {
			acc[svc] = true
		}
	}
	acc = map[EventType]bool{}
	for i := len(s.layers) - 1; i >= 0; i-- {
		providedBelow[i] = cloneSet(acc)
		for _, svc := range s.layers[i].ProvidedServices() {
			acc[svc] = true
		}
	}

	for i, p := range s.layers {
		for _, need := range p.RequiredUpServices() {
			if !providedAbove[i][need] {
				return fmt.Errorf("%w: layer %q requires up-service %s that no layer above it provides", ErrConfiguration, p.Name(), need)
			}
		}
		for _, need := range p.RequiredDownServices() {
			if !providedBelow[i][need] {
				return fmt.Errorf("%w: layer %q requires down-service %s that no layer below it provides", ErrConfiguration, p.Name(), need)
			}
		}
	}
	return nil
}

func cloneSet(m map[EventType]bool) map[EventType]bool {
	cp := make(map[EventType]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// Start validates the stack, then starts every layer bottom to top.
// Idempotent: calling Start twice is a no-op on the second call.
func (s *Stack) Start() error {
	if s.started {
		return nil
	}
	if err := s.Validate(); err != nil {
		return err
	}
	for i := len(s.layers) - 1; i >= 0; i-- {
		if err := s.layers[i].Start(); err != nil {
			return fmt.Errorf("group: starting layer %q: %w", s.layers[i].Name(), err)
		}
	}
	s.started = true
	return nil
}

// Stop stops every layer top to bottom. Idempotent.
func (s *Stack) Stop() error {
	if !s.started {
		return nil
	}
	for _, p := range s.layers {
		if err := p.Stop(); err != nil {
			return fmt.Errorf("group: stopping layer %q: %w", p.Name(), err)
		}
	}
	s.started = false
	return nil
}

// Down sends event into the topmost layer, travelling toward the
// network. Used by the application-facing Channel facade.
func (s *Stack) Down(event *Event) *Event {
	if len(s.layers) == 0 {
		return event
	}
	return s.layers[0].Down(event)
}

// Up sends event into the bottommost layer, travelling toward the
// application.
func (s *Stack) Up(event *Event) *Event {
	if len(s.layers) == 0 {
		return event
	}
	return s.layers[len(s.layers)-1].Up(event)
}

// DownFrom enters the chain at the named layer instead of the top,
// matching the spec's "up/down enter at a specific layer" requirement
// — useful for tests driving a single protocol in isolation.
func (s *Stack) DownFrom(name string, event *Event) (*Event, error) {
	p, ok := s.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("group: no layer named %q", name)
	}
	return p.Down(event), nil
}

// UpFrom enters the chain at the named layer instead of the bottom.
func (s *Stack) UpFrom(name string, event *Event) (*Event, error) {
	p, ok := s.FindByName(name)
	if !ok {
		return nil, fmt.Errorf("group: no layer named %q", name)
	}
	return p.Up(event), nil
}
