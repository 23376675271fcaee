package group

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type passthroughProtocol struct {
	BaseProtocol
	name string
	ups  []EventType
}

func (p *passthroughProtocol) Name() string { return p.name }
func (p *passthroughProtocol) Up(event *Event) *Event {
	return p.PassUp(event)
}
func (p *passthroughProtocol) Down(event *Event) *Event {
	return p.PassDown(event)
}
func (p *passthroughProtocol) ProvidedServices() []EventType { return p.ups }

func TestStack_PropagatesUnconsumedEvents(t *testing.T) {
	s := NewStack()
	top := &passthroughProtocol{name: "top"}
	mid := &passthroughProtocol{name: "mid"}
	bottom := &passthroughProtocol{name: "bottom"}

	s.InsertAtTop(bottom)
	s.InsertAtTop(mid)
	s.InsertAtTop(top)

	require.NoError(t, s.Start())
	defer func() { require.NoError(t, s.Stop()) }()

	evt := NewEvent(EvMsg, "hello")
	out := s.Down(evt)
	require.Same(t, evt, out)

	out = s.Up(evt)
	require.Same(t, evt, out)
}

func TestStack_ValidateFailsOnMissingService(t *testing.T) {
	overridden := &requiresDownProtocol{passthroughProtocol: passthroughProtocol{name: "consumer-2"}}
	s := NewStack()
	s.InsertAtTop(overridden)
	err := s.Start()
	require.ErrorIs(t, err, ErrConfiguration)
}

type requiresDownProtocol struct {
	passthroughProtocol
}

func (r *requiresDownProtocol) RequiredDownServices() []EventType {
	return []EventType{EvCloseBarrier}
}

func TestStack_FindByNameAndType(t *testing.T) {
	s := NewStack()
	top := &passthroughProtocol{name: "top"}
	s.InsertAtTop(top)

	found, ok := s.FindByName("top")
	require.True(t, ok)
	require.Equal(t, top, found)

	typed, ok := FindProtocol[*passthroughProtocol](s)
	require.True(t, ok)
	require.Equal(t, top, typed)
}

func TestStack_StartStopIdempotent(t *testing.T) {
	s := NewStack()
	s.InsertAtTop(&passthroughProtocol{name: "only"})
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
}
