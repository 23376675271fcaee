package transport

import (
	"sync"
	"time"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

// StabilityProtocolName is the registry key for the stability layer.
const StabilityProtocolName = "STABILITY"

// StabilityProtocol is the reference message-GC/stability layer. It
// honors SUSPEND_STABLE/RESUME_STABLE by counting suspensions (a
// suspension with a timeout is lifted when the timeout fires), which
// IsSuspended reports; it holds no message buffers and trims nothing.
type StabilityProtocol struct {
	group.BaseProtocol

	mutex     sync.Mutex
	suspended int
	timer     *time.Timer
}

// NewStabilityProtocol builds a StabilityProtocol.
func NewStabilityProtocol() *StabilityProtocol {
	return &StabilityProtocol{}
}

func (s *StabilityProtocol) Name() string { return StabilityProtocolName }

func (s *StabilityProtocol) ProvidedServices() []group.EventType {
	return []group.EventType{group.EvSuspendStable, group.EvResumeStable}
}

func (s *StabilityProtocol) Down(event *group.Event) *group.Event {
	switch event.Type {
	case group.EvSuspendStable:
		arg, _ := event.Arg.(group.SuspendStableArg)
		s.mutex.Lock()
		s.suspended++
		if s.timer != nil {
			s.timer.Stop()
		}
		if arg.Timeout > 0 {
			s.timer = time.AfterFunc(arg.Timeout, s.forceResume)
		}
		s.mutex.Unlock()
		return nil
	case group.EvResumeStable:
		s.mutex.Lock()
		if s.suspended > 0 {
			s.suspended--
		}
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
		s.mutex.Unlock()
		return nil
	default:
		return s.PassDown(event)
	}
}

func (s *StabilityProtocol) Up(event *group.Event) *group.Event {
	return s.PassUp(event)
}

// IsSuspended reports whether stability trimming is currently paused.
func (s *StabilityProtocol) IsSuspended() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.suspended > 0
}

func (s *StabilityProtocol) forceResume() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.suspended > 0 {
		s.suspended--
	}
}
