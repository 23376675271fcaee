package statetransfer

import "sync"

// Stats accumulates the provider-side counters the spec names in
// §4.4 step 5: how many state requests were served, how many bytes of
// state were sent in total, and the resulting running average.
type Stats struct {
	mu           sync.Mutex
	numStateReqs uint64
	numBytesSent uint64
}

// Snapshot is a point-in-time, immutable read of Stats.
type Snapshot struct {
	NumStateReqs uint64
	NumBytesSent uint64
	AvgStateSize float64
}

func (s *Stats) recordSent(n int) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numStateReqs++
	s.numBytesSent += uint64(n)
	return s.snapshotLocked()
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Stats) snapshotLocked() Snapshot {
	var avg float64
	if s.numStateReqs > 0 {
		avg = float64(s.numBytesSent) / float64(s.numStateReqs)
	}
	return Snapshot{
		NumStateReqs: s.numStateReqs,
		NumBytesSent: s.numBytesSent,
		AvgStateSize: avg,
	}
}
