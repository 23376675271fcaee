// Package executor implements C6: a distributed executor where any
// member may submit a callable, any member registered as a consumer
// may run it, and the first member of the view acts as coordinator,
// matching submissions to consumers and surviving its own failover.
// Grounded on the teacher's request/response wiring in
// pkg/mcast/core/peer.go (owner-keyed pending-request map, future
// resolution by id) generalized from a single quorum-write request
// type to the wire frames this spec names.
package executor

import "github.com/jabolina/grouptoolkit/pkg/group"

// Owner uniquely identifies a submission across the group: the
// submitting member's address paired with a locally-assigned request
// id. It survives coordinator failover — a resubmission after a new
// coordinator is elected carries the same Owner so the new coordinator
// can deduplicate it.
type Owner struct {
	Address   group.Address
	RequestID int64
}
