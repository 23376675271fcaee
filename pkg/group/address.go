package group

import "github.com/google/uuid"

// Address is the opaque, hashable, totally orderable identity of a
// group member. It is generated by the transport layer at connect
// time and never reused for the lifetime of a process.
type Address string

// GenerateAddress produces a fresh Address suitable for a newly
// connected member. Backed by uuid instead of the teacher's ad hoc
// name+counter scheme, since every member must be globally unique
// without coordination.
func GenerateAddress() Address {
	return Address(uuid.New().String())
}

// Less gives Address a total order, used to break ties deterministically
// (e.g. when two addresses race for the same slot in a view).
func (a Address) Less(other Address) bool {
	return string(a) < string(other)
}

func (a Address) String() string {
	return string(a)
}
