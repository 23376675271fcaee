package group

import "fmt"

// ViewId is a monotonically increasing view epoch, paired with the
// address of the member that installed it.
type ViewId struct {
	Id      int64
	Creator Address
}

// After reports whether the receiver was installed strictly after other.
func (v ViewId) After(other ViewId) bool {
	return v.Id > other.Id
}

// View is the ordered membership snapshot delivered in total order to
// every node. The first member is the coordinator by convention.
type View struct {
	Id      ViewId
	Members []Address
}

// NewView builds a View, the first member becoming coordinator.
func NewView(id ViewId, members []Address) *View {
	cp := make([]Address, len(members))
	copy(cp, members)
	return &View{Id: id, Members: cp}
}

// Coordinator returns the first member of the view, or the zero
// Address if the view has no members.
func (v *View) Coordinator() Address {
	if v == nil || len(v.Members) == 0 {
		return ""
	}
	return v.Members[0]
}

// Contains reports whether addr is a member of this view.
func (v *View) Contains(addr Address) bool {
	if v == nil {
		return false
	}
	for _, m := range v.Members {
		if m == addr {
			return true
		}
	}
	return false
}

// Size returns the member count.
func (v *View) Size() int {
	if v == nil {
		return 0
	}
	return len(v.Members)
}

func (v *View) String() string {
	if v == nil {
		return "<nil view>"
	}
	return fmt.Sprintf("View{id=%d, creator=%s, members=%v}", v.Id.Id, v.Id.Creator, v.Members)
}
