package group

import "time"

// EventType tags the payload carried by an Event. Every layer decides,
// for each type it recognizes, whether to consume it, transform it, or
// forward it unchanged to its neighbor.
type EventType int

const (
	// EvMsg carries a Message travelling up or down the stack.
	EvMsg EventType = iota
	// EvViewChange carries a *View delivered in total order.
	EvViewChange
	// EvTmpView carries a provisional *View seen during a view change
	// before it is confirmed.
	EvTmpView
	// EvConfig carries a map[string]interface{} of inter-layer
	// configuration exchanged once at stack start.
	EvConfig
	// EvSetLocalAddress carries the Address assigned to this node.
	EvSetLocalAddress
	// EvGetState carries a *StateTransferInfo: the application asking
	// to be brought up to date with the group's state.
	EvGetState
	// EvGetStateOK carries a *StateTransferInfo with State populated
	// (or left nil on an unrecoverable provider crash), delivered
	// upward to satisfy a prior EvGetState.
	EvGetStateOK
	// EvGetApplState asks the application layer above C5 for its
	// current state as a byte slice.
	EvGetApplState
	// EvGetApplStateOK carries the application's []byte state in
	// response to EvGetApplState.
	EvGetApplStateOK
	// EvGetDigest asks the reliable-delivery layer for a *Digest
	// snapshot of its current delivery progress.
	EvGetDigest
	// EvOverwriteDigest carries a *Digest the reliable-delivery layer
	// must install, replacing its own bookkeeping.
	EvOverwriteDigest
	// EvCloseBarrier asks the reliable-delivery layer to pause upward
	// delivery to the application.
	EvCloseBarrier
	// EvOpenBarrier reverses a prior EvCloseBarrier.
	EvOpenBarrier
	// EvSuspendStable asks the stability/GC layer to pause trimming,
	// carrying a time.Duration upper bound.
	EvSuspendStable
	// EvResumeStable reverses a prior EvSuspendStable.
	EvResumeStable
)

func (t EventType) String() string {
	switch t {
	case EvMsg:
		return "MSG"
	case EvViewChange:
		return "VIEW_CHANGE"
	case EvTmpView:
		return "TMP_VIEW"
	case EvConfig:
		return "CONFIG"
	case EvSetLocalAddress:
		return "SET_LOCAL_ADDRESS"
	case EvGetState:
		return "GET_STATE"
	case EvGetStateOK:
		return "GET_STATE_OK"
	case EvGetApplState:
		return "GET_APPLSTATE"
	case EvGetApplStateOK:
		return "GET_APPLSTATE_OK"
	case EvGetDigest:
		return "GET_DIGEST"
	case EvOverwriteDigest:
		return "OVERWRITE_DIGEST"
	case EvCloseBarrier:
		return "CLOSE_BARRIER"
	case EvOpenBarrier:
		return "OPEN_BARRIER"
	case EvSuspendStable:
		return "SUSPEND_STABLE"
	case EvResumeStable:
		return "RESUME_STABLE"
	default:
		return "UNKNOWN"
	}
}

// Event is the tagged envelope passed between layers in both
// directions. Arg holds the type-specific payload described alongside
// each EventType above.
type Event struct {
	Type EventType
	Arg  interface{}
}

// NewEvent builds an Event of the given type carrying arg.
func NewEvent(t EventType, arg interface{}) *Event {
	return &Event{Type: t, Arg: arg}
}

// SuspendStableArg is the argument carried by EvSuspendStable.
type SuspendStableArg struct {
	Timeout time.Duration
}
