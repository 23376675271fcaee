package group

import "errors"

var (
	// ErrConfiguration is returned when a stack cannot be started
	// because its layers do not satisfy each other's required
	// services. Stack.Validate does not check for duplicated layers.
	ErrConfiguration = errors.New("group: configuration error")

	// ErrNilArgument is returned when an operation is called with a
	// required argument missing, e.g. Channel.Send(nil).
	ErrNilArgument = errors.New("group: nil argument")

	// ErrChannelClosed is returned by Channel.Send and Channel.GetState
	// whenever the channel is not CONNECTED.
	ErrChannelClosed = errors.New("group: channel is closed")

	// ErrDuplicateProtocol names the condition of two instances of a
	// singleton protocol (e.g. state-transfer) in the same stack. No
	// code in this module returns it; no layer exchanges CONFIG events
	// or checks for such duplicates.
	ErrDuplicateProtocol = errors.New("group: duplicate protocol in stack")
)
