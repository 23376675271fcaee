package group

import "bytes"

// Header is a polymorphic value attached to a Message under a
// protocol's id. Each variant knows how to serialize itself for
// framing and how large it is, so the transport can budget buffers
// without fully encoding every header up front.
type Header interface {
	WriteTo(buf *bytes.Buffer) error
	Size() int
}

// HeaderMap is the per-message collection of protocol headers, keyed
// by the owning protocol's id. Downstream protocols must treat an
// inherited HeaderMap as copy-on-attach: Message.WithHeader never
// mutates the receiver's backing map in place, it returns a message
// carrying the augmented map.
type HeaderMap map[ProtocolID]Header

// Get returns the Header a protocol previously attached, if any.
func (h HeaderMap) Get(id ProtocolID) (Header, bool) {
	if h == nil {
		return nil, false
	}
	v, ok := h[id]
	return v, ok
}

// clone returns a shallow copy of the map so callers can attach a new
// header without mutating a Message other code still holds.
func (h HeaderMap) clone() HeaderMap {
	cp := make(HeaderMap, len(h)+1)
	for k, v := range h {
		cp[k] = v
	}
	return cp
}

// Message is the immutable frame carried between members. Dest is nil
// for a multicast send. Headers are attached per-protocol and must
// never be mutated once a Message has been handed to another layer.
type Message struct {
	Dest    *Address
	Src     Address
	Payload []byte
	Headers HeaderMap
}

// NewMessage creates a Message with no headers attached.
func NewMessage(src Address, dest *Address, payload []byte) *Message {
	return &Message{
		Dest:    dest,
		Src:     src,
		Payload: payload,
		Headers: make(HeaderMap),
	}
}

// WithHeader returns a new Message equal to the receiver but with
// header attached under id, leaving the receiver's HeaderMap
// untouched so concurrent readers of the original are never affected.
func (m *Message) WithHeader(id ProtocolID, header Header) *Message {
	cp := *m
	cp.Headers = m.Headers.clone()
	cp.Headers[id] = header
	return &cp
}

// IsMulticast reports whether this message has no specific destination.
func (m *Message) IsMulticast() bool {
	return m.Dest == nil
}
