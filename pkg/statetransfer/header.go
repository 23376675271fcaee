// Package statetransfer implements C5: synchronizing a joining or
// reconnecting member with the group's application state and
// delivery checkpoint, grounded on the teacher's Deliver/Peer
// request-response plumbing (pkg/mcast/core/deliver.go,
// pkg/mcast/core/peer.go) generalized to the spec's GET_STATE /
// STATE_REQ / STATE_RSP exchange.
package statetransfer

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

func init() {
	gob.Register(&StateHeader{})
}

// HeaderType distinguishes a state request from a state response.
type HeaderType byte

const (
	TypeReq HeaderType = 1
	TypeRsp HeaderType = 2
)

// ProtocolName is the registry key state-transfer headers are attached
// under.
const ProtocolName = "STATE_TRANSFER"

var protocolID = group.RegisterProtocolName(ProtocolName)

// StateHeader is the wire header carried by STATE_REQ and STATE_RSP
// messages. The state payload itself, if any, rides in the message
// buffer rather than the header, per the spec's External Interfaces.
type StateHeader struct {
	Type   HeaderType
	ID     int64
	Sender group.Address
	Digest *group.Digest
}

// WriteTo frames the header as {type byte}{id int64}{sender
// length-prefixed}{digest presence flag + digest}.
func (h *StateHeader) WriteTo(buf *bytes.Buffer) error {
	buf.WriteByte(byte(h.Type))
	if err := binary.Write(buf, binary.BigEndian, h.ID); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(h.Sender))); err != nil {
		return err
	}
	buf.WriteString(string(h.Sender))
	if h.Digest == nil {
		buf.WriteByte(0)
		return nil
	}
	buf.WriteByte(1)
	return h.Digest.WriteTo(buf)
}

// Size returns the number of bytes WriteTo would emit.
func (h *StateHeader) Size() int {
	size := 1 + 8 + 2 + len(h.Sender) + 1
	if h.Digest != nil {
		size += h.Digest.Size()
	}
	return size
}

// ReadStateHeader deserializes a StateHeader previously written by
// WriteTo, the ReadFrom counterpart the C1 header contract calls for.
func ReadStateHeader(buf *bytes.Reader) (*StateHeader, error) {
	typeByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("state transfer: read header type: %w", err)
	}
	h := &StateHeader{Type: HeaderType(typeByte)}
	if err := binary.Read(buf, binary.BigEndian, &h.ID); err != nil {
		return nil, fmt.Errorf("state transfer: read header id: %w", err)
	}
	var senderLen uint16
	if err := binary.Read(buf, binary.BigEndian, &senderLen); err != nil {
		return nil, fmt.Errorf("state transfer: read sender length: %w", err)
	}
	senderBytes := make([]byte, senderLen)
	if _, err := buf.Read(senderBytes); err != nil {
		return nil, fmt.Errorf("state transfer: read sender: %w", err)
	}
	h.Sender = group.Address(senderBytes)
	hasDigest, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("state transfer: read digest presence flag: %w", err)
	}
	if hasDigest != 0 {
		digest, err := group.ReadDigest(buf)
		if err != nil {
			return nil, fmt.Errorf("state transfer: read digest: %w", err)
		}
		h.Digest = digest
	}
	return h, nil
}

// StateTransferInfo is the C5 payload exchanged with the application:
// a request carries an optional Target and a Timeout, a response
// carries the Provider that served it and the State bytes (nil on an
// unrecovered provider crash).
type StateTransferInfo struct {
	Target   *group.Address
	Provider group.Address
	Timeout  time.Duration
	State    []byte
}
