package executor

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

func init() {
	gob.Register(&FrameHeader{})
}

// ProtocolName is the registry key executor frame headers are
// attached under.
const ProtocolName = "EXECUTOR"

var protocolID = group.RegisterProtocolName(ProtocolName)

// FrameType tags an executor wire frame.
type FrameType byte

const (
	RunRequest FrameType = iota + 1
	ConsumerReady
	ConsumerUnready
	TaskDispatch
	TaskResult
	TaskException
	TaskCancelled
	CancelRequest
)

func (t FrameType) String() string {
	switch t {
	case RunRequest:
		return "RUN_REQUEST"
	case ConsumerReady:
		return "CONSUMER_READY"
	case ConsumerUnready:
		return "CONSUMER_UNREADY"
	case TaskDispatch:
		return "TASK_DISPATCH"
	case TaskResult:
		return "TASK_RESULT"
	case TaskException:
		return "TASK_EXCEPTION"
	case TaskCancelled:
		return "TASK_CANCELLED"
	case CancelRequest:
		return "CANCEL_REQUEST"
	default:
		return "UNKNOWN"
	}
}

// FrameHeader is the wire header for every executor message; the body
// (a serialized callable or result/exception) rides in the message
// payload, as the spec's external-interfaces section specifies.
type FrameHeader struct {
	Type      FrameType
	Owner     Owner
	Interrupt bool
}

// WriteTo frames the header as {type byte}{owner.address
// length-prefixed}{owner.request_id int64}{interrupt byte}.
func (h *FrameHeader) WriteTo(buf *bytes.Buffer) error {
	buf.WriteByte(byte(h.Type))
	if err := binary.Write(buf, binary.BigEndian, uint16(len(h.Owner.Address))); err != nil {
		return err
	}
	buf.WriteString(string(h.Owner.Address))
	if err := binary.Write(buf, binary.BigEndian, h.Owner.RequestID); err != nil {
		return err
	}
	if h.Interrupt {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	return nil
}

// Size returns the number of bytes WriteTo would emit.
func (h *FrameHeader) Size() int {
	return 1 + 2 + len(h.Owner.Address) + 8 + 1
}

// ReadFrameHeader deserializes a FrameHeader previously written by
// WriteTo, the ReadFrom counterpart the C1 header contract calls for.
func ReadFrameHeader(buf *bytes.Reader) (*FrameHeader, error) {
	typeByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("executor: read frame type: %w", err)
	}
	h := &FrameHeader{Type: FrameType(typeByte)}
	var addrLen uint16
	if err := binary.Read(buf, binary.BigEndian, &addrLen); err != nil {
		return nil, fmt.Errorf("executor: read owner address length: %w", err)
	}
	addrBytes := make([]byte, addrLen)
	if _, err := buf.Read(addrBytes); err != nil {
		return nil, fmt.Errorf("executor: read owner address: %w", err)
	}
	h.Owner.Address = group.Address(addrBytes)
	if err := binary.Read(buf, binary.BigEndian, &h.Owner.RequestID); err != nil {
		return nil, fmt.Errorf("executor: read owner request id: %w", err)
	}
	interruptByte, err := buf.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("executor: read interrupt flag: %w", err)
	}
	h.Interrupt = interruptByte != 0
	return h, nil
}
