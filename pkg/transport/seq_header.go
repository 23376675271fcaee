package transport

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/jabolina/grouptoolkit/pkg/group"
)

func init() {
	gob.Register(&SeqHeader{})
}

// SeqHeader is the per-sender sequence number the ReliableDelivery
// layer stamps on every outgoing message and reads back on every
// incoming one to keep the per-sender Digest checkpoint up to date.
type SeqHeader struct {
	Seq uint64
}

func (h *SeqHeader) WriteTo(buf *bytes.Buffer) error {
	return binary.Write(buf, binary.BigEndian, h.Seq)
}

func (h *SeqHeader) Size() int { return 8 }

// ProtocolName is the registry key the reliability layer's header is
// attached under.
const ProtocolName = "RELIABLE_DELIVERY"

var protocolID = group.RegisterProtocolName(ProtocolName)
