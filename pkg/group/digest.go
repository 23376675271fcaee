package group

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// SeqRange is the reliability checkpoint held for a single sender: the
// highest sequence number fully delivered to the application, and the
// highest sequence number merely received (possibly still buffered
// waiting for retransmission of a gap).
type SeqRange struct {
	HighestDelivered uint64
	HighestReceived  uint64
}

// Digest is a per-sender delivery checkpoint of the group. It pins the
// ordering guarantee between a state-transfer response and the
// messages the reliable-delivery layer will hand to the application
// afterwards: nothing with a sequence number at or below
// HighestDelivered for its sender should reach the application again.
type Digest struct {
	entries map[Address]SeqRange
}

// NewDigest builds a Digest from the given per-sender pairs.
func NewDigest(entries map[Address]SeqRange) *Digest {
	cp := make(map[Address]SeqRange, len(entries))
	for k, v := range entries {
		cp[k] = v
	}
	return &Digest{entries: cp}
}

// EmptyDigest returns a Digest with no entries.
func EmptyDigest() *Digest {
	return &Digest{entries: make(map[Address]SeqRange)}
}

// Get returns the SeqRange recorded for addr.
func (d *Digest) Get(addr Address) (SeqRange, bool) {
	if d == nil {
		return SeqRange{}, false
	}
	r, ok := d.entries[addr]
	return r, ok
}

// Set installs or overwrites the SeqRange for addr.
func (d *Digest) Set(addr Address, r SeqRange) {
	d.entries[addr] = r
}

// Senders returns the addresses this digest has an entry for, sorted
// for deterministic iteration (used by encoding and tests).
func (d *Digest) Senders() []Address {
	out := make([]Address, 0, len(d.entries))
	for a := range d.entries {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Equal reports whether two digests hold the same entries.
func (d *Digest) Equal(other *Digest) bool {
	if d == nil || other == nil {
		return d == other
	}
	if len(d.entries) != len(other.entries) {
		return false
	}
	for addr, r := range d.entries {
		or, ok := other.entries[addr]
		if !ok || or != r {
			return false
		}
	}
	return true
}

// Size reports the number of bytes WriteTo would emit, used for
// framing budgets by the transport layer.
func (d *Digest) Size() int {
	if d == nil {
		return 4
	}
	// 4 bytes count, then per-entry: 2-byte address length + address bytes + 16 bytes of seqnos.
	size := 4
	for _, addr := range d.Senders() {
		size += 2 + len(addr) + 16
	}
	return size
}

// WriteTo serializes the digest: a 4-byte count followed by, for each
// sender in sorted order, a length-prefixed address and the two
// sequence numbers.
func (d *Digest) WriteTo(buf *bytes.Buffer) error {
	senders := d.Senders()
	if err := binary.Write(buf, binary.BigEndian, uint32(len(senders))); err != nil {
		return err
	}
	for _, addr := range senders {
		if err := binary.Write(buf, binary.BigEndian, uint16(len(addr))); err != nil {
			return err
		}
		buf.WriteString(string(addr))
		r := d.entries[addr]
		if err := binary.Write(buf, binary.BigEndian, r.HighestDelivered); err != nil {
			return err
		}
		if err := binary.Write(buf, binary.BigEndian, r.HighestReceived); err != nil {
			return err
		}
	}
	return nil
}

// ReadDigest deserializes a Digest previously written by WriteTo.
func ReadDigest(buf *bytes.Reader) (*Digest, error) {
	var count uint32
	if err := binary.Read(buf, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("read digest count: %w", err)
	}
	d := EmptyDigest()
	for i := uint32(0); i < count; i++ {
		var length uint16
		if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
			return nil, fmt.Errorf("read digest address length: %w", err)
		}
		addrBytes := make([]byte, length)
		if _, err := buf.Read(addrBytes); err != nil {
			return nil, fmt.Errorf("read digest address: %w", err)
		}
		var r SeqRange
		if err := binary.Read(buf, binary.BigEndian, &r.HighestDelivered); err != nil {
			return nil, fmt.Errorf("read digest highest delivered: %w", err)
		}
		if err := binary.Read(buf, binary.BigEndian, &r.HighestReceived); err != nil {
			return nil, fmt.Errorf("read digest highest received: %w", err)
		}
		d.entries[Address(addrBytes)] = r
	}
	return d, nil
}
