package group

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Encode serializes a Message for transport. Header variants must be
// registered with gob.Register by the protocol package that defines
// them (see statetransfer and executor packages' init functions)
// before any Message carrying that header type is encoded or decoded.
func Encode(m *Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("group: encode message: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode deserializes a Message previously produced by Encode.
func Decode(payload []byte) (*Message, error) {
	var m Message
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&m); err != nil {
		return nil, fmt.Errorf("group: decode message: %w", err)
	}
	return &m, nil
}
