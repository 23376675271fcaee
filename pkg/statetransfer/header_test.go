package statetransfer_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/group"
	"github.com/jabolina/grouptoolkit/pkg/statetransfer"
)

func TestStateHeader_RoundTrip(t *testing.T) {
	digest := group.NewDigest(map[group.Address]group.SeqRange{
		"A": {HighestDelivered: 5, HighestReceived: 7},
	})
	h := &statetransfer.StateHeader{
		Type:   statetransfer.TypeRsp,
		ID:     1234,
		Sender: "A",
		Digest: digest,
	}

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf))
	require.Equal(t, h.Size(), buf.Len())

	decoded, err := statetransfer.ReadStateHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, h.Type, decoded.Type)
	require.Equal(t, h.ID, decoded.ID)
	require.Equal(t, h.Sender, decoded.Sender)
	require.True(t, h.Digest.Equal(decoded.Digest))
}

func TestStateHeader_RoundTripWithoutDigest(t *testing.T) {
	h := &statetransfer.StateHeader{Type: statetransfer.TypeReq, ID: 1, Sender: "B"}

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf))

	decoded, err := statetransfer.ReadStateHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Nil(t, decoded.Digest)
}
