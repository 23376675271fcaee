package executor_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jabolina/grouptoolkit/pkg/executor"
)

func TestFrameHeader_RoundTrip(t *testing.T) {
	h := &executor.FrameHeader{
		Type:      executor.CancelRequest,
		Owner:     executor.Owner{Address: "A", RequestID: 42},
		Interrupt: true,
	}

	var buf bytes.Buffer
	require.NoError(t, h.WriteTo(&buf))
	require.Equal(t, h.Size(), buf.Len())

	decoded, err := executor.ReadFrameHeader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, h.Type, decoded.Type)
	require.Equal(t, h.Owner, decoded.Owner)
	require.Equal(t, h.Interrupt, decoded.Interrupt)
}
