package group

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDigest_RoundTrip(t *testing.T) {
	d := NewDigest(map[Address]SeqRange{
		"a": {HighestDelivered: 10, HighestReceived: 12},
		"b": {HighestDelivered: 3, HighestReceived: 3},
	})

	var buf bytes.Buffer
	require.NoError(t, d.WriteTo(&buf))
	require.Equal(t, d.Size(), buf.Len())

	decoded, err := ReadDigest(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.True(t, d.Equal(decoded))
}

func TestDigest_EqualityAndSenders(t *testing.T) {
	d1 := NewDigest(map[Address]SeqRange{"a": {1, 1}})
	d2 := NewDigest(map[Address]SeqRange{"a": {1, 1}})
	d3 := NewDigest(map[Address]SeqRange{"a": {2, 2}})

	require.True(t, d1.Equal(d2))
	require.False(t, d1.Equal(d3))
	require.Equal(t, []Address{"a"}, d1.Senders())
}

func TestView_CoordinatorAndOrdering(t *testing.T) {
	v1 := NewView(ViewId{Id: 1, Creator: "a"}, []Address{"a", "b", "c"})
	v2 := NewView(ViewId{Id: 2, Creator: "b"}, []Address{"b", "c"})

	require.Equal(t, Address("a"), v1.Coordinator())
	require.True(t, v2.Id.After(v1.Id))
	require.True(t, v1.Contains("b"))
	require.False(t, v2.Contains("a"))
}
