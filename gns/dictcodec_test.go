package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictCodecRoundTrip(t *testing.T) {
	d := Dict{
		"env":   Leaf(NewStr([]byte("prod"))),
		"limit": Leaf(NewUInt(LayerUInt64, 100)),
		"flags": Branch(Dict{
			"durable": Leaf(NewBool(true)),
			"inner":   Branch(Dict{}),
		}),
	}
	buf := EncodeDict(nil, d)
	got, used, err := DecodeDict(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), used)

	require.True(t, got["env"].Cell.Equal(NewStr([]byte("prod"))))
	require.True(t, got["limit"].Cell.Equal(NewUInt(LayerUInt64, 100)))
	require.True(t, got["flags"].IsDict())
	require.True(t, got["flags"].Nested["durable"].Cell.Equal(NewBool(true)))
	require.True(t, got["flags"].Nested["inner"].IsDict())
	require.Empty(t, got["flags"].Nested["inner"].Nested)
}

func TestDictCodecRejectsTruncation(t *testing.T) {
	buf := EncodeDict(nil, Dict{"k": Leaf(NewStr([]byte("v")))})
	for _, cut := range []int{0, 4, 9, len(buf) - 1} {
		_, _, err := DecodeDict(buf[:cut])
		require.Error(t, err, "cut at %d", cut)
	}
}
