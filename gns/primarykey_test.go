package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrimaryIndexKeyAccessors(t *testing.T) {
	require.Equal(t, uint64(42), PKFromUInt(42).UInt())
	require.Equal(t, int64(-7), PKFromSInt(-7).SInt())
	require.Equal(t, []byte("bin"), PKFromBin([]byte("bin")).Bytes())
	require.Equal(t, "str", PKFromStr("str").Str())
}

func TestPrimaryIndexKeyComparable(t *testing.T) {
	a := PKFromStr("x")
	b := PKFromStr("x")
	require.Equal(t, a, b)

	m := map[PrimaryIndexKey]int{a: 1}
	require.Equal(t, 1, m[b])
}

func TestFromDatacellSupportedClasses(t *testing.T) {
	k, ok := FromDatacell(NewUInt(LayerUInt32, 9))
	require.True(t, ok)
	require.Equal(t, PKUInt, k.Tag)

	k, ok = FromDatacell(NewSInt(LayerSInt64, -3))
	require.True(t, ok)
	require.Equal(t, PKSInt, k.Tag)

	k, ok = FromDatacell(NewBin([]byte("abc")))
	require.True(t, ok)
	require.Equal(t, PKBin, k.Tag)

	k, ok = FromDatacell(NewStr([]byte("abc")))
	require.True(t, ok)
	require.Equal(t, PKStr, k.Tag)
}

func TestFromDatacellRejectsUnsupportedClass(t *testing.T) {
	_, ok := FromDatacell(NewBool(true))
	require.False(t, ok)

	_, ok = FromDatacell(NewList(nil))
	require.False(t, ok)
}
