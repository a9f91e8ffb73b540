package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatacellEqualScalars(t *testing.T) {
	require.True(t, NewBool(true).Equal(NewBool(true)))
	require.False(t, NewBool(true).Equal(NewBool(false)))
	require.True(t, NewUInt(LayerUInt32, 7).Equal(NewUInt(LayerUInt32, 7)))
	require.False(t, NewUInt(LayerUInt32, 7).Equal(NewUInt(LayerUInt64, 7)))
	require.True(t, NewSInt(LayerSInt64, -9).Equal(NewSInt(LayerSInt64, -9)))
	require.True(t, NewFloat32(1.5).Equal(NewFloat32(1.5)))
	require.True(t, NewFloat64(2.25).Equal(NewFloat64(2.25)))
}

func TestDatacellEqualBytes(t *testing.T) {
	require.True(t, NewBin([]byte("abc")).Equal(NewBin([]byte("abc"))))
	require.False(t, NewBin([]byte("abc")).Equal(NewBin([]byte("abd"))))
	require.True(t, NewStr([]byte("hi")).Equal(NewStr([]byte("hi"))))
}

func TestDatacellEqualList(t *testing.T) {
	a := NewList([]Datacell{NewUInt(LayerUInt64, 1), NewUInt(LayerUInt64, 2)})
	b := NewList([]Datacell{NewUInt(LayerUInt64, 1), NewUInt(LayerUInt64, 2)})
	c := NewList([]Datacell{NewUInt(LayerUInt64, 1), NewUInt(LayerUInt64, 3)})
	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
}

func TestDatacellNullDistinguishesDeclaredKind(t *testing.T) {
	a := NewNull(LayerStr)
	b := NewNull(LayerBin)
	require.True(t, a.Null)
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(NewNull(LayerStr)))
}

func TestDatacellSIntBitCastRoundTrips(t *testing.T) {
	d := NewSInt(LayerSInt64, -42)
	require.Equal(t, int64(-42), d.SInt())
}
