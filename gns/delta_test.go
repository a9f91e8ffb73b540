package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeltaStatePushAdvancesCurrent(t *testing.T) {
	ds := NewDeltaState()
	require.Equal(t, DeltaVersion(0), ds.Current())

	v1 := ds.Push(DeltaAddField, "f1", Field{Layers: TypeExpr{{Kind: LayerStr}}})
	require.Equal(t, DeltaVersion(1), v1)
	require.Equal(t, DeltaVersion(1), ds.Current())

	v2 := ds.Push(DeltaDropField, "f1", Field{})
	require.Equal(t, DeltaVersion(2), v2)
}

func TestDeltaStateSinceReturnsInOrder(t *testing.T) {
	ds := NewDeltaState()
	ds.Push(DeltaAddField, "a", Field{})
	ds.Push(DeltaAddField, "b", Field{})
	ds.Push(DeltaAddField, "c", Field{})

	since := ds.Since(1)
	require.Len(t, since, 2)
	require.Equal(t, "b", since[0].FieldName)
	require.Equal(t, "c", since[1].FieldName)
}

func TestDeltaStateRaiseFloorPrunes(t *testing.T) {
	ds := NewDeltaState()
	ds.Push(DeltaAddField, "a", Field{})
	ds.Push(DeltaAddField, "b", Field{})
	ds.Push(DeltaAddField, "c", Field{})

	ds.RaiseFloor(2)
	require.Equal(t, DeltaVersion(2), ds.Floor())
	remaining := ds.Since(0)
	require.Len(t, remaining, 1)
	require.Equal(t, "c", remaining[0].FieldName)
}

func TestDeltaStateRaiseFloorIsMonotonic(t *testing.T) {
	ds := NewDeltaState()
	ds.Push(DeltaAddField, "a", Field{})
	ds.RaiseFloor(1)
	ds.RaiseFloor(0)
	require.Equal(t, DeltaVersion(1), ds.Floor())
}
