package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowGetSetAndSnapshot(t *testing.T) {
	pk := PKFromUInt(1)
	row := NewRow(pk, map[string]Datacell{"name": NewStr([]byte("a"))}, 0, 0)

	v, ok := row.Get("name")
	require.True(t, ok)
	require.True(t, v.Equal(NewStr([]byte("a"))))

	row.Set(map[string]Datacell{"name": NewStr([]byte("b"))}, 5)
	v, _ = row.Get("name")
	require.True(t, v.Equal(NewStr([]byte("b"))))
	require.Equal(t, TxnVersion(5), row.TxnVersion)

	snap := row.Snapshot()
	snap["name"] = NewStr([]byte("mutated-copy-only"))
	v, _ = row.Get("name")
	require.True(t, v.Equal(NewStr([]byte("b"))), "snapshot must be a defensive copy")
}

func TestRowResolveSchemaAddDropUpdate(t *testing.T) {
	pk := PKFromUInt(1)
	row := NewRow(pk, map[string]Datacell{"id": NewUInt(LayerUInt64, 1)}, 0, 0)

	deltas := []SchemaDelta{
		{Kind: DeltaAddField, FieldName: "name", NewField: Field{Layers: TypeExpr{{Kind: LayerStr}}}, At: 1},
		{Kind: DeltaAddField, FieldName: "age", NewField: Field{Layers: TypeExpr{{Kind: LayerUInt8}}}, At: 2},
		{Kind: DeltaDropField, FieldName: "age", At: 3},
		{Kind: DeltaUpdateField, FieldName: "name", NewField: Field{Layers: TypeExpr{{Kind: LayerBin}}}, At: 4},
	}
	row.ResolveSchema(deltas)

	_, ok := row.Get("age")
	require.False(t, ok, "dropped field must be erased")

	name, ok := row.Get("name")
	require.True(t, ok)
	require.True(t, name.Equal(NewBin(nil)), "update retypes to the field's default")

	require.Equal(t, DeltaVersion(4), row.SchemaVersion)
}

func TestRowResolveSchemaIsIdempotent(t *testing.T) {
	pk := PKFromUInt(1)
	row := NewRow(pk, map[string]Datacell{}, 0, 0)
	deltas := []SchemaDelta{
		{Kind: DeltaAddField, FieldName: "x", NewField: Field{Layers: TypeExpr{{Kind: LayerStr}}}, At: 1},
	}
	row.ResolveSchema(deltas)
	row.ResolveSchema(deltas) // re-applying the same deltas changes nothing

	v, ok := row.Get("x")
	require.True(t, ok)
	require.True(t, v.Equal(NewStr(nil)))
	require.Equal(t, DeltaVersion(1), row.SchemaVersion)
}

func TestRowResolveSchemaSkipsAlreadyAppliedDeltas(t *testing.T) {
	pk := PKFromUInt(1)
	row := NewRow(pk, map[string]Datacell{"x": NewStr([]byte("kept"))}, 2, 0)
	deltas := []SchemaDelta{
		{Kind: DeltaUpdateField, FieldName: "x", NewField: Field{Layers: TypeExpr{{Kind: LayerBin}}}, At: 1},
	}
	row.ResolveSchema(deltas)

	v, _ := row.Get("x")
	require.True(t, v.Equal(NewStr([]byte("kept"))), "a delta at or below the row's recorded version must not reapply")
}
