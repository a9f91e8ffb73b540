package gns

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictLeafAndBranch(t *testing.T) {
	d := Dict{
		"env": Leaf(NewStr([]byte("prod"))),
		"limits": Branch(Dict{
			"max_rows": Leaf(NewUInt(LayerUInt64, 1000)),
		}),
	}
	require.False(t, d["env"].IsDict())
	require.True(t, d["limits"].IsDict())
	require.True(t, d["limits"].Nested["max_rows"].Cell.Equal(NewUInt(LayerUInt64, 1000)))
}

func TestDictCloneIsDeep(t *testing.T) {
	d := Dict{
		"nested": Branch(Dict{"a": Leaf(NewBool(true))}),
	}
	clone := d.Clone()
	clone["nested"].Nested["a"] = Leaf(NewBool(false))

	require.True(t, d["nested"].Nested["a"].Cell.Equal(NewBool(true)))
	require.True(t, clone["nested"].Nested["a"].Cell.Equal(NewBool(false)))
}

func TestDictCloneNil(t *testing.T) {
	var d Dict
	require.Nil(t, d.Clone())
}
