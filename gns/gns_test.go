package gns

import (
	"testing"

	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/stretchr/testify/require"
)

func TestNewSeedsDefaultAndSystemSpaces(t *testing.T) {
	g := New()
	_, ok := g.GetSpace(DefaultSpaceName)
	require.True(t, ok)
	_, ok = g.GetSpace(SystemSpaceName)
	require.True(t, ok)
}

func TestCreateSpaceRejectsDuplicate(t *testing.T) {
	g := New()
	name, _ := NewObjectID("app")
	_, err := g.CreateSpace(name, Dict{})
	require.NoError(t, err)

	_, err = g.CreateSpace(name, Dict{})
	require.Error(t, err)
	kind, _ := ferr.KindOf(err)
	require.Equal(t, ferr.AlreadyExists, kind)
}

func TestCreateModelRequiresExistingSpace(t *testing.T) {
	g := New()
	space, _ := NewObjectID("nosuch")
	mname, _ := NewObjectID("users")
	m, _ := NewModel(mname, "id", buildUsersFields(), false)
	err := g.CreateModel(space, m)
	require.Error(t, err)
	kind, _ := ferr.KindOf(err)
	require.Equal(t, ferr.ObjectNotFound, kind)
}

func TestCreateModelRejectsDuplicateWithinSpace(t *testing.T) {
	g := New()
	space, _ := NewObjectID("app")
	g.CreateSpace(space, Dict{})

	mname, _ := NewObjectID("users")
	m1, _ := NewModel(mname, "id", buildUsersFields(), false)
	require.NoError(t, g.CreateModel(space, m1))

	m2, _ := NewModel(mname, "id", buildUsersFields(), false)
	err := g.CreateModel(space, m2)
	require.Error(t, err)
	kind, _ := ferr.KindOf(err)
	require.Equal(t, ferr.AlreadyExists, kind)
}

// TestDropSpaceScenarios walks the DDL-protection
// cases for space drop.
func TestDropSpaceScenarios(t *testing.T) {
	g := New()

	// drop space default -> ProtectedObject
	def, _ := NewObjectID(DefaultSpaceName)
	err := g.DropSpace(def, false)
	require.Error(t, err)
	kind, _ := ferr.KindOf(err)
	require.Equal(t, ferr.ProtectedObject, kind)

	// drop space s (non-empty, no force) -> NotEmpty
	space, _ := NewObjectID("app")
	g.CreateSpace(space, Dict{})
	mname, _ := NewObjectID("users")
	m, _ := NewModel(mname, "id", buildUsersFields(), false)
	require.NoError(t, g.CreateModel(space, m))

	err = g.DropSpace(space, false)
	require.Error(t, err)
	kind, _ = ferr.KindOf(err)
	require.Equal(t, ferr.NotEmpty, kind)

	// drop space s force, with a live model reference -> StillInUse
	m.AddRef()
	err = g.DropSpace(space, true)
	require.Error(t, err)
	kind, _ = ferr.KindOf(err)
	require.Equal(t, ferr.StillInUse, kind)

	// after releasing the reference and dropping the model, force-drop succeeds
	m.RemoveRef()
	_, err = g.DropModel(space, mname, false)
	require.NoError(t, err)

	err = g.DropSpace(space, true)
	require.NoError(t, err)
	_, ok := g.GetSpace("app")
	require.False(t, ok)
}

func TestDropModelRejectsWhenStillInUseUnlessForced(t *testing.T) {
	g := New()
	space, _ := NewObjectID("app")
	g.CreateSpace(space, Dict{})
	mname, _ := NewObjectID("users")
	m, _ := NewModel(mname, "id", buildUsersFields(), false)
	require.NoError(t, g.CreateModel(space, m))

	m.AddRef()
	_, err := g.DropModel(space, mname, false)
	require.Error(t, err)
	kind, _ := ferr.KindOf(err)
	require.Equal(t, ferr.StillInUse, kind)

	_, err = g.DropModel(space, mname, true)
	require.NoError(t, err)
	_, ok := g.GetModel("app", "users")
	require.False(t, ok)
}

func TestModelsAndModelCount(t *testing.T) {
	g := New()
	space, _ := NewObjectID("app")
	g.CreateSpace(space, Dict{})
	mname, _ := NewObjectID("users")
	m, _ := NewModel(mname, "id", buildUsersFields(), false)
	require.NoError(t, g.CreateModel(space, m))

	require.Equal(t, 1, g.ModelCount())
	require.Equal(t, [][2]string{{"app", "users"}}, g.Models())
}

func TestAlterSpaceReplacesProps(t *testing.T) {
	g := New()
	space, _ := NewObjectID("app")
	g.CreateSpace(space, Dict{})

	newProps := Dict{"env": Leaf(NewStr([]byte("prod")))}
	require.NoError(t, g.AlterSpace(space, newProps))

	sp, _ := g.GetSpace("app")
	require.True(t, sp.Props["env"].Cell.Equal(NewStr([]byte("prod"))))
}
