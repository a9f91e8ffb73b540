package gnstxn

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/sdss"
	"github.com/driftdb/driftdb/storage/rawjournal"
)

type bufCloser struct {
	*bytes.Buffer
}

func (b *bufCloser) Close() error { return nil }

func gnsWriteParams() sdss.WriteParams {
	return sdss.WriteParams{
		ServerVersion: 1,
		DriverVersion: 1,
		Class:         sdss.FileClassGNSJournal,
		Specifier:     sdss.FileSpecifierDefault,
	}
}

func restoreInto(t *testing.T, raw []byte) (*gns.GNS, error) {
	t.Helper()
	g := gns.New()
	_, err := rawjournal.Restore[Event, *gns.GNS](bytes.NewReader(raw), sdss.Compat{}, sdss.FileClassGNSJournal, sdss.FileSpecifierDefault, Adapter{}, g)
	return g, err
}

func userModelFields() []FieldSpec {
	return []FieldSpec{
		{Name: "username", Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerStr}}, Primary: true}},
		{Name: "password", Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerBin}}}},
		{Name: "tags", Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerList}, {Kind: gns.LayerStr}}, Nullable: true}},
	}
}

func TestGNSJournalDDLRoundTrip(t *testing.T) {
	buf := &bufCloser{Buffer: &bytes.Buffer{}}
	w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
	require.NoError(t, err)

	spaceUUID := gns.NewUUID()
	modelUUID := gns.NewUUID()
	props := gns.Dict{"env": gns.Leaf(gns.NewStr([]byte("prod")))}

	require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "myapp", UUID: spaceUUID, Props: props}))
	require.NoError(t, w.CommitEvent(CreateModelEvent{
		Space: "myapp", Model: "users", UUID: modelUUID,
		Fields: userModelFields(),
	}))
	require.NoError(t, w.CommitEvent(AlterModelAddEvent{
		Space: "myapp", Model: "users", FieldName: "age",
		Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerUInt8}}, Nullable: true},
	}))
	require.NoError(t, w.CommitEvent(AlterSpaceEvent{Name: "myapp", Props: gns.Dict{"env": gns.Leaf(gns.NewStr([]byte("staging")))}}))
	require.NoError(t, w.CloseDriver())
	require.NoError(t, w.Close())

	g, err := restoreInto(t, buf.Bytes())
	require.NoError(t, err)

	sp, ok := g.GetSpace("myapp")
	require.True(t, ok)
	require.Equal(t, spaceUUID, sp.UUID)
	require.Equal(t, gns.NewStr([]byte("staging")), sp.Props["env"].Cell)

	m, ok := g.GetModel("myapp", "users")
	require.True(t, ok)
	require.Equal(t, modelUUID, m.UUID)
	require.Equal(t, "username", m.PrimaryKeyName)
	require.Equal(t, gns.PKStr, m.PrimaryKeyTag)
	require.Equal(t, []string{"username", "password", "tags", "age"}, m.Fields.Names())

	age, ok := m.Fields.Get("age")
	require.True(t, ok)
	require.True(t, age.Nullable)
	require.Equal(t, gns.LayerUInt8, age.Layers.ScalarKind())

	tags, ok := m.Fields.Get("tags")
	require.True(t, ok)
	require.Equal(t, gns.LayerList, tags.Layers[0].Kind)
}

func TestGNSJournalDropEvents(t *testing.T) {
	buf := &bufCloser{Buffer: &bytes.Buffer{}}
	w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
	require.NoError(t, err)

	require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "scratch", UUID: gns.NewUUID(), Props: gns.Dict{}}))
	require.NoError(t, w.CommitEvent(CreateModelEvent{
		Space: "scratch", Model: "notes", UUID: gns.NewUUID(),
		Fields: userModelFields(),
	}))
	require.NoError(t, w.CommitEvent(DropModelEvent{Space: "scratch", Model: "notes"}))
	require.NoError(t, w.CommitEvent(DropSpaceEvent{Name: "scratch"}))
	require.NoError(t, w.CloseDriver())
	require.NoError(t, w.Close())

	g, err := restoreInto(t, buf.Bytes())
	require.NoError(t, err)

	_, ok := g.GetSpace("scratch")
	require.False(t, ok)
	_, ok = g.GetModel("scratch", "notes")
	require.False(t, ok)
}

// A force-dropped space carries no per-model drop events; restore must
// drop the contained models along with the space.
func TestGNSJournalForceDropNonEmptySpace(t *testing.T) {
	buf := &bufCloser{Buffer: &bytes.Buffer{}}
	w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
	require.NoError(t, err)

	require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "bulk", UUID: gns.NewUUID(), Props: gns.Dict{}}))
	require.NoError(t, w.CommitEvent(CreateModelEvent{
		Space: "bulk", Model: "items", UUID: gns.NewUUID(),
		Fields: userModelFields(),
	}))
	require.NoError(t, w.CommitEvent(DropSpaceEvent{Name: "bulk"}))
	require.NoError(t, w.CloseDriver())
	require.NoError(t, w.Close())

	g, err := restoreInto(t, buf.Bytes())
	require.NoError(t, err)
	_, ok := g.GetSpace("bulk")
	require.False(t, ok)
	_, ok = g.GetModel("bulk", "items")
	require.False(t, ok)
}

func TestGNSJournalRestoreConflicts(t *testing.T) {
	t.Run("create space twice", func(t *testing.T) {
		buf := &bufCloser{Buffer: &bytes.Buffer{}}
		w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
		require.NoError(t, err)
		require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "dup", UUID: gns.NewUUID(), Props: gns.Dict{}}))
		require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "dup", UUID: gns.NewUUID(), Props: gns.Dict{}}))
		require.NoError(t, w.CloseDriver())
		require.NoError(t, w.Close())

		_, err = restoreInto(t, buf.Bytes())
		require.Error(t, err)
		require.True(t, ferr.Is(err, ferr.OnRestoreDataConflictAlreadyExists))
		require.True(t, ferr.Fatal(err))
	})

	t.Run("alter missing space", func(t *testing.T) {
		buf := &bufCloser{Buffer: &bytes.Buffer{}}
		w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
		require.NoError(t, err)
		require.NoError(t, w.CommitEvent(AlterSpaceEvent{Name: "ghost", Props: gns.Dict{}}))
		require.NoError(t, w.CloseDriver())
		require.NoError(t, w.Close())

		_, err = restoreInto(t, buf.Bytes())
		require.Error(t, err)
		require.True(t, ferr.Is(err, ferr.OnRestoreDataMissing))
	})

	t.Run("alter missing model field", func(t *testing.T) {
		buf := &bufCloser{Buffer: &bytes.Buffer{}}
		w, err := rawjournal.OpenNew[Event, *gns.GNS](buf, gnsWriteParams(), Adapter{})
		require.NoError(t, err)
		require.NoError(t, w.CommitEvent(CreateSpaceEvent{Name: "s", UUID: gns.NewUUID(), Props: gns.Dict{}}))
		require.NoError(t, w.CommitEvent(CreateModelEvent{Space: "s", Model: "m", UUID: gns.NewUUID(), Fields: userModelFields()}))
		require.NoError(t, w.CommitEvent(AlterModelRemoveEvent{Space: "s", Model: "m", FieldName: "nope"}))
		require.NoError(t, w.CloseDriver())
		require.NoError(t, w.Close())

		_, err = restoreInto(t, buf.Bytes())
		require.Error(t, err)
		require.True(t, ferr.Is(err, ferr.OnRestoreDataMissing))
	})
}

func TestGNSEventPayloadCodecRoundTrip(t *testing.T) {
	events := []Event{
		CreateSpaceEvent{Name: "a", UUID: gns.NewUUID(), Props: gns.Dict{
			"nested": gns.Branch(gns.Dict{"k": gns.Leaf(gns.NewUInt(gns.LayerUInt64, 42))}),
		}},
		AlterSpaceEvent{Name: "a", Props: gns.Dict{}},
		DropSpaceEvent{Name: "a"},
		CreateModelEvent{Space: "a", Model: "b", UUID: gns.NewUUID(), Fields: userModelFields(), Volatile: true},
		AlterModelAddEvent{Space: "a", Model: "b", FieldName: "c", Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerBool}}}},
		AlterModelRemoveEvent{Space: "a", Model: "b", FieldName: "c"},
		AlterModelUpdateEvent{Space: "a", Model: "b", FieldName: "c", Field: gns.Field{Layers: gns.TypeExpr{{Kind: gns.LayerSInt32}}, Nullable: true}},
		DropModelEvent{Space: "a", Model: "b"},
	}
	for _, ev := range events {
		got, err := decodePayload(ev.meta(), encodePayload(ev))
		require.NoError(t, err)
		require.Equal(t, ev, got)
	}
}

func TestGNSEventDecodeRejectsTruncation(t *testing.T) {
	ev := CreateModelEvent{Space: "a", Model: "b", UUID: gns.NewUUID(), Fields: userModelFields()}
	payload := encodePayload(ev)
	for _, cut := range []int{0, 1, 8, len(payload) / 2, len(payload) - 1} {
		_, err := decodePayload(ev.meta(), payload[:cut])
		require.Error(t, err, "cut at %d", cut)
		require.True(t, ferr.Is(err, ferr.InternalDecodeStructureCorrupted), "cut at %d", cut)
	}
}
