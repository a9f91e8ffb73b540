package gnstxn

import (
	"math"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/storage/rawjournal"
)

// Adapter implements rawjournal.Adapter for the GNS journal: DDL events
// in, DDL events out, applied against a freshly-seeded gns.GNS at
// restore (journal in, apply to an empty GNS).
type Adapter struct{}

var _ rawjournal.Adapter[Event, *gns.GNS] = Adapter{}

// GetEventMeta returns the meta discriminant journaled with event.
func (Adapter) GetEventMeta(event Event) uint64 { return event.meta() }

// CommitBuffered writes event's payload length-prefixed through w.
func (Adapter) CommitBuffered(w *bytesio.TrackedWriter, event Event) error {
	payload := encodePayload(event)
	if err := w.DTrackWriteU64LE(uint64(len(payload))); err != nil {
		return err
	}
	return w.DTrackWrite(payload)
}

// ParseEventMeta recognizes the DDL meta range.
func (Adapter) ParseEventMeta(meta uint64) (any, bool) {
	if meta >= metaCreateSpace && meta <= metaDropModel {
		return meta, true
	}
	return nil, false
}

// ParseEvent reads the length-prefixed payload block and decodes it per
// the meta tag ParseEventMeta returned.
func (Adapter) ParseEvent(r *bytesio.TrackedReader, tag any) (Event, error) {
	meta := tag.(uint64)
	n, err := r.TrackedReadU64LE()
	if err != nil {
		return nil, err
	}
	if n > math.MaxInt/2 {
		return nil, ferr.Newf(ferr.InternalDecodeStructureCorrupted, "event payload length %d exceeds addressable range", n)
	}
	payload := make([]byte, n)
	if err := r.TrackedRead(payload); err != nil {
		return nil, err
	}
	return decodePayload(meta, payload)
}

// ApplyEvent folds one recovered DDL event into g. Conflicts that cannot
// happen on a faithfully-replayed journal surface as the OnRestore*
// error kinds, which are fatal to boot.
func (Adapter) ApplyEvent(g *gns.GNS, event Event) error {
	switch ev := event.(type) {
	case CreateSpaceEvent:
		oid, err := gns.NewObjectID(ev.Name)
		if err != nil {
			return ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered space name invalid")
		}
		sp, err := g.CreateSpace(oid, ev.Props)
		if err != nil {
			if ferr.Is(err, ferr.AlreadyExists) {
				return ferr.Newf(ferr.OnRestoreDataConflictAlreadyExists, "space %q recreated during restore", ev.Name)
			}
			return err
		}
		sp.UUID = ev.UUID
		return nil
	case AlterSpaceEvent:
		oid, err := gns.NewObjectID(ev.Name)
		if err != nil {
			return ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered space name invalid")
		}
		if err := g.AlterSpace(oid, ev.Props); err != nil {
			if ferr.Is(err, ferr.ObjectNotFound) {
				return ferr.Newf(ferr.OnRestoreDataMissing, "space %q missing during restore", ev.Name)
			}
			return err
		}
		return nil
	case DropSpaceEvent:
		return applyDropSpace(g, ev.Name)
	case CreateModelEvent:
		return applyCreateModel(g, ev)
	case AlterModelAddEvent:
		m, err := restoreModel(g, ev.Space, ev.Model)
		if err != nil {
			return err
		}
		if _, err := m.AlterAddField(ev.FieldName, ev.Field); err != nil {
			if ferr.Is(err, ferr.AlreadyExists) {
				return ferr.Newf(ferr.OnRestoreDataConflictAlreadyExists, "field %q already present during restore", ev.FieldName)
			}
			return err
		}
		return nil
	case AlterModelRemoveEvent:
		m, err := restoreModel(g, ev.Space, ev.Model)
		if err != nil {
			return err
		}
		if _, err := m.AlterRemoveField(ev.FieldName); err != nil {
			if ferr.Is(err, ferr.ObjectNotFound) {
				return ferr.Newf(ferr.OnRestoreDataMissing, "field %q missing during restore", ev.FieldName)
			}
			return err
		}
		return nil
	case AlterModelUpdateEvent:
		m, err := restoreModel(g, ev.Space, ev.Model)
		if err != nil {
			return err
		}
		if _, err := m.AlterUpdateField(ev.FieldName, ev.Field); err != nil {
			if ferr.Is(err, ferr.ObjectNotFound) {
				return ferr.Newf(ferr.OnRestoreDataMissing, "field %q missing during restore", ev.FieldName)
			}
			return err
		}
		return nil
	case DropModelEvent:
		spaceOID, modelOID, err := entityOIDs(ev.Space, ev.Model)
		if err != nil {
			return err
		}
		if _, err := g.DropModel(spaceOID, modelOID, true); err != nil {
			if ferr.Is(err, ferr.ObjectNotFound) {
				return ferr.Newf(ferr.OnRestoreDataMissing, "model %q.%q missing during restore", ev.Space, ev.Model)
			}
			return err
		}
		return nil
	}
	return ferr.New(ferr.InternalDecodeStructureCorrupted, "unknown gns event type")
}

func entityOIDs(space, model string) (gns.ObjectID, gns.ObjectID, error) {
	spaceOID, err := gns.NewObjectID(space)
	if err != nil {
		return gns.ObjectID{}, gns.ObjectID{}, ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered space name invalid")
	}
	modelOID, err := gns.NewObjectID(model)
	if err != nil {
		return gns.ObjectID{}, gns.ObjectID{}, ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered model name invalid")
	}
	return spaceOID, modelOID, nil
}

func restoreModel(g *gns.GNS, space, model string) (*gns.Model, error) {
	m, ok := g.GetModel(space, model)
	if !ok {
		return nil, ferr.Newf(ferr.OnRestoreDataMissing, "model %q.%q missing during restore", space, model)
	}
	return m, nil
}

// applyDropSpace drops a space and anything still registered under it. A
// journaled force-drop of a non-empty space carries no per-model events,
// so the contained models go with the space here.
func applyDropSpace(g *gns.GNS, name string) error {
	oid, err := gns.NewObjectID(name)
	if err != nil {
		return ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered space name invalid")
	}
	sp, ok := g.GetSpace(name)
	if !ok {
		return ferr.Newf(ferr.OnRestoreDataMissing, "space %q missing during restore", name)
	}
	for _, mn := range sp.ModelNames() {
		mnOID, err := gns.NewObjectID(mn)
		if err != nil {
			return ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered model name invalid")
		}
		if _, err := g.DropModel(oid, mnOID, true); err != nil {
			return err
		}
	}
	return g.DropSpace(oid, true)
}

func applyCreateModel(g *gns.GNS, ev CreateModelEvent) error {
	spaceOID, modelOID, err := entityOIDs(ev.Space, ev.Model)
	if err != nil {
		return err
	}
	fields := gns.NewFieldSet()
	pkName := ""
	for _, sp := range ev.Fields {
		if sp.Field.Primary {
			pkName = sp.Name
		}
		fields.Add(sp.Name, sp.Field)
	}
	if pkName == "" {
		return ferr.Newf(ferr.InternalDecodeStructureCorrupted, "recovered model %q.%q has no primary key field", ev.Space, ev.Model)
	}
	m, err := gns.NewModel(modelOID, pkName, fields, ev.Volatile)
	if err != nil {
		return ferr.Wrap(err, ferr.InternalDecodeStructureCorrupted, "recovered model definition invalid")
	}
	m.UUID = ev.UUID
	if err := g.CreateModel(spaceOID, m); err != nil {
		if ferr.Is(err, ferr.AlreadyExists) {
			return ferr.Newf(ferr.OnRestoreDataConflictAlreadyExists, "model %q.%q recreated during restore", ev.Space, ev.Model)
		}
		if ferr.Is(err, ferr.ObjectNotFound) {
			return ferr.Newf(ferr.OnRestoreDataMissing, "space %q missing during restore", ev.Space)
		}
		return err
	}
	return nil
}
