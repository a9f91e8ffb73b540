package batchjournal

import (
	"github.com/driftdb/driftdb/gns"
)

// pkGroup accumulates the winning operation for one primary key across an
// entire batch: only the highest-txn_id event
// survives the group.
type pkGroup struct {
	op    RowOp
	txn   uint64
	cells []gns.Datacell
}

// Apply folds every event in b into m's primary index: events are first grouped by primary
// key (keeping only the max-txn_id event per key), then Insert/Update
// events are applied with a per-row last-writer-wins check, and finally
// Delete events sweep any row whose txn_version has not since advanced
// past the delete.
//
// schemaVersion is the gns.DeltaVersion the batch's cells were encoded
// against; it becomes the resolved row's SchemaVersion so a later
// m.ResolveRow catches it up to any schema deltas recorded since.
func Apply(m *gns.Model, b Batch, schemaVersion gns.DeltaVersion) error {
	groups := make(map[gns.PrimaryIndexKey]*pkGroup, len(b.Events))
	for _, ev := range b.Events {
		g, ok := groups[ev.PK]
		if !ok || ev.TxnID > g.txn {
			groups[ev.PK] = &pkGroup{op: ev.Op, txn: ev.TxnID, cells: ev.Cells}
		}
	}

	fieldNames := nonPKFieldNames(m)
	deleteFloor := make(map[gns.PrimaryIndexKey]uint64)

	for pk, g := range groups {
		switch g.op {
		case OpInsert, OpUpdate:
			applyUpsert(m, pk, g, fieldNames, schemaVersion)
		case OpDelete:
			deleteFloor[pk] = g.txn
		}
	}

	for pk, floor := range deleteFloor {
		row, ok := m.Index.Get(pk)
		if !ok {
			continue
		}
		if uint64(row.TxnVersion) <= floor {
			m.Index.Delete(pk)
		}
	}
	return nil
}

func applyUpsert(m *gns.Model, pk gns.PrimaryIndexKey, g *pkGroup, fieldNames []string, schemaVersion gns.DeltaVersion) {
	if existing, ok := m.Index.Get(pk); ok {
		if uint64(existing.TxnVersion) > g.txn {
			return
		}
	}
	data := make(map[string]gns.Datacell, len(fieldNames)+1)
	data[m.PrimaryKeyName] = pkDatacell(m, pk)
	for i, name := range fieldNames {
		if i < len(g.cells) {
			data[name] = resolveNullKind(m, name, g.cells[i])
		}
	}
	row := gns.NewRow(pk, data, schemaVersion, gns.TxnVersion(g.txn))
	m.Index.Insert(pk, row)
}

// resolveNullKind stamps a decoded placeholder Null cell (batchjournal's
// ReadBatch cannot see the model schema) with the field's declared scalar
// kind, mirroring ql/ast's bindCell.
func resolveNullKind(m *gns.Model, fieldName string, c gns.Datacell) gns.Datacell {
	if !c.Null {
		return c
	}
	f, ok := m.Fields.Get(fieldName)
	if !ok {
		return c
	}
	return gns.NewNull(f.Layers.ScalarKind())
}

func pkDatacell(m *gns.Model, pk gns.PrimaryIndexKey) gns.Datacell {
	switch pk.Tag {
	case gns.PKUInt:
		f, _ := m.Fields.Get(m.PrimaryKeyName)
		return gns.NewUInt(f.Layers.ScalarKind(), pk.UInt())
	case gns.PKSInt:
		f, _ := m.Fields.Get(m.PrimaryKeyName)
		return gns.NewSInt(f.Layers.ScalarKind(), pk.SInt())
	case gns.PKBin:
		return gns.NewBin(pk.Bytes())
	default: // PKStr
		return gns.NewStr(pk.Bytes())
	}
}

func nonPKFieldNames(m *gns.Model) []string {
	all := m.Fields.Names()
	out := make([]string, 0, len(all))
	for _, n := range all {
		if n == m.PrimaryKeyName {
			continue
		}
		out = append(out, n)
	}
	return out
}
