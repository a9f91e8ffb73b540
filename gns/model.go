package gns

import (
	"sync"

	"github.com/driftdb/driftdb/lib/ferr"
)

// Model is one table: a primary-keyed set of rows plus its schema and
// mutation bookkeeping.
type Model struct {
	UUID           UUID
	Name           ObjectID
	PrimaryKeyName string
	PrimaryKeyTag  PrimaryIndexKeyTag
	Fields         *FieldSet
	Delta          *DeltaState
	Index          *ShardedIndex
	Volatile       bool

	// mu guards structural mutation of the field set (DDL on this model);
	// row-level traffic goes through Index's shards and never takes mu.
	mu sync.RWMutex

	// refs counts live external references to this model (open cursors,
	// background flush tasks); DropModel requires refs == 0 unless force
	// is set.
	refs int32
}

// NewModel constructs a model around fields, validating the primary-key
// invariant.
func NewModel(name ObjectID, pkName string, fields *FieldSet, volatile bool) (*Model, error) {
	pkField, ok := fields.Get(pkName)
	if !ok {
		return nil, ferr.Newf(ferr.QLInvalidSyntax, "primary key field %q not present in fields", pkName)
	}
	if !pkField.Primary {
		return nil, ferr.Newf(ferr.QLInvalidSyntax, "field %q is not marked primary", pkName)
	}
	pkTag, ok := pkKindToTag(pkField.Layers.ScalarKind())
	if !ok {
		return nil, ferr.Newf(ferr.QLInvalidSyntax, "field %q has a type ineligible as a primary key", pkName)
	}
	return &Model{
		UUID:           NewUUID(),
		Name:           name,
		PrimaryKeyName: pkName,
		PrimaryKeyTag:  pkTag,
		Fields:         fields,
		Delta:          NewDeltaState(),
		Index:          NewShardedIndex(),
		Volatile:       volatile,
	}, nil
}

func pkKindToTag(k LayerKind) (PrimaryIndexKeyTag, bool) {
	switch k {
	case LayerUInt8, LayerUInt16, LayerUInt32, LayerUInt64:
		return PKUInt, true
	case LayerSInt8, LayerSInt16, LayerSInt32, LayerSInt64:
		return PKSInt, true
	case LayerBin:
		return PKBin, true
	case LayerStr:
		return PKStr, true
	default:
		return 0, false
	}
}

// AddRef increments the live-reference count.
func (m *Model) AddRef() { m.mu.Lock(); m.refs++; m.mu.Unlock() }

// RemoveRef decrements the live-reference count.
func (m *Model) RemoveRef() { m.mu.Lock(); m.refs--; m.mu.Unlock() }

// RefCount returns the current live-reference count.
func (m *Model) RefCount() int32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.refs
}

// AlterAddField adds a field under the model's write lock and pushes a
// schema delta.
func (m *Model) AlterAddField(name string, f Field) (DeltaVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Fields.Get(name); ok {
		return 0, ferr.Newf(ferr.AlreadyExists, "field %q already exists", name)
	}
	if err := f.Validate(); err != nil {
		return 0, err
	}
	m.Fields.Add(name, f)
	return m.Delta.Push(DeltaAddField, name, f), nil
}

// AlterRemoveField drops a field under the model's write lock.
func (m *Model) AlterRemoveField(name string) (DeltaVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.Fields.Get(name)
	if !ok {
		return 0, ferr.Newf(ferr.ObjectNotFound, "field %q not found", name)
	}
	if f.Primary {
		return 0, ferr.Newf(ferr.WrongModel, "cannot drop the primary key field %q", name)
	}
	m.Fields.Remove(name)
	return m.Delta.Push(DeltaDropField, name, Field{}), nil
}

// AlterUpdateField retypes an existing field, provided the new layer list
// terminates compatibly (layer-compatibility is the caller's
// responsibility; this only enforces structural validity).
func (m *Model) AlterUpdateField(name string, f Field) (DeltaVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.Fields.Get(name)
	if !ok {
		return 0, ferr.Newf(ferr.ObjectNotFound, "field %q not found", name)
	}
	if old.Primary && !f.Primary {
		return 0, ferr.Newf(ferr.WrongModel, "cannot unmark the primary key field %q", name)
	}
	if err := f.Validate(); err != nil {
		return 0, err
	}
	f.Primary = old.Primary
	m.Fields.Add(name, f)
	return m.Delta.Push(DeltaUpdateField, name, f), nil
}

// ResolveRow advances row to the model's current schema if it has drifted.
func (m *Model) ResolveRow(row *Row) {
	current := m.Delta.Current()
	if row.SchemaVersion == current {
		return
	}
	deltas := m.Delta.Since(row.SchemaVersion)
	row.ResolveSchema(deltas)
}
