package gns

import "sync"

// TxnVersion is a monotone per-row write counter: on
// conflicting restore-time updates, the highest TxnVersion wins.
type TxnVersion uint64

// Row is one primary-keyed record. Its field map is guarded by its own
// reader-writer lock so disjoint rows never contend.
type Row struct {
	PK            PrimaryIndexKey
	mu            sync.RWMutex
	data          map[string]Datacell
	SchemaVersion DeltaVersion
	TxnVersion    TxnVersion
}

// NewRow constructs a row at the given schema/txn version.
func NewRow(pk PrimaryIndexKey, data map[string]Datacell, schemaVersion DeltaVersion, txn TxnVersion) *Row {
	return &Row{PK: pk, data: data, SchemaVersion: schemaVersion, TxnVersion: txn}
}

// Get reads one field under the row's read lock. It does not resolve
// schema drift; Model.ResolveRow brings the row to the current schema.
func (r *Row) Get(field string) (Datacell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.data[field]
	return c, ok
}

// Snapshot returns a defensive copy of the row's current field map.
func (r *Row) Snapshot() map[string]Datacell {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Datacell, len(r.data))
	for k, v := range r.data {
		out[k] = v
	}
	return out
}

// Set writes fields under the row's write lock and bumps TxnVersion.
func (r *Row) Set(fields map[string]Datacell, txn TxnVersion) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range fields {
		r.data[k] = v
	}
	r.TxnVersion = txn
}

// ResolveSchema applies every delta between the row's recorded
// SchemaVersion and the model's current version, idempotently converging
// the row's field set to the current schema:
//   - Add: fill with the field's default/null.
//   - Drop: erase the field.
//   - Update: replace the cell with the new field's default; the previous
//     value is not carried over, whether or not its layer is compatible.
func (r *Row) ResolveSchema(deltas []SchemaDelta) {
	if len(deltas) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range deltas {
		if d.At <= r.SchemaVersion {
			continue
		}
		switch d.Kind {
		case DeltaAddField:
			if _, ok := r.data[d.FieldName]; !ok {
				r.data[d.FieldName] = d.NewField.Default()
			}
		case DeltaDropField:
			delete(r.data, d.FieldName)
		case DeltaUpdateField:
			r.data[d.FieldName] = d.NewField.Default()
		}
		r.SchemaVersion = d.At
	}
}
