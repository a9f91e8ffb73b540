package engine

import (
	"context"

	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/ql/ast"
	"github.com/driftdb/driftdb/storage/batchjournal"
	"github.com/driftdb/driftdb/storage/gnstxn"
	"github.com/driftdb/driftdb/storage/layout"
)

// Session carries per-connection execution state: today, only the space
// unqualified entities resolve against (`use`).
type Session struct {
	space string
}

// NewSession starts a session bound to the default space.
func NewSession() *Session {
	return &Session{space: gns.DefaultSpaceName}
}

// Space returns the session's current space.
func (s *Session) Space() string { return s.space }

func (s *Session) resolve(ent ast.Entity) (space, model string) {
	if ent.Qualified() {
		return ent.Space, ent.Model
	}
	return s.space, ent.Model
}

// RowView is one row's cells in field-declaration order.
type RowView struct {
	Fields []string
	Cells  []gns.Datacell
}

// SelectResult is a select statement's single-row outcome.
type SelectResult struct {
	Row RowView
}

// InspectResult describes a space, a model, or the space list, depending
// on the inspect form executed.
type InspectResult struct {
	Spaces     []string
	Space      string
	Props      gns.Dict
	Models     []string
	Model      string
	FieldNames []string
	PrimaryKey string
}

// Execute runs one parsed statement against the engine. DDL statements
// follow the symmetric commit path: apply to the GNS,
// then journal; a journal failure rolls the in-memory change back and
// surfaces DdlTransactionFailure. The return value is nil for DDL and
// writes, *SelectResult for select, *InspectResult for inspect.
func (e *Engine) Execute(ctx context.Context, sess *Session, stmt any) (any, error) {
	switch st := stmt.(type) {
	case *ast.UseStatement:
		if _, ok := e.gns.GetSpace(st.Space); !ok {
			return nil, ferr.Newf(ferr.ObjectNotFound, "space %q not found", st.Space)
		}
		sess.space = st.Space
		return nil, nil
	case *ast.CreateSpaceStatement:
		return nil, e.execCreateSpace(st)
	case *ast.AlterSpaceStatement:
		return nil, e.execAlterSpace(st)
	case *ast.DropSpaceStatement:
		return nil, e.execDropSpace(st)
	case *ast.CreateModelStatement:
		return nil, e.execCreateModel(ctx, sess, st)
	case *ast.AlterModelStatement:
		return nil, e.execAlterModel(sess, st)
	case *ast.DropModelStatement:
		return nil, e.execDropModel(ctx, sess, st)
	case *ast.InspectStatement:
		return e.execInspect(sess, st)
	case *ast.InsertStatement:
		return nil, e.execInsert(sess, st)
	case *ast.SelectStatement:
		return e.execSelect(sess, st)
	case *ast.UpdateStatement:
		return nil, e.execUpdate(sess, st)
	case *ast.DeleteStatement:
		return nil, e.execDelete(sess, st)
	}
	return nil, ferr.New(ferr.QLUnknownStatement, "statement type not executable")
}

// commitDDL journals one DDL event, kicking the GNS heartbeat task when
// the driver goes iffy.
func (e *Engine) commitDDL(ev gnstxn.Event) error {
	err := e.gd.commit(ev)
	if err != nil && ferr.Is(err, ferr.DdlTransactionFailure) {
		e.rt.Submit(newCheckGNSDriverTask(e))
	}
	return err
}

func (e *Engine) execCreateSpace(st *ast.CreateSpaceStatement) error {
	oid, err := gns.NewObjectID(st.Name)
	if err != nil {
		return err
	}
	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	props := st.With
	if props == nil {
		props = gns.Dict{}
	}
	sp, err := e.gns.CreateSpace(oid, props)
	if err != nil {
		return err
	}
	rollback := func() { _ = e.gns.DropSpace(oid, true) }

	if err := e.fs.CreateDirAll(layout.SpaceDir(e.dataRoot, st.Name, sp.UUID.String())); err != nil {
		rollback()
		return err
	}
	if err := e.commitDDL(gnstxn.CreateSpaceEvent{Name: st.Name, UUID: sp.UUID, Props: props}); err != nil {
		rollback()
		return err
	}
	return nil
}

func (e *Engine) execAlterSpace(st *ast.AlterSpaceStatement) error {
	oid, err := gns.NewObjectID(st.Name)
	if err != nil {
		return err
	}
	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	sp, ok := e.gns.GetSpace(st.Name)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", st.Name)
	}
	oldProps := sp.Props
	if err := e.gns.AlterSpace(oid, st.With); err != nil {
		return err
	}
	if err := e.commitDDL(gnstxn.AlterSpaceEvent{Name: st.Name, Props: st.With}); err != nil {
		_ = e.gns.AlterSpace(oid, oldProps)
		return err
	}
	return nil
}

// execDropSpace validates the drop's preconditions up front, journals the
// event, then applies: with the ddl mutex held, apply cannot fail after
// validation, which keeps the drop's rollback story trivial (there is no
// un-drop; the journal entry must precede the destruction it describes).
func (e *Engine) execDropSpace(st *ast.DropSpaceStatement) error {
	oid, err := gns.NewObjectID(st.Name)
	if err != nil {
		return err
	}
	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	sp, ok := e.gns.GetSpace(st.Name)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", st.Name)
	}
	if sp.Protected() {
		return ferr.Newf(ferr.ProtectedObject, "space %q is protected", st.Name)
	}
	if sp.ModelCount() > 0 && !st.Force {
		return ferr.Newf(ferr.NotEmpty, "space %q still has models", st.Name)
	}
	if sp.RefCount() > 0 {
		return ferr.Newf(ferr.StillInUse, "space %q has live references", st.Name)
	}
	for _, mn := range sp.ModelNames() {
		m, ok := e.gns.GetModel(st.Name, mn)
		if ok && m.RefCount() > 0 {
			return ferr.Newf(ferr.StillInUse, "model %q has live references", mn)
		}
	}

	if err := e.commitDDL(gnstxn.DropSpaceEvent{Name: st.Name}); err != nil {
		return err
	}

	for _, mn := range sp.ModelNames() {
		mnOID, oerr := gns.NewObjectID(mn)
		if oerr != nil {
			continue
		}
		if _, derr := e.gns.DropModel(oid, mnOID, true); derr == nil {
			e.dropDriver(st.Name, mn)
		}
	}
	if err := e.gns.DropSpace(oid, true); err != nil {
		return err
	}
	e.rt.Submit(newDeleteDirectoryTask(e, layout.SpaceDir(e.dataRoot, st.Name, sp.UUID.String())))
	return nil
}

// dropDriver discards a model's driver without flushing; the model's
// directory is queued for deletion.
func (e *Engine) dropDriver(space, model string) {
	e.driversMu.Lock()
	d, ok := e.drivers[driverKey{space: space, model: model}]
	if ok {
		delete(e.drivers, driverKey{space: space, model: model})
	}
	e.driversMu.Unlock()
	if ok {
		d.discard()
	}
}

func (e *Engine) execCreateModel(ctx context.Context, sess *Session, st *ast.CreateModelStatement) error {
	spaceName, modelName := sess.resolve(st.Entity)
	spaceOID, err := gns.NewObjectID(spaceName)
	if err != nil {
		return err
	}
	modelOID, err := gns.NewObjectID(modelName)
	if err != nil {
		return err
	}

	// Default the first field as the primary key when none is declared.
	defs := make([]ast.FieldDef, len(st.Fields))
	copy(defs, st.Fields)
	pkName := ""
	for _, d := range defs {
		if d.Primary {
			pkName = d.Name
			break
		}
	}
	if pkName == "" {
		defs[0].Primary = true
		pkName = defs[0].Name
	}
	fields, err := ast.BuildFieldSet(defs)
	if err != nil {
		return err
	}

	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	sp, ok := e.gns.GetSpace(spaceName)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", spaceName)
	}
	m, err := gns.NewModel(modelOID, pkName, fields, st.Volatile)
	if err != nil {
		return err
	}
	if err := e.gns.CreateModel(spaceOID, m); err != nil {
		return err
	}
	rollback := func() { _, _ = e.gns.DropModel(spaceOID, modelOID, true) }

	d, err := openModelDriver(e.fs, e.dataRoot, sp, m, e.hdr, false)
	if err != nil {
		rollback()
		return err
	}

	specs := make([]gnstxn.FieldSpec, 0, len(defs))
	for _, fd := range defs {
		f, _ := fields.Get(fd.Name)
		specs = append(specs, gnstxn.FieldSpec{Name: fd.Name, Field: f})
	}
	ev := gnstxn.CreateModelEvent{
		Space: spaceName, Model: modelName, UUID: m.UUID,
		Fields: specs, Volatile: st.Volatile,
	}
	if err := e.commitDDL(ev); err != nil {
		rollback()
		d.discard()
		return err
	}

	e.driversMu.Lock()
	e.drivers[driverKey{space: spaceName, model: modelName}] = d
	e.driversMu.Unlock()
	e.recomputeDeltaCap(ctx)
	return nil
}

func (e *Engine) execAlterModel(sess *Session, st *ast.AlterModelStatement) error {
	spaceName, modelName := sess.resolve(st.Entity)
	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	m, ok := e.gns.GetModel(spaceName, modelName)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "model %q.%q not found", spaceName, modelName)
	}
	d, _ := e.driver(spaceName, modelName)
	if d != nil {
		// Deltas queued before this alter must be batched under the old
		// schema version.
		if err := d.flush(); err != nil {
			return err
		}
	}

	var ev gnstxn.Event
	var rollback func()
	switch st.Kind {
	case ast.AlterAddField:
		f := gns.Field{Layers: st.Field.Type.ToTypeExpr(), Nullable: st.Field.Nullable}
		if _, err := m.AlterAddField(st.Field.Name, f); err != nil {
			return err
		}
		name := st.Field.Name
		rollback = func() { _, _ = m.AlterRemoveField(name) }
		ev = gnstxn.AlterModelAddEvent{Space: spaceName, Model: modelName, FieldName: name, Field: f}
	case ast.AlterRemoveField:
		old, okf := m.Fields.Get(st.Remove)
		if !okf {
			return ferr.Newf(ferr.ObjectNotFound, "field %q not found", st.Remove)
		}
		if _, err := m.AlterRemoveField(st.Remove); err != nil {
			return err
		}
		name := st.Remove
		rollback = func() { _, _ = m.AlterAddField(name, old) }
		ev = gnstxn.AlterModelRemoveEvent{Space: spaceName, Model: modelName, FieldName: name}
	case ast.AlterUpdateField:
		old, okf := m.Fields.Get(st.Field.Name)
		if !okf {
			return ferr.Newf(ferr.ObjectNotFound, "field %q not found", st.Field.Name)
		}
		f := gns.Field{Layers: st.Field.Type.ToTypeExpr(), Nullable: st.Field.Nullable, Primary: old.Primary}
		if _, err := m.AlterUpdateField(st.Field.Name, f); err != nil {
			return err
		}
		name := st.Field.Name
		rollback = func() { _, _ = m.AlterUpdateField(name, old) }
		ev = gnstxn.AlterModelUpdateEvent{Space: spaceName, Model: modelName, FieldName: name, Field: f}
	default:
		return ferr.New(ferr.QLInvalidSyntax, "unknown alter form")
	}

	if err := e.commitDDL(ev); err != nil {
		rollback()
		return err
	}
	if d != nil {
		d.updateSchema()
	}
	return nil
}

func (e *Engine) execDropModel(ctx context.Context, sess *Session, st *ast.DropModelStatement) error {
	spaceName, modelName := sess.resolve(st.Entity)
	spaceOID, err := gns.NewObjectID(spaceName)
	if err != nil {
		return err
	}
	modelOID, err := gns.NewObjectID(modelName)
	if err != nil {
		return err
	}
	e.ddlMu.Lock()
	defer e.ddlMu.Unlock()

	sp, ok := e.gns.GetSpace(spaceName)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", spaceName)
	}
	m, ok := e.gns.GetModel(spaceName, modelName)
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "model %q.%q not found", spaceName, modelName)
	}
	if m.RefCount() > 0 && !st.Force {
		return ferr.Newf(ferr.StillInUse, "model %q has live references", modelName)
	}

	if err := e.commitDDL(gnstxn.DropModelEvent{Space: spaceName, Model: modelName}); err != nil {
		return err
	}
	if _, err := e.gns.DropModel(spaceOID, modelOID, true); err != nil {
		return err
	}
	e.dropDriver(spaceName, modelName)
	if !m.Volatile {
		e.rt.Submit(newDeleteFileTask(e, layout.BatchJournalPath(e.dataRoot, spaceName, sp.UUID.String(), modelName, m.UUID.String())))
	}
	e.rt.Submit(newDeleteDirectoryTask(e, layout.ModelDir(e.dataRoot, spaceName, sp.UUID.String(), modelName, m.UUID.String())))
	e.recomputeDeltaCap(ctx)
	return nil
}

func (e *Engine) execInspect(sess *Session, st *ast.InspectStatement) (*InspectResult, error) {
	switch st.Target {
	case ast.InspectSpaces:
		return &InspectResult{Spaces: e.gns.Spaces()}, nil
	case ast.InspectSpace:
		name := st.Space
		if name == "" {
			name = sess.space
		}
		sp, ok := e.gns.GetSpace(name)
		if !ok {
			return nil, ferr.Newf(ferr.ObjectNotFound, "space %q not found", name)
		}
		return &InspectResult{Space: name, Props: sp.Props, Models: sp.ModelNames()}, nil
	case ast.InspectModel:
		spaceName, modelName := sess.resolve(st.Entity)
		if modelName == "" {
			return nil, ferr.New(ferr.QLExpectedEntity, "inspect model requires an entity")
		}
		m, ok := e.gns.GetModel(spaceName, modelName)
		if !ok {
			return nil, ferr.Newf(ferr.ObjectNotFound, "model %q.%q not found", spaceName, modelName)
		}
		return &InspectResult{Model: modelName, FieldNames: m.Fields.Names(), PrimaryKey: m.PrimaryKeyName}, nil
	}
	return nil, ferr.New(ferr.QLInvalidSyntax, "unknown inspect form")
}

// model resolves an entity to its live model and driver.
func (e *Engine) model(sess *Session, ent ast.Entity) (*gns.Model, *modelDriver, error) {
	spaceName, modelName := sess.resolve(ent)
	m, ok := e.gns.GetModel(spaceName, modelName)
	if !ok {
		return nil, nil, ferr.Newf(ferr.ObjectNotFound, "model %q.%q not found", spaceName, modelName)
	}
	d, ok := e.driver(spaceName, modelName)
	if !ok {
		return nil, nil, ferr.Newf(ferr.NotReady, "model %q.%q has no driver", spaceName, modelName)
	}
	return m, d, nil
}

// whereToKey checks the DML predicate targets the primary key and derives
// the index key from its value.
func whereToKey(m *gns.Model, wc ast.WhereClause) (gns.PrimaryIndexKey, error) {
	if wc.Field != m.PrimaryKeyName {
		return gns.PrimaryIndexKey{}, ferr.Newf(ferr.WrongModel, "where clause must target the primary key %q", m.PrimaryKeyName)
	}
	k, ok := gns.FromDatacell(wc.Value)
	if !ok || k.Tag != m.PrimaryKeyTag {
		return gns.PrimaryIndexKey{}, ferr.New(ferr.WrongModel, "where value does not match the primary key type")
	}
	return k, nil
}

// pkToCell reconstructs the primary key's cell form for result rows.
func pkToCell(m *gns.Model, pk gns.PrimaryIndexKey) gns.Datacell {
	f, _ := m.Fields.Get(m.PrimaryKeyName)
	kind := f.Layers.ScalarKind()
	switch pk.Tag {
	case gns.PKUInt:
		return gns.NewUInt(kind, pk.UInt())
	case gns.PKSInt:
		return gns.NewSInt(kind, pk.SInt())
	case gns.PKBin:
		return gns.NewBin(pk.Bytes())
	default:
		return gns.NewStr([]byte(pk.Str()))
	}
}

// rowCells lays a row snapshot out in field order, primary key excluded
// (the batch journal's column layout).
func rowCells(m *gns.Model, snap map[string]gns.Datacell) []gns.Datacell {
	names := m.Fields.Names()
	out := make([]gns.Datacell, 0, len(names)-1)
	for _, n := range names {
		if n == m.PrimaryKeyName {
			continue
		}
		out = append(out, snap[n])
	}
	return out
}

func (e *Engine) execInsert(sess *Session, st *ast.InsertStatement) error {
	m, d, err := e.model(sess, st.Entity)
	if err != nil {
		return err
	}
	if err := d.ensureWritable(); err != nil {
		return err
	}
	cells, err := st.Bind(m)
	if err != nil {
		return err
	}
	names := m.Fields.Names()
	data := make(map[string]gns.Datacell, len(names)-1)
	var pk gns.PrimaryIndexKey
	for i, name := range names {
		if name == m.PrimaryKeyName {
			k, ok := gns.FromDatacell(cells[i])
			if !ok || k.Tag != m.PrimaryKeyTag {
				return ferr.New(ferr.WrongModel, "value does not match the primary key type")
			}
			pk = k
			continue
		}
		data[name] = cells[i]
	}

	txn := d.newTxn()
	row := gns.NewRow(pk, data, m.Delta.Current(), txn)
	if _, existed := m.Index.GetOrInsert(pk, func() *gns.Row { return row }); existed {
		return ferr.New(ferr.AlreadyExists, "a row with this primary key already exists")
	}
	if err := d.commitRow(batchjournal.Event{Op: batchjournal.OpInsert, TxnID: uint64(txn), PK: pk, Cells: rowCells(m, data)}); err != nil {
		m.Index.Delete(pk)
		return err
	}
	e.maybeTriggerFlush(d)
	return nil
}

func (e *Engine) execSelect(sess *Session, st *ast.SelectStatement) (*SelectResult, error) {
	m, _, err := e.model(sess, st.Entity)
	if err != nil {
		return nil, err
	}
	pk, err := whereToKey(m, st.Where)
	if err != nil {
		return nil, err
	}
	row, ok := m.Index.Get(pk)
	if !ok {
		return nil, ferr.New(ferr.ObjectNotFound, "row not found")
	}
	m.ResolveRow(row)
	snap := row.Snapshot()

	cols := st.Columns
	if st.AllCols {
		cols = m.Fields.Names()
	}
	view := RowView{Fields: cols, Cells: make([]gns.Datacell, 0, len(cols))}
	for _, c := range cols {
		if c == m.PrimaryKeyName {
			view.Cells = append(view.Cells, pkToCell(m, pk))
			continue
		}
		cell, okc := snap[c]
		if !okc {
			if _, declared := m.Fields.Get(c); !declared {
				return nil, ferr.Newf(ferr.ObjectNotFound, "unknown field %q", c)
			}
			f, _ := m.Fields.Get(c)
			cell = gns.NewNull(f.Layers.ScalarKind())
		}
		view.Cells = append(view.Cells, cell)
	}
	return &SelectResult{Row: view}, nil
}

func (e *Engine) execUpdate(sess *Session, st *ast.UpdateStatement) error {
	m, d, err := e.model(sess, st.Entity)
	if err != nil {
		return err
	}
	pk, err := whereToKey(m, st.Where)
	if err != nil {
		return err
	}
	assigns := make(map[string]gns.Datacell, len(st.Assigns))
	for name, v := range st.Assigns {
		f, okf := m.Fields.Get(name)
		if !okf {
			return ferr.Newf(ferr.ObjectNotFound, "unknown field %q", name)
		}
		if name == m.PrimaryKeyName {
			return ferr.New(ferr.WrongModel, "the primary key cannot be updated")
		}
		if v.Null {
			if !f.Nullable {
				return ferr.Newf(ferr.WrongModel, "field %q is not nullable", name)
			}
			v = gns.NewNull(f.Layers.ScalarKind())
		}
		assigns[name] = v
	}

	if err := d.ensureWritable(); err != nil {
		return err
	}
	row, ok := m.Index.Get(pk)
	if !ok {
		return ferr.New(ferr.ObjectNotFound, "row not found")
	}
	m.ResolveRow(row)
	prev := row.Snapshot()
	prevTxn := row.TxnVersion
	txn := d.newTxn()
	row.Set(assigns, txn)
	snap := row.Snapshot()
	if err := d.commitRow(batchjournal.Event{Op: batchjournal.OpUpdate, TxnID: uint64(txn), PK: pk, Cells: rowCells(m, snap)}); err != nil {
		row.Set(prev, prevTxn)
		return err
	}
	e.maybeTriggerFlush(d)
	return nil
}

func (e *Engine) execDelete(sess *Session, st *ast.DeleteStatement) error {
	m, d, err := e.model(sess, st.Entity)
	if err != nil {
		return err
	}
	pk, err := whereToKey(m, st.Where)
	if err != nil {
		return err
	}
	if err := d.ensureWritable(); err != nil {
		return err
	}
	row, ok := m.Index.Get(pk)
	if !ok {
		return ferr.New(ferr.ObjectNotFound, "row not found")
	}
	m.Index.Delete(pk)
	txn := d.newTxn()
	if err := d.commitRow(batchjournal.Event{Op: batchjournal.OpDelete, TxnID: uint64(txn), PK: pk}); err != nil {
		m.Index.Insert(pk, row)
		return err
	}
	e.maybeTriggerFlush(d)
	return nil
}
