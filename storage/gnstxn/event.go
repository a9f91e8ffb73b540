// Package gnstxn defines the DDL transaction events persisted to the GNS
// raw journal: each DDL operation the engine commits
// is journaled as one adapter event, and boot-time recovery replays the
// event stream into an empty GNS.
package gnstxn

import (
	"github.com/driftdb/driftdb/gns"
)

// Adapter event meta values. These must stay clear of the raw journal's
// reserved driver metas (rawjournal.MetaClose/MetaReopen/MetaInitialize).
const (
	metaCreateSpace uint64 = iota + 16
	metaAlterSpace
	metaDropSpace
	metaCreateModel
	metaAlterModelAdd
	metaAlterModelRemove
	metaAlterModelUpdate
	metaDropModel
)

// Event is one committed DDL operation.
type Event interface {
	meta() uint64
}

// CreateSpaceEvent records a new space, carrying the UUID stamped at
// creation so recovery reproduces the same identity.
type CreateSpaceEvent struct {
	Name  string
	UUID  gns.UUID
	Props gns.Dict
}

// AlterSpaceEvent replaces a space's property dict.
type AlterSpaceEvent struct {
	Name  string
	Props gns.Dict
}

// DropSpaceEvent removes a space. The drop's preconditions (protection,
// emptiness, references) were enforced at commit time; on restore the
// event applies unconditionally, dropping any models still registered
// under the space (the force-drop case).
type DropSpaceEvent struct {
	Name string
}

// FieldSpec is one (name, field) pair of a model definition, in field
// insertion order.
type FieldSpec struct {
	Name  string
	Field gns.Field
}

// CreateModelEvent records a new model and its full schema.
type CreateModelEvent struct {
	Space    string
	Model    string
	UUID     gns.UUID
	Fields   []FieldSpec
	Volatile bool
}

// AlterModelAddEvent adds a field to an existing model.
type AlterModelAddEvent struct {
	Space     string
	Model     string
	FieldName string
	Field     gns.Field
}

// AlterModelRemoveEvent drops a field from an existing model.
type AlterModelRemoveEvent struct {
	Space     string
	Model     string
	FieldName string
}

// AlterModelUpdateEvent retypes an existing field.
type AlterModelUpdateEvent struct {
	Space     string
	Model     string
	FieldName string
	Field     gns.Field
}

// DropModelEvent removes a model.
type DropModelEvent struct {
	Space string
	Model string
}

func (CreateSpaceEvent) meta() uint64      { return metaCreateSpace }
func (AlterSpaceEvent) meta() uint64       { return metaAlterSpace }
func (DropSpaceEvent) meta() uint64        { return metaDropSpace }
func (CreateModelEvent) meta() uint64      { return metaCreateModel }
func (AlterModelAddEvent) meta() uint64    { return metaAlterModelAdd }
func (AlterModelRemoveEvent) meta() uint64 { return metaAlterModelRemove }
func (AlterModelUpdateEvent) meta() uint64 { return metaAlterModelUpdate }
func (DropModelEvent) meta() uint64        { return metaDropModel }
