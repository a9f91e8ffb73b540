// Package gns implements the in-memory global namespace: spaces, models,
// primary indexes, and schema-delta tracking.
package gns

import (
	"sync"

	"github.com/driftdb/driftdb/lib/ferr"
)

// modelKey identifies a model by its owning space and its own name.
type modelKey struct {
	space string
	model string
}

// GNS is the process-wide global namespace. Spaces and models are guarded
// by two independent reader-writer locks; DDL takes both, always in the
// canonical order spaces -> models, to avoid deadlock.
type GNS struct {
	spacesMu sync.RWMutex
	spaces   map[string]*Space

	modelsMu sync.RWMutex
	models   map[modelKey]*Model
}

// New constructs an empty GNS seeded with the two protected spaces.
// Callers restoring from a journal should
// use New and then replay DDL events, which is idempotent against the
// pre-seeded default/system spaces (CreateSpace on an existing name is
// simply skipped during restore by the caller, not by GNS itself).
func New() *GNS {
	g := &GNS{
		spaces: make(map[string]*Space),
		models: make(map[modelKey]*Model),
	}
	for _, n := range []string{DefaultSpaceName, SystemSpaceName} {
		oid, _ := NewObjectID(n)
		g.spaces[n] = NewSpace(oid, Dict{})
	}
	return g
}

// CreateSpace registers a new, empty space.
func (g *GNS) CreateSpace(name ObjectID, props Dict) (*Space, error) {
	g.spacesMu.Lock()
	defer g.spacesMu.Unlock()
	key := name.String()
	if _, ok := g.spaces[key]; ok {
		return nil, ferr.Newf(ferr.AlreadyExists, "space %q already exists", key)
	}
	sp := NewSpace(name, props)
	g.spaces[key] = sp
	return sp, nil
}

// AlterSpace replaces a space's property dict in place.
func (g *GNS) AlterSpace(name ObjectID, props Dict) error {
	g.spacesMu.Lock()
	defer g.spacesMu.Unlock()
	sp, ok := g.spaces[name.String()]
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", name.String())
	}
	sp.Props = props
	return nil
}

// DropSpace removes a space, enforcing the drop invariants:
// protected spaces never drop; a non-empty space requires force; a space
// with outstanding live references (beyond this call's own lookup) returns
// StillInUse even with force.
func (g *GNS) DropSpace(name ObjectID, force bool) error {
	g.spacesMu.Lock()
	defer g.spacesMu.Unlock()
	key := name.String()
	sp, ok := g.spaces[key]
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", key)
	}
	if sp.Protected() {
		return ferr.Newf(ferr.ProtectedObject, "space %q is protected", key)
	}
	if sp.ModelCount() > 0 && !force {
		return ferr.Newf(ferr.NotEmpty, "space %q still has models", key)
	}
	if sp.RefCount() > 0 {
		return ferr.Newf(ferr.StillInUse, "space %q has live references", key)
	}
	g.modelsMu.RLock()
	for _, mn := range sp.ModelNames() {
		if m, ok := g.models[modelKey{space: key, model: mn}]; ok && m.RefCount() > 0 {
			g.modelsMu.RUnlock()
			return ferr.Newf(ferr.StillInUse, "model %q has live references", mn)
		}
	}
	g.modelsMu.RUnlock()
	delete(g.spaces, key)
	return nil
}

// GetSpace looks up a space by name.
func (g *GNS) GetSpace(name string) (*Space, bool) {
	g.spacesMu.RLock()
	defer g.spacesMu.RUnlock()
	sp, ok := g.spaces[name]
	return sp, ok
}

// Spaces returns every space name.
func (g *GNS) Spaces() []string {
	g.spacesMu.RLock()
	defer g.spacesMu.RUnlock()
	out := make([]string, 0, len(g.spaces))
	for n := range g.spaces {
		out = append(out, n)
	}
	return out
}

// CreateModel registers a new model under an existing space, taking the
// locks in canonical order (spaces -> models).
func (g *GNS) CreateModel(spaceName ObjectID, m *Model) error {
	g.spacesMu.Lock()
	defer g.spacesMu.Unlock()
	sp, ok := g.spaces[spaceName.String()]
	if !ok {
		return ferr.Newf(ferr.ObjectNotFound, "space %q not found", spaceName.String())
	}

	g.modelsMu.Lock()
	defer g.modelsMu.Unlock()
	key := modelKey{space: spaceName.String(), model: m.Name.String()}
	if _, ok := g.models[key]; ok {
		return ferr.Newf(ferr.AlreadyExists, "model %q already exists", m.Name.String())
	}
	g.models[key] = m
	sp.AddModel(m.Name.String())
	return nil
}

// DropModel removes a model, enforcing the live-reference invariant.
func (g *GNS) DropModel(spaceName, modelName ObjectID, force bool) (*Model, error) {
	g.spacesMu.Lock()
	defer g.spacesMu.Unlock()
	sp, ok := g.spaces[spaceName.String()]
	if !ok {
		return nil, ferr.Newf(ferr.ObjectNotFound, "space %q not found", spaceName.String())
	}

	g.modelsMu.Lock()
	defer g.modelsMu.Unlock()
	key := modelKey{space: spaceName.String(), model: modelName.String()}
	m, ok := g.models[key]
	if !ok {
		return nil, ferr.Newf(ferr.ObjectNotFound, "model %q not found", modelName.String())
	}
	if m.RefCount() > 0 && !force {
		return nil, ferr.Newf(ferr.StillInUse, "model %q has live references", modelName.String())
	}
	delete(g.models, key)
	sp.RemoveModel(modelName.String())
	return m, nil
}

// GetModel looks up a model by (space, model) name.
func (g *GNS) GetModel(spaceName, modelName string) (*Model, bool) {
	g.modelsMu.RLock()
	defer g.modelsMu.RUnlock()
	m, ok := g.models[modelKey{space: spaceName, model: modelName}]
	return m, ok
}

// Models returns every (space, model) pair currently registered.
func (g *GNS) Models() [][2]string {
	g.modelsMu.RLock()
	defer g.modelsMu.RUnlock()
	out := make([][2]string, 0, len(g.models))
	for k := range g.models {
		out = append(out, [2]string{k.space, k.model})
	}
	return out
}

// ModelCount returns the total number of models across all spaces, used by
// the fractal runtime's per-model memory-budget calculation.
func (g *GNS) ModelCount() int {
	g.modelsMu.RLock()
	defer g.modelsMu.RUnlock()
	return len(g.models)
}
