// Package rawjournal implements the generic event journal: a sequence of length-implicit, CRC-64-terminated events
// appended to a single SDSS file, with a small fixed set of driver
// (journal-owned) events layered underneath adapter-defined payloads.
package rawjournal

import (
	"github.com/driftdb/driftdb/bytesio"
)

// Meta values reserved for driver events. Adapter event
// metas must stay clear of this range; ParseEventMeta is given the chance
// to recognize them first and anything else falls through to the adapter.
const (
	MetaClose      uint64 = 0
	MetaReopen     uint64 = 1
	MetaInitialize uint64 = 2 // first event of a brand-new journal
)

// Adapter binds a journal to a concrete event type and apply target. Type
// parameter E is the adapter's decoded-event representation; GS is
// whatever state ApplyEvent mutates (the GNS, a model's row index, ...).
// The two type parameters stand in for associated types, expressed with
// Go generics instead of an `any`-typed interface, since every real use
// site (GNS events, per-model batch events) has one concrete event type.
type Adapter[E any, GS any] interface {
	// GetEventMeta returns the adapter-chosen meta value for event.
	GetEventMeta(event E) uint64
	// CommitBuffered writes event's payload through w.
	CommitBuffered(w *bytesio.TrackedWriter, event E) error
	// ParseEventMeta reports whether meta names a recognized adapter
	// event, and if so what to pass to ParseEvent.
	ParseEventMeta(meta uint64) (tag any, ok bool)
	// ParseEvent decodes one event's payload given the tag ParseEventMeta
	// returned.
	ParseEvent(r *bytesio.TrackedReader, tag any) (E, error)
	// ApplyEvent folds a decoded event into gs.
	ApplyEvent(gs GS, event E) error
}
