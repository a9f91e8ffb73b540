package batchjournal

import (
	"sync"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
)

// Writer accumulates one model's pending row mutations into a delta queue
// and serializes them as batches. The
// fractal runtime owns the soft memory budget; it calls Enqueue per
// mutation and Flush whenever DeltaCount() approaches the cap it computed
// from free system memory, or on its periodic sweep.
type Writer struct {
	tw            *bytesio.TrackedWriter
	pkTag         gns.PrimaryIndexKeyTag
	schemaVersion uint64
	columnCount   uint64
	nextCommit    uint64

	mu      sync.Mutex
	pending []Event
}

// NewWriter wraps the underlying batch file's tracked writer for one
// model, at the schema/column shape the caller's current model reflects.
func NewWriter(tw *bytesio.TrackedWriter, pkTag gns.PrimaryIndexKeyTag, schemaVersion uint64, columnCount uint64) *Writer {
	return &Writer{tw: tw, pkTag: pkTag, schemaVersion: schemaVersion, columnCount: columnCount}
}

// ResumeCommits sets the next batch's commit number when appending to a
// journal whose prior batches were replayed at boot (the stream scan's
// LastCommit plus one).
func (w *Writer) ResumeCommits(next uint64) {
	w.mu.Lock()
	w.nextCommit = next
	w.mu.Unlock()
}

// Reopen emits the batch-reopen marker. Required exactly once, before the
// first batch appended to a file whose stream ended on a batch-closed
// marker.
func (w *Writer) Reopen() error {
	if err := w.tw.DTrackWrite([]byte{MarkerBatchReopen}); err != nil {
		return err
	}
	return w.tw.Flush()
}

// WriteRecoveryMarker appends the single recovery byte that advances
// readers past a torn batch write,
// the batch journal's equivalent of the raw journal's LWT heartbeat.
func (w *Writer) WriteRecoveryMarker() error {
	if err := w.tw.DTrackWrite([]byte{MarkerRecoveryEvent}); err != nil {
		return err
	}
	return w.tw.Flush()
}

// Enqueue appends one row mutation to the pending delta queue without
// touching the file; the caller decides when to Flush.
func (w *Writer) Enqueue(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, ev)
}

// DeltaCount reports the number of mutations waiting to be flushed, the
// quantity the fractal runtime compares against its per-model delta cap.
func (w *Writer) DeltaCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Flush serializes every pending mutation as one batch and resets the
// queue. A no-op if nothing is pending.
func (w *Writer) Flush() error {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	commit := w.nextCommit
	if len(pending) > 0 {
		w.nextCommit++
	}
	w.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}
	b := Batch{
		PKTag:          w.pkTag,
		ExpectedCommit: commit,
		SchemaVersion:  w.schemaVersion,
		ColumnCount:    w.columnCount,
		Events:         pending,
		ActualCommit:   commit,
	}
	if err := WriteBatch(w.tw, b); err != nil {
		// The deltas are not lost with the torn batch: put them back at
		// the head of the queue so a retry after recovery re-flushes
		// them (mutations enqueued meanwhile stay behind them).
		w.mu.Lock()
		w.pending = append(pending, w.pending...)
		w.mu.Unlock()
		return err
	}
	return nil
}

// LastCommit reports the most recently flushed batch's commit number, the
// watermark persisted to the model's metadata checkpoint.
func (w *Writer) LastCommit() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.nextCommit == 0 {
		return 0
	}
	return w.nextCommit - 1
}

// UpdateSchema records a schema change so subsequent batches are tagged
// with the model's current version and column count (called after the
// model processes an AlterModel DDL statement).
func (w *Writer) UpdateSchema(schemaVersion uint64, columnCount uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.schemaVersion = schemaVersion
	w.columnCount = columnCount
}

// Close emits the batch-closed marker; a subsequent NewWriter over the
// same file must write MarkerBatchReopen before appending further
// batches.
func (w *Writer) Close() error {
	if err := w.tw.DTrackWrite([]byte{MarkerBatchClosed}); err != nil {
		return err
	}
	return w.tw.Flush()
}
