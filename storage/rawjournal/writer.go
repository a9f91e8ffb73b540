package rawjournal

import (
	"io"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/sdss"
)

// Writer appends events to a raw journal file. It is single-use per open file and not safe for concurrent
// commits; callers serialize commits themselves (the fractal runtime does
// this per-driver).
type Writer[E any, GS any] struct {
	tw      *bytesio.TrackedWriter
	closer  io.Closer
	adapter Adapter[E, GS]
	nextID  uint64
	closed  bool
}

// OpenNew stamps an SDSS header and writes the Initialize driver event,
// for a brand-new (previously nonexistent) journal file.
func OpenNew[E any, GS any](wc io.WriteCloser, hdr sdss.WriteParams, adapter Adapter[E, GS]) (*Writer[E, GS], error) {
	head := sdss.Encode(hdr)
	if _, err := wc.Write(head[:]); err != nil {
		return nil, err
	}
	w := &Writer[E, GS]{tw: bytesio.NewTrackedWriter(wc), closer: wc, adapter: adapter}
	if err := w.writeDriverEvent(MetaInitialize); err != nil {
		return nil, err
	}
	if err := w.tw.Flush(); err != nil {
		return nil, err
	}
	return w, nil
}

// OpenExisting resumes appending to an already-header-validated journal
// file positioned at the first byte past the last valid event (the
// reader's recovery scan determines that offset); it emits a Reopen event
// whose id must equal lastEventID+1.
func OpenExisting[E any, GS any](wc io.WriteCloser, lastEventID uint64, adapter Adapter[E, GS]) (*Writer[E, GS], error) {
	w := &Writer[E, GS]{tw: bytesio.NewTrackedWriter(wc), closer: wc, adapter: adapter, nextID: lastEventID + 1}
	if err := w.writeDriverEvent(MetaReopen); err != nil {
		return nil, err
	}
	if err := w.tw.Flush(); err != nil {
		return nil, err
	}
	return w, nil
}

// writeDriverEvent appends a payload-less driver event (Reopen/Initialize)
// without bumping nextID past its own slot.
func (w *Writer[E, GS]) writeDriverEvent(meta uint64) error {
	id := w.nextID
	w.nextID++
	w.tw.ResetChecksum()
	if err := w.tw.DTrackWriteU64LE(id); err != nil {
		return err
	}
	if err := w.tw.DTrackWriteU64LE(meta); err != nil {
		return err
	}
	sum := w.tw.ResetChecksum()
	return w.tw.UntrackedWrite(u64le(sum))
}

// LastEventID returns the id of the most recently written event; after
// CloseDriver this is the Close event's id, the value a later
// OpenExisting resumes from.
func (w *Writer[E, GS]) LastEventID() uint64 { return w.nextID - 1 }

// CommitEvent appends one adapter event, following the five-step protocol
// shared by every journal: reserve id, write id+meta, delegate payload encoding,
// append the CRC-64 trailer, flush and fsync.
func (w *Writer[E, GS]) CommitEvent(event E) error {
	if w.closed {
		return ferr.New(ferr.RawJournalRuntimeDirty, "commit on a closed journal writer")
	}
	id := w.nextID
	w.nextID++
	meta := w.adapter.GetEventMeta(event)

	w.tw.ResetChecksum()
	if err := w.tw.DTrackWriteU64LE(id); err != nil {
		return err
	}
	if err := w.tw.DTrackWriteU64LE(meta); err != nil {
		return err
	}
	if err := w.adapter.CommitBuffered(w.tw, event); err != nil {
		return err
	}
	sum := w.tw.ResetChecksum()
	if err := w.tw.UntrackedWrite(u64le(sum)); err != nil {
		return err
	}
	return w.tw.Flush()
}

// CloseDriver emits a Close event, flushes and fsyncs, and marks the
// writer closed. Committing to a closed Writer is an error, not a panic;
// forgetting to call CloseDriver at all before dropping the writer is the
// bug (we surface it via Close, see below, rather than
// a finalizer).
func (w *Writer[E, GS]) CloseDriver() error {
	if w.closed {
		return nil
	}
	if err := w.writeDriverEvent(MetaClose); err != nil {
		return err
	}
	if err := w.tw.Flush(); err != nil {
		return err
	}
	w.closed = true
	return w.closer.Close()
}

// Close panics if the writer still has unflushed, uncommitted state and
// CloseDriver was never called: dropping a writer that has not been
// closed is a bug.
func (w *Writer[E, GS]) Close() error {
	if !w.closed {
		panic("rawjournal: Writer dropped without CloseDriver")
	}
	return nil
}

// LWTHeartbeat attempts to append a zero-payload Close event to recover a
// journal marked iffy after a prior write failure: success here clears the iffy flag (the caller must reopen the
// journal with OpenExisting before any further commit); failure leaves the
// journal iffy for the fractal runtime to retry.
func (w *Writer[E, GS]) LWTHeartbeat() error {
	return w.CloseDriver()
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * uint(i)))
	}
	return b
}
