package engine

import (
	"bytes"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftdb/driftdb/bytesio"
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/lib/logging"
	"github.com/driftdb/driftdb/sdss"
	"github.com/driftdb/driftdb/storage/batchjournal"
	"github.com/driftdb/driftdb/storage/gnstxn"
	"github.com/driftdb/driftdb/storage/layout"
	"github.com/driftdb/driftdb/storage/modelmeta"
	"github.com/driftdb/driftdb/storage/rawjournal"
	"github.com/driftdb/driftdb/vfs"
)

// metaOpenWait bounds how long a bbolt sidecar open blocks on another
// process's file lock.
const metaOpenWait = time.Second

// gnsDriver owns the GNS raw-journal writer. A write failure flips the
// driver iffy: further DDL is refused with DriverIffy until a heartbeat
// succeeds.
type gnsDriver struct {
	fs   vfs.FS
	path string

	mu   sync.Mutex
	w    *rawjournal.Writer[gnstxn.Event, *gns.GNS]
	iffy bool
}

func (d *gnsDriver) commit(ev gnstxn.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iffy {
		return ferr.New(ferr.DriverIffy, "gns journal driver is in recovery")
	}
	if err := d.w.CommitEvent(ev); err != nil {
		d.iffy = true
		return ferr.Wrap(err, ferr.DdlTransactionFailure, "gns journal commit failed")
	}
	return nil
}

// heartbeat is the LWT recovery step: append a Close event, then reopen
// the journal for further appends. Success clears the iffy flag.
func (d *gnsDriver) heartbeat() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.iffy {
		return nil
	}
	if err := d.w.LWTHeartbeat(); err != nil {
		return err
	}
	closeID := d.w.LastEventID()
	w, err := reopenRawJournal(d.fs, d.path, closeID)
	if err != nil {
		return err
	}
	d.w = w
	d.iffy = false
	return nil
}

func (d *gnsDriver) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iffy {
		// Leave the partial tail for the next boot's recovery scan.
		return ferr.New(ferr.DriverIffy, "gns journal driver closed while in recovery")
	}
	if err := d.w.CloseDriver(); err != nil {
		return err
	}
	return d.w.Close()
}

// reopenRawJournal opens path positioned at its end and resumes the event
// sequence after lastEventID.
func reopenRawJournal(fs vfs.FS, path string, lastEventID uint64) (*rawjournal.Writer[gnstxn.Event, *gns.GNS], error) {
	f, err := fs.FOpenRW(path)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}
	return rawjournal.OpenExisting[gnstxn.Event, *gns.GNS](f, lastEventID, gnstxn.Adapter{})
}

// modelDriver owns one model's batch journal, its transaction counter,
// and (on the real filesystem) its bbolt metadata sidecar. A nil batch
// writer marks a volatile model: rows live in memory only.
type modelDriver struct {
	spaceName string
	modelName string
	model     *gns.Model
	dir       string
	dataPath  string

	nextTxn atomic.Uint64

	mu   sync.Mutex
	file vfs.File
	bw   *batchjournal.Writer
	meta *modelmeta.Store
	iffy bool
}

func (d *modelDriver) newTxn() gns.TxnVersion {
	return gns.TxnVersion(d.nextTxn.Add(1))
}

// ensureWritable rejects DML early while the driver is in recovery, so
// statement execution never mutates the index for a write the journal
// will refuse.
func (d *modelDriver) ensureWritable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw != nil && d.iffy {
		return ferr.Newf(ferr.DriverIffy, "model %s.%s driver is in recovery", d.spaceName, d.modelName)
	}
	return nil
}

// commitRow enqueues one row mutation for the next batch flush. Volatile
// models skip the journal entirely.
func (d *modelDriver) commitRow(ev batchjournal.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return nil
	}
	if d.iffy {
		return ferr.Newf(ferr.DriverIffy, "model %s.%s driver is in recovery", d.spaceName, d.modelName)
	}
	d.bw.Enqueue(ev)
	return nil
}

func (d *modelDriver) deltaCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return 0
	}
	return d.bw.DeltaCount()
}

// flush serializes the pending deltas as one batch. On failure the driver
// goes iffy; the deltas stay queued for the retry after recovery.
func (d *modelDriver) flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return nil
	}
	if d.iffy {
		return ferr.Newf(ferr.DriverIffy, "model %s.%s driver is in recovery", d.spaceName, d.modelName)
	}
	if err := d.bw.Flush(); err != nil {
		d.iffy = true
		return err
	}
	if d.meta != nil {
		cp := modelmeta.Checkpoint{
			SchemaVersion: uint64(d.model.Delta.Current()),
			LastCommit:    d.bw.LastCommit(),
		}
		if err := d.meta.PutCheckpoint(d.model.UUID.String(), cp); err != nil {
			logging.Errorf("engine", "model %s.%s checkpoint write failed: %v", d.spaceName, d.modelName, err)
		}
	}
	return nil
}

// recover is the batch journal's LWT analogue: append the single recovery
// byte that advances readers past the torn batch, then clear iffy so the
// queued deltas can be re-flushed.
func (d *modelDriver) recover() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil || !d.iffy {
		return nil
	}
	if err := d.bw.WriteRecoveryMarker(); err != nil {
		return err
	}
	d.iffy = false
	return nil
}

func (d *modelDriver) updateSchema() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return
	}
	d.bw.UpdateSchema(uint64(d.model.Delta.Current()), uint64(d.model.Fields.Len()-1))
}

// close flushes outstanding deltas, writes the batch-closed marker, and
// releases the data file and metadata sidecar.
func (d *modelDriver) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return nil
	}
	var firstErr error
	if d.iffy {
		firstErr = ferr.Newf(ferr.DriverIffy, "model %s.%s driver closed while in recovery", d.spaceName, d.modelName)
	} else {
		if err := d.bw.Flush(); err != nil {
			firstErr = err
		} else if err := d.bw.Close(); err != nil {
			firstErr = err
		}
	}
	if err := d.file.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if d.meta != nil {
		if err := d.meta.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// discard drops the driver's handles without flushing, for models whose
// on-disk state is about to be deleted anyway.
func (d *modelDriver) discard() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bw == nil {
		return
	}
	d.file.Close()
	if d.meta != nil {
		d.meta.Close()
	}
	d.bw = nil
}

// openModelDriver builds the driver for one model, creating or reopening
// its on-disk layout. With restore set, existing batches are replayed
// into the model's primary index first.
func openModelDriver(fs vfs.FS, dataRoot string, sp *gns.Space, m *gns.Model, hdr headerParams, restore bool) (*modelDriver, error) {
	d := &modelDriver{
		spaceName: sp.Name.String(),
		modelName: m.Name.String(),
		model:     m,
	}
	if m.Volatile {
		return d, nil
	}
	d.dir = layout.ModelDir(dataRoot, d.spaceName, sp.UUID.String(), d.modelName, m.UUID.String())
	d.dataPath = layout.BatchJournalPath(dataRoot, d.spaceName, sp.UUID.String(), d.modelName, m.UUID.String())
	if err := fs.CreateDirAll(d.dir); err != nil {
		return nil, err
	}

	colCount := uint64(m.Fields.Len() - 1)
	schemaVersion := uint64(m.Delta.Current())

	f, err := fs.FOpenRW(d.dataPath)
	switch {
	case err == nil:
		end, rerr := restoreBatchFile(f, m, hdr, restore)
		if rerr != nil {
			f.Close()
			return nil, rerr
		}
		if err := f.Truncate(int64(sdss.HeaderSize + end.EndOffset)); err != nil {
			f.Close()
			return nil, err
		}
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, err
		}
		d.file = f
		d.bw = batchjournal.NewWriter(bytesio.NewTrackedWriter(f), m.PrimaryKeyTag, schemaVersion, colCount)
		if end.Batches > 0 {
			d.bw.ResumeCommits(end.LastCommit + 1)
		}
		if end.Closed {
			if err := d.bw.Reopen(); err != nil {
				f.Close()
				return nil, err
			}
		}
	case isNotFound(err):
		f, err = fs.FCreateRW(d.dataPath)
		if err != nil {
			return nil, err
		}
		head := sdss.Encode(hdr.writeParams(sdss.FileClassModelBatchJournal))
		if _, err := f.Write(head[:]); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.Sync(); err != nil {
			f.Close()
			return nil, err
		}
		d.file = f
		d.bw = batchjournal.NewWriter(bytesio.NewTrackedWriter(f), m.PrimaryKeyTag, schemaVersion, colCount)
	default:
		return nil, err
	}

	if _, isReal := fs.(*vfs.RealFS); isReal {
		meta, err := modelmeta.Open(layout.MetaPath(dataRoot, d.spaceName, sp.UUID.String(), d.modelName, m.UUID.String()), metaOpenWait)
		if err != nil {
			d.file.Close()
			return nil, err
		}
		d.meta = meta
	}

	// Resume the transaction counter past every restored row.
	var maxTxn uint64
	m.Index.Range(func(_ gns.PrimaryIndexKey, r *gns.Row) bool {
		if uint64(r.TxnVersion) > maxTxn {
			maxTxn = uint64(r.TxnVersion)
		}
		return true
	})
	d.nextTxn.Store(maxTxn)
	return d, nil
}

// restoreBatchFile validates the data file's header and, when restore is
// set, replays its batches into m. A corrupted tail is cut at the last
// valid stream element rather than failing the boot (the partial-final-
// write class of failures is recovered locally); everything after the returned EndOffset
// is garbage to be truncated.
func restoreBatchFile(f vfs.File, m *gns.Model, hdr headerParams, restore bool) (batchjournal.StreamEnd, error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		return batchjournal.StreamEnd{}, err
	}
	if len(raw) < sdss.HeaderSize {
		return batchjournal.StreamEnd{}, ferr.New(ferr.FileDecodeHeaderCorrupted, "batch journal shorter than its header")
	}
	if _, err := sdss.Decode(raw[:sdss.HeaderSize], hdr.compat(), sdss.FileClassModelBatchJournal, sdss.FileSpecifierDefault); err != nil {
		return batchjournal.StreamEnd{}, err
	}
	tr := bytesio.NewTrackedReader(bytes.NewReader(raw[sdss.HeaderSize:]))
	apply := func(b batchjournal.Batch) error {
		if !restore {
			return nil
		}
		return batchjournal.Apply(m, b, gns.DeltaVersion(b.SchemaVersion))
	}
	end, err := batchjournal.RestoreStream(tr, apply)
	if err != nil {
		kind, _ := ferr.KindOf(err)
		switch kind {
		case ferr.V1DataBatchDecodeCorruptedBatch, ferr.V1DataBatchDecodeCorruptedBatchFile, ferr.V1DataBatchDecodeCorruptedEntry:
			logging.Noticef("engine", "model %s batch journal has a torn tail, truncating %d bytes: %v",
				m.Name.String(), uint64(len(raw)-sdss.HeaderSize)-end.EndOffset, err)
			return end, nil
		}
		return end, err
	}
	return end, nil
}
