// Package engine assembles the storage core: the GNS and its DDL journal,
// per-model batch journals, and the fractal runtime's durability tasks,
// behind a statement-execution surface consuming ql/ast output. This is
// the layer the wire protocol hands parsed queries to.
package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftdb/driftdb/fractal"
	"github.com/driftdb/driftdb/gns"
	"github.com/driftdb/driftdb/lib/ferr"
	"github.com/driftdb/driftdb/lib/logging"
	"github.com/driftdb/driftdb/sdss"
	"github.com/driftdb/driftdb/storage/gnstxn"
	"github.com/driftdb/driftdb/storage/layout"
	"github.com/driftdb/driftdb/storage/rawjournal"
	"github.com/driftdb/driftdb/vfs"
)

// Options configures an Engine. All configuration enters here explicitly;
// the engine reads no environment variables.
type Options struct {
	// FS is the filesystem backend; defaults to the real OS filesystem.
	FS vfs.FS
	// DataRoot is the directory holding the gns journal and space tree.
	DataRoot string
	// ServerVersion/DriverVersion are stamped into every SDSS header and
	// checked on open.
	ServerVersion uint64
	DriverVersion uint64
	// Runtime hosts the background durability tasks; defaults to a fresh
	// fractal.Runtime the caller is expected to Run.
	Runtime *fractal.Runtime
}

// Option mutates Options before construction.
type Option func(*Options)

// WithFS selects the filesystem backend (the in-memory backend in tests).
func WithFS(fs vfs.FS) Option { return func(o *Options) { o.FS = fs } }

// WithDataRoot sets the on-disk (or virtual) directory the engine owns.
func WithDataRoot(path string) Option { return func(o *Options) { o.DataRoot = path } }

// WithRuntime attaches an existing fractal runtime.
func WithRuntime(rt *fractal.Runtime) Option { return func(o *Options) { o.Runtime = rt } }

// WithVersions overrides the server/driver versions written to file
// headers.
func WithVersions(server, driver uint64) Option {
	return func(o *Options) {
		o.ServerVersion = server
		o.DriverVersion = driver
	}
}

// headerParams carries the version pair through header encode/decode.
type headerParams struct {
	server uint64
	driver uint64
}

func (h headerParams) writeParams(class sdss.FileClass) sdss.WriteParams {
	return sdss.WriteParams{
		ServerVersion: h.server,
		DriverVersion: h.driver,
		Class:         class,
		Specifier:     sdss.FileSpecifierDefault,
		Epoch:         sdss.EpochNanosNow(time.Now()),
	}
}

// compat accepts any header version at or below the engine's own.
func (h headerParams) compat() sdss.Compat {
	return sdss.Compat{
		ServerVersionOK: func(v uint64) bool { return v <= h.server },
		DriverVersionOK: func(v uint64) bool { return v <= h.driver },
	}
}

type driverKey struct {
	space string
	model string
}

// Engine is the assembled storage core.
type Engine struct {
	fs       vfs.FS
	dataRoot string
	hdr      headerParams

	gns *gns.GNS
	rt  *fractal.Runtime
	gd  *gnsDriver

	// ddlMu serializes DDL statements end-to-end so the apply-then-
	// journal commit pair of each event is atomic with respect to other
	// DDL.
	ddlMu sync.Mutex

	driversMu sync.RWMutex
	drivers   map[driverKey]*modelDriver

	deltaCap atomic.Uint64
}

// New constructs and boots an engine: the GNS journal is created or
// replayed, every model's batch journal is restored, and the background
// runtime is wired up. The caller runs opts.Runtime (or Runtime())
// separately; the engine only submits tasks to it.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	o := Options{ServerVersion: 1, DriverVersion: 1}
	for _, fn := range opts {
		fn(&o)
	}
	if o.FS == nil {
		o.FS = vfs.NewRealFS()
	}
	if o.Runtime == nil {
		o.Runtime = fractal.NewRuntime()
	}
	if o.DataRoot == "" {
		return nil, ferr.New(ferr.NotReady, "engine requires a data root")
	}

	e := &Engine{
		fs:       o.FS,
		dataRoot: o.DataRoot,
		hdr:      headerParams{server: o.ServerVersion, driver: o.DriverVersion},
		gns:      gns.New(),
		rt:       o.Runtime,
		drivers:  make(map[driverKey]*modelDriver),
	}
	if err := e.boot(ctx); err != nil {
		return nil, err
	}
	e.rt.SetPeriodicSweep(e.sweep)
	return e, nil
}

// Runtime returns the fractal runtime the engine submits tasks to.
func (e *Engine) Runtime() *fractal.Runtime { return e.rt }

// GNS returns the in-memory global namespace.
func (e *Engine) GNS() *gns.GNS { return e.gns }

func isNotFound(err error) bool { return errors.Is(err, vfs.ErrNotFound) }

// boot opens or replays the GNS journal, then restores every model's
// batch journal and recomputes the per-model delta cap.
func (e *Engine) boot(ctx context.Context) error {
	if err := e.fs.CreateDirAll(layout.SpacesRoot(e.dataRoot)); err != nil {
		return err
	}
	gnsPath := layout.GNSJournalPath(e.dataRoot)

	f, err := e.fs.FOpenRW(gnsPath)
	switch {
	case err == nil:
		w, rerr := e.replayGNSJournal(f)
		if rerr != nil {
			return rerr
		}
		e.gd = &gnsDriver{fs: e.fs, path: gnsPath, w: w}
	case isNotFound(err):
		f, err = e.fs.FCreateRW(gnsPath)
		if err != nil {
			return err
		}
		w, werr := rawjournal.OpenNew[gnstxn.Event, *gns.GNS](f, e.hdr.writeParams(sdss.FileClassGNSJournal), gnstxn.Adapter{})
		if werr != nil {
			return werr
		}
		e.gd = &gnsDriver{fs: e.fs, path: gnsPath, w: w}
	default:
		return err
	}

	for _, pair := range e.gns.Models() {
		sp, ok := e.gns.GetSpace(pair[0])
		if !ok {
			return ferr.Newf(ferr.OnRestoreDataMissing, "model %s.%s names a missing space", pair[0], pair[1])
		}
		m, _ := e.gns.GetModel(pair[0], pair[1])
		d, err := openModelDriver(e.fs, e.dataRoot, sp, m, e.hdr, true)
		if err != nil {
			return err
		}
		e.drivers[driverKey{space: pair[0], model: pair[1]}] = d
	}
	e.recomputeDeltaCap(ctx)
	return nil
}

// replayGNSJournal restores the DDL event stream into e.gns and returns a
// writer appending after the last valid event. A corrupted or torn tail
// is truncated and a Reopen/Close pair is durably appended before the
// live writer reopens, so a crash mid-recovery still leaves a journal
// the next boot reads cleanly.
func (e *Engine) replayGNSJournal(f vfs.File) (*rawjournal.Writer[gnstxn.Event, *gns.GNS], error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	res, err := rawjournal.Restore[gnstxn.Event, *gns.GNS](bytes.NewReader(raw), e.hdr.compat(), sdss.FileClassGNSJournal, sdss.FileSpecifierDefault, gnstxn.Adapter{}, e.gns)
	needRepair := false
	if err != nil {
		kind, _ := ferr.KindOf(err)
		switch kind {
		case ferr.RawJournalCorrupted, ferr.RawJournalEventCorrupted:
			if res.EndOffset <= uint64(sdss.HeaderSize) {
				// Nothing valid past the header; not a torn tail.
				f.Close()
				return nil, err
			}
			logging.Noticef("engine", "gns journal has a corrupted tail, truncating %d bytes: %v",
				uint64(len(raw))-res.EndOffset, err)
			needRepair = true
		default:
			f.Close()
			return nil, err
		}
	}

	if err := f.Truncate(int64(res.EndOffset)); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, err
	}

	if needRepair {
		// Heartbeat: append Reopen+Close so the recovery itself is
		// durable, then reopen for live appends.
		w, werr := rawjournal.OpenExisting[gnstxn.Event, *gns.GNS](f, res.LastEventID, gnstxn.Adapter{})
		if werr != nil {
			f.Close()
			return nil, werr
		}
		if werr := w.LWTHeartbeat(); werr != nil {
			return nil, werr
		}
		return reopenRawJournal(e.fs, layout.GNSJournalPath(e.dataRoot), w.LastEventID())
	}
	return rawjournal.OpenExisting[gnstxn.Event, *gns.GNS](f, res.LastEventID, gnstxn.Adapter{})
}

// recomputeDeltaCap refreshes the per-model delta budget from free system
// memory. Failures leave the previous
// cap in place; a zero cap disables the pressure trigger.
func (e *Engine) recomputeDeltaCap(ctx context.Context) {
	capNow, err := fractal.PerModelDeltaMax(ctx, e.gns.ModelCount())
	if err != nil {
		logging.Noticef("engine", "free-memory query failed, keeping previous delta cap: %v", err)
		return
	}
	e.deltaCap.Store(capNow)
}

func (e *Engine) driver(space, model string) (*modelDriver, bool) {
	e.driversMu.RLock()
	defer e.driversMu.RUnlock()
	d, ok := e.drivers[driverKey{space: space, model: model}]
	return d, ok
}

func (e *Engine) allDrivers() []*modelDriver {
	e.driversMu.RLock()
	defer e.driversMu.RUnlock()
	out := make([]*modelDriver, 0, len(e.drivers))
	for _, d := range e.drivers {
		out = append(out, d)
	}
	return out
}

// FlushAll flushes every model's pending deltas, reporting the first
// failure after attempting all of them.
func (e *Engine) FlushAll() error {
	var firstErr error
	for _, d := range e.allDrivers() {
		if err := d.flush(); err != nil {
			logging.Errorf("engine", "flush of %s.%s failed: %v", d.spaceName, d.modelName, err)
			e.rt.Submit(newModelAutorecoverTask(d))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// sweep is the LP queue's periodic pass. A busy HP queue means urgent flushes are in
// flight already; the sweep skips rather than pile on.
func (e *Engine) sweep(ctx context.Context) {
	// InFlight counts this sweep itself; anything beyond it, or a backed-
	// up HP queue, means urgent flushes are already in motion.
	hp, _ := e.rt.Backlog()
	if hp > 0 || e.rt.InFlight() > 1 {
		logging.Debugf("engine", "periodic sweep skipped, runtime busy")
		return
	}
	if err := e.FlushAll(); err != nil {
		logging.Errorf("engine", "periodic sweep flush failed: %v", err)
	}
	e.recomputeDeltaCap(ctx)
}

// maybeTriggerFlush promotes a WriteBatch to the HP queue when a model's
// pending delta count exceeds the memory budget.
func (e *Engine) maybeTriggerFlush(d *modelDriver) {
	capNow := e.deltaCap.Load()
	if capNow == 0 {
		return
	}
	if uint64(d.deltaCount()) > capNow {
		e.rt.Submit(newWriteBatchTask(e, d))
	}
}

// Close drains the engine: every model flushes and closes its batch
// journal, and the GNS journal emits its Close event. The engine is
// unusable afterwards.
func (e *Engine) Close() error {
	var firstErr error
	for _, d := range e.allDrivers() {
		if err := d.close(); err != nil {
			logging.Errorf("engine", "close of %s.%s failed: %v", d.spaceName, d.modelName, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if err := e.gd.close(); err != nil {
		logging.Errorf("engine", "gns journal close failed: %v", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
