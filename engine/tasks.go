package engine

import (
	"context"

	"github.com/driftdb/driftdb/fractal"
	"github.com/driftdb/driftdb/lib/logging"
)

// Task names, as they appear in retry/drop log lines.
const (
	taskWriteBatch       = "WriteBatch"
	taskModelAutorecover = "TryModelAutorecoverLWT"
	taskCheckGNSDriver   = "CheckGNSDriver"
	taskDeleteFile       = "DeleteFile"
	taskDeleteDirectory  = "DeleteDirectory"
)

// newWriteBatchTask flushes one model's pending deltas on the HP queue.
// A flush
// failure flips the driver iffy; the task then hands off to the
// autorecover task instead of retrying the flush blind.
func newWriteBatchTask(e *Engine, d *modelDriver) fractal.Task {
	return fractal.NewTask(taskWriteBatch, fractal.HighPriority, func(ctx context.Context) error {
		if err := d.flush(); err != nil {
			e.rt.Submit(newModelAutorecoverTask(d))
			return err
		}
		return nil
	})
}

// newModelAutorecoverTask appends the batch journal's recovery marker to
// clear an iffy model driver. Failure re-enqueues via the runtime's threshold
// machinery.
func newModelAutorecoverTask(d *modelDriver) fractal.Task {
	return fractal.NewTask(taskModelAutorecover, fractal.HighPriority, func(ctx context.Context) error {
		if err := d.recover(); err != nil {
			return err
		}
		logging.Infof(taskModelAutorecover, "model %s.%s driver recovered", d.spaceName, d.modelName)
		return nil
	})
}

// newCheckGNSDriverTask runs the GNS journal's LWT heartbeat after a DDL
// commit failure.
func newCheckGNSDriverTask(e *Engine) fractal.Task {
	return fractal.NewTask(taskCheckGNSDriver, fractal.HighPriority, func(ctx context.Context) error {
		if err := e.gd.heartbeat(); err != nil {
			return err
		}
		logging.Infof(taskCheckGNSDriver, "gns journal driver recovered")
		return nil
	})
}

// newDeleteFileTask removes one file on the LP queue.
func newDeleteFileTask(e *Engine, path string) fractal.Task {
	return fractal.NewTask(taskDeleteFile, fractal.LowPriority, func(ctx context.Context) error {
		err := e.fs.RemoveFile(path)
		if isNotFound(err) {
			return nil
		}
		return err
	})
}

// newDeleteDirectoryTask removes a directory tree on the LP queue;
// dropped spaces and models enqueue one of these rather than deleting
// inline.
func newDeleteDirectoryTask(e *Engine, path string) fractal.Task {
	return fractal.NewTask(taskDeleteDirectory, fractal.LowPriority, func(ctx context.Context) error {
		err := e.fs.DeleteDirAll(path)
		if isNotFound(err) {
			return nil
		}
		return err
	})
}
