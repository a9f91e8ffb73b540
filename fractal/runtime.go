package fractal

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/driftdb/driftdb/lib/logging"
)

// sweepInterval is how often the LP queue's periodic background flush
// fires.
const sweepInterval = 5 * time.Minute

// Runtime hosts the HP and LP consumer loops. One Runtime
// serves the whole process; models register their periodic-sweep callback
// through SetPeriodicSweep rather than each owning their own ticker.
type Runtime struct {
	hp, lp *queue

	inFlight atomic.Int64
	onSweep  func(ctx context.Context)
}

// NewRuntime builds an idle Runtime; call Run to start its consumer loops.
func NewRuntime() *Runtime {
	return &Runtime{hp: newQueue(), lp: newQueue()}
}

// SetPeriodicSweep installs the callback the LP loop invokes on every
// sweepInterval tick (the background flush of all models). Must be
// called before Run.
func (r *Runtime) SetPeriodicSweep(fn func(ctx context.Context)) {
	r.onSweep = fn
}

// Submit enqueues a task onto the queue matching its Priority.
func (r *Runtime) Submit(t Task) {
	switch t.Priority {
	case HighPriority:
		r.hp.push(t)
	default:
		r.lp.push(t)
	}
}

// Backlog reports the number of tasks waiting (not yet handed to a
// consumer) per queue.
func (r *Runtime) Backlog() (hp, lp int) {
	return r.hp.len(), r.lp.len()
}

// InFlight reports the number of tasks currently executing across both
// queues.
func (r *Runtime) InFlight() int64 {
	return r.inFlight.Load()
}

// Run starts the HP and LP consumer loops and blocks until ctx is
// canceled (cancellation comes only from the process's termination
// signal; callers derive ctx from signal.NotifyContext), at which point
// both queues are drained synchronously and Run returns once every
// already-dispatched task has completed.
func (r *Runtime) Run(ctx context.Context) error {
	taskCtx := context.Background()
	g, _ := errgroup.WithContext(taskCtx)
	g.Go(func() error { return r.loop(taskCtx, ctx, r.hp, false) })
	g.Go(func() error { return r.loop(taskCtx, ctx, r.lp, true) })
	return g.Wait()
}

// loop implements the per-queue scheduling model: pop the
// next task (or, for the LP queue, wake on a periodic sweep tick), run it,
// and on shutdown close the queue and keep receiving until it has been
// fully drained.
func (r *Runtime) loop(taskCtx, shutdownCtx context.Context, q *queue, periodic bool) error {
	var tickC <-chan time.Time
	if periodic {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		tickC = ticker.C
	}
	shutdownC := shutdownCtx.Done()

	for {
		select {
		case t, ok := <-q.out:
			if !ok {
				return nil
			}
			r.execute(taskCtx, t, q)
		case <-tickC:
			if r.onSweep != nil {
				r.inFlight.Add(1)
				r.onSweep(taskCtx)
				r.inFlight.Add(-1)
			}
		case <-shutdownC:
			// Stop re-selecting this case (it stays ready forever once
			// fired) and fall into draining q.out exclusively.
			shutdownC = nil
			tickC = nil
			q.close()
		}
	}
}

// execute runs one task, re-enqueueing it with a decremented threshold on
// failure: once threshold reaches zero the task is dropped
// and the failure logged.
func (r *Runtime) execute(ctx context.Context, t Task, q *queue) {
	r.inFlight.Add(1)
	defer r.inFlight.Add(-1)

	if err := t.Exec(ctx); err != nil {
		t.threshold--
		if t.threshold <= 0 {
			logging.Errorf(t.Name, "task dropped after exhausting retry threshold: %v", err)
			return
		}
		logging.Noticef(t.Name, "task failed, will retry in %s (threshold %d): %v", retryBackoff, t.threshold, err)
		time.AfterFunc(retryBackoff, func() { q.push(t) })
	}
}
