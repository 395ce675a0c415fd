package pipeline

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/rpc"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// DefaultEnrichAttempts bounds whole-batch enrichment retries.
const DefaultEnrichAttempts = 3

// ErrCheckpointRegression means a batch would move the checkpoint backwards.
var ErrCheckpointRegression = errors.New("checkpoint would move backwards")

// EnrichmentError is the fatal failure of a batch's enrichment.
type EnrichmentError struct {
	BatchID  uuid.UUID
	Tasks    int
	Position string
	Err      error
}

func (e *EnrichmentError) Error() string {
	return "enrichment of batch " + e.BatchID.String() + " at " + e.Position +
		" (" + strconv.Itoa(e.Tasks) + " tasks) failed: " + e.Err.Error()
}

func (e *EnrichmentError) Unwrap() error { return e.Err }

// Enricher resolves tasks to results, one per task in order.
type Enricher interface {
	Fetch(ctx context.Context, tasks []rpc.Task) ([]rpc.Result, error)
}

// Committer applies a commit atomically, retrying as it sees fit.
type Committer interface {
	Commit(ctx context.Context, c store.Commit) error
}

// Hooks observe driver progress. Optional.
type Hooks interface {
	StateChanged(s State)
	BatchCommitted(mutations int, checkpoint *uint64, elapsed time.Duration)
	EnrichRetry()
}

type nopHooks struct{}

func (nopHooks) StateChanged(State)                         {}
func (nopHooks) BatchCommitted(int, *uint64, time.Duration) {}
func (nopHooks) EnrichRetry()                               {}

// DriverOptions configures a Driver.
type DriverOptions struct {
	// Enricher is required when the strategy emits tasks.
	Enricher       Enricher
	EnrichAttempts int
	EnrichDelay    time.Duration
	// Floor is the checkpoint the run resumed from; commits may not go below it.
	Floor  *uint64
	Logger logpkg.Logger
	Hooks  Hooks
}

// Driver takes batches off the queue, turns them into commits with its
// strategy and hands them to the sink, one batch at a time.
type Driver[B any] struct {
	q        *queue.Queue[B]
	strategy Strategy[B]
	sink     Committer
	opts     DriverOptions
	logger   logpkg.Logger

	state   atomic.Int32
	last    uint64
	hasLast bool
}

// NewDriver wires a driver.
func NewDriver[B any](q *queue.Queue[B], strategy Strategy[B], sink Committer, opts DriverOptions) *Driver[B] {
	if opts.EnrichAttempts <= 0 {
		opts.EnrichAttempts = DefaultEnrichAttempts
	}
	if opts.EnrichDelay <= 0 {
		opts.EnrichDelay = time.Second
	}
	if opts.Hooks == nil {
		opts.Hooks = nopHooks{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	d := &Driver[B]{q: q, strategy: strategy, sink: sink, opts: opts, logger: logger.WithComponent("driver")}
	if opts.Floor != nil {
		d.last, d.hasLast = *opts.Floor, true
	}
	return d
}

// Queue returns the queue the driver consumes.
func (d *Driver[B]) Queue() *queue.Queue[B] { return d.q }

// State reports what the driver is doing right now.
func (d *Driver[B]) State() State { return State(d.state.Load()) }

// Checkpoint returns the last checkpoint this driver committed or resumed from.
func (d *Driver[B]) Checkpoint() (uint64, bool) { return d.last, d.hasLast }

func (d *Driver[B]) enter(s State) {
	d.state.Store(int32(s))
	d.opts.Hooks.StateChanged(s)
}

// Run processes batches until ctx is done, a batch fails fatally, or the
// queue is closed and drained (which returns nil). Cancellation takes effect
// between batches: once a commit starts it is finished.
func (d *Driver[B]) Run(ctx context.Context) error {
	defer d.enter(Idle)
	d.logger.Info("driver started", logpkg.Int("queue_capacity", d.q.Cap()))
	for {
		d.enter(AwaitingBatch)
		b, err := d.q.Take(ctx)
		if errors.Is(err, queue.ErrClosed) {
			d.logger.Info("input exhausted")
			return nil
		}
		if err != nil {
			return err
		}
		if err := d.process(ctx, b); err != nil {
			return err
		}
	}
}

func (d *Driver[B]) process(ctx context.Context, b B) error {
	start := time.Now()
	d.enter(Extracting)
	w, err := d.strategy.Extract(b)
	if err != nil {
		return errors.Wrap(err, "driver: extract")
	}

	muts := w.Mutations
	if len(w.Tasks) > 0 {
		d.enter(Enriching)
		results, err := d.enrich(ctx, w)
		if err != nil {
			return err
		}
		muts = d.strategy.Apply(w, results)
	}

	if w.Checkpoint != nil && d.hasLast && *w.Checkpoint < d.last {
		return errors.Wrapf(ErrCheckpointRegression, "batch %s checkpoint %d < %d", w.Position, *w.Checkpoint, d.last)
	}

	d.enter(Committing)
	c := store.Commit{Mutations: muts, Checkpoint: w.Checkpoint}
	if err := d.sink.Commit(context.WithoutCancel(ctx), c); err != nil {
		return errors.Wrapf(err, "driver: commit batch %s", w.Position)
	}
	if w.Checkpoint != nil {
		d.last, d.hasLast = *w.Checkpoint, true
	}
	d.opts.Hooks.BatchCommitted(len(muts), w.Checkpoint, time.Since(start))
	return nil
}

func (d *Driver[B]) enrich(ctx context.Context, w Work) ([]rpc.Result, error) {
	if d.opts.Enricher == nil {
		return nil, errors.New("driver: strategy emitted tasks but no enricher is configured")
	}
	var lastErr error
	for attempt := 1; attempt <= d.opts.EnrichAttempts; attempt++ {
		results, err := d.opts.Enricher.Fetch(ctx, w.Tasks)
		if err == nil {
			if len(results) != len(w.Tasks) {
				return nil, errors.Newf("driver: enricher returned %d results for %d tasks", len(results), len(w.Tasks))
			}
			return results, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		d.opts.Hooks.EnrichRetry()
		d.logger.Warn("enrichment failed",
			logpkg.Str("position", w.Position),
			logpkg.Int("attempt", attempt),
			logpkg.Int("tasks", len(w.Tasks)),
			logpkg.Err(err))
		if attempt < d.opts.EnrichAttempts {
			t := time.NewTimer(d.opts.EnrichDelay)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return nil, ctx.Err()
			}
		}
	}
	ee := &EnrichmentError{BatchID: uuid.New(), Tasks: len(w.Tasks), Position: w.Position, Err: lastErr}
	d.logger.Error("enrichment gave up", logpkg.Str("batch_id", ee.BatchID.String()), logpkg.Int("tasks", ee.Tasks), logpkg.Err(lastErr))
	return nil, ee
}
