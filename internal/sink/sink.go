package sink

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// Sink commits batches to a store, retrying transient failures.
type Sink struct {
	store  store.Store
	opts   RetryOptions
	logger logpkg.Logger
}

// New wraps s. The sink owns the store's connection lifecycle from here on.
// A zero Delay falls back to DefaultRetryOptions.
func New(s store.Store, opts RetryOptions, logger logpkg.Logger) *Sink {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultRetryOptions().Delay
	}
	return &Sink{store: s, opts: opts, logger: logger.WithComponent("sink")}
}

// Commit applies c atomically, retrying until it lands. A commit that fails
// validation or hits a key of the wrong type is never retried.
func (s *Sink) Commit(ctx context.Context, c store.Commit) error {
	if err := c.Validate(); err != nil {
		return Permanent(err)
	}
	return WithRetries(ctx, s.store, s.logger, s.opts, func(ctx context.Context) error {
		err := s.store.Commit(ctx, c)
		if errors.Is(err, store.ErrInvalidMutation) || errors.Is(err, store.ErrWrongType) {
			return Permanent(err)
		}
		return err
	})
}

// LoadCheckpoint reads the stored checkpoint, retrying transient failures.
// A checkpoint that does not parse is returned at once.
func (s *Sink) LoadCheckpoint(ctx context.Context) (height uint64, ok bool, err error) {
	err = WithRetries(ctx, s.store, s.logger, s.opts, func(ctx context.Context) error {
		height, ok, err = s.store.Checkpoint(ctx)
		if errors.Is(err, store.ErrCorruptCheckpoint) {
			return Permanent(err)
		}
		return err
	})
	return height, ok, err
}

// Close closes the underlying store.
func (s *Sink) Close() error { return s.store.Close() }
