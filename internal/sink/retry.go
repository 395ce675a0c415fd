package sink

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// ErrRetriesExhausted is returned once MaxAttempts consecutive attempts failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

// errPermanent marks failures that retrying cannot fix.
var errPermanent = errors.New("permanent failure")

// Permanent marks err so WithRetries returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errPermanent)
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool { return errors.Is(err, errPermanent) }

// Reconnector re-establishes a connection after a failure.
type Reconnector interface {
	Reconnect(ctx context.Context) error
}

// RetryOptions tunes WithRetries.
type RetryOptions struct {
	// Delay is the pause between a failure and the reconnect.
	Delay time.Duration
	// MaxAttempts bounds the total number of attempts; 0 retries forever.
	MaxAttempts int
	// OnRetry is called after each failed attempt. Optional.
	OnRetry func(attempt int, err error)
}

// DefaultRetryOptions retries forever once a second.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{Delay: time.Second}
}

// WithRetries runs op until it succeeds. After each failure it logs, waits
// Delay, reconnects conn and tries again. It stops early when ctx is done,
// when op returns a Permanent error, or after MaxAttempts attempts.
func WithRetries(ctx context.Context, conn Reconnector, logger logpkg.Logger, opts RetryOptions, op func(context.Context) error) error {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.WithSecondaryError(ctxErr, err)
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, err)
		}
		if opts.MaxAttempts > 0 && attempt >= opts.MaxAttempts {
			return errors.Mark(errors.Wrapf(err, "after %d attempts", attempt), ErrRetriesExhausted)
		}
		logger.Warn("operation failed, reconnecting",
			logpkg.Int("attempt", attempt),
			logpkg.Duration("delay", opts.Delay),
			logpkg.Err(err))

		t := time.NewTimer(opts.Delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return errors.WithSecondaryError(ctx.Err(), err)
		}
		if rerr := conn.Reconnect(ctx); rerr != nil {
			logger.Error("reconnect failed", logpkg.Int("attempt", attempt), logpkg.Err(rerr))
		}
	}
}
