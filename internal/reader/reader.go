package reader

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/block"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// ErrMalformedEntry is fatal: an entry that cannot be decoded stops the reader.
var ErrMalformedEntry = source.ErrMalformedEntry

// Decoder turns an entry payload into a block.
type Decoder func(payload []byte) (block.Block, error)

// Batch is a run of consecutive decoded blocks. Last is the cursor of the
// final entry and becomes the checkpoint once the batch is committed.
type Batch struct {
	Blocks []block.Block
	Last   eventlog.Cursor
}

// Hooks observe reader progress. Optional.
type Hooks interface {
	EntriesRead(n int)
	ReadRetry()
	BatchEnqueued(size int, last eventlog.Cursor)
}

type nopHooks struct{}

func (nopHooks) EntriesRead(int)                    {}
func (nopHooks) ReadRetry()                         {}
func (nopHooks) BatchEnqueued(int, eventlog.Cursor) {}

// Options configures a Reader.
type Options struct {
	// BatchSize is the number of entries per Batch; also the read COUNT.
	BatchSize int
	// RetryDelay is the pause before reconnecting after a failed read.
	RetryDelay time.Duration
	// FlushInterval hands off a partial batch once its oldest entry has waited
	// this long. Zero disables partial flushes.
	FlushInterval time.Duration
	Logger        logpkg.Logger
	Hooks         Hooks
}

// Reader tails a Source and feeds decoded batches into a queue.
type Reader struct {
	src    source.Source
	decode Decoder
	opts   Options
	logger logpkg.Logger
}

// New builds a Reader. decode defaults to block.Decode.
func New(src source.Source, decode Decoder, opts Options) *Reader {
	if decode == nil {
		decode = block.Decode
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.Hooks == nil {
		opts.Hooks = nopHooks{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Reader{src: src, decode: decode, opts: opts, logger: logger.WithComponent("reader")}
}

// Run reads entries strictly after start until ctx is done or a fatal error
// occurs. Transient read errors are retried forever after a reconnect.
func (r *Reader) Run(ctx context.Context, start eventlog.Cursor, q *queue.Queue[Batch]) error {
	cursor := start
	var (
		pending  Batch
		pendingT time.Time
	)
	r.logger.Info("reader starting", logpkg.Str("cursor", start.String()), logpkg.Int("batch_size", r.opts.BatchSize))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := r.src.ReadAfter(ctx, cursor, r.opts.BatchSize-len(pending.Blocks))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, ErrMalformedEntry) {
				return errors.Wrapf(err, "reader: after %s", cursor)
			}
			r.opts.Hooks.ReadRetry()
			r.logger.Warn("read failed, reconnecting", logpkg.Str("cursor", cursor.String()), logpkg.Err(err))
			if err := r.pause(ctx); err != nil {
				return err
			}
			if err := r.src.Reconnect(ctx); err != nil {
				r.logger.Error("reconnect failed", logpkg.Err(err))
			}
			continue
		}
		r.opts.Hooks.EntriesRead(len(entries))

		for _, e := range entries {
			b, err := r.decode(e.Payload)
			if err != nil {
				return errors.Mark(errors.Wrapf(err, "reader: decode entry %s", e.Cursor), ErrMalformedEntry)
			}
			if len(pending.Blocks) == 0 {
				pendingT = time.Now()
			}
			pending.Blocks = append(pending.Blocks, b)
			pending.Last = e.Cursor
			cursor = e.Cursor
		}

		full := len(pending.Blocks) >= r.opts.BatchSize
		stale := r.opts.FlushInterval > 0 && len(pending.Blocks) > 0 && time.Since(pendingT) >= r.opts.FlushInterval
		if !full && !stale {
			continue
		}
		if err := q.Put(ctx, pending); err != nil {
			return err
		}
		r.opts.Hooks.BatchEnqueued(len(pending.Blocks), pending.Last)
		pending = Batch{}
	}
}

func (r *Reader) pause(ctx context.Context) error {
	t := time.NewTimer(r.opts.RetryDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
