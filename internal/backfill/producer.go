package backfill

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/extract"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/queue"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

const (
	DefaultBatchSize     = 1000
	DefaultProgressEvery = 100000
)

// ErrBadRecord is returned for export lines without an account and a token.
var ErrBadRecord = errors.New("bad export record")

// Batch is a run of (account, token) pairs from the export. Offset is the
// zero-based index of the first record in the batch.
type Batch struct {
	Pairs  []extract.Pair
	Offset int
}

// Options configures a Producer.
type Options struct {
	BatchSize     int
	ProgressEvery int
	Logger        logpkg.Logger
}

// Producer turns a space-delimited "account token" export into batches.
type Producer struct {
	r      io.Reader
	opts   Options
	logger logpkg.Logger
}

// NewProducer reads records from r.
func NewProducer(r io.Reader, opts Options) *Producer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &Producer{r: r, opts: opts, logger: logger.WithComponent("backfill")}
}

// Run enqueues every record in batches and closes q when the export is
// exhausted, so the consumer drains and stops. The final partial batch is
// flushed.
func (p *Producer) Run(ctx context.Context, q *queue.Queue[Batch]) error {
	defer q.Close()

	cr := csv.NewReader(p.r)
	cr.Comma = ' '
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	batch := Batch{Pairs: make([]extract.Pair, 0, p.opts.BatchSize)}
	i := 0
	for ; ; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "backfill: record %d", i)
		}
		if len(rec) < 2 || rec[0] == "" || rec[1] == "" {
			return errors.Wrapf(ErrBadRecord, "record %d: %q", i, rec)
		}
		batch.Pairs = append(batch.Pairs, extract.Pair{Subject: rec[0], Object: rec[1]})
		if len(batch.Pairs) == p.opts.BatchSize {
			if err := q.Put(ctx, batch); err != nil {
				return err
			}
			batch = Batch{Pairs: make([]extract.Pair, 0, p.opts.BatchSize), Offset: i + 1}
		}
		if i%p.opts.ProgressEvery == 0 {
			p.logger.Info("read records", logpkg.Int("records", i))
		}
	}
	if len(batch.Pairs) > 0 {
		if err := q.Put(ctx, batch); err != nil {
			return err
		}
	}
	p.logger.Info("export exhausted", logpkg.Int("records", i))
	return nil
}
