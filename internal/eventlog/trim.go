package eventlog

import (
	"context"

	"github.com/cockroachdb/pebble"
)

// TrimBelow deletes entries whose height is lower than height, committing in
// batches of up to batchLimit deletes. It returns the number of deleted entries.
// Trimming never touches the metadata key, so appends keep their ordering.
func (l *Log) TrimBelow(ctx context.Context, height uint64, batchLimit int) (int, error) {
	if batchLimit <= 0 {
		batchLimit = 1024
	}
	low := KeyEntryPrefix(l.topic)
	hi := KeyLogEntry(l.topic, CursorAt(height))
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	deleted := 0
	for ok := iter.First(); ok; {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}
		b := l.db.NewBatch()
		n := 0
		for ok && n < batchLimit {
			if err := b.Delete(iter.Key(), nil); err != nil {
				b.Close()
				return deleted, err
			}
			n++
			ok = iter.Next()
		}
		if err := l.db.CommitBatch(ctx, b); err != nil {
			b.Close()
			return deleted, err
		}
		b.Close()
		deleted += n
	}
	if deleted > 0 {
		_ = l.db.CompactRange(low, hi)
	}
	return deleted, iter.Error()
}
