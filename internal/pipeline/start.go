package pipeline

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
)

// DefaultSafeOffset is the minimum distance kept between the oldest retained
// log entry and the resume point.
const DefaultSafeOffset = 100

var (
	// ErrResumeTooClose means the log may already have trimmed entries the
	// indexer has not processed.
	ErrResumeTooClose = errors.New("resume point is too close to the start of the log")
	// ErrEmptySource means there is neither a log entry nor a checkpoint to start from.
	ErrEmptySource = errors.New("source log is empty and no checkpoint is stored")
)

// ResolveStart picks the height to resume after. With a stored checkpoint
// that is the checkpoint, otherwise first+margin. Either way the result must
// be at least first+margin.
func ResolveStart(first, stored uint64, hasStored bool, margin uint64) (uint64, error) {
	resume := first + margin
	if hasStored {
		resume = stored
	}
	if first+margin > resume {
		return 0, errors.Wrapf(ErrResumeTooClose, "first %d + margin %d > resume %d", first, margin, resume)
	}
	return resume, nil
}

// CheckpointLoader reads the stored checkpoint.
type CheckpointLoader interface {
	LoadCheckpoint(ctx context.Context) (uint64, bool, error)
}

// StartCursor probes the source for its oldest entry, loads the checkpoint
// and returns the cursor to read after. With an empty log the stored
// checkpoint is trusted as is.
func StartCursor(ctx context.Context, src source.Source, cp CheckpointLoader, margin uint64) (eventlog.Cursor, error) {
	stored, hasStored, err := cp.LoadCheckpoint(ctx)
	if err != nil {
		return eventlog.Cursor{}, errors.Wrap(err, "load checkpoint")
	}
	first, ok, err := src.First(ctx)
	if err != nil {
		return eventlog.Cursor{}, errors.Wrap(err, "probe first entry")
	}
	if !ok {
		if !hasStored {
			return eventlog.Cursor{}, ErrEmptySource
		}
		return eventlog.CursorAt(stored), nil
	}
	resume, err := ResolveStart(first.Cursor.Height, stored, hasStored, margin)
	if err != nil {
		return eventlog.Cursor{}, err
	}
	return eventlog.CursorAt(resume), nil
}
