package source

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
)

// DefaultStream is the stream of finalized NEAR blocks.
const DefaultStream = "final_blocks"

// ErrMalformedEntry marks entries that can never be read successfully
// (unparseable id, missing payload field). Retrying them is pointless.
var ErrMalformedEntry = errors.New("malformed log entry")

// Entry is one message from the source log.
type Entry struct {
	Cursor  eventlog.Cursor
	Payload []byte
}

// Source is an ordered, resumable log of block messages.
type Source interface {
	// ReadAfter blocks up to the source's block timeout for entries strictly
	// after the cursor. An empty result with a nil error means timeout.
	ReadAfter(ctx context.Context, after eventlog.Cursor, count int) ([]Entry, error)
	// First returns the oldest entry still retained by the log.
	First(ctx context.Context) (Entry, bool, error)
	// Reconnect drops and re-establishes the underlying connection.
	Reconnect(ctx context.Context) error
	Close() error
}
