package eventlog

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Cursor is a position in a block log: the block height plus a sub-sequence
// for multiple entries at the same height. It renders as "<height>-<seq>",
// the same shape as a Redis stream entry ID.
type Cursor struct {
	Height uint64
	Seq    uint64
}

// CursorAt returns the first cursor at height.
func CursorAt(height uint64) Cursor { return Cursor{Height: height} }

// ErrInvalidCursor is returned by ParseCursor for malformed input.
var ErrInvalidCursor = errors.New("invalid cursor")

// ParseCursor parses "<height>-<seq>". A bare "<height>" is accepted as "<height>-0".
func ParseCursor(s string) (Cursor, error) {
	h, seq, found := strings.Cut(s, "-")
	height, err := strconv.ParseUint(h, 10, 64)
	if err != nil {
		return Cursor{}, errors.Wrapf(ErrInvalidCursor, "%q", s)
	}
	if !found {
		return Cursor{Height: height}, nil
	}
	n, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return Cursor{}, errors.Wrapf(ErrInvalidCursor, "%q", s)
	}
	return Cursor{Height: height, Seq: n}, nil
}

// String renders the cursor as "<height>-<seq>".
func (c Cursor) String() string {
	return strconv.FormatUint(c.Height, 10) + "-" + strconv.FormatUint(c.Seq, 10)
}

// Less reports whether c orders strictly before o.
func (c Cursor) Less(o Cursor) bool {
	if c.Height != o.Height {
		return c.Height < o.Height
	}
	return c.Seq < o.Seq
}

// Next returns the smallest cursor strictly after c.
func (c Cursor) Next() Cursor {
	if c.Seq == ^uint64(0) {
		return Cursor{Height: c.Height + 1}
	}
	return Cursor{Height: c.Height, Seq: c.Seq + 1}
}
