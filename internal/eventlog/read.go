package eventlog

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

// ErrCorruptEntry is returned when a stored entry fails its checksum.
var ErrCorruptEntry = errors.New("corrupt log entry")

// Item is one decoded log entry.
type Item struct {
	Cursor  Cursor
	Field   string
	Payload []byte
}

// ReadAfter returns up to limit entries strictly after the given cursor, in order.
// limit <= 0 means no limit.
func (l *Log) ReadAfter(after Cursor, limit int) ([]Item, error) {
	return l.scan(KeyLogEntry(l.topic, after.Next()), limit)
}

// ReadFrom returns up to limit entries starting at the given cursor (inclusive).
func (l *Log) ReadFrom(from Cursor, limit int) ([]Item, error) {
	return l.scan(KeyLogEntry(l.topic, from), limit)
}

// First returns the oldest entry still present in the log.
func (l *Log) First() (Item, bool, error) {
	items, err := l.scan(KeyEntryPrefix(l.topic), 1)
	if err != nil || len(items) == 0 {
		return Item{}, false, err
	}
	return items[0], true, nil
}

func (l *Log) scan(start []byte, limit int) ([]Item, error) {
	prefix := KeyEntryPrefix(l.topic)
	iter, err := l.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, errors.Wrap(err, "eventlog: new iterator")
	}
	defer iter.Close()

	items := make([]Item, 0, max(1, limit))
	for ok := iter.SeekGE(start); ok && (limit <= 0 || len(items) < limit); ok = iter.Next() {
		c, okKey := cursorFromKey(iter.Key())
		if !okKey {
			continue
		}
		dec, okRec := DecodeRecord(iter.Value())
		if !okRec {
			return items, errors.Wrapf(ErrCorruptEntry, "topic %s cursor %s", l.topic, c)
		}
		items = append(items, Item{Cursor: c, Field: dec.Field, Payload: dec.Payload})
	}
	return items, iter.Error()
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
