// Package eventlog implements a local append-only block log on Pebble.
//
// # Overview
//
// The log mirrors the shape of the upstream Redis stream so the indexer can
// run against either source: entries are addressed by a Cursor rendered as
// "<height>-<seq>", each carries one field ("block") holding a serialized
// block message, and reads are "strictly after cursor X, at most N".
//
// Keys are lexicographically ordered for range scans:
//   - log/{topic}/m                        (last appended cursor)
//   - log/{topic}/e/{height_be8}{seq_be8}  (entries)
//
// Records are stored as: varint fieldLen | field | payload | crc32c(field|payload).
//
// API surface (internal)
//
//	l, _ := OpenLog(db, "final_blocks")
//	cursors, _ := l.Append(ctx, []AppendRecord{{Height: h, Payload: p}})
//	items, _ := l.ReadAfter(cursors[0], 100)
//	woke := l.WaitForAppend(ctx, 200*time.Millisecond)
//	_, _ = l.TrimBelow(ctx, checkpoint, 1024)
package eventlog
