// Package reader implements the checkpointed log reader. It tails a Source
// from a resume cursor, decodes each entry and hands batches to the driver
// through a bounded queue. A full queue blocks the reader, so at most the
// queue capacity plus one batch is in flight at any time.
package reader
