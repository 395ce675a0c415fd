// Package pebblestore provides a thin wrapper around Pebble with an fsync
// policy, plain and indexed batches, and a small metrics hook.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Atomic updates with batches
//	b := db.NewIndexedBatch()
//	_ = b.Set([]byte("k"), []byte("v"), nil)
//	_ = db.CommitBatch(ctx, b)
//	b.Close()
//
// Both the local block log (package eventlog) and the Pebble store backend
// share one DB handle per data directory.
package pebblestore
