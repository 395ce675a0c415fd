// Package runtime wires configuration, storage, the source log and metrics
// into one indexer process. It exposes Open/Close, a health check, and the
// two indexers built from those parts.
//
// Example:
//
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
//	if err != nil { ... }
//	defer rt.Close()
//	err = rt.RunPairs(ctx)
package runtime
