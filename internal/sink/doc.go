// Package sink is the retry-safe writer in front of a store. Every commit is
// atomic in the backend and idempotent on replay, so retrying a commit whose
// outcome is unknown is always safe.
package sink
