// Package store defines the commit model shared by every storage backend.
//
// Records are hashes addressed by key and field, e.g. ft:<account> with one
// field per token. A Commit applies a set of mutations and an optional
// checkpoint atomically. Replaying a commit leaves the store unchanged: set
// if absent keeps the first value, overwrite rewrites the same value.
//
// Backends live in subpackages: redisstore, pebblekv, sqlstore (SQLite) and
// pgstore (Postgres). storetest holds the conformance suite they all run.
package store
