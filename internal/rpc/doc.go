// Package rpc is the enrichment client: it resolves authoritative values for
// extracted pairs through NEAR JSON-RPC.
//
// Fetch is atomic from the caller's point of view. Results come back in task
// order, one per task, or the whole call fails. Internally requests fan out
// with bounded concurrency and transient failures retry with jittered
// exponential backoff. Contract errors that mean "nothing here" become absent
// results rather than failures.
package rpc
