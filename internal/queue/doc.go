// Package queue provides the bounded hand-off between the log reader and the
// pipeline driver. Its capacity is a tuning knob, not a correctness parameter:
// a full queue suspends the producer, so the reader can never run unboundedly
// ahead of the store.
package queue
