// Package source adapts concrete block logs to the reader's Source interface:
// a Redis stream read with XREAD, or the local Pebble event log.
package source
