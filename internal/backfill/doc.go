// Package backfill produces balance backfill work from an export file of
// account/token pairs, one pair per line separated by a single space.
package backfill
