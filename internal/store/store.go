package store

import (
	"context"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// CheckpointKey holds the height of the last fully committed block.
const CheckpointKey = "meta:latest_block"

// Policy decides what happens when a mutation's (key, field) already exists.
type Policy int

const (
	// SetIfAbsent keeps the existing value (HSETNX, first writer wins).
	SetIfAbsent Policy = iota + 1
	// SetOrOverwrite replaces the existing value (HSET).
	SetOrOverwrite
)

func (p Policy) String() string {
	switch p {
	case SetIfAbsent:
		return "set_if_absent"
	case SetOrOverwrite:
		return "set_or_overwrite"
	default:
		return "policy(" + strconv.Itoa(int(p)) + ")"
	}
}

// Mutation writes Value to field Field of record Key.
type Mutation struct {
	Policy Policy
	Key    string
	Field  string
	Value  string
}

// Commit is one atomic unit: all mutations plus the optional checkpoint land
// together or not at all.
type Commit struct {
	Mutations  []Mutation
	Checkpoint *uint64
}

// WithCheckpoint returns c carrying height as its checkpoint.
func (c Commit) WithCheckpoint(height uint64) Commit {
	c.Checkpoint = &height
	return c
}

// ErrInvalidMutation is returned for mutations no backend can apply.
var ErrInvalidMutation = errors.New("invalid mutation")

// Validate checks every mutation has a key, a field and a known policy.
func (c Commit) Validate() error {
	for i, m := range c.Mutations {
		if m.Key == "" || m.Field == "" {
			return errors.Wrapf(ErrInvalidMutation, "mutation %d has empty key or field", i)
		}
		if m.Policy != SetIfAbsent && m.Policy != SetOrOverwrite {
			return errors.Wrapf(ErrInvalidMutation, "mutation %d has %s", i, m.Policy)
		}
	}
	return nil
}

// Sorted returns the mutations ordered by (key, field, policy, value). Backends
// apply them in this order so replaying a commit is deterministic.
func (c Commit) Sorted() []Mutation {
	out := make([]Mutation, len(c.Mutations))
	copy(out, c.Mutations)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		if a.Field != b.Field {
			return a.Field < b.Field
		}
		if a.Policy != b.Policy {
			return a.Policy < b.Policy
		}
		return a.Value < b.Value
	})
	return out
}

// Store is a key-value backend with an atomic batched commit.
type Store interface {
	Commit(ctx context.Context, c Commit) error
	// Checkpoint returns the stored checkpoint, if any.
	Checkpoint(ctx context.Context) (uint64, bool, error)
	// Get reads one field of one record.
	Get(ctx context.Context, key, field string) (string, bool, error)
	// Reconnect drops and re-establishes the connection.
	Reconnect(ctx context.Context) error
	Close() error
}

// ErrCorruptCheckpoint marks a stored checkpoint that is not a height.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// ErrWrongType is returned when a mutation targets a key holding a value of
// another type. Nothing of the commit is applied.
var ErrWrongType = errors.New("key holds the wrong type")

// ParseCheckpoint decodes a stored checkpoint value. Failures are marked
// ErrCorruptCheckpoint.
func ParseCheckpoint(raw string) (uint64, error) {
	h, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "checkpoint %q", raw), ErrCorruptCheckpoint)
	}
	return h, nil
}

// FormatCheckpoint encodes a checkpoint for storage.
func FormatCheckpoint(h uint64) string { return strconv.FormatUint(h, 10) }
