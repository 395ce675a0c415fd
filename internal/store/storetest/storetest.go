// Package storetest is a conformance suite for store backends.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

// Opener returns a fresh, empty store.
type Opener func(t *testing.T) store.Store

// Run exercises the behavior every backend must share.
func Run(t *testing.T, open Opener) {
	t.Run("EmptyCheckpoint", func(t *testing.T) { testEmptyCheckpoint(t, open(t)) })
	t.Run("CommitAndCheckpoint", func(t *testing.T) { testCommitAndCheckpoint(t, open(t)) })
	t.Run("SetIfAbsentFirstWriterWins", func(t *testing.T) { testSetIfAbsent(t, open(t)) })
	t.Run("OverwriteLastWriterWins", func(t *testing.T) { testOverwrite(t, open(t)) })
	t.Run("ReplayIsIdempotent", func(t *testing.T) { testReplay(t, open(t)) })
	t.Run("CommitWithoutCheckpoint", func(t *testing.T) { testNoCheckpoint(t, open(t)) })
	t.Run("RejectsInvalidMutation", func(t *testing.T) { testInvalid(t, open(t)) })
	t.Run("Reconnect", func(t *testing.T) { testReconnect(t, open(t)) })
}

func pairCommit(height uint64) store.Commit {
	return store.Commit{Mutations: []store.Mutation{
		{Policy: store.SetOrOverwrite, Key: "ft:alice.near", Field: "usdc.near", Value: ""},
		{Policy: store.SetOrOverwrite, Key: "ft:bob.near", Field: "usdc.near", Value: ""},
		{Policy: store.SetOrOverwrite, Key: "st:erin.near", Field: "astro.poolv1.near", Value: ""},
	}}.WithCheckpoint(height)
}

func requireField(t *testing.T, s store.Store, key, field, want string) {
	t.Helper()
	got, ok, err := s.Get(context.Background(), key, field)
	require.NoError(t, err)
	require.True(t, ok, "%s/%s missing", key, field)
	assert.Equal(t, want, got, "%s/%s", key, field)
}

func requireCheckpoint(t *testing.T, s store.Store, want uint64) {
	t.Helper()
	got, ok, err := s.Checkpoint(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func testEmptyCheckpoint(t *testing.T, s store.Store) {
	_, ok, err := s.Checkpoint(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(context.Background(), "ft:nobody", "x")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testCommitAndCheckpoint(t *testing.T, s store.Store) {
	require.NoError(t, s.Commit(context.Background(), pairCommit(120000001)))
	requireField(t, s, "ft:alice.near", "usdc.near", "")
	requireField(t, s, "ft:bob.near", "usdc.near", "")
	requireField(t, s, "st:erin.near", "astro.poolv1.near", "")
	requireCheckpoint(t, s, 120000001)

	require.NoError(t, s.Commit(context.Background(), pairCommit(120000002)))
	requireCheckpoint(t, s, 120000002)
}

func testSetIfAbsent(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, store.Commit{Mutations: []store.Mutation{
		{Policy: store.SetIfAbsent, Key: "b:usdc.near", Field: "alice.near", Value: "100"},
	}}))
	require.NoError(t, s.Commit(ctx, store.Commit{Mutations: []store.Mutation{
		{Policy: store.SetIfAbsent, Key: "b:usdc.near", Field: "alice.near", Value: "999"},
		{Policy: store.SetIfAbsent, Key: "b:usdc.near", Field: "bob.near", Value: "5"},
	}}))
	requireField(t, s, "b:usdc.near", "alice.near", "100")
	requireField(t, s, "b:usdc.near", "bob.near", "5")
}

func testOverwrite(t *testing.T, s store.Store) {
	ctx := context.Background()
	m := store.Mutation{Policy: store.SetOrOverwrite, Key: "b:wrap.near", Field: "alice.near", Value: "1"}
	require.NoError(t, s.Commit(ctx, store.Commit{Mutations: []store.Mutation{m}}))
	m.Value = "2"
	require.NoError(t, s.Commit(ctx, store.Commit{Mutations: []store.Mutation{m}}))
	requireField(t, s, "b:wrap.near", "alice.near", "2")
}

func testReplay(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := pairCommit(7)
	c.Mutations = append(c.Mutations, store.Mutation{Policy: store.SetIfAbsent, Key: "b:usdc.near", Field: "carol.near", Value: "42"})
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Commit(ctx, c))
	}
	requireField(t, s, "ft:alice.near", "usdc.near", "")
	requireField(t, s, "b:usdc.near", "carol.near", "42")
	requireCheckpoint(t, s, 7)
}

func testNoCheckpoint(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, pairCommit(11)))
	require.NoError(t, s.Commit(ctx, store.Commit{Mutations: []store.Mutation{
		{Policy: store.SetIfAbsent, Key: "b:usdc.near", Field: "dave.near", Value: "3"},
	}}))
	requireCheckpoint(t, s, 11)
	requireField(t, s, "b:usdc.near", "dave.near", "3")
}

func testInvalid(t *testing.T, s store.Store) {
	err := s.Commit(context.Background(), store.Commit{Mutations: []store.Mutation{
		{Policy: store.SetOrOverwrite, Key: "ft:alice.near", Field: "usdc.near"},
		{Policy: store.SetOrOverwrite, Key: "", Field: "x"},
	}}.WithCheckpoint(3))
	require.ErrorIs(t, err, store.ErrInvalidMutation)
	_, ok, err := s.Checkpoint(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "rejected commit must not move the checkpoint")
}

func testReconnect(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Commit(ctx, pairCommit(5)))
	require.NoError(t, s.Reconnect(ctx))
	requireCheckpoint(t, s, 5)
}
