package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cfgpkg "github.com/mikedotexe/fastnear-compact-indexer/internal/config"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/pipeline"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
)

func localConfig(t *testing.T, storeKind string) cfgpkg.Config {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.DataDir = t.TempDir()
	cfg.Source.Kind = "local"
	cfg.Source.BlockMs = 10
	cfg.Store.Kind = storeKind
	cfg.Indexer.RetryDelayMs = 1
	cfg.Indexer.SafeOffset = 0
	return cfg
}

func TestOpenCloseHealth(t *testing.T) {
	for _, kind := range []string{"pebble", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			rt, err := Open(context.Background(), Options{Config: localConfig(t, kind)})
			require.NoError(t, err)
			defer rt.Close()
			require.NoError(t, rt.CheckHealth(context.Background()))
			_, err = rt.OpenLog()
			require.NoError(t, err)
		})
	}
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := localConfig(t, "cassandra")
	_, err := Open(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}

func TestRunPairsFromLocalLog(t *testing.T) {
	payload, err := os.ReadFile("../block/testdata/block.json")
	require.NoError(t, err)

	rt, err := Open(context.Background(), Options{Config: localConfig(t, "sqlite")})
	require.NoError(t, err)
	defer rt.Close()

	log, err := rt.OpenLog()
	require.NoError(t, err)
	_, err = log.Append(context.Background(), []eventlog.AppendRecord{
		{Height: 120000000, Payload: payload},
		{Height: 120000001, Payload: payload},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.RunPairs(ctx) }()

	require.Eventually(t, func() bool {
		h, ok, err := rt.Store().Checkpoint(context.Background())
		return err == nil && ok && h == 120000001
	}, 5*time.Second, 5*time.Millisecond)
	cancel()
	require.True(t, errors.Is(<-done, context.Canceled))

	_, ok, err := rt.Store().Get(context.Background(), "ft:bob.near", "usdc.near")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunPairsRejectsUnsafeResume(t *testing.T) {
	cfg := localConfig(t, "pebble")
	cfg.Indexer.SafeOffset = 100
	rt, err := Open(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close()

	log, err := rt.OpenLog()
	require.NoError(t, err)
	_, err = log.Append(context.Background(), []eventlog.AppendRecord{{Height: 1000, Payload: []byte("{}")}})
	require.NoError(t, err)
	h := uint64(1050)
	require.NoError(t, rt.Sink().Commit(context.Background(), storeCheckpoint(h)))

	err = rt.RunPairs(context.Background())
	assert.True(t, errors.Is(err, pipeline.ErrResumeTooClose))
}

func TestRunBackfillIntoRedis(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Params struct {
				AccountID string `json:"account_id"`
			} `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Params.AccountID != "usdc.near" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]interface{}{"name": "HANDLER_ERROR", "cause": map[string]string{"name": "UNKNOWN_ACCOUNT"}},
			})
			return
		}
		// "42"
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": req.ID,
			"result": map[string]interface{}{"result": []int{34, 52, 50, 34}, "logs": []string{}},
		})
	}))
	defer node.Close()
	m := miniredis.RunT(t)

	cfg := cfgpkg.Default()
	cfg.Store.RedisURL = "redis://" + m.Addr()
	cfg.RPC.URL = node.URL
	cfg.Backfill.BatchSize = 2
	cfg.Indexer.RetryDelayMs = 1
	rt, err := Open(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close()

	export := "alice.near usdc.near\nbob.near usdc.near\ncarol.near missing.near\n"
	require.NoError(t, rt.RunBackfill(context.Background(), strings.NewReader(export)))

	assert.Equal(t, "42", m.HGet("b:usdc.near", "alice.near"))
	assert.Equal(t, "42", m.HGet("b:usdc.near", "bob.near"))
	assert.False(t, m.Exists("b:missing.near"))
	assert.False(t, m.Exists("meta:latest_block"))
}

func storeCheckpoint(h uint64) store.Commit { return store.Commit{}.WithCheckpoint(h) }

func TestOpenPairFilter(t *testing.T) {
	cfg := localConfig(t, "pebble")
	cfg.Indexer.PairFilter = `!account.endsWith(".lockup.near")`
	rt, err := Open(context.Background(), Options{Config: cfg})
	require.NoError(t, err)
	assert.Equal(t, cfg.Indexer.PairFilter, rt.Rules().Filter)
	require.NoError(t, rt.Close())

	cfg = localConfig(t, "pebble")
	cfg.Indexer.PairFilter = "account =="
	_, err = Open(context.Background(), Options{Config: cfg})
	require.Error(t, err)
}
