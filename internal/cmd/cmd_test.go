package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/sqlstore"
)

func writeConfig(t *testing.T, dataDir, rpcURL string) string {
	t.Helper()
	for _, name := range []string{"INDEXER_SOURCE", "INDEXER_STORE", "INDEXER_DATA_DIR", "RPC_URL", "INDEXER_METRICS_ADDR"} {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "indexer.yaml")
	body := "dataDir: " + dataDir + "\n" +
		"source:\n  kind: local\n  blockMs: 10\n" +
		"store:\n  kind: sqlite\n" +
		"rpc:\n  url: " + rpcURL + "\n" +
		"log:\n  level: debug\n  format: text\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootWithOptions(&RootOptions{LogOutput: io.Discard})
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestLogAppendCheckpointTrim(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "http://127.0.0.1:1")

	out, err := execute(t, "--config", cfg, "checkpoint")
	require.NoError(t, err)
	assert.Equal(t, "none\n", out)

	out, err = execute(t, "--config", cfg, "log", "append", "../block/testdata/block.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "120000001-"), out)

	out, err = execute(t, "--config", cfg, "log", "trim", "--below", "120000002")
	require.NoError(t, err)
	assert.Equal(t, "trimmed 1 entries\n", out)

	_, err = execute(t, "--config", cfg, "log", "trim")
	require.Error(t, err)
}

func TestLogAppendRejectsBadBlock(t *testing.T) {
	cfg := writeConfig(t, t.TempDir(), "http://127.0.0.1:1")
	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))

	_, err := execute(t, "--config", cfg, "log", "append", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestBackfillCommand(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// "7" as JSON bytes
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      "dontcare",
			"result":  map[string]interface{}{"result": []int{34, 55, 34}, "logs": []string{}},
		})
	}))
	defer node.Close()

	dataDir := t.TempDir()
	cfg := writeConfig(t, dataDir, node.URL)
	export := filepath.Join(t.TempDir(), "export.txt")
	require.NoError(t, os.WriteFile(export, []byte("alice.near usdc.near\n"), 0o644))

	_, err := execute(t, "--config", cfg, "backfill", "--export", export)
	require.NoError(t, err)

	st, err := sqlstore.Open(filepath.Join(dataDir, "index.db"))
	require.NoError(t, err)
	defer st.Close()
	v, ok, err := st.Get(context.Background(), "b:usdc.near", "alice.near")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7", v)
}

func TestBackfillRequiresExport(t *testing.T) {
	t.Setenv("EXPORT_FN", "")
	cfg := writeConfig(t, t.TempDir(), "http://127.0.0.1:1")
	_, err := execute(t, "--config", cfg, "backfill")
	require.Error(t, err)
}

func TestUnknownConfigFails(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "checkpoint")
	require.Error(t, err)
}
