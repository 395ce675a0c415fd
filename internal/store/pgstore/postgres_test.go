package pgstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/storetest"
)

// Set INDEXER_TEST_DATABASE_URL to a disposable database to run these.
func testConnStr(t *testing.T) string {
	t.Helper()
	connStr := os.Getenv("INDEXER_TEST_DATABASE_URL")
	if connStr == "" {
		t.Skip("INDEXER_TEST_DATABASE_URL not set")
	}
	return connStr
}

func TestConformance(t *testing.T) {
	connStr := testConnStr(t)
	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, connStr)
		require.NoError(t, err)
		require.NoError(t, s.reset(ctx))
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestOpenRejectsBadURL(t *testing.T) {
	_, err := Open(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
