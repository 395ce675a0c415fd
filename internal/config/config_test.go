package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Indexer.SafeOffset != 100 {
		t.Fatalf("safe offset default: %d", cfg.Indexer.SafeOffset)
	}
	if cfg.Indexer.BatchSize != 1 || cfg.Indexer.QueueCapacity != 100 {
		t.Fatalf("batching defaults: %+v", cfg.Indexer)
	}
	if cfg.Backfill.BatchSize != 1000 {
		t.Fatalf("backfill batch default")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestLoadJSON(t *testing.T) {
	file := filepath.Join(t.TempDir(), "indexer.json")
	data := []byte(`{"store":{"kind":"sqlite"},"indexer":{"batchSize":10},"dataDir":"/tmp/idx"}`)
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Kind != "sqlite" {
		t.Fatalf("expected sqlite, got %q", cfg.Store.Kind)
	}
	if cfg.Indexer.BatchSize != 10 {
		t.Fatalf("expected 10")
	}
	// untouched fields keep their defaults
	if cfg.Indexer.QueueCapacity != 100 {
		t.Fatalf("expected default queue capacity")
	}
	if got := cfg.SQLiteFile(); got != "/tmp/idx/index.db" {
		t.Fatalf("sqlite file: %s", got)
	}
}

func TestLoadYAML(t *testing.T) {
	file := filepath.Join(t.TempDir(), "indexer.yaml")
	data := []byte("source:\n  kind: local\nstore:\n  kind: pebble\nrpc:\n  concurrency: 4\nindexer:\n  flushIntervalMs: 250\n")
	if err := os.WriteFile(file, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(file)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Source.Kind != "local" || cfg.Store.Kind != "pebble" {
		t.Fatalf("kinds: %+v %+v", cfg.Source, cfg.Store)
	}
	if cfg.RPC.Concurrency != 4 {
		t.Fatalf("rpc concurrency")
	}
	if cfg.Indexer.FlushInterval().Milliseconds() != 250 {
		t.Fatalf("flush interval")
	}
}

func TestFromEnv(t *testing.T) {
	cfg := Default()
	t.Setenv("WRITE_REDIS_URL", "redis://writer:6379")
	t.Setenv("INDEXER_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://idx@db/idx")
	t.Setenv("INDEXER_SAFE_OFFSET", "250")
	t.Setenv("RPC_CONCURRENCY", "8")
	t.Setenv("EXPORT_FN", "/data/pairs.txt")
	if err := FromEnv(&cfg); err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.Store.RedisURL != "redis://writer:6379" || cfg.Store.Kind != "postgres" {
		t.Fatalf("store overrides: %+v", cfg.Store)
	}
	if cfg.Indexer.SafeOffset != 250 || cfg.RPC.Concurrency != 8 {
		t.Fatalf("numeric overrides")
	}
	if cfg.Backfill.ExportFile != "/data/pairs.txt" {
		t.Fatalf("export file")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFromEnvReportsBadNumbers(t *testing.T) {
	cfg := Default()
	t.Setenv("INDEXER_BATCH_SIZE", "lots")
	t.Setenv("INDEXER_SAFE_OFFSET", "-1")
	if err := FromEnv(&cfg); err == nil {
		t.Fatalf("expected error")
	}
	if cfg.Indexer.BatchSize != 1 {
		t.Fatalf("bad value must not be applied")
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown store":         func(c *Config) { c.Store.Kind = "mongo" },
		"unknown source":        func(c *Config) { c.Source.Kind = "kafka" },
		"postgres without url":  func(c *Config) { c.Store.Kind = "postgres"; c.Store.DatabaseURL = "" },
		"zero batch":            func(c *Config) { c.Indexer.BatchSize = 0 },
		"zero queue":            func(c *Config) { c.Indexer.QueueCapacity = 0 },
		"negative sink retries": func(c *Config) { c.Indexer.SinkMaxAttempts = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
