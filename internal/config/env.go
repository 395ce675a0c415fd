package config

import (
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
)

// FromEnv overlays environment variables onto cfg. Unparseable numbers are
// reported together.
func FromEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "%s", name))
				return
			}
			*dst = n
		}
	}

	str("READ_REDIS_URL", &cfg.Source.RedisURL)
	str("WRITE_REDIS_URL", &cfg.Store.RedisURL)
	str("DATABASE_URL", &cfg.Store.DatabaseURL)
	str("RPC_URL", &cfg.RPC.URL)
	str("RPC_BEARER_TOKEN", &cfg.RPC.BearerToken)
	num("RPC_CONCURRENCY", &cfg.RPC.Concurrency)
	str("EXPORT_FN", &cfg.Backfill.ExportFile)
	num("INDEXER_BATCH_SIZE", &cfg.Indexer.BatchSize)
	num("INDEXER_QUEUE_CAPACITY", &cfg.Indexer.QueueCapacity)
	num("INDEXER_RETRY_DELAY_MS", &cfg.Indexer.RetryDelayMs)
	num("INDEXER_FLUSH_INTERVAL_MS", &cfg.Indexer.FlushIntervalMs)
	num("INDEXER_SINK_MAX_ATTEMPTS", &cfg.Indexer.SinkMaxAttempts)
	str("INDEXER_STORE", &cfg.Store.Kind)
	str("INDEXER_SOURCE", &cfg.Source.Kind)
	str("INDEXER_DATA_DIR", &cfg.DataDir)
	str("INDEXER_RULES_FILE", &cfg.Indexer.RulesFile)
	str("INDEXER_PAIR_FILTER", &cfg.Indexer.PairFilter)
	str("INDEXER_METRICS_ADDR", &cfg.Metrics.Addr)
	str("INDEXER_LOG_LEVEL", &cfg.Log.Level)
	str("INDEXER_LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("INDEXER_SAFE_OFFSET"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			errs = append(errs, errors.Wrap(err, "INDEXER_SAFE_OFFSET"))
		} else {
			cfg.Indexer.SafeOffset = n
		}
	}
	return errors.Join(errs...)
}
