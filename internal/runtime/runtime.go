package runtime

import (
	"context"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	cfgpkg "github.com/mikedotexe/fastnear-compact-indexer/internal/config"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/eventlog"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/extract"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/metrics"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/rpc"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/sink"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/source"
	pebblestore "github.com/mikedotexe/fastnear-compact-indexer/internal/storage/pebble"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/pebblekv"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/pgstore"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/redisstore"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/store/sqlstore"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger logpkg.Logger
	// Registry receives the indexer collectors. Defaults to a fresh registry.
	Registry *prometheus.Registry
}

// Runtime owns every long-lived resource of one indexer process: the Pebble
// database (when a local component needs it), the store, the sink and the
// metrics registry.
type Runtime struct {
	config   cfgpkg.Config
	logger   logpkg.Logger
	registry *prometheus.Registry
	metrics  *metrics.Indexer
	rules    extract.Rules

	db    *pebblestore.DB
	store store.Store
	sink  *sink.Sink
}

// Open validates the configuration and opens storage. The source is opened
// separately because the backfill does not read one.
func Open(ctx context.Context, opts Options) (*Runtime, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Runtime{config: cfg, logger: logger, registry: reg, metrics: metrics.New(reg)}

	rules := extract.DefaultRules()
	if cfg.Indexer.RulesFile != "" {
		var err error
		if rules, err = extract.LoadRules(cfg.Indexer.RulesFile); err != nil {
			return nil, err
		}
	}
	if cfg.Indexer.PairFilter != "" {
		rules.Filter = cfg.Indexer.PairFilter
		if err := rules.Validate(); err != nil {
			return nil, errors.Wrap(err, "indexer.pairFilter")
		}
	}
	r.rules = rules

	if cfg.Source.Kind == "local" || cfg.Store.Kind == "pebble" {
		fsync, err := pebblestore.ParseFsyncMode(cfg.Fsync)
		if err != nil {
			return nil, err
		}
		db, err := pebblestore.Open(pebblestore.Options{
			DataDir: filepath.Join(cfg.DataDir, "pebble"),
			Fsync:   fsync,
			Metrics: r.metrics,
		})
		if err != nil {
			return nil, err
		}
		r.db = db
	}

	st, err := r.openStore(ctx)
	if err != nil {
		_ = r.Close()
		return nil, err
	}
	r.store = st
	r.sink = sink.New(st, sink.RetryOptions{
		Delay:       cfg.Indexer.RetryDelay(),
		MaxAttempts: cfg.Indexer.SinkMaxAttempts,
		OnRetry:     r.metrics.SinkRetry,
	}, logger)
	return r, nil
}

func (r *Runtime) openStore(ctx context.Context) (store.Store, error) {
	cfg := r.config
	switch cfg.Store.Kind {
	case "redis":
		return redisstore.Open(ctx, cfg.Store.RedisURL)
	case "pebble":
		return pebblekv.New(r.db), nil
	case "sqlite":
		return sqlstore.Open(cfg.SQLiteFile())
	case "postgres":
		return pgstore.Open(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, errors.Newf("unknown store kind %q", cfg.Store.Kind)
	}
}

// OpenSource connects the configured block log.
func (r *Runtime) OpenSource(ctx context.Context) (source.Source, error) {
	switch r.config.Source.Kind {
	case "redis":
		return source.OpenRedis(ctx, source.RedisOptions{
			URL:    r.config.Source.RedisURL,
			Stream: r.config.Source.Stream,
			Block:  r.config.Source.Block(),
		})
	case "local":
		log, err := r.OpenLog()
		if err != nil {
			return nil, err
		}
		return source.NewLocal(log, r.config.Source.Block()), nil
	default:
		return nil, errors.Newf("unknown source kind %q", r.config.Source.Kind)
	}
}

// OpenLog opens the local event log for the configured stream.
func (r *Runtime) OpenLog() (*eventlog.Log, error) {
	if r.db == nil {
		return nil, errors.New("local log requires source.kind=local or store.kind=pebble")
	}
	stream := r.config.Source.Stream
	if stream == "" {
		stream = source.DefaultStream
	}
	return eventlog.OpenLog(r.db, stream)
}

// Enricher builds the RPC client.
func (r *Runtime) Enricher() *rpc.Client {
	return rpc.NewClient(rpc.Config{
		URL:         r.config.RPC.URL,
		BearerToken: r.config.RPC.BearerToken,
		Concurrency: r.config.RPC.Concurrency,
		Timeout:     r.config.RPC.Timeout(),
		MaxAttempts: r.config.RPC.MaxAttempts,
	}, r.logger)
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
		r.db = nil
	}
	return errors.Join(errs...)
}

// CheckHealth verifies storage is reachable.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db != nil {
		it, err := r.db.NewIter(nil)
		if err != nil {
			return err
		}
		if err := it.Close(); err != nil {
			return err
		}
	}
	if r.store == nil {
		return errors.New("store not open")
	}
	_, _, err := r.store.Checkpoint(ctx)
	return err
}

// ServeMetrics serves /metrics and /healthz until ctx is done. It returns
// immediately when no address is configured.
func (r *Runtime) ServeMetrics(ctx context.Context) error {
	if r.config.Metrics.Addr == "" {
		return nil
	}
	return metrics.Serve(ctx, r.config.Metrics.Addr, metrics.Handler(r.registry, r.CheckHealth), r.logger)
}

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }

// Store returns the open store.
func (r *Runtime) Store() store.Store { return r.store }

// Sink returns the retrying sink in front of the store.
func (r *Runtime) Sink() *sink.Sink { return r.sink }

// Rules returns the extraction rules in effect.
func (r *Runtime) Rules() extract.Rules { return r.rules }
