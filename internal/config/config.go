package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Source   SourceConfig   `json:"source" yaml:"source"`
	Store    StoreConfig    `json:"store" yaml:"store"`
	RPC      RPCConfig      `json:"rpc" yaml:"rpc"`
	Indexer  IndexerConfig  `json:"indexer" yaml:"indexer"`
	Backfill BackfillConfig `json:"backfill" yaml:"backfill"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
	Log      LogConfig      `json:"log" yaml:"log"`
	// DataDir holds the Pebble database (local source and pebble store).
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Fsync is always|interval|never.
	Fsync string `json:"fsync" yaml:"fsync"`
}

// SourceConfig selects the block log.
type SourceConfig struct {
	// Kind is redis or local.
	Kind     string `json:"kind" yaml:"kind"`
	RedisURL string `json:"redisURL" yaml:"redisURL"`
	Stream   string `json:"stream" yaml:"stream"`
	BlockMs  int    `json:"blockMs" yaml:"blockMs"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	// Kind is redis, pebble, sqlite or postgres.
	Kind        string `json:"kind" yaml:"kind"`
	RedisURL    string `json:"redisURL" yaml:"redisURL"`
	DatabaseURL string `json:"databaseURL" yaml:"databaseURL"`
	// SQLitePath defaults to <DataDir>/index.db.
	SQLitePath string `json:"sqlitePath" yaml:"sqlitePath"`
}

// RPCConfig configures the NEAR JSON-RPC client.
type RPCConfig struct {
	URL         string `json:"url" yaml:"url"`
	BearerToken string `json:"bearerToken" yaml:"bearerToken"`
	Concurrency int    `json:"concurrency" yaml:"concurrency"`
	TimeoutMs   int    `json:"timeoutMs" yaml:"timeoutMs"`
	MaxAttempts int    `json:"maxAttempts" yaml:"maxAttempts"`
}

// IndexerConfig tunes the reader, queue, driver and sink.
type IndexerConfig struct {
	SafeOffset    uint64 `json:"safeOffset" yaml:"safeOffset"`
	BatchSize     int    `json:"batchSize" yaml:"batchSize"`
	QueueCapacity int    `json:"queueCapacity" yaml:"queueCapacity"`
	// RetryDelayMs is the pause before reconnecting; 0 means one second.
	RetryDelayMs    int `json:"retryDelayMs" yaml:"retryDelayMs"`
	FlushIntervalMs int `json:"flushIntervalMs" yaml:"flushIntervalMs"`
	// SinkMaxAttempts bounds commit retries; 0 retries forever.
	SinkMaxAttempts int    `json:"sinkMaxAttempts" yaml:"sinkMaxAttempts"`
	EnrichAttempts  int    `json:"enrichAttempts" yaml:"enrichAttempts"`
	RulesFile       string `json:"rulesFile" yaml:"rulesFile"`
	// PairFilter replaces the rules file's CEL filter when set.
	PairFilter string `json:"pairFilter" yaml:"pairFilter"`
}

// BackfillConfig configures the balance backfill.
type BackfillConfig struct {
	ExportFile string `json:"exportFile" yaml:"exportFile"`
	BatchSize  int    `json:"batchSize" yaml:"batchSize"`
}

// MetricsConfig configures the /metrics and /healthz listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Source: SourceConfig{Kind: "redis", RedisURL: "redis://127.0.0.1:6379", Stream: "final_blocks", BlockMs: 1000},
		Store:  StoreConfig{Kind: "redis", RedisURL: "redis://127.0.0.1:6379"},
		RPC: RPCConfig{
			URL:         "https://rpc.mainnet.near.org",
			Concurrency: 16,
			TimeoutMs:   10000,
			MaxAttempts: 5,
		},
		Indexer: IndexerConfig{
			SafeOffset:     100,
			BatchSize:      1,
			QueueCapacity:  100,
			RetryDelayMs:   1000,
			EnrichAttempts: 3,
		},
		Backfill: BackfillConfig{BatchSize: 1000},
		Log:      LogConfig{Level: "info", Format: "json"},
		DataDir:  DefaultDataDir(),
		Fsync:    "always",
	}
}

// Load reads configuration from a JSON or YAML file (by extension) on top of
// the defaults. If path is empty, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "config: read")
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "config: parse %s", path)
		}
	}
	return cfg, nil
}

var (
	sourceKinds = map[string]bool{"redis": true, "local": true}
	storeKinds  = map[string]bool{"redis": true, "pebble": true, "sqlite": true, "postgres": true}
)

// Validate rejects configurations the indexer cannot run with.
func (c Config) Validate() error {
	var errs []error
	if !sourceKinds[c.Source.Kind] {
		errs = append(errs, errors.Newf("source.kind %q: want redis or local", c.Source.Kind))
	}
	if c.Source.Kind == "redis" && c.Source.RedisURL == "" {
		errs = append(errs, errors.New("source.redisURL is required for a redis source"))
	}
	if !storeKinds[c.Store.Kind] {
		errs = append(errs, errors.Newf("store.kind %q: want redis, pebble, sqlite or postgres", c.Store.Kind))
	}
	if c.Store.Kind == "redis" && c.Store.RedisURL == "" {
		errs = append(errs, errors.New("store.redisURL is required for a redis store"))
	}
	if c.Store.Kind == "postgres" && c.Store.DatabaseURL == "" {
		errs = append(errs, errors.New("store.databaseURL is required for a postgres store"))
	}
	if (c.Source.Kind == "local" || c.Store.Kind == "pebble" || c.Store.Kind == "sqlite") && c.DataDir == "" {
		errs = append(errs, errors.New("dataDir is required for local storage"))
	}
	if c.Indexer.BatchSize <= 0 {
		errs = append(errs, errors.New("indexer.batchSize must be positive"))
	}
	if c.Indexer.QueueCapacity <= 0 {
		errs = append(errs, errors.New("indexer.queueCapacity must be positive"))
	}
	if c.Indexer.SinkMaxAttempts < 0 || c.Indexer.RetryDelayMs < 0 || c.Indexer.FlushIntervalMs < 0 {
		errs = append(errs, errors.New("indexer retry settings must not be negative"))
	}
	if c.RPC.Concurrency <= 0 {
		errs = append(errs, errors.New("rpc.concurrency must be positive"))
	}
	if c.Backfill.BatchSize <= 0 {
		errs = append(errs, errors.New("backfill.batchSize must be positive"))
	}
	return errors.Join(errs...)
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// RetryDelay is the pause before reconnecting after a read or write failure.
func (c IndexerConfig) RetryDelay() time.Duration { return ms(c.RetryDelayMs) }

// FlushInterval is the idle time after which a partial batch is handed off.
func (c IndexerConfig) FlushInterval() time.Duration { return ms(c.FlushIntervalMs) }

// Block is the source read block timeout.
func (c SourceConfig) Block() time.Duration { return ms(c.BlockMs) }

// Timeout is the per-request RPC timeout.
func (c RPCConfig) Timeout() time.Duration { return ms(c.TimeoutMs) }

// SQLiteFile resolves the SQLite database path.
func (c Config) SQLiteFile() string {
	if c.Store.SQLitePath != "" {
		return c.Store.SQLitePath
	}
	return filepath.Join(c.DataDir, "index.db")
}
