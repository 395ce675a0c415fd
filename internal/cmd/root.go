package cmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	cfgpkg "github.com/mikedotexe/fastnear-compact-indexer/internal/config"
	"github.com/mikedotexe/fastnear-compact-indexer/internal/runtime"
	logpkg "github.com/mikedotexe/fastnear-compact-indexer/pkg/log"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
	DataDir    string
	// LogOutput overrides where logs go. Tests only.
	LogOutput io.Writer
}

// NewRoot constructs the indexer root command.
func NewRoot() *cobra.Command {
	return NewRootWithOptions(&RootOptions{})
}

// NewRootWithOptions builds the command tree around opts.
func NewRootWithOptions(opts *RootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "indexer",
		Short:         "Compact NEAR account/token indexer",
		Long:          "Tails finalized NEAR blocks and records which accounts touched which tokens, NFTs and staking pools.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (JSON or YAML)")
	root.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")
	root.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory for local storage")

	root.AddCommand(newPairsCommand(opts))
	root.AddCommand(newBackfillCommand(opts))
	root.AddCommand(newLogCommand(opts))
	root.AddCommand(newCheckpointCommand(opts))
	return root
}

// load resolves configuration as defaults < file < environment < flags.
func (o *RootOptions) load() (cfgpkg.Config, error) {
	cfg, err := cfgpkg.Load(o.ConfigPath)
	if err != nil {
		return cfgpkg.Config{}, err
	}
	if err := cfgpkg.FromEnv(&cfg); err != nil {
		return cfgpkg.Config{}, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
	}
	return cfg, nil
}

func (o *RootOptions) logger(cfg cfgpkg.Config) (logpkg.Logger, error) {
	if o.LogOutput != nil {
		lvl, err := logpkg.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		return logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormat(logpkg.Format(cfg.Log.Format)), logpkg.WithOutput(o.LogOutput)), nil
	}
	return logpkg.ApplyConfig(&logpkg.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// openRuntime loads config, builds the logger and opens the runtime. The
// returned cleanup closes the runtime and flushes the logger.
func (o *RootOptions) openRuntime(ctx context.Context, mutate func(*cfgpkg.Config)) (*runtime.Runtime, func(), error) {
	cfg, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	logger, err := o.logger(cfg)
	if err != nil {
		return nil, nil, err
	}
	// Pebble logs through the standard library logger
	restore := logpkg.RedirectStdLog(logger)

	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
	if err != nil {
		restore()
		return nil, nil, err
	}
	return rt, func() {
		if err := rt.Close(); err != nil {
			logger.Error("close runtime", logpkg.Err(err))
		}
		restore()
		_ = logger.Sync()
	}, nil
}
