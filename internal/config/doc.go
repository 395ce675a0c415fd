// Package config provides loading and environment overlay for the indexer's
// configuration. It exposes a Default() baseline, file loading (JSON or YAML)
// and an environment overlay using the variable names the indexers have
// always read.
//
// Example:
//
//	cfg, err := config.Load(path)
//	if err != nil { ... }
//	if err := config.FromEnv(&cfg); err != nil { ... }
//	if err := cfg.Validate(); err != nil { ... }
//	rt, err := runtime.Open(ctx, runtime.Options{Config: cfg, Logger: logger})
package config
