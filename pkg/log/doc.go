// Package log provides the indexer's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. It is backed by go.uber.org/zap; callers
// never import zap directly, which keeps the rest of the module independent of
// the encoder and sink choices made here.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	)
//	l = l.With(log.Component("reader"), log.Str("stream", "final_blocks"))
//	l.Info("resuming", log.Uint64("height", 1000))
//
// # Configuration
//
// Use ApplyConfig to build a logger from a declarative Config (level, text or
// JSON format, output path).
//
// # Interop
//
// Pebble logs through the standard library logger; RedirectStdLog routes those
// lines into a facade Logger.
package log
