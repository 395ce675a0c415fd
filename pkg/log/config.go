package log

import (
	"io"
	"os"

	"github.com/cockroachdb/errors"
)

// Config declares a logger in data form, typically filled from the environment.
type Config struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
	// Output is "stderr" (default), "stdout", or a file path opened for append.
	Output string `json:"output" yaml:"output"`
}

// ApplyConfig builds a Logger from cfg.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	var format Format
	switch cfg.Format {
	case "", string(FormatText):
		format = FormatText
	case string(FormatJSON):
		format = FormatJSON
	default:
		return nil, errors.Newf("log: unknown format %q", cfg.Format)
	}
	var out io.Writer
	switch cfg.Output {
	case "", "stderr":
		out = os.Stderr
	case "stdout":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "log: open output %s", cfg.Output)
		}
		out = f
	}
	return NewLogger(WithLevel(lvl), WithFormat(format), WithOutput(out)), nil
}
