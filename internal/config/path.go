package config

import (
	"os"
	"path/filepath"
)

// DataDirName is the directory local state lives under.
const DataDirName = "fastnear-indexer"

// DefaultDataDir returns $XDG_DATA_HOME/fastnear-indexer, falling back to
// ~/.local/share/fastnear-indexer, and to ./data when there is no home.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, DataDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", DataDirName)
}
