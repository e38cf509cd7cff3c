package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelbrown/narratives/internal/config"
	"github.com/abelbrown/narratives/internal/logging"
	"github.com/abelbrown/narratives/internal/store"
)

// configFlag registers the shared -config flag on fs.
func configFlag(fs *flag.FlagSet) *string {
	return fs.String("config", "", "Config file (default ~/.narratives/config.yaml)")
}

// setup loads the config and starts logging, or exits.
func setup(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fatalf("load config: %v", err)
	}

	logDir := ""
	if cfg.Logging.File {
		logDir = filepath.Join(config.DataDir(), "logs")
	}
	if err := logging.Init(cfg.Logging.Level, logDir); err != nil {
		fatalf("init logging: %v", err)
	}
	return cfg
}

// dbPath returns the configured database path, defaulting to
// ~/.narratives/narratives.db.
func dbPath(cfg *config.Config) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	dir := config.DataDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		fatalf("failed to create data directory: %v", err)
	}
	return filepath.Join(dir, "narratives.db")
}

// openDB opens the store or exits.
func openDB(cfg *config.Config) *store.Store {
	st, err := store.Open(dbPath(cfg))
	if err != nil {
		fatalf("failed to open database: %v", err)
	}
	return st
}

func fatalf(format string, args ...any) {
	logging.Error(fmt.Sprintf(format, args...))
	fmt.Fprintf(os.Stderr, "narr: "+format+"\n", args...)
	logging.Close()
	os.Exit(1)
}
