package cmd

import (
	"log/slog"
	"os"

	"github.com/nextlevelbuilder/cairnkernel/internal/config"
	"github.com/nextlevelbuilder/cairnkernel/internal/store"
)

// setupLogging installs the process-wide slog handler: text in
// development (verbose), JSON otherwise — matching the teacher's own
// dev/prod handler split in cmd/gateway.go.
func setupLogging() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if verbose {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// loadConfig resolves the config path and loads it, applying the --db
// flag override if set.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, err
	}
	if dbFile != "" {
		cfg.Database.Path = dbFile
	}
	return cfg, nil
}

// openStore opens the Persistent Store at cfg's configured path,
// running migrations as a side effect of store.Open.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Database.Path)
}
