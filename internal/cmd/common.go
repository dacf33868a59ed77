package cmd

import (
	"fmt"

	"github.com/Iron-Ham/svcbind/internal/config"
	"github.com/Iron-Ham/svcbind/internal/logging"
)

// loadConfig loads and validates the effective configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger described by cfg. When no log directory is
// configured, logs go to stderr only if toStderr is set; otherwise they are
// discarded so command output stays readable.
func newLogger(cfg *config.Config, toStderr bool) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	if cfg.Logging.Dir == "" && !toStderr {
		return logging.NopLogger(), nil
	}
	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
