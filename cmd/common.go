package cmd

import (
	"context"
	"io"

	"github.com/conneroisu/devlog/internal/config"
	"github.com/conneroisu/devlog/internal/content"
	"github.com/conneroisu/devlog/internal/logging"
	"github.com/spf13/cobra"
)

// loadConfig loads the merged configuration and a logger writing to the
// command's stderr.
func loadConfig(cmd *cobra.Command) (*config.Config, *logging.SiteLogger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func newLogger(cfg config.LoggingConfig, out io.Writer) (*logging.SiteLogger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Format,
		Output: out,
	}), nil
}

// loadSnapshot reads the content directory once.
func loadSnapshot(ctx context.Context, cfg *config.Config, logger *logging.SiteLogger) (*content.Snapshot, error) {
	op := logger.StartOperation("load_content")
	snap, err := content.NewLoader(cfg.Content, logger).Load(ctx)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}
	op.End(ctx)
	return snap, nil
}
