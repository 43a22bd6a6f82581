package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/fetch"
)

// Fetch populates repository listing files from the configured GitHub
// accounts.
func Fetch(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Fetch == nil {
		return fmt.Errorf("%w: fetch", config.ErrMissingSection)
	}

	return fetch.New(logger, cfg.Fetch.Github).Fetch(ctx)
}
