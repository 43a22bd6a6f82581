package commands

import (
	"context"
	"fmt"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/shell"
)

// Shell mounts the configured tables and starts the interactive SQL console.
func Shell(ctx context.Context, cfg *config.Config) error {
	if cfg.Shell == nil {
		return fmt.Errorf("%w: shell", config.ErrMissingSection)
	}

	engine, mountErr := mountEngine(ctx, cfg.Shell.Executions)
	if mountErr != nil {
		return mountErr
	}
	defer engine.Close()

	return shell.Run(ctx, engine)
}
