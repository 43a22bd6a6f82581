package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/query"
	"github.com/chenjiandongx/gitv/internal/render"
)

// Render mounts the configured tables and runs the render pipeline.
func Render(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Render == nil {
		return fmt.Errorf("%w: render", config.ErrMissingSection)
	}

	engine, mountErr := mountEngine(ctx, cfg.Render.Executions)
	if mountErr != nil {
		return mountErr
	}
	defer engine.Close()

	renderer, newErr := render.New(engine, cfg.Render.Display, logger)
	if newErr != nil {
		return newErr
	}

	return renderer.Render(ctx)
}

// mountEngine opens an engine and mounts every execution's CSV tables.
func mountEngine(ctx context.Context, executions []config.Execution) (*query.Engine, error) {
	engine, openErr := query.Open()
	if openErr != nil {
		return nil, openErr
	}

	for _, execution := range executions {
		mountErr := engine.MountDatabase(ctx, execution.DBName, execution.Dir)
		if mountErr != nil {
			_ = engine.Close()

			return nil, mountErr
		}
	}

	return engine, nil
}
