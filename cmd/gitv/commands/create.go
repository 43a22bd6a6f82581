// Package commands implements the gitv CLI mode runners.
package commands

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/chenjiandongx/gitv/internal/analyzer"
	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/internal/record"
	"github.com/chenjiandongx/gitv/pkg/gitlib"
)

// Create runs the extraction pipeline: synchronize every configured
// repository, analyze it, and persist the emitted records as CSV tables.
func Create(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.Create == nil {
		return fmt.Errorf("%w: create", config.ErrMissingSection)
	}

	action := cfg.Create
	git := gitlib.New(logger)

	group, groupCtx := errgroup.WithContext(ctx)

	for _, database := range action.Databases {
		group.Go(func() error {
			return createDatabase(groupCtx, git, logger, action, database)
		})
	}

	return group.Wait()
}

func createDatabase(ctx context.Context, git *gitlib.Gitter, logger *slog.Logger, action *config.CreateAction, database config.Database) error {
	repos, loadErr := database.LoadRepos()
	if loadErr != nil {
		return loadErr
	}

	syncErr := git.CloneOrPull(ctx, repos, action.DisablePull)
	if syncErr != nil {
		return syncErr
	}

	sink, sinkErr := record.NewSink(database.Dir)
	if sinkErr != nil {
		return sinkErr
	}

	// A sink failure cancels the producers so they never block on a full
	// channel nobody drains.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	records := make(chan record.Record, record.BufferSize)
	sinkDone := make(chan error, 1)

	go func() {
		sinkDone <- sink.Run(records)

		cancel()
	}()

	analyzeErr := analyzer.New(git, logger, action.AuthorMappings).Analyze(ctx, repos, records)

	// Closing the channel after the last producer returns lets the sink
	// perform its final flush and exit.
	close(records)

	persistErr := <-sinkDone

	// A sink I/O failure is the root cause when it cancelled the producers.
	if persistErr != nil {
		return persistErr
	}

	return analyzeErr
}
