// Package fetch populates repository listing files from the GitHub API.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/pkg/gitlib"
)

// listPageSize is the GitHub page size; a shorter page ends pagination.
const listPageSize = 100

// Fetcher retrieves repository listings and writes them as YAML database
// files consumable by the create pipeline.
type Fetcher struct {
	logger  *slog.Logger
	configs []config.Github

	// newClient builds the GitHub client; swapped by tests.
	newClient func(token string) *github.Client
}

// New creates a fetcher for the given GitHub listing configs.
func New(logger *slog.Logger, configs []config.Github) *Fetcher {
	return &Fetcher{
		logger:  logger,
		configs: configs,
		newClient: func(token string) *github.Client {
			return github.NewClient(nil).WithAuthToken(token)
		},
	}
}

// Fetch retrieves every configured listing concurrently and persists each
// to its destination file.
func (f *Fetcher) Fetch(ctx context.Context) error {
	now := time.Now()

	group, groupCtx := errgroup.WithContext(ctx)

	for _, cfg := range f.configs {
		group.Go(func() error {
			repos, listErr := f.authenticatedRepos(groupCtx, cfg)
			if listErr != nil {
				return listErr
			}

			saveErr := saveRepos(cfg.Destination, repos)
			if saveErr != nil {
				return saveErr
			}

			f.logger.Info("save database file", "destination", cfg.Destination, "repos", len(repos))

			return nil
		})
	}

	waitErr := group.Wait()
	if waitErr != nil {
		return waitErr
	}

	f.logger.Info("all github repos fetched", "elapsed", time.Since(now))

	return nil
}

func (f *Fetcher) authenticatedRepos(ctx context.Context, cfg config.Github) ([]gitlib.Repository, error) {
	client := f.newClient(cfg.Token)

	var repos []gitlib.Repository

	page := 1
	for {
		f.logger.Info("fetching github repos", "page", page)

		listed, _, listErr := client.Repositories.ListByAuthenticatedUser(ctx,
			&github.RepositoryListByAuthenticatedUserOptions{
				Visibility:  cfg.Visibility,
				Affiliation: cfg.Affiliation,
				ListOptions: github.ListOptions{PerPage: listPageSize, Page: page},
			})
		if listErr != nil {
			return nil, fmt.Errorf("list github repos: %w", listErr)
		}

		for _, repo := range listed {
			candidate := gitlib.Repository{
				Name:            repo.GetFullName(),
				Branch:          repo.GetDefaultBranch(),
				Remote:          repo.GetCloneURL(),
				Path:            filepath.Join(cfg.CloneDir, repo.GetFullName()),
				ForksCount:      repo.GetForksCount(),
				StargazersCount: repo.GetStargazersCount(),
			}

			if Excluded(cfg, candidate.Name) {
				f.logger.Info("skip excluded repo", "repo", candidate.Name)

				continue
			}

			repos = append(repos, candidate)
		}

		if len(listed) < listPageSize {
			break
		}

		page++
	}

	return repos, nil
}

// Excluded reports whether a repository full name matches any configured
// exclusion prefix.
func Excluded(cfg config.Github, fullName string) bool {
	for _, excluded := range cfg.ExcludeOrgs {
		if strings.HasPrefix(fullName, excluded) {
			return true
		}
	}

	for _, excluded := range cfg.ExcludeRepos {
		if strings.HasPrefix(fullName, excluded) {
			return true
		}
	}

	return false
}

func saveRepos(destination string, repos []gitlib.Repository) error {
	if dir := filepath.Dir(destination); dir != "" {
		mkdirErr := os.MkdirAll(dir, 0o750)
		if mkdirErr != nil {
			return fmt.Errorf("create destination dir: %w", mkdirErr)
		}
	}

	content, marshalErr := yaml.Marshal(repos)
	if marshalErr != nil {
		return fmt.Errorf("marshal repos: %w", marshalErr)
	}

	writeErr := os.WriteFile(destination, content, 0o600)
	if writeErr != nil {
		return fmt.Errorf("write repos file: %w", writeErr)
	}

	return nil
}
