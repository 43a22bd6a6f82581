// Package analyzer orchestrates per-repository history extraction and emits
// typed records on a bounded channel consumed by the CSV sink.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"

	"github.com/chenjiandongx/gitv/internal/langstats"
	"github.com/chenjiandongx/gitv/internal/record"
	"github.com/chenjiandongx/gitv/pkg/gitlib"
)

// tagRefPrefix is stripped from `git show-ref --tags` entries.
const tagRefPrefix = "refs/tags/"

// showRefFieldCount is the field count of a show-ref line: hash and ref name.
const showRefFieldCount = 2

// Analyzer extracts commits, tags, snapshots, and popularity counters from
// a set of repositories.
type Analyzer struct {
	git      *gitlib.Gitter
	logger   *slog.Logger
	mappings []gitlib.AuthorMapping
}

// New creates an analyzer using the given git driver and author mappings.
func New(git *gitlib.Gitter, logger *slog.Logger, mappings []gitlib.AuthorMapping) *Analyzer {
	return &Analyzer{
		git:      git,
		logger:   logger,
		mappings: mappings,
	}
}

// Analyze walks every repository concurrently and publishes records to out.
// The caller owns out and closes it after Analyze returns.
func (a *Analyzer) Analyze(ctx context.Context, repos []gitlib.Repository, out chan<- record.Record) error {
	var (
		group, groupCtx = errgroup.WithContext(ctx)
		counter         atomic.Int64
	)

	total := len(repos)

	for _, repo := range repos {
		group.Go(func() error {
			now := time.Now()

			analyzeErr := a.analyzeRepo(groupCtx, &repo, out)
			if analyzeErr != nil {
				return analyzeErr
			}

			n := counter.Add(1)
			fmt.Printf("%s git analyze '%s' => elapsed %s\n",
				color.GreenString("[%d/%d]", n, total), repo.Name, time.Since(now))

			return nil
		})
	}

	return group.Wait()
}

func (a *Analyzer) analyzeRepo(ctx context.Context, repo *gitlib.Repository, out chan<- record.Record) error {
	if repo.Branch != "" {
		_, checkoutErr := a.git.Checkout(ctx, repo, repo.Branch)
		if checkoutErr != nil {
			return checkoutErr
		}
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error { return a.emitCommits(groupCtx, repo, out) })
	group.Go(func() error { return a.emitTags(groupCtx, repo, out) })
	group.Go(func() error { return a.emitSnapshot(groupCtx, repo, out) })
	group.Go(func() error { return emit(groupCtx, out, record.Active{RepoName: repo.Name, Forks: repo.ForksCount, Stars: repo.StargazersCount}) })

	return group.Wait()
}

// emitCommits partitions history into time windows and extracts each window
// concurrently. Commits are deduplicated by hash across windows because
// --since/--before bounds overlap on author-date edges.
func (a *Analyzer) emitCommits(ctx context.Context, repo *gitlib.Repository, out chan<- record.Record) error {
	first, last, rangeErr := a.git.CommitTimeRange(ctx, repo)
	if rangeErr != nil {
		return rangeErr
	}

	ranges := gitlib.CalcRange(gitlib.CommitWindowStep, first, last)

	var (
		group, groupCtx = errgroup.WithContext(ctx)
		mutex           sync.Mutex
		seen            = make(map[string]struct{})
	)

	for _, window := range ranges {
		group.Go(func() error {
			commits, windowErr := a.windowCommits(groupCtx, repo, window)
			if windowErr != nil {
				return windowErr
			}

			for _, commit := range commits {
				mutex.Lock()

				_, dup := seen[commit.Hash]
				if !dup {
					seen[commit.Hash] = struct{}{}
				}

				mutex.Unlock()

				if dup {
					continue
				}

				emitErr := a.emitCommit(groupCtx, repo, commit, out)
				if emitErr != nil {
					return emitErr
				}
			}

			return nil
		})
	}

	return group.Wait()
}

func (a *Analyzer) windowCommits(ctx context.Context, repo *gitlib.Repository, window gitlib.TimeRange) ([]*gitlib.Commit, error) {
	flags := []string{"--no-merges", "--date=rfc", gitlib.LogPrettyFormat, "--numstat"}
	if !window.IsUnbounded() {
		flags = append(flags, "--since="+window.Since, "--before="+window.Before)
	}

	flags = append(flags, "HEAD")

	lines, logErr := a.git.Log(ctx, repo, flags...)
	if logErr != nil {
		return nil, logErr
	}

	var commits []*gitlib.Commit

	for _, block := range gitlib.SplitCommitBlocks(lines) {
		commit, parseErr := gitlib.ParseCommit(block, a.mappings)
		if parseErr != nil {
			// A malformed commit is dropped; extraction continues.
			a.logger.Warn("skip unparseable commit", "repo", repo.Name, "err", parseErr)

			continue
		}

		commit.Repo = repo.Name
		commits = append(commits, commit)
	}

	return commits, nil
}

func (a *Analyzer) emitCommit(ctx context.Context, repo *gitlib.Repository, commit *gitlib.Commit, out chan<- record.Record) error {
	common := record.Commit{
		RepoName:     repo.Name,
		Hash:         commit.Hash,
		Branch:       repo.Branch,
		Datetime:     gitlib.ToRFC3339(commit.Datetime),
		AuthorName:   commit.Author.Name,
		AuthorEmail:  commit.Author.Email,
		AuthorDomain: commit.Author.Domain(),
	}

	emitErr := emit(ctx, out, common)
	if emitErr != nil {
		return emitErr
	}

	for _, change := range commit.Changes {
		emitErr = emit(ctx, out, record.Change{
			Commit:    common,
			Ext:       change.Ext,
			Insertion: change.Insertion,
			Deletion:  change.Deletion,
		})
		if emitErr != nil {
			return emitErr
		}
	}

	return nil
}

func (a *Analyzer) emitTags(ctx context.Context, repo *gitlib.Repository, out chan<- record.Record) error {
	lines, refErr := a.git.ShowRef(ctx, repo, "--tags")
	if refErr != nil {
		// Repositories without tags make show-ref exit non-zero; nothing to emit.
		return nil
	}

	for _, line := range lines {
		fields := strings.SplitN(line, " ", showRefFieldCount)
		if len(fields) < showRefFieldCount {
			continue
		}

		hash := fields[0]
		tag := strings.TrimPrefix(fields[1], tagRefPrefix)

		logLines, logErr := a.git.Log(ctx, repo, "--date=rfc", gitlib.LogPrettyFormat, "-n", "1", hash)
		if logErr != nil {
			return logErr
		}

		if len(logLines) == 0 {
			continue
		}

		commit, parseErr := gitlib.ParseCommit(logLines[:1], a.mappings)
		if parseErr != nil {
			a.logger.Warn("skip unparseable tag commit", "repo", repo.Name, "tag", tag, "err", parseErr)

			continue
		}

		datetime := gitlib.ToRFC3339(commit.Datetime)

		emitErr := emit(ctx, out, record.Tag{
			RepoName: repo.Name,
			Branch:   repo.Branch,
			Datetime: datetime,
			Tag:      tag,
		})
		if emitErr != nil {
			return emitErr
		}

		statErr := a.emitTagStats(ctx, repo, hash, tag, datetime, out)
		if statErr != nil {
			return statErr
		}
	}

	return nil
}

// emitTagStats emits per-extension blob size and file counters for the
// tree a tag points at.
func (a *Analyzer) emitTagStats(ctx context.Context, repo *gitlib.Repository, hash, tag, datetime string, out chan<- record.Record) error {
	lines, treeErr := a.git.LsTree(ctx, repo, "-r", "-l", "-z", hash)
	if treeErr != nil {
		return treeErr
	}

	for _, stat := range gitlib.ParseFileExtStats(lines) {
		emitErr := emit(ctx, out, record.TagStat{
			RepoName: repo.Name,
			Branch:   repo.Branch,
			Datetime: datetime,
			Tag:      tag,
			Ext:      stat.Ext,
			Size:     stat.Size,
			Files:    stat.Files,
		})
		if emitErr != nil {
			return emitErr
		}
	}

	return nil
}

func (a *Analyzer) emitSnapshot(ctx context.Context, repo *gitlib.Repository, out chan<- record.Record) error {
	lines, logErr := a.git.Log(ctx, repo, "--date=rfc", gitlib.LogPrettyFormat, "-n", "1", "HEAD")
	if logErr != nil {
		return logErr
	}

	if len(lines) == 0 {
		return nil
	}

	commit, parseErr := gitlib.ParseCommit(lines[:1], nil)
	if parseErr != nil {
		return parseErr
	}

	stats, statsErr := langstats.Analyze(repo.Path)
	if statsErr != nil {
		return statsErr
	}

	datetime := gitlib.ToRFC3339(commit.Datetime)

	for _, stat := range stats {
		emitErr := emit(ctx, out, record.Snapshot{
			RepoName: repo.Name,
			Branch:   repo.Branch,
			Datetime: datetime,
			Ext:      stat.Lang,
			Code:     stat.Code,
			Comments: stat.Comments,
			Blanks:   stat.Blanks,
		})
		if emitErr != nil {
			return emitErr
		}
	}

	return nil
}

func emit(ctx context.Context, out chan<- record.Record, rec record.Record) error {
	select {
	case out <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
