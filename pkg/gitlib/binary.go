package gitlib

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

// Output delimiters for the run primitive.
const (
	// DelimiterLine splits on newlines (log, branch, show-ref).
	DelimiterLine = '\n'

	// DelimiterNul splits on NUL bytes (ls-tree -z).
	DelimiterNul = '\x00'
)

// ErrGitCommand indicates the git binary exited non-zero or could not be spawned.
var ErrGitCommand = errors.New("git command failed")

// Gitter invokes the local git binary against a repository working tree.
// The zero value is not usable; construct with New.
type Gitter struct {
	logger *slog.Logger
}

// New creates a Gitter logging through the given logger.
func New(logger *slog.Logger) *Gitter {
	return &Gitter{logger: logger}
}

// Run executes `git --git-dir=<path>/.git --work-tree=<path> <sub> <args…>`,
// lossy-decodes stdout as UTF-8, splits it on delimiter, and drops empty
// fragments. A non-zero exit surfaces as an error carrying stderr.
func (g *Gitter) Run(ctx context.Context, repo *Repository, sub string, args []string, delimiter byte) ([]string, error) {
	full := make([]string, 0, len(args)+3)
	full = append(full,
		"--git-dir="+filepath.Join(repo.Path, ".git"),
		"--work-tree="+repo.Path,
		sub,
	)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, "git", full...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug("exec git", "sub", sub, "repo", repo.Name, "args", args)

	runErr := cmd.Run()
	if runErr != nil {
		return nil, fmt.Errorf("%w: git %s %q: %v: %s",
			ErrGitCommand, sub, repo.Name, runErr, strings.TrimSpace(stderr.String()))
	}

	raw := strings.ToValidUTF8(stdout.String(), string(utf8Replacement))

	var lines []string

	for _, line := range strings.Split(raw, string(delimiter)) {
		if line != "" {
			lines = append(lines, line)
		}
	}

	return lines, nil
}

// utf8Replacement substitutes invalid byte sequences in git output.
const utf8Replacement = '�'

// Clone fetches the repository remote into its local path. It is a no-op
// when no remote is configured.
func (g *Gitter) Clone(ctx context.Context, repo *Repository) error {
	if repo.Remote == "" {
		return nil
	}

	if parent := filepath.Dir(repo.Path); parent != "" {
		mkdirErr := os.MkdirAll(parent, 0o750)
		if mkdirErr != nil {
			return fmt.Errorf("create clone dir: %w", mkdirErr)
		}
	}

	cmd := exec.CommandContext(ctx, "git", "clone", repo.Remote, repo.Path)

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		return fmt.Errorf("%w: git clone %q: %v: %s",
			ErrGitCommand, repo.Name, runErr, strings.TrimSpace(stderr.String()))
	}

	return nil
}

// Pull updates the repository working tree from its remote.
func (g *Gitter) Pull(ctx context.Context, repo *Repository) error {
	_, err := g.Run(ctx, repo, "pull", nil, DelimiterLine)

	return err
}

// Log runs `git log` with the given flags.
func (g *Gitter) Log(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "log", flags, DelimiterLine)
}

// ShowRef runs `git show-ref` with the given flags.
func (g *Gitter) ShowRef(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "show-ref", flags, DelimiterLine)
}

// LsTree runs `git ls-tree` with the given flags, NUL-delimited.
func (g *Gitter) LsTree(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "ls-tree", flags, DelimiterNul)
}

// RevList runs `git rev-list` with the given flags.
func (g *Gitter) RevList(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "rev-list", flags, DelimiterLine)
}

// Checkout runs `git checkout` with the given flags.
func (g *Gitter) Checkout(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "checkout", flags, DelimiterLine)
}

// Branch runs `git branch` with the given flags.
func (g *Gitter) Branch(ctx context.Context, repo *Repository, flags ...string) ([]string, error) {
	return g.Run(ctx, repo, "branch", flags, DelimiterLine)
}

// CommitTimeRange returns the author timestamps of the first and last
// commits reachable from HEAD.
func (g *Gitter) CommitTimeRange(ctx context.Context, repo *Repository) (first, last int64, err error) {
	lines, logErr := g.Log(ctx, repo, "--pretty=format:%at", "HEAD")
	if logErr != nil {
		return 0, 0, logErr
	}

	if len(lines) == 0 {
		return 0, 0, fmt.Errorf("%w: no commits in %q", ErrGitCommand, repo.Name)
	}

	last, _ = strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	first, _ = strconv.ParseInt(strings.TrimSpace(lines[len(lines)-1]), 10, 64)

	return first, last, nil
}

// CloneOrPull synchronizes every repository concurrently: existing paths are
// pulled (unless disablePull), missing paths are cloned. Progress is
// reported as [n/total] lines.
func (g *Gitter) CloneOrPull(ctx context.Context, repos []Repository, disablePull bool) error {
	var (
		group, groupCtx = errgroup.WithContext(ctx)
		counter         atomic.Int64
	)

	total := len(repos)

	for _, repo := range repos {
		group.Go(func() error {
			now := time.Now()

			if _, statErr := os.Stat(repo.Path); statErr == nil {
				if disablePull {
					return nil
				}

				pullErr := g.Pull(groupCtx, &repo)
				if pullErr != nil {
					return pullErr
				}

				n := counter.Add(1)
				fmt.Printf("%s git pull '%s' => elapsed %s\n",
					color.GreenString("[%d/%d]", n, total), repo.Name, time.Since(now))

				return nil
			}

			cloneErr := g.Clone(groupCtx, &repo)
			if cloneErr != nil {
				return cloneErr
			}

			n := counter.Add(1)
			fmt.Printf("%s git clone '%s' => elapsed %s\n",
				color.GreenString("[%d/%d]", n, total), repo.Name, time.Since(now))

			return nil
		})
	}

	return group.Wait()
}
