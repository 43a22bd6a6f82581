// Package main provides the entry point for the gitv CLI tool.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/chenjiandongx/gitv/cmd/gitv/commands"
	"github.com/chenjiandongx/gitv/internal/config"
	"github.com/chenjiandongx/gitv/pkg/version"
)

var (
	createFlag   bool
	fetchFlag    bool
	renderFlag   bool
	shellFlag    bool
	generateFlag bool
	verbose      bool
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitv [config]",
		Short: "Git repositories analyzing and visualizing tool",
		Long: `gitv analyzes a fleet of git repositories and exposes the derived
history as CSV tables queryable with SQL, printable as tables, or
rendered into interactive charts.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().BoolVarP(&createFlag, "create", "c", false, "run the extraction pipeline")
	rootCmd.Flags().BoolVarP(&fetchFlag, "fetch", "f", false, "populate repo listings from GitHub")
	rootCmd.Flags().BoolVarP(&renderFlag, "render", "r", false, "run the render pipeline")
	rootCmd.Flags().BoolVarP(&shellFlag, "shell", "s", false, "start an interactive SQL shell")
	rootCmd.Flags().BoolVarP(&generateFlag, "generate", "g", false, "write a default config file and exit")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func run(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath
	if len(args) > 0 {
		path = args[0]
	}

	if !createFlag && !fetchFlag && !renderFlag && !shellFlag && !generateFlag {
		return cmd.Help()
	}

	if generateFlag {
		return config.Generate(path)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, loadErr := config.Load(path)
	if loadErr != nil {
		return loadErr
	}

	ctx := cmd.Context()

	if fetchFlag {
		fetchErr := commands.Fetch(ctx, cfg, logger)
		if fetchErr != nil {
			return fetchErr
		}
	}

	if createFlag {
		createErr := commands.Create(ctx, cfg, logger)
		if createErr != nil {
			return createErr
		}
	}

	if renderFlag {
		renderErr := commands.Render(ctx, cfg, logger)
		if renderErr != nil {
			return renderErr
		}
	}

	if shellFlag {
		shellErr := commands.Shell(ctx, cfg)
		if shellErr != nil {
			return shellErr
		}
	}

	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "gitv %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func main() {
	err := newRootCommand().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
