// Package shell provides the interactive SQL console over a mounted engine.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/chzyer/readline"

	"github.com/chenjiandongx/gitv/internal/query"
	"github.com/chenjiandongx/gitv/internal/render"
)

// historyFile is the per-user readline history file name.
const historyFile = ".gitx"

// prompt is the console prompt.
const prompt = "gitv(sql)> "

// HistoryPath returns the readline history location in the user's home
// directory, falling back to the working directory when home is unknown.
func HistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return historyFile
	}

	return filepath.Join(home, historyFile)
}

// Run reads statements until exit/quit/q or EOF, executing each against
// the engine. SQL errors are printed and the loop continues.
func Run(ctx context.Context, engine *query.Engine) error {
	line, initErr := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     HistoryPath(),
		InterruptPrompt: "^C",
	})
	if initErr != nil {
		return fmt.Errorf("init readline: %w", initErr)
	}
	defer line.Close()

	for {
		input, readErr := line.Readline()
		if errors.Is(readErr, readline.ErrInterrupt) || errors.Is(readErr, io.EOF) {
			fmt.Println("Good bye!")

			return nil
		}

		if readErr != nil {
			return fmt.Errorf("read line: %w", readErr)
		}

		switch input {
		case "":
			continue
		case "exit", "quit", "q":
			fmt.Println("Good bye!")

			return nil
		}

		now := time.Now()

		result, selectErr := engine.Select(ctx, input)
		if selectErr != nil {
			fmt.Printf("Error: %v\n", selectErr)

			continue
		}

		render.RenderTable(os.Stdout, result)
		fmt.Printf("Query OK, elapsed: %s\n", time.Since(now))
	}
}
