// Package langstats produces working-tree language statistics through a
// single gocloc invocation.
package langstats

import (
	"fmt"
	"strings"

	"github.com/hhatto/gocloc"
)

// Stat holds line accounting for one language.
type Stat struct {
	// Lang is the lowercased language name, e.g. "go".
	Lang string

	Code     int
	Comments int
	Blanks   int
}

// Analyze counts code, comment, and blank lines per language under path.
func Analyze(path string) ([]Stat, error) {
	processor := gocloc.NewProcessor(gocloc.NewDefinedLanguages(), gocloc.NewClocOptions())

	result, err := processor.Analyze([]string{path})
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", path, err)
	}

	stats := make([]Stat, 0, len(result.Languages))

	for _, language := range result.Languages {
		if len(language.Files) == 0 {
			continue
		}

		stats = append(stats, Stat{
			Lang:     strings.ToLower(language.Name),
			Code:     int(language.Code),
			Comments: int(language.Comments),
			Blanks:   int(language.Blanks),
		})
	}

	return stats, nil
}
