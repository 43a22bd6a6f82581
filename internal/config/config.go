// Package config loads, validates, and generates the gitv YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chenjiandongx/gitv/pkg/gitlib"
)

// Config is the single YAML document driving every mode. All sections are
// optional; a mode requires its own section to be present.
type Config struct {
	Create *CreateAction `yaml:"create,omitempty"`
	Fetch  *FetchAction  `yaml:"fetch,omitempty"`
	Shell  *ShellAction  `yaml:"shell,omitempty"`
	Render *RenderAction `yaml:"render,omitempty"`
}

// CreateAction configures the extraction pipeline.
type CreateAction struct {
	AuthorMappings []gitlib.AuthorMapping `yaml:"author_mappings,omitempty"`
	Databases      []Database             `yaml:"databases"`
	DisablePull    bool                   `yaml:"disable_pull,omitempty"`
}

// Database names one output directory and its repository sources:
// inline descriptors and/or YAML listing files (as written by fetch).
type Database struct {
	Dir   string              `yaml:"dir"`
	Files []string            `yaml:"files,omitempty"`
	Repos []gitlib.Repository `yaml:"repos,omitempty"`
}

// LoadRepos resolves every repository of the database: inline descriptors
// first, then each listing file.
func (d Database) LoadRepos() ([]gitlib.Repository, error) {
	repos := make([]gitlib.Repository, 0, len(d.Repos))
	repos = append(repos, d.Repos...)

	for _, file := range d.Files {
		content, readErr := os.ReadFile(file)
		if readErr != nil {
			return nil, fmt.Errorf("read repos file: %w", readErr)
		}

		var listed []gitlib.Repository

		unmarshalErr := yaml.Unmarshal(content, &listed)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("unmarshal repos file %s: %w", file, unmarshalErr)
		}

		repos = append(repos, listed...)
	}

	return repos, nil
}

// FetchAction configures repository listing retrieval.
type FetchAction struct {
	Github []Github `yaml:"github"`
}

// Github configures one authenticated-user listing fetch.
type Github struct {
	CloneDir     string   `yaml:"clone_dir"`
	Destination  string   `yaml:"destination"`
	Token        string   `yaml:"token"`
	ExcludeOrgs  []string `yaml:"exclude_orgs,omitempty"`
	ExcludeRepos []string `yaml:"exclude_repos,omitempty"`
	Visibility   string   `yaml:"visibility,omitempty"`
	Affiliation  string   `yaml:"affiliation,omitempty"`
}

// Execution mounts the CSV tables of one database directory under a name.
type Execution struct {
	DBName string `yaml:"db_name"`
	Dir    string `yaml:"dir"`
}

// ShellAction configures the interactive SQL shell.
type ShellAction struct {
	Executions []Execution `yaml:"executions"`
}

// RenderAction configures the render pipeline.
type RenderAction struct {
	Executions []Execution `yaml:"executions"`
	Display    Display     `yaml:"display"`
}

// Display controls render output: destination directory, mode, chart
// dependencies, palette/function overrides, and the query list.
type Display struct {
	Destination     string              `yaml:"destination"`
	RenderMode      string              `yaml:"render_mode"`
	RenderAPI       string              `yaml:"render_api,omitempty"`
	BackgroundColor string              `yaml:"background_color,omitempty"`
	Format          string              `yaml:"format,omitempty"`
	Dependency      *Dependency         `yaml:"dependency,omitempty"`
	Colors          map[string][]string `yaml:"colors,omitempty"`
	Functions       map[string]string   `yaml:"functions,omitempty"`
	Queries         []Query             `yaml:"queries"`
}

// Dependency overrides the chart asset CDN URLs.
type Dependency struct {
	ChartJS    string `yaml:"chartjs,omitempty"`
	Stacked100 string `yaml:"stacked100,omitempty"`
	Datalabels string `yaml:"datalabels,omitempty"`
}

// Query is one render unit: SQL statements plus an optional chart bound to
// their results.
type Query struct {
	Statements []string     `yaml:"statements"`
	Chart      *ChartConfig `yaml:"chart,omitempty"`
}

// ChartConfig is a declarative Chart.js chart. Data and Options are
// user-shaped dynamic trees walked by the renderer; Data must be a mapping.
type ChartConfig struct {
	Type    string         `yaml:"type"`
	Width   int            `yaml:"width,omitempty"`
	Height  int            `yaml:"height,omitempty"`
	Name    string         `yaml:"name"`
	Options map[string]any `yaml:"options,omitempty"`
	Data    any            `yaml:"data"`
}
