package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file used when no positional path is given.
const DefaultPath = "gitv.yaml"

// ErrMissingSection is returned when a mode runs without its config section.
var ErrMissingSection = errors.New("missing config section")

// Load reads, schema-validates, and decodes the config file at path.
func Load(path string) (*Config, error) {
	content, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	validateErr := validateSchema(content)
	if validateErr != nil {
		return nil, validateErr
	}

	var cfg Config

	unmarshalErr := yaml.Unmarshal(content, &cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	return &cfg, nil
}
