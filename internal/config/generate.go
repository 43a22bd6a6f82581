package config

import (
	_ "embed"
	"fmt"
	"os"
)

//go:embed assets/gitv.example.yaml
var exampleConfig []byte

// Generate writes the commented example config to path.
func Generate(path string) error {
	writeErr := os.WriteFile(path, exampleConfig, 0o600)
	if writeErr != nil {
		return fmt.Errorf("write config: %w", writeErr)
	}

	return nil
}
