package render

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed assets/colors.yaml
var builtinColors []byte

//go:embed assets/functions.yaml
var builtinFunctions []byte

// randomPalette is the placeholder name selecting a palette uniformly at
// random.
const randomPalette = "random"

// loadPalettes merges the built-in palette library with user overrides.
func loadPalettes(overrides map[string][]string) (map[string][]string, error) {
	palettes := make(map[string][]string)

	unmarshalErr := yaml.Unmarshal(builtinColors, &palettes)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal builtin palettes: %w", unmarshalErr)
	}

	for name, colors := range overrides {
		palettes[name] = colors
	}

	return palettes, nil
}

// loadFunctions merges the built-in formatter library with user overrides.
func loadFunctions(overrides map[string]string) (map[string]string, error) {
	functions := make(map[string]string)

	unmarshalErr := yaml.Unmarshal(builtinFunctions, &functions)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal builtin functions: %w", unmarshalErr)
	}

	for name, literal := range overrides {
		functions[name] = literal
	}

	return functions, nil
}

// paletteNames returns the palette names in stable order so a seeded
// random pick is deterministic.
func paletteNames(palettes map[string][]string) []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
