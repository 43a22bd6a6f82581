package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed assets/schema.json
var schemaJSON []byte

// validateSchema checks the raw YAML document against the embedded JSON
// schema before it is decoded into typed structs.
func validateSchema(content []byte) error {
	var tree any

	unmarshalErr := yaml.Unmarshal(content, &tree)
	if unmarshalErr != nil {
		return fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	if tree == nil {
		return nil
	}

	document, marshalErr := json.Marshal(normalizeTree(tree))
	if marshalErr != nil {
		return fmt.Errorf("convert config to json: %w", marshalErr)
	}

	result, validateErr := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewBytesLoader(document),
	)
	if validateErr != nil {
		return fmt.Errorf("validate config: %w", validateErr)
	}

	if result.Valid() {
		return nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}

	return fmt.Errorf("invalid config: %s", strings.Join(violations, "; "))
}

// normalizeTree rewrites yaml.v3 map keys into strings so the tree is
// JSON-encodable.
func normalizeTree(node any) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = normalizeTree(value)
		}

		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[fmt.Sprint(key)] = normalizeTree(value)
		}

		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = normalizeTree(value)
		}

		return out
	default:
		return v
	}
}
