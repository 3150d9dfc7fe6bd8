package cli

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/whx4/wxc/internal/contract"
)

// loadFilters reads a filters file. YAML is a superset of JSON, so the
// file may be either.
func loadFilters(path string) (contract.Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return contract.Filters{}, fmt.Errorf("reading filters file: %w", err)
	}

	var f contract.Filters
	if err := yaml.Unmarshal(data, &f); err != nil {
		return contract.Filters{}, fmt.Errorf("parsing filters file %s: %w", path, err)
	}
	return normalizeYAMLShapes(f), nil
}

// normalizeYAMLShapes rewrites yaml.v3 decoding artifacts into the
// loose shapes the contract normalizer accepts: map keys come back as
// map[string]any already, but nested any values need no conversion
// beyond that, so only the Tags map needs its value types checked.
func normalizeYAMLShapes(f contract.Filters) contract.Filters {
	if raw, ok := f.Scope.(map[any]any); ok {
		f.Scope = stringKeyed(raw)
	}
	if raw, ok := f.Meta.(map[any]any); ok {
		f.Meta = stringKeyed(raw)
	}
	return f
}

func stringKeyed(m map[any]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[fmt.Sprintf("%v", k)] = v
	}
	return out
}
