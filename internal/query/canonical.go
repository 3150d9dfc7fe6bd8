package query

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarshalCanonical renders a descriptor as stable JSON: object keys
// sorted, two-space indentation, no HTML escaping. Output is
// deterministic for a given descriptor, which makes it suitable for
// golden comparisons and diffable CLI output.
func MarshalCanonical(d Descriptor) ([]byte, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling descriptor: %w", err)
	}

	// Round-trip through a generic value so the encoder emits map keys
	// in sorted order regardless of struct field order.
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("normalizing descriptor JSON: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding canonical JSON: %w", err)
	}
	return buf.Bytes(), nil
}
