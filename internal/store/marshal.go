package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/clafer/internal/ir"
)

// marshalFixture converts a fixture to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON, the same bytes the digest is computed over.
func marshalFixture(f *ir.Fixture) (string, error) {
	data, err := ir.MarshalCanonical(ir.CanonicalMap(f))
	if err != nil {
		return "", fmt.Errorf("marshal fixture: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses canonical JSON TEXT back into plain maps.
// Numbers are kept as json.Number so cardinality bounds survive exactly.
func unmarshalDocument(data string) (map[string]any, error) {
	if data == "" {
		return map[string]any{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("unmarshal fixture: %w", err)
	}
	return doc, nil
}
