// Package hierarchy defines the business hierarchy forest the layout engine
// consumes: projects grouping articles, articles breaking down into
// assemblies, work packages, and leaf operations.
//
// The package owns the ingestion boundary. Forests arrive as JSON (typically
// exported from a planning system), are validated once (unique IDs, no shared
// children, no cycles), and are treated as immutable from then on. The layout
// engine in pkg/layout builds its own mutable working set per render pass and
// never mutates hierarchy nodes.
package hierarchy

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Forest Serialization API
// =============================================================================

// MarshalForest converts a forest to indented JSON bytes.
// Tree and child order is preserved, so output is deterministic.
func MarshalForest(f Forest) ([]byte, error) {
	return json.MarshalIndent(f, "", "  ")
}

// WriteForest writes a forest as JSON to an io.Writer.
func WriteForest(f Forest, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteForestFile writes a forest to a JSON file.
// The file is created with 0644 permissions.
func WriteForestFile(f Forest, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()
	return WriteForest(f, file)
}

// ReadForest decodes a JSON forest from an io.Reader and validates it.
// Returns validation errors for malformed forests (duplicate IDs, cycles).
func ReadForest(r io.Reader) (Forest, error) {
	var f Forest
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Forest{}, fmt.Errorf("decode: %w", err)
	}
	if err := Validate(f); err != nil {
		return Forest{}, err
	}
	return f, nil
}

// ReadForestFile reads a JSON file and returns the decoded, validated forest.
func ReadForestFile(path string) (Forest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Forest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	return ReadForest(file)
}
