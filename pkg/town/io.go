package town

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Dataset is the on-disk and on-bucket envelope for a batch of towns.
type Dataset struct {
	Version string `json:"version,omitempty"`
	Towns   []Town `json:"towns"`
}

// Decode parses a town dataset. It accepts a Dataset envelope,
// a bare array of towns, or a single town object.
func Decode(data []byte) ([]Town, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty town data")
	}

	if trimmed[0] == '[' {
		var towns []Town
		if err := json.Unmarshal(trimmed, &towns); err != nil {
			return nil, fmt.Errorf("unmarshaling towns: %w", err)
		}
		return towns, nil
	}

	var envelope struct {
		Towns json.RawMessage `json:"towns"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshaling town data: %w", err)
	}
	if len(envelope.Towns) > 0 {
		var ds Dataset
		if err := json.Unmarshal(trimmed, &ds); err != nil {
			return nil, fmt.Errorf("unmarshaling dataset: %w", err)
		}
		return ds.Towns, nil
	}

	var t Town
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return nil, fmt.Errorf("unmarshaling town: %w", err)
	}
	return []Town{t}, nil
}

// Load reads towns from a JSON file on disk.
func Load(path string) ([]Town, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading towns: %w", err)
	}
	towns, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return towns, nil
}

// Save writes towns to disk as an indented Dataset.
func Save(path string, towns []Town) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for towns: %w", err)
	}

	data, err := json.MarshalIndent(Dataset{Towns: towns}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling towns: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing towns: %w", err)
	}

	return nil
}
