package alias

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the top-level structure of an alias override YAML file.
//
// Example:
//
//	aliases:
//	  dal: [daal, dahl]
//	  masala dosa: [masala dosha]
type File struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadFile reads an alias override file from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("alias: open %q: %w", path, err)
	}
	defer f.Close()

	af, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("alias: parse %q: %w", path, err)
	}
	return af, nil
}

// LoadFromReader parses alias override YAML from r. The caller is
// responsible for closing r.
func LoadFromReader(r io.Reader) (*File, error) {
	var af File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&af); err != nil && err != io.EOF {
		return nil, fmt.Errorf("alias: decode yaml: %w", err)
	}
	return &af, nil
}

// WithOverrides returns the default table merged with the aliases in the file
// at path. An empty path returns [Default] unchanged.
func WithOverrides(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	af, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Default().Merge(af.Aliases), nil
}
