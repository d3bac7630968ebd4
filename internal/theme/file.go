package theme

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"era-photobooth/internal/apperr"
)

type catalogFile struct {
	Themes []Theme `yaml:"themes"`
}

// LoadFile reads a YAML catalog. Unknown keys are rejected so that a typo in
// a pool name cannot silently produce an empty pool.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Configuration("theme.LoadFile", "read %s: %w", path, err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return nil, apperr.Configuration("theme.Parse", "decode catalog: %w", err)
	}
	c, err := NewCatalog(f.Themes)
	if err != nil {
		return nil, fmt.Errorf("catalog file: %w", err)
	}
	return c, nil
}
