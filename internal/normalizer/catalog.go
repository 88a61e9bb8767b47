package normalizer

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog maps raw product names, as issuers write them, to the names used
// in the report: { "HUEVO AA ROJO": "Huevo AA" }. Keys are compared after
// trimming and upper-casing.
type Catalog struct {
	names map[string]string
}

// NewCatalog builds a catalog from a raw-name -> canonical-name map.
func NewCatalog(names map[string]string) *Catalog {
	c := &Catalog{names: make(map[string]string, len(names))}
	for raw, canonical := range names {
		c.names[catalogKey(raw)] = canonical
	}
	return c
}

// LoadCatalog reads a JSON (or YAML) object of raw name -> canonical name.
// A missing file yields a nil catalog, which leaves every name as is.
func LoadCatalog(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open product catalog: %w", err)
	}
	defer f.Close()

	var names map[string]string
	if err := yaml.NewDecoder(f).Decode(&names); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse product catalog %s: %w", path, err)
	}
	return NewCatalog(names), nil
}

// Canonical returns the catalog name for name. Lookup ignores case and
// surrounding spaces. Names the catalog does not list, and any name looked up
// in a nil catalog, come back unchanged.
func (c *Catalog) Canonical(name string) string {
	if c == nil {
		return name
	}
	if canonical, ok := c.names[catalogKey(name)]; ok {
		return canonical
	}
	return name
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.names)
}

func catalogKey(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
