package donorperfect

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Procedure is one predefined remote procedure and its parameter rules.
type Procedure struct {
	Name   string  `yaml:"name"`
	Params Ruleset `yaml:"params"`
}

// Catalog holds procedure definitions keyed by name.
type Catalog struct {
	procs map[string]Procedure
}

// LoadCatalog parses a catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var raw struct {
		Procedures []Procedure `yaml:"procedures"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{procs: make(map[string]Procedure, len(raw.Procedures))}
	for _, p := range raw.Procedures {
		if p.Name == "" {
			return nil, fmt.Errorf("catalog: procedure without a name")
		}
		if _, dup := c.procs[p.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate procedure %q", p.Name)
		}
		if err := p.Params.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: %s: %w", p.Name, err)
		}
		c.procs[p.Name] = p
	}
	return c, nil
}

// LoadCatalogFile parses the catalog document at path.
func LoadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
	defaultCatalogErr  error
)

// DefaultCatalog returns the built-in catalog of DonorPerfect procedures.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = LoadCatalog(bytes.NewReader(defaultCatalogYAML))
	})
	return defaultCatalog, defaultCatalogErr
}

// Lookup returns the procedure registered under name.
func (c *Catalog) Lookup(name string) (Procedure, bool) {
	p, ok := c.procs[name]
	return p, ok
}

// Names returns the procedure names in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.procs))
	for name := range c.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
