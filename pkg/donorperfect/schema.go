package donorperfect

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed schema.yaml
var schemaYAML []byte

// Column describes one column of a DonorPerfect table.
type Column struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Max      int    `yaml:"max,omitempty"`
	Nullable bool   `yaml:"nullable"`
}

// Table is the known column set of a DonorPerfect table.
type Table struct {
	Name    string   `yaml:"name"`
	Columns []Column `yaml:"columns"`
}

// Column returns the column with the given name, ignoring case.
func (t *Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// Schema holds the table definitions bundled with the package.
type Schema struct {
	tables map[string]*Table
}

var (
	schemaOnce sync.Once
	schema     *Schema
	schemaErr  error
)

// DefaultSchema returns the bundled table definitions.
func DefaultSchema() (*Schema, error) {
	schemaOnce.Do(func() {
		var raw struct {
			Tables []*Table `yaml:"tables"`
		}
		if err := yaml.NewDecoder(bytes.NewReader(schemaYAML)).Decode(&raw); err != nil {
			schemaErr = fmt.Errorf("parse schema: %w", err)
			return
		}
		schema = &Schema{tables: make(map[string]*Table, len(raw.Tables))}
		for _, t := range raw.Tables {
			schema.tables[strings.ToUpper(t.Name)] = t
		}
	})
	return schema, schemaErr
}

// Table returns the definition of the named table, ignoring case.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.tables[strings.ToUpper(name)]
	return t, ok
}
