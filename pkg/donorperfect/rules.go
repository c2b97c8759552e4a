package donorperfect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind is the semantic type of a procedure parameter.
type Kind int

const (
	KindString Kind = iota + 1
	KindNumeric
	KindMoney
	KindDate
	KindDateTime
	KindBool
	KindArray
	KindLiteral
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindNumeric:  "numeric",
	KindMoney:    "money",
	KindDate:     "date",
	KindDateTime: "datetime",
	KindBool:     "bool",
	KindArray:    "array",
	KindLiteral:  "literal",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a catalog kind name to a Kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown parameter kind %q", s)
}

// UnmarshalYAML decodes a kind from its name.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*k = parsed
	return nil
}

// MarshalYAML encodes a kind as its name.
func (k Kind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Rule describes how one named parameter is coerced and serialized.
type Rule struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	// MaxLength bounds KindString values, in characters. Zero means unbounded.
	MaxLength int `yaml:"max,omitempty"`

	// Value is the fixed value of a KindLiteral rule; nil serializes as NULL.
	// String values may reference ${app_name}.
	Value any `yaml:"value,omitempty"`

	// Quote forces a quoted string literal even when the value looks numeric.
	Quote bool `yaml:"quote,omitempty"`
}

// Ruleset is the ordered parameter list of one remote procedure. Its order is
// the order parameters appear on the wire.
type Ruleset []Rule

// Validate checks that every rule is well formed and names are unique.
func (rs Ruleset) Validate() error {
	seen := make(map[string]bool, len(rs))
	for i, r := range rs {
		if r.Name == "" {
			return fmt.Errorf("rule %d: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("rule %d: duplicate parameter %q", i, r.Name)
		}
		seen[r.Name] = true
		if _, ok := kindNames[r.Kind]; !ok {
			return fmt.Errorf("rule %q: kind is required", r.Name)
		}
		if r.MaxLength < 0 {
			return fmt.Errorf("rule %q: max must not be negative", r.Name)
		}
		if r.Value != nil && r.Kind != KindLiteral {
			return fmt.Errorf("rule %q: only literal rules carry a value", r.Name)
		}
	}
	return nil
}

// Names returns the parameter names in wire order.
func (rs Ruleset) Names() []string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = r.Name
	}
	return names
}

// Expand returns a copy of rs with ${var} references in string literal values
// replaced from vars. Unknown variables expand to the empty string.
func (rs Ruleset) Expand(vars map[string]string) Ruleset {
	out := make(Ruleset, len(rs))
	copy(out, rs)
	for i, r := range out {
		if s, ok := r.Value.(string); ok && r.Kind == KindLiteral {
			out[i].Value = os.Expand(s, func(key string) string { return vars[key] })
		}
	}
	return out
}
