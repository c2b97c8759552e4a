package donorperfect

import (
	"regexp"
	"strings"
)

// bareNumber is the shape of values written without quotes. Detection is by
// value shape, not by the declared kind, so a numeric-looking string is also
// written bare unless its rule sets Quote.
var bareNumber = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)$`)

var stringEscaper = strings.NewReplacer(`'`, `''`, `"`, ``, `%`, `%25`)

// Encode serializes data into the params value of a procedure call. Entries
// follow the order of rules, never the order of data: each is written as
// @name=value and joined with commas. A name missing from data is NULL.
func Encode(rules Ruleset, data map[string]any) (string, error) {
	var b strings.Builder
	for i, rule := range rules {
		var value any
		if rule.Kind == KindLiteral {
			value = rule.Value
		} else if raw, ok := data[rule.Name]; ok && raw != nil {
			coerced, err := coerce(rule, raw)
			if err != nil {
				return "", err
			}
			value = coerced
		}

		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('@')
		b.WriteString(rule.Name)
		b.WriteByte('=')
		b.WriteString(serialize(value, rule.Quote))
	}
	return b.String(), nil
}

// serialize renders one coerced value in the endpoint's literal syntax.
func serialize(v any, quote bool) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "1"
		}
		return "0"
	case []string:
		items := make([]string, len(x))
		for i, item := range x {
			items[i] = escapeString(strings.TrimSpace(item))
		}
		return "N'" + strings.Join(items, "|") + "'"
	}

	s := strings.TrimSpace(toText(v))
	switch {
	case s == "":
		return "NULL"
	case !quote && bareNumber.MatchString(s):
		return s
	}
	return "'" + escapeString(s) + "'"
}

// escapeString doubles single quotes, strips double quotes and escapes
// percent signs for the remote pattern matcher.
func escapeString(s string) string {
	return stringEscaper.Replace(s)
}
