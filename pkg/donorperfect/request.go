package donorperfect

import (
	"net/url"
	"strings"
)

// MaxURLLength is the longest URL the endpoint accepts, base URL included.
const MaxURLLength = 8000

// Request is an assembled call, ready for the transport.
type Request struct {
	// Query is the encoded query string without the leading '?'.
	Query string
	// URL is the base URL joined with Query.
	URL string
}

// BuildRequest assembles the query string for one call: credentials, then
// action, then params when non-empty. Everything but an API key is percent
// encoded per RFC 3986 and every literal '+' is then written as %2B.
// Requests longer than MaxURLLength fail before anything is sent.
func BuildRequest(baseURL string, auth Auth, action, params string) (*Request, error) {
	var b strings.Builder
	auth.writeQuery(&b)
	b.WriteByte('&')
	writeField(&b, "action", action)
	if params != "" {
		b.WriteByte('&')
		writeField(&b, "params", params)
	}

	query := strings.ReplaceAll(b.String(), "+", "%2B")
	full := baseURL + "?" + query
	if len(full) > MaxURLLength {
		return nil, &RequestTooLargeError{Length: len(full), Limit: MaxURLLength}
	}
	return &Request{Query: query, URL: full}, nil
}

func writeField(b *strings.Builder, name, value string) {
	b.WriteString(rawURLEncode(name))
	b.WriteByte('=')
	b.WriteString(rawURLEncode(value))
}

// rawURLEncode escapes s for a query component with spaces as %20.
func rawURLEncode(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// NormalizeSQL collapses runs of whitespace outside quoted literals into a
// single space and trims the result. A single or double quote toggles the
// quoted state; a doubled quote toggles twice and so stays balanced.
func NormalizeSQL(sql string) string {
	var (
		b       strings.Builder
		quoted  bool
		pending bool
	)
	b.Grow(len(sql))
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if !quoted && isSQLSpace(c) {
			pending = true
			continue
		}
		if pending {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
		}
		if c == '\'' || c == '"' {
			quoted = !quoted
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isSQLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
