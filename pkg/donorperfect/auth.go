package donorperfect

import "strings"

// =============================================================================
// AUTHENTICATION STRATEGIES
// =============================================================================

// Auth writes the credential fields at the start of a request query string.
type Auth interface {
	writeQuery(b *strings.Builder)
}

// APIKeyAuth authenticates with an API key. The key is written raw: the
// endpoint rejects a percent-encoded key.
type APIKeyAuth struct {
	Key string
}

func (a APIKeyAuth) writeQuery(b *strings.Builder) {
	b.WriteString("apikey=")
	b.WriteString(a.Key)
}

// LoginAuth authenticates with a DonorPerfect user name and password.
type LoginAuth struct {
	Login    string
	Password string
}

func (a LoginAuth) writeQuery(b *strings.Builder) {
	writeField(b, "login", a.Login)
	b.WriteByte('&')
	writeField(b, "pass", a.Password)
}
