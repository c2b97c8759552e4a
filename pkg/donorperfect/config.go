package donorperfect

import (
	"net/url"
	"time"
	"unicode/utf8"
)

// DefaultBaseURL is the production XML request endpoint.
const DefaultBaseURL = "https://www.donorperfect.net/prod/xmlrequest.asp"

// DefaultAppName identifies this client in the remote audit columns (user_id).
const DefaultAppName = "go-donorperfect"

// MaxAppNameLength is the remote limit on the user_id audit column.
const MaxAppNameLength = 20

// DefaultPageSize is the number of rows fetched per paged query.
const DefaultPageSize = 500

// Config holds DonorPerfect connection configuration.
type Config struct {
	// BaseURL is the XML request endpoint (default: DefaultBaseURL).
	BaseURL string `json:"baseUrl,omitempty"`

	// APIKey authenticates with an API key. Mutually exclusive with Login/Password.
	APIKey string `json:"apiKey,omitempty"`

	// Login and Password authenticate with a DonorPerfect user.
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`

	// AppName is sent as user_id on write procedures (max 20 characters).
	AppName string `json:"appName,omitempty"`

	// PageSize is the number of rows per paged query (default: 500).
	PageSize int `json:"pageSize,omitempty"`

	// RateLimit requests per second against the endpoint.
	RateLimit float64 `json:"rateLimit,omitempty"`

	// RateBurst maximum burst size.
	RateBurst int `json:"rateBurst,omitempty"`

	// Timeout for individual requests.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "baseUrl", Message: "must be an absolute URL"}
	}
	if u.RawQuery != "" {
		return &ValidationError{Field: "baseUrl", Message: "must not carry a query string"}
	}

	switch {
	case c.APIKey != "" && (c.Login != "" || c.Password != ""):
		return &ValidationError{Field: "apiKey", Message: "use either an API key or login/password, not both"}
	case c.APIKey == "" && (c.Login == "" || c.Password == ""):
		return &ValidationError{Field: "apiKey", Message: "an API key or login and password are required"}
	}

	if c.AppName == "" {
		c.AppName = DefaultAppName
	}
	if utf8.RuneCountInString(c.AppName) > MaxAppNameLength {
		return validationErrorf("appName", "%q is longer than %d characters", c.AppName, MaxAppNameLength)
	}

	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return nil
}

// Auth returns the authentication strategy implied by the credentials.
func (c *Config) Auth() Auth {
	if c.APIKey != "" {
		return APIKeyAuth{Key: c.APIKey}
	}
	return LoginAuth{Login: c.Login, Password: c.Password}
}
