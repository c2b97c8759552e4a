package donorperfect

import (
	"errors"
	"strings"
	"testing"
)

const testBaseURL = "https://www.donorperfect.net/prod/xmlrequest.asp"

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name   string
		auth   Auth
		action string
		params string
		want   string
	}{
		{
			name:   "api key is raw",
			auth:   APIKeyAuth{Key: "ab+c/d=="},
			action: "dp_gifts",
			params: "@donor_id=12",
			want:   "apikey=ab+c/d==&action=dp_gifts&params=%40donor_id%3D12",
		},
		{
			name:   "login is encoded",
			auth:   LoginAuth{Login: "jane doe", Password: "p&ss+1"},
			action: "dp_gifts",
			params: "@donor_id=12",
			want:   "login=jane%20doe&pass=p%26ss%2B1&action=dp_gifts&params=%40donor_id%3D12",
		},
		{
			name:   "sql action without params",
			auth:   APIKeyAuth{Key: "k"},
			action: "SELECT TOP 1 * FROM DP WHERE last_name = 'a+b'",
			want:   "apikey=k&action=SELECT%20TOP%201%20%2A%20FROM%20DP%20WHERE%20last_name%20%3D%20%27a%2Bb%27",
		},
		{
			name:   "escaped percent survives",
			auth:   APIKeyAuth{Key: "k"},
			action: "dp_savedonor",
			params: "@narrative='50%25'",
			want:   "apikey=k&action=dp_savedonor&params=%40narrative%3D%2750%2525%27",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := BuildRequest(testBaseURL, tt.auth, tt.action, tt.params)
			if err != nil {
				t.Fatalf("BuildRequest() error = %v", err)
			}
			want := strings.ReplaceAll(tt.want, "+", "%2B")
			if req.Query != want {
				t.Errorf("Query =\n%s\nwant\n%s", req.Query, want)
			}
			if req.URL != testBaseURL+"?"+want {
				t.Errorf("URL = %s", req.URL)
			}
		})
	}
}

func TestBuildRequest_LengthLimit(t *testing.T) {
	auth := APIKeyAuth{Key: "k"}
	prefix := len(testBaseURL + "?apikey=k&action=")

	req, err := BuildRequest(testBaseURL, auth, strings.Repeat("a", MaxURLLength-prefix), "")
	if err != nil {
		t.Fatalf("BuildRequest() at limit error = %v", err)
	}
	if len(req.URL) != MaxURLLength {
		t.Fatalf("URL length = %d, want %d", len(req.URL), MaxURLLength)
	}

	_, err = BuildRequest(testBaseURL, auth, strings.Repeat("a", MaxURLLength-prefix+1), "")
	if !errors.Is(err, ErrRequestTooLarge) {
		t.Fatalf("BuildRequest() over limit error = %v, want ErrRequestTooLarge", err)
	}
	var tooLarge *RequestTooLargeError
	if !errors.As(err, &tooLarge) || tooLarge.Length != MaxURLLength+1 {
		t.Errorf("error = %#v", err)
	}
}

func TestBuildRequest_LengthCountsEncoding(t *testing.T) {
	// Each space costs three characters once encoded.
	action := strings.Repeat(" ", 2700)
	if _, err := BuildRequest(testBaseURL, APIKeyAuth{Key: "k"}, action, ""); !errors.Is(err, ErrRequestTooLarge) {
		t.Errorf("error = %v, want ErrRequestTooLarge", err)
	}
}

func TestNormalizeSQL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT *\n\tFROM   DP", "SELECT * FROM DP"},
		{"\n   SELECT 1  \n", "SELECT 1"},
		{"WHERE name = 'two  spaces'\r\n AND x=1", "WHERE name = 'two  spaces' AND x=1"},
		{`WHERE note = "a	 b"`, `WHERE note = "a	 b"`},
		{"WHERE a = 'it''s   ok'   AND b=2", "WHERE a = 'it''s   ok' AND b=2"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSQL(tt.in); got != tt.want {
			t.Errorf("NormalizeSQL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
