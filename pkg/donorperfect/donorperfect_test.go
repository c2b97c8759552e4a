package donorperfect

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// =============================================================================
// UNIT TESTS
// =============================================================================

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		field  string
	}{
		{"nil config", nil, "config"},
		{"no credentials", &Config{}, "apiKey"},
		{"both credentials", &Config{APIKey: "k", Login: "u", Password: "p"}, "apiKey"},
		{"login without password", &Config{Login: "u"}, "apiKey"},
		{"relative base url", &Config{APIKey: "k", BaseURL: "/xmlrequest.asp"}, "baseUrl"},
		{"base url with query", &Config{APIKey: "k", BaseURL: "https://x.test/a?b=c"}, "baseUrl"},
		{"long app name", &Config{APIKey: "k", AppName: "an-application-name-too-long"}, "appName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config, WithTransport(&fakeTransport{}))
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("New() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	cfg := &Config{Login: "u", Password: "p"}
	c, err := New(cfg, WithTransport(&fakeTransport{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.AppName() != DefaultAppName {
		t.Errorf("AppName() = %q", c.AppName())
	}
	if c.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d", c.PageSize())
	}
	if c.config.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q", c.config.BaseURL)
	}
	if cfg.AppName != "" {
		t.Error("New() modified the caller's config")
	}
	if _, ok := c.auth.(LoginAuth); !ok {
		t.Errorf("auth = %T, want LoginAuth", c.auth)
	}
}

func TestClient_Procedure(t *testing.T) {
	ft := &fakeTransport{bodies: []string{`<result><record><field id="" value="901"/></record></result>`}}
	c, err := New(&Config{APIKey: "k", BaseURL: testBaseURL, AppName: "crm-sync"}, WithTransport(ft))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	res, err := c.Procedure(context.Background(), "dp_saveflag_xml", map[string]any{"donor_id": 12, "flag": "AL"})
	if err != nil {
		t.Fatalf("Procedure() error = %v", err)
	}
	if res != (ScalarResult{ID: 901}) {
		t.Errorf("Procedure() = %#v", res)
	}
	want := testBaseURL + "?apikey=k&action=dp_saveflag_xml&params=" +
		"%40donor_id%3D12%2C%40flag%3D%27AL%27%2C%40user_id%3D%27crm-sync%27"
	if ft.urls[0] != want {
		t.Errorf("url =\n%s\nwant\n%s", ft.urls[0], want)
	}
}

func TestClient_Procedure_Unknown(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, ft)
	if _, err := c.Procedure(context.Background(), "dp_nope", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(ft.urls) != 0 {
		t.Errorf("transport called %d times", len(ft.urls))
	}
}

func TestClient_Call_NoNetworkOnLocalFailure(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, ft)

	_, err := c.Call(context.Background(), "dp_gifts", Ruleset{{Name: "donor_id", Kind: KindNumeric}}, map[string]any{"donor_id": "1e9"})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	_, err = c.CallSQL(context.Background(), "SELECT * FROM DP WHERE last_name = '"+strings.Repeat("x", MaxURLLength)+"'")
	if !errors.Is(err, ErrRequestTooLarge) {
		t.Errorf("error = %v, want ErrRequestTooLarge", err)
	}
	if len(ft.urls) != 0 {
		t.Errorf("transport called %d times", len(ft.urls))
	}
}

func TestClient_TransportError(t *testing.T) {
	cause := errors.New("connection reset")
	ft := &fakeTransport{err: cause}
	c := newTestClient(t, ft)

	_, err := c.CallSQL(context.Background(), "SELECT 1")
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("error = %v, want ErrTransport", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("error = %v does not wrap the cause", err)
	}
	if len(ft.urls) != 1 {
		t.Errorf("transport calls = %d, want 1", len(ft.urls))
	}
}

func TestClient_SaveDonorDefaults(t *testing.T) {
	ft := &fakeTransport{bodies: []string{`<result><record><field id="" value="55"/></record></result>`}}
	c := newTestClient(t, ft)

	p := Params{"donor_id": 0, "last_name": "Smith", "nomail": "maybe"}
	id, err := c.SaveDonor(context.Background(), p)
	if err != nil {
		t.Fatalf("SaveDonor() error = %v", err)
	}
	if id != 55 {
		t.Errorf("id = %d, want 55", id)
	}
	if p["nomail"] != "maybe" {
		t.Error("SaveDonor() modified the caller's params")
	}
	for _, want := range []string{"%40nomail%3D%27N%27", "%40receipt_delivery%3D%27L%27", "%40donor_id%3D0%2C"} {
		if !strings.Contains(ft.urls[0], want) {
			t.Errorf("url missing %s: %s", want, ft.urls[0])
		}
	}
}

func TestClient_SaveExpectsID(t *testing.T) {
	ft := &fakeTransport{bodies: []string{`<result><record><field id="gift_id" value="1"/></record></result>`}}
	c := newTestClient(t, ft)
	if _, err := c.SaveGift(context.Background(), Params{"gift_id": 0}); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode", err)
	}
}

func TestClient_Donor(t *testing.T) {
	ft := &fakeTransport{bodies: []string{
		`<result><record><field id="donor_id" value="7"/><field id="last_name" value="Lee"/></record></result>`,
		`<result></result>`,
	}}
	c := newTestClient(t, ft)

	rec, ok, err := c.Donor(context.Background(), 7)
	if err != nil || !ok {
		t.Fatalf("Donor() = %v, %v", ok, err)
	}
	if rec.Value("last_name") != "Lee" {
		t.Errorf("last_name = %q", rec.Value("last_name"))
	}
	if !strings.Contains(ft.urls[0], "WHERE%20donor_id%20%3D%207") {
		t.Errorf("url = %s", ft.urls[0])
	}

	_, ok, err = c.Donor(context.Background(), 8)
	if err != nil || ok {
		t.Errorf("Donor() missing = %v, %v", ok, err)
	}
}

func TestClient_Columns_RejectsBadTable(t *testing.T) {
	ft := &fakeTransport{}
	c := newTestClient(t, ft)
	if _, err := c.Columns(context.Background(), "DP; DROP TABLE DP"); !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(ft.urls) != 0 {
		t.Errorf("transport called %d times", len(ft.urls))
	}
}

func TestClient_FieldValues(t *testing.T) {
	ft := &fakeTransport{bodies: []string{codesXML(4)}}
	c := newTestClient(t, ft)

	rows, err := c.FieldValues(context.Background(), "GL_CODE")
	if err != nil {
		t.Fatalf("FieldValues() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Value("code") != "C4" {
		t.Errorf("rows = %v", rows)
	}
	if !strings.Contains(ft.urls[0], "field_name%20%3D%20%27GL_CODE%27") {
		t.Errorf("url = %s", ft.urls[0])
	}
}

func TestClient_Telemetry(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	ft := &fakeTransport{bodies: []string{rowsXML(2, 1), `<result><error>denied</error></result>`}}
	c := newTestClient(t, ft, WithTracerProvider(tp), WithMeterProvider(mp))

	if _, err := c.CallSQL(context.Background(), "SELECT * FROM DP"); err != nil {
		t.Fatalf("CallSQL() error = %v", err)
	}
	if _, err := c.Procedure(context.Background(), "dp_gifts", Params{"donor_id": 1}); err == nil {
		t.Fatal("Procedure() expected error")
	}

	spans := sr.Ended()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "donorperfect.sql" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	if attrs["donorperfect.result"].AsString() != "rows" {
		t.Errorf("result attribute = %v", attrs["donorperfect.result"])
	}
	if attrs["donorperfect.rows"].AsInt64() != 2 {
		t.Errorf("rows attribute = %v", attrs["donorperfect.rows"])
	}
	if attrs["donorperfect.request_id"].AsString() == "" {
		t.Error("missing request id")
	}
	if spans[1].Name() != "donorperfect.dp_gifts" || spans[1].Status().Code != codes.Error {
		t.Errorf("span = %q status %v", spans[1].Name(), spans[1].Status())
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var calls int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == "donorperfect.calls" {
				for _, dp := range sum.DataPoints {
					calls += dp.Value
				}
			}
		}
	}
	if calls != 2 {
		t.Errorf("donorperfect.calls = %d, want 2", calls)
	}
}

// =============================================================================
// END-TO-END TESTS
// =============================================================================

func TestClient_HTTPEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apikey") != "key" {
			t.Errorf("apikey = %q", q.Get("apikey"))
		}
		switch q.Get("action") {
		case "dp_savegift":
			if got := q.Get("params"); !strings.HasPrefix(got, "@gift_id=0,@donor_id=12,@record_type='G',@gift_date='01/02/2024',@amount=10.50,") {
				t.Errorf("params = %s", got)
			}
			w.Write([]byte(`<?xml version="1.0" ?><result><record><field name="" id="" value="3001"/></record></result>`))
		case "SELECT * FROM DPGIFT WHERE amount > 5 AND gl_code = 'A+B'":
			w.Write([]byte(rowsXML(3, 1)))
		case "SELECT nothing":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			t.Errorf("unexpected action %q", q.Get("action"))
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c, err := New(&Config{APIKey: "key", BaseURL: srv.URL + "/prod/xmlrequest.asp"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	id, err := c.SaveGift(ctx, Params{
		"gift_id": 0, "donor_id": 12, "record_type": "G", "gift_date": "01/02/2024", "amount": 10.5,
	})
	if err != nil {
		t.Fatalf("SaveGift() error = %v", err)
	}
	if id != 3001 {
		t.Errorf("id = %d", id)
	}

	res, err := c.CallSQL(ctx, `
		SELECT *
		FROM DPGIFT
		WHERE amount > 5 AND gl_code = 'A+B'
	`)
	if err != nil {
		t.Fatalf("CallSQL() error = %v", err)
	}
	if rows := Records(res); len(rows) != 3 {
		t.Errorf("rows = %d, want 3", len(rows))
	}

	_, err = c.CallSQL(ctx, "SELECT nothing")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("error = %v, want ErrTransport", err)
	}
}

// =============================================================================
// INTEGRATION TESTS (require DP_API_KEY)
// =============================================================================

func TestIntegration_Tables(t *testing.T) {
	key := os.Getenv("DP_API_KEY")
	if key == "" {
		t.Skip("DP_API_KEY not set")
	}
	c, err := New(&Config{APIKey: key, BaseURL: os.Getenv("DP_BASE_URL")})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	tables, err := c.Tables(context.Background())
	if err != nil {
		t.Fatalf("Tables() error = %v", err)
	}
	if len(tables) == 0 {
		t.Error("Tables() returned no tables")
	}
}
