package donorperfect

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	dphttp "github.com/nucleus/dp-connector/internal/connector/http"
)

const instrumentationName = "github.com/nucleus/dp-connector/pkg/donorperfect"

// Transport fetches a URL and returns the response body. Any failure,
// including a non-2xx status, is returned as an error and is not retried.
type Transport interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client calls the DonorPerfect XML API. Calls are issued synchronously; a
// Client is safe for concurrent use but imposes no ordering between writes.
type Client struct {
	config    Config
	auth      Auth
	transport Transport
	catalog   *Catalog
	logger    *slog.Logger
	tracer    trace.Tracer

	calls    metric.Int64Counter
	duration metric.Float64Histogram
}

// Option customizes a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport      Transport
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	catalog        *Catalog
}

// WithTransport replaces the default rate-limited HTTP transport.
func WithTransport(t Transport) Option {
	return func(o *clientOptions) { o.transport = t }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = l }
}

// WithTracerProvider sets the tracer provider (default: the global one).
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *clientOptions) { o.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider (default: the global one).
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *clientOptions) { o.meterProvider = mp }
}

// WithCatalog replaces the built-in procedure catalog.
func WithCatalog(c *Catalog) Option {
	return func(o *clientOptions) { o.catalog = c }
}

// New validates config and creates a client.
func New(config *Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, &ValidationError{Field: "config", Message: "is required"}
	}
	cfg := *config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		httpConfig := dphttp.DefaultClientConfig()
		if cfg.Timeout > 0 {
			httpConfig.Timeout = cfg.Timeout
		}
		if cfg.RateLimit > 0 {
			httpConfig.RateLimit = cfg.RateLimit
		}
		if cfg.RateBurst > 0 {
			httpConfig.RateBurst = cfg.RateBurst
		}
		o.transport = dphttp.NewClient(httpConfig)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.catalog == nil {
		catalog, err := DefaultCatalog()
		if err != nil {
			return nil, err
		}
		o.catalog = catalog
	}

	meter := o.meterProvider.Meter(instrumentationName)
	calls, err := meter.Int64Counter("donorperfect.calls",
		metric.WithDescription("Calls issued against the DonorPerfect API"))
	if err != nil {
		return nil, fmt.Errorf("create call counter: %w", err)
	}
	duration, err := meter.Float64Histogram("donorperfect.call.duration",
		metric.WithDescription("DonorPerfect call latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}

	return &Client{
		config:    cfg,
		auth:      cfg.Auth(),
		transport: o.transport,
		catalog:   o.catalog,
		logger:    o.logger,
		tracer:    o.tracerProvider.Tracer(instrumentationName),
		calls:     calls,
		duration:  duration,
	}, nil
}

// AppName returns the name written to the audit columns of write procedures.
func (c *Client) AppName() string { return c.config.AppName }

// PageSize returns the configured page size for paged queries.
func (c *Client) PageSize() int { return c.config.PageSize }

// Catalog returns the procedure catalog in use.
func (c *Client) Catalog() *Catalog { return c.catalog }

// Call invokes a predefined procedure. Parameters are encoded in the order of
// rules; data names missing from rules are ignored.
func (c *Client) Call(ctx context.Context, action string, rules Ruleset, data map[string]any) (Result, error) {
	params, err := Encode(rules, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	return c.do(ctx, action, action, params)
}

// CallSQL runs a raw SQL statement after collapsing its formatting
// whitespace.
func (c *Client) CallSQL(ctx context.Context, sql string) (Result, error) {
	return c.do(ctx, "sql", NormalizeSQL(sql), "")
}

// Procedure looks up name in the catalog and calls it with data.
func (c *Client) Procedure(ctx context.Context, name string, data map[string]any) (Result, error) {
	proc, ok := c.catalog.Lookup(name)
	if !ok {
		return nil, &ValidationError{Field: "procedure", Message: fmt.Sprintf("unknown procedure %q", name)}
	}
	rules := proc.Params.Expand(map[string]string{"app_name": c.config.AppName})
	return c.Call(ctx, proc.Name, rules, data)
}

func (c *Client) do(ctx context.Context, kind, action, params string) (res Result, err error) {
	requestID := uuid.NewString()
	start := time.Now()

	ctx, span := c.tracer.Start(ctx, "donorperfect."+kind,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("donorperfect.request_id", requestID),
			attribute.String("donorperfect.kind", kind),
		),
	)
	log := c.logger.With("request_id", requestID, "action", kind)

	defer func() {
		elapsed := time.Since(start)
		status := "ok"
		if err != nil {
			status = "error"
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
			log.Warn("donorperfect call failed", "duration", elapsed, "error", err)
		} else {
			span.SetAttributes(
				attribute.String("donorperfect.result", res.Kind()),
				attribute.Int("donorperfect.rows", len(Records(res))),
			)
			span.SetStatus(codes.Ok, "")
			log.Debug("donorperfect call", "result", res.Kind(), "rows", len(Records(res)), "duration", elapsed)
		}
		attrs := metric.WithAttributes(
			attribute.String("donorperfect.kind", kind),
			attribute.String("status", status),
		)
		c.calls.Add(ctx, 1, attrs)
		c.duration.Record(ctx, elapsed.Seconds(), attrs)
		span.End()
	}()

	req, err := BuildRequest(c.config.BaseURL, c.auth, action, params)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("donorperfect.url_length", len(req.URL)))

	body, err := c.transport.Get(ctx, req.URL)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return Decode(body)
}
