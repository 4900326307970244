// Package routing resolves road distances through the Google Distance
// Matrix API.  The resolver never fails: destinations it could not
// resolve are simply absent from the result and callers fall back to
// straight-line distance.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/kdufoot/matchfinder/internal/geo"
	"github.com/kdufoot/matchfinder/internal/metrics"
)

// DefaultBaseURL is the Distance Matrix JSON endpoint.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api/distancematrix/json"

// MaxBatchSize is the number of destinations the API accepts per call.
const MaxBatchSize = 25

// placeholderKey is the value shipped in sample env files.
const placeholderKey = "YOUR_GOOGLE_MAPS_API_KEY_HERE"

// Resolver turns one origin and many destinations into routed distances
// in meters keyed by destination index.
type Resolver interface {
	Resolve(ctx context.Context, origin geo.Point, destinations []geo.Point) map[int]float64
}

// Config controls batching, throttling and timeouts of the client.
type Config struct {
	BaseURL     string
	APIKey      string
	BatchSize   int           // destinations per call, capped at MaxBatchSize
	Timeout     time.Duration // per batch, including throttle wait
	Parallelism int           // batches in flight; 1 means sequential
	RPS         float64       // client-side request rate, 0 disables throttling
	Burst       int
}

// Client is the Distance Matrix implementation of Resolver.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	tracer  trace.Tracer
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTracer replaces the tracer used for batch spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient builds a Client, normalising out-of-range settings.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	c := &Client{
		cfg: cfg,
		// no client-wide Timeout: each batch is bounded by its own context
		http: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
			},
		},
		tracer: otel.Tracer("github.com/kdufoot/matchfinder/internal/routing"),
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.cfg.APIKey != "" && c.cfg.APIKey != placeholderKey
}

// Resolve implements Resolver.  Destinations are split into batches of
// BatchSize; each batch's element index is shifted by the batch offset
// so the result is keyed by the caller's index.
func (c *Client) Resolve(ctx context.Context, origin geo.Point, destinations []geo.Point) map[int]float64 {
	out := make(map[int]float64, len(destinations))
	if len(destinations) == 0 || !c.Enabled() {
		return out
	}

	size := c.cfg.BatchSize
	parts := make([]map[int]float64, (len(destinations)+size-1)/size)

	var g errgroup.Group
	g.SetLimit(c.cfg.Parallelism)
	for b := range parts {
		start := b * size
		end := min(start+size, len(destinations))
		g.Go(func() error {
			parts[b] = c.resolveBatch(ctx, origin, destinations[start:end], start)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range parts {
		for idx, meters := range p {
			out[idx] = meters
		}
	}
	return out
}

// resolveBatch returns the distances of one batch keyed by global index,
// or nil when the whole batch failed.
func (c *Client) resolveBatch(ctx context.Context, origin geo.Point, batch []geo.Point, offset int) map[int]float64 {
	ctx, span := c.tracer.Start(ctx, "routing.distance_matrix", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.Int("routing.batch_offset", offset),
		attribute.Int("routing.batch_size", len(batch)),
	)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	logger := zerolog.Ctx(ctx)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.fail(span, "throttled", err)
			logger.Warn().Err(err).Int("offset", offset).Msg("routing: throttle wait aborted")
			return nil
		}
	}

	elements, err := c.fetch(ctx, origin, batch)
	if err != nil {
		c.fail(span, "failed", err)
		logger.Warn().Err(err).Int("offset", offset).Int("size", len(batch)).Msg("routing: batch unresolved")
		return nil
	}

	out := make(map[int]float64, len(elements))
	for j, el := range elements {
		if j >= len(batch) {
			break
		}
		if el.Status == "OK" && el.Distance != nil {
			out[offset+j] = float64(el.Distance.Value)
		}
	}
	metrics.RoutingBatches.WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.Int("routing.resolved", len(out)))
	return out
}

func (c *Client) fail(span trace.Span, outcome string, err error) {
	metrics.RoutingBatches.WithLabelValues(outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

type matrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []matrixElement `json:"elements"`
	} `json:"rows"`
}

type matrixElement struct {
	Status   string `json:"status"`
	Distance *struct {
		Value int64  `json:"value"` // meters
		Text  string `json:"text"`
	} `json:"distance"`
}

func (c *Client) fetch(ctx context.Context, origin geo.Point, batch []geo.Point) ([]matrixElement, error) {
	dest := make([]string, len(batch))
	for i, p := range batch {
		dest[i] = formatPoint(p)
	}
	q := url.Values{}
	q.Set("origins", formatPoint(origin))
	q.Set("destinations", strings.Join(dest, "|"))
	q.Set("key", c.cfg.APIKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("distance matrix returned %s", resp.Status)
	}
	var body matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode distance matrix: %w", err)
	}
	if body.Status != "OK" {
		return nil, fmt.Errorf("distance matrix status %s: %s", body.Status, body.ErrorMessage)
	}
	if len(body.Rows) == 0 {
		return nil, nil
	}
	return body.Rows[0].Elements, nil
}

func formatPoint(p geo.Point) string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lng, 'f', -1, 64)
}
