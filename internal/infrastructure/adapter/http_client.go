package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// ---------------------------------------------------------------------------
// Shared vendor HTTP plumbing
// ---------------------------------------------------------------------------

// maxResponseBytes caps how much of a vendor body is read.
const maxResponseBytes = 8 << 20

var tracer = otel.Tracer("github.com/bibbank/bureau-service/internal/infrastructure/adapter")

// VendorConfig holds the connection settings of one outbound integration.
type VendorConfig struct {
	// Name labels logs and errors.
	Name string
	// BaseURL is the vendor API root.
	BaseURL string
	// APIKey is sent as x-api-key when set.
	APIKey string
	// TimeoutSeconds is the HTTP client timeout.
	TimeoutSeconds int
	// MaxRetries applies to idempotent reads only; inquiries are never retried.
	MaxRetries int
	// RetryBackoffMs is the base backoff duration in milliseconds between retries.
	RetryBackoffMs int
	// RatePerSecond throttles outbound calls; <= 0 disables the limiter.
	RatePerSecond float64
	// Burst is the limiter bucket size.
	Burst int
}

// DefaultVendorConfig returns development defaults for a named vendor.
func DefaultVendorConfig(name, baseURL string) VendorConfig {
	return VendorConfig{
		Name:           name,
		BaseURL:        baseURL,
		TimeoutSeconds: 30,
		MaxRetries:     2,
		RetryBackoffMs: 200,
		RatePerSecond:  5,
		Burst:          1,
	}
}

// HTTPDoer is the subset of *http.Client the adapters need, so tests can
// substitute a transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError is returned for non-2xx vendor responses.
type StatusError struct {
	Vendor string
	Code   int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded %d", e.Vendor, e.Code)
}

func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// vendorRequest describes one logical call. Body is re-sent on every attempt.
type vendorRequest struct {
	Method     string
	URL        string
	Body       []byte
	Header     http.Header
	Idempotent bool
	// Sign, when set, adds per-attempt headers such as timestamps and nonces.
	Sign func(req *http.Request, body []byte) error
}

type vendorClient struct {
	cfg     VendorConfig
	http    HTTPDoer
	limiter *rate.Limiter
	logger  *slog.Logger
}

func newVendorClient(cfg VendorConfig, doer HTTPDoer, logger *slog.Logger) *vendorClient {
	if doer == nil {
		timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &vendorClient{cfg: cfg, http: doer, logger: logger.With("vendor", cfg.Name)}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c
}

// postJSON marshals payload and sends it as a non-retried POST.
func (c *vendorClient) postJSON(ctx context.Context, target string, payload any) ([]byte, error) {
	body, err := marshalCompact(payload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.cfg.Name, err)
	}
	return c.send(ctx, vendorRequest{Method: http.MethodPost, URL: target, Body: body, Header: jsonHeader()})
}

// send performs req inside a client span.
func (c *vendorClient) send(ctx context.Context, req vendorRequest) ([]byte, error) {
	ctx, span := tracer.Start(ctx, c.cfg.Name+" "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("vendor", c.cfg.Name),
			attribute.String("http.request.method", req.Method),
			attribute.Bool("idempotent", req.Idempotent),
		),
	)
	defer span.End()

	body, err := c.sendWithRetry(ctx, req)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			span.SetAttributes(attribute.Int("http.response.status_code", se.Code))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "vendor call failed")
	}
	return body, err
}

// sendWithRetry retries idempotent calls with exponential backoff.
func (c *vendorClient) sendWithRetry(ctx context.Context, req vendorRequest) ([]byte, error) {
	retries := 0
	if req.Idempotent {
		retries = c.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			// Exponential backoff with jitter.
			backoff := time.Duration(c.cfg.RetryBackoffMs) * time.Millisecond * (1 << uint(attempt-1))
			var jitter time.Duration
			if half := int64(backoff) / 2; half > 0 {
				jitter = time.Duration(rand.Int63n(half))
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		body, err := c.sendOnce(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.retryable() {
			return body, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.WarnContext(ctx, "vendor call failed", "attempt", attempt+1, "error", err)
	}
	if retries > 0 {
		return nil, fmt.Errorf("exhausted %d retries: %w", retries, lastErr)
	}
	return nil, lastErr
}

func (c *vendorClient) sendOnce(ctx context.Context, req vendorRequest) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit wait: %w", c.cfg.Name, err)
		}
	}

	var reader io.Reader
	if req.Body != nil {
		reader = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", c.cfg.Name, err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if c.cfg.APIKey != "" && httpReq.Header.Get("x-api-key") == "" {
		httpReq.Header.Set("x-api-key", c.cfg.APIKey)
	}
	if req.Sign != nil {
		if err := req.Sign(httpReq, req.Body); err != nil {
			return nil, fmt.Errorf("%s: sign request: %w", c.cfg.Name, err)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("%s: %s %s: %w", c.cfg.Name, req.Method, redactQuery(req.URL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", c.cfg.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, &StatusError{Vendor: c.cfg.Name, Code: resp.StatusCode, Body: body}
	}
	return body, nil
}

// marshalCompact encodes without HTML escaping so the bytes match what
// signing vendors hash on their side.
func marshalCompact(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Accept", "application/json")
	return h
}

// redactQuery drops the query string, which carries PANs and OTPs.
func redactQuery(raw string) string {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		return raw[:i]
	}
	return raw
}
