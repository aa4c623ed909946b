// Package inspect fetches a URL the way the cache inspector needs it: with
// Netlify debug headers requested, every status code accepted and the
// response headers captured as a run.Run.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/cache-inspector/pkg/logging"
	"github.com/Sternrassler/cache-inspector/pkg/run"
)

// Prometheus metrics for inspections.
var (
	inspectorRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_requests_total",
		Help: "Total inspection requests by response status",
	}, []string{"status"})

	inspectorRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inspector_request_duration_seconds",
		Help:    "Duration of inspected requests in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	inspectorErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inspector_errors_total",
		Help: "Total inspection errors by class",
	}, []string{"class"})
)

// Header asking Netlify to include its Debug-* response headers.
const debugLoggingHeader = "X-NF-Debug-Logging"

// maxDrainBytes bounds how much of a body is read so the connection can be reused.
const maxDrainBytes = 1 << 20

// Config holds the inspector configuration.
type Config struct {
	// UserAgent header sent with every request.
	UserAgent string

	// Timeout for a single request attempt.
	Timeout time.Duration

	// RequireNetlify rejects responses whose Server header is not "Netlify".
	RequireNetlify bool

	// Retry (network errors only)
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	retry := DefaultRetryConfig()
	return Config{
		UserAgent:      "cache-inspector/1.0",
		Timeout:        15 * time.Second,
		RequireNetlify: true,
		MaxRetries:     retry.MaxAttempts,
		InitialBackoff: retry.InitialBackoff,
		MaxBackoff:     retry.MaxBackoff,
	}
}

// Inspector fetches URLs and records them as runs.
type Inspector struct {
	httpClient *http.Client
	config     Config
	retry      RetryConfig
	logger     zerolog.Logger
	now        func() time.Time
}

// New creates a new Inspector.
func New(cfg Config) (*Inspector, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be > 0 (got %s)", cfg.Timeout)
	}
	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	if cfg.InitialBackoff > 0 {
		retry.InitialBackoff = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		retry.MaxBackoff = cfg.MaxBackoff
	}

	return &Inspector{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		retry:      retry,
		logger:     logging.NewLogger("inspector"),
		now:        time.Now,
	}, nil
}

// Inspect fetches rawURL once (retrying network failures) and returns the
// resulting run. Error statuses are not failures: a 404 is a valid run.
func (i *Inspector) Inspect(ctx context.Context, rawURL string) (*run.Run, error) {
	target, err := run.NormalizeURL(rawURL)
	if err != nil {
		inspectorErrorsTotal.WithLabelValues(string(ErrorClassInvalidURL)).Inc()
		return nil, &InspectError{Class: ErrorClassInvalidURL, URL: rawURL, Err: err}
	}

	var (
		resp     *http.Response
		duration time.Duration
	)

	retryErr := retryWithBackoff(ctx, i.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return &InspectError{Class: ErrorClassInvalidURL, URL: target, Err: err}
		}
		req.Header.Set("User-Agent", i.config.UserAgent)
		req.Header.Set(debugLoggingHeader, "1")

		i.logger.Debug().Str("url", target).Msg("Fetching URL")

		start := time.Now()
		r, err := i.httpClient.Do(req)
		duration = time.Since(start)
		if err != nil {
			i.logger.Warn().Err(err).Str("url", target).Msg("HTTP request failed")
			inspectorErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			inspectorRequestsTotal.WithLabelValues("network_error").Inc()
			return &InspectError{Class: ErrorClassNetwork, URL: target, Err: err}
		}
		resp = r
		return nil
	}, ClassOf)
	if retryErr != nil {
		if errors.Is(retryErr, ErrContextCancelled) {
			return nil, &InspectError{Class: ErrorClassNetwork, URL: target, Err: retryErr}
		}
		return nil, retryErr
	}

	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
	resp.Body.Close()

	inspectorRequestDuration.Observe(duration.Seconds())
	inspectorRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if i.config.RequireNetlify && resp.Header.Get("Server") != "Netlify" {
		i.logger.Info().
			Str("url", target).
			Str("server", resp.Header.Get("Server")).
			Msg("Rejecting non-Netlify response")
		inspectorErrorsTotal.WithLabelValues(string(ErrorClassNotNetlify)).Inc()
		return nil, &InspectError{Class: ErrorClassNotNetlify, URL: target, Err: ErrNotNetlify}
	}

	createdAt := i.now()
	r := &run.Run{
		RunID:        run.GenerateRunID(target, createdAt),
		URL:          target,
		Status:       resp.StatusCode,
		Headers:      flattenHeaders(resp.Header),
		DurationInMs: duration.Milliseconds(),
		CreatedAt:    createdAt,
	}

	i.logger.Info().
		Str("url", target).
		Str("run_id", r.RunID).
		Int("status_code", r.Status).
		Dur("duration", duration).
		Msg("URL inspected")

	return r, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (i *Inspector) SetHTTPClient(client *http.Client) {
	i.httpClient = client
}

// flattenHeaders lowercases names and joins repeated values with ", ".
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		if existing, ok := out[key]; ok {
			values = append([]string{existing}, values...)
		}
		out[key] = strings.Join(values, ", ")
	}
	return out
}
