package inspect

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/cache-inspector/internal/testutil"
	"github.com/Sternrassler/cache-inspector/pkg/run"
)

func testConfig() Config {
	return Config{
		UserAgent:      "cache-inspector-test/1.0",
		Timeout:        2 * time.Second,
		RequireNetlify: true,
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func newTestInspector(t *testing.T, cfg Config) *Inspector {
	t.Helper()
	i, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return i
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }, "user-agent is required"},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, "timeout must be > 0 (got 0s)"},
		{"no attempts", func(c *Config) { c.MaxRetries = 0 }, "max_retries must be >= 1 (got 0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := New(cfg)

			if tt.errorMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.errorMsg {
				t.Errorf("error = %v, want %q", err, tt.errorMsg)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.RequireNetlify {
		t.Error("RequireNetlify should default to true")
	}
	if _, err := New(cfg); err != nil {
		t.Errorf("New(DefaultConfig()) error: %v", err)
	}
}

func TestInspect_EdgeHit(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()

	i := newTestInspector(t, testConfig())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	i.now = func() time.Time { return fixed }

	r, err := i.Inspect(context.Background(), origin.URL())
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}

	wantURL := origin.URL() + "/"
	if r.URL != wantURL {
		t.Errorf("URL = %q, want %q", r.URL, wantURL)
	}
	if r.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", r.Status)
	}
	if r.RunID != run.GenerateRunID(wantURL, fixed) {
		t.Errorf("RunID = %q, want id derived from url and time", r.RunID)
	}
	if !r.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", r.CreatedAt, fixed)
	}
	if r.DurationInMs < 0 {
		t.Errorf("DurationInMs = %d, want >= 0", r.DurationInMs)
	}
	if got := r.Headers["cache-status"]; got != `"Netlify Edge"; hit` {
		t.Errorf("cache-status = %q", got)
	}
	if got := r.Headers["debug-x-bb-host-id"]; got != "cdn-glo-aws-cmh-57, cdn-glo-aws-cmh-57" {
		t.Errorf("debug-x-bb-host-id = %q", got)
	}
	for name := range r.Headers {
		if name != strings.ToLower(name) {
			t.Errorf("header name %q is not lowercase", name)
		}
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestInspect_SendsDebugHeaders(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()

	i := newTestInspector(t, testConfig())
	if _, err := i.Inspect(context.Background(), origin.URL()); err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}

	if origin.GetDebugLoggingCount() != 1 {
		t.Errorf("debug logging requests = %d, want 1", origin.GetDebugLoggingCount())
	}
	if ua := origin.GetLastRequestHeader().Get("User-Agent"); ua != "cache-inspector-test/1.0" {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestInspect_ErrorStatusIsValidRun(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/missing", testutil.NewNotFoundResponse())

	i := newTestInspector(t, testConfig())
	r, err := i.Inspect(context.Background(), origin.URL()+"/missing")
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if r.Status != http.StatusNotFound {
		t.Errorf("Status = %d, want 404", r.Status)
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1 (no retry on 404)", origin.GetRequestCount())
	}
}

func TestInspect_NotNetlify(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/", testutil.NewNonNetlifyResponse())

	i := newTestInspector(t, testConfig())
	_, err := i.Inspect(context.Background(), origin.URL())

	if !errors.Is(err, ErrNotNetlify) {
		t.Fatalf("err = %v, want ErrNotNetlify", err)
	}
	if ClassOf(err) != ErrorClassNotNetlify {
		t.Errorf("ClassOf() = %q, want not_netlify", ClassOf(err))
	}
	if origin.GetRequestCount() != 1 {
		t.Errorf("requests = %d, want 1", origin.GetRequestCount())
	}
}

func TestInspect_NotNetlifyAllowed(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	origin.SetResponse("/", testutil.NewNonNetlifyResponse())

	cfg := testConfig()
	cfg.RequireNetlify = false
	i := newTestInspector(t, cfg)

	r, err := i.Inspect(context.Background(), origin.URL())
	if err != nil {
		t.Fatalf("Inspect() error: %v", err)
	}
	if r.Headers["server"] != "nginx" {
		t.Errorf("server = %q, want nginx", r.Headers["server"])
	}
}

func TestInspect_InvalidURL(t *testing.T) {
	i := newTestInspector(t, testConfig())

	for _, raw := range []string{"", "ftp://example.com", "not a url", "https://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := i.Inspect(context.Background(), raw)
			if ClassOf(err) != ErrorClassInvalidURL {
				t.Errorf("ClassOf(%v) = %q, want invalid_url", err, ClassOf(err))
			}
			if !errors.Is(err, run.ErrInvalidURL) {
				t.Errorf("err = %v, want run.ErrInvalidURL", err)
			}
		})
	}
}

func TestInspect_NetworkErrorRetried(t *testing.T) {
	origin := testutil.NewMockOrigin()
	target := origin.URL()
	origin.Close()

	i := newTestInspector(t, testConfig())
	_, err := i.Inspect(context.Background(), target)

	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("err = %v, want ErrRetryExhausted", err)
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf() = %q, want network", ClassOf(err))
	}
}

func TestInspect_TimeoutIsNetworkError(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()
	slow := testutil.NewEdgeHitResponse()
	slow.Delay = 500 * time.Millisecond
	origin.SetResponse("/slow", slow)

	cfg := testConfig()
	cfg.Timeout = 50 * time.Millisecond
	i := newTestInspector(t, cfg)

	_, err := i.Inspect(context.Background(), origin.URL()+"/slow")
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(%v) = %q, want network", err, ClassOf(err))
	}
}

func TestInspect_ContextCancelled(t *testing.T) {
	origin := testutil.NewMockOrigin()
	defer origin.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	i := newTestInspector(t, testConfig())
	_, err := i.Inspect(ctx, origin.URL())
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if ClassOf(err) != ErrorClassNetwork {
		t.Errorf("ClassOf(%v) = %q, want network", err, ClassOf(err))
	}
}

func TestFlattenHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Debug-X-BB-Host-Id", "a")
	h.Add("Debug-X-BB-Host-Id", "b")
	h["age"] = []string{"3"}
	h["Age"] = []string{"4"}

	got := flattenHeaders(h)
	if got["debug-x-bb-host-id"] != "a, b" {
		t.Errorf("debug-x-bb-host-id = %q, want %q", got["debug-x-bb-host-id"], "a, b")
	}
	if v := got["age"]; v != "3, 4" && v != "4, 3" {
		t.Errorf("age = %q, want both values", v)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}
