// Package run defines the records produced by inspecting a URL: a Run is a
// single fetch with its captured response headers, a Report groups the runs
// a user made in one session so they can be compared and shared.
package run

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidURL is returned for URLs that cannot be inspected.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrInvalidRun is returned when a run is missing required fields.
	ErrInvalidRun = errors.New("invalid run")
)

// Run is one inspection of a URL.
type Run struct {
	// RunID is derived from the URL and the time of the run (see GenerateRunID).
	RunID string `json:"runId"`

	// URL is the normalized URL that was fetched.
	URL string `json:"url"`

	// Status is the HTTP status code of the response. 4xx and 5xx are valid.
	Status int `json:"status"`

	// Headers are the response headers, multi-values joined with ", ".
	Headers map[string]string `json:"headers"`

	// DurationInMs is how long the request took.
	DurationInMs int64 `json:"durationInMs"`

	// ReportID is the report this run belongs to, if any.
	ReportID string `json:"reportId,omitempty"`

	// CreatedAt is when the run was made.
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks that the run can be stored.
func (r *Run) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil run", ErrInvalidRun)
	}
	if r.RunID == "" {
		return fmt.Errorf("%w: missing run id", ErrInvalidRun)
	}
	if _, err := NormalizeURL(r.URL); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRun, err)
	}
	if r.Status < 100 || r.Status > 599 {
		return fmt.Errorf("%w: status %d out of range", ErrInvalidRun, r.Status)
	}
	return nil
}

// Report groups runs. RunIDs are kept in the order the runs were added.
type Report struct {
	ReportID  string    `json:"reportId"`
	CreatedAt time.Time `json:"createdAt"`
	RunIDs    []string  `json:"runIds"`
}

// NewReport creates an empty report with a fresh id.
func NewReport(createdAt time.Time) *Report {
	return &Report{
		ReportID:  NewReportID(),
		CreatedAt: createdAt,
		RunIDs:    []string{},
	}
}

// GenerateRunID returns the first 8 hex characters of
// sha256("<url>-<unix milliseconds>").
func GenerateRunID(rawURL string, at time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%d", rawURL, at.UnixMilli())))
	return hex.EncodeToString(sum[:])[:8]
}

// NewReportID returns a random report id.
func NewReportID() string {
	return uuid.NewString()
}

// NormalizeURL parses raw as an absolute http or https URL and returns its
// canonical form: lowercase scheme and host, dot segments resolved, an
// empty path replaced by "/". Percent-encoding is preserved.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host in %s", ErrInvalidURL, raw)
	}

	u.Host = strings.ToLower(u.Host)
	if u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	} else {
		// resolving the path against itself drops dot segments
		ref, err := url.Parse(u.EscapedPath())
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidURL, raw)
		}
		ref.RawQuery = u.RawQuery
		ref.Fragment, ref.RawFragment = u.Fragment, u.RawFragment
		u = u.ResolveReference(ref)
	}

	return u.String(), nil
}
