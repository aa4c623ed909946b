package analysis

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/cache-inspector/pkg/cachecontrol"
	"github.com/Sternrassler/cache-inspector/pkg/cachestatus"
	"github.com/Sternrassler/cache-inspector/pkg/headers"
)

// Revalidate is the revalidation policy announced by Cache-Control.
// The zero value means no policy.
type Revalidate string

const (
	RevalidateMustRevalidate Revalidate = "must-revalidate"
	RevalidateImmutable      Revalidate = "immutable"
)

// TierDirectives holds the parsed directives of each Cache-Control family
// header. A missing header yields empty directives.
type TierDirectives struct {
	CacheControl           *cachecontrol.Directives `json:"cacheControl"`
	CDNCacheControl        *cachecontrol.Directives `json:"cdnCacheControl"`
	NetlifyCDNCacheControl *cachecontrol.Directives `json:"netlifyCdnCacheControl"`
}

// ParsedCacheControl is the consolidated cacheability report.
//
// Only the base Cache-Control header decides IsCacheable; CDN tier
// cacheability is not modelled.
type ParsedCacheControl struct {
	IsCacheable   bool           `json:"isCacheable"`
	Age           *int64         `json:"age,omitempty"`
	Date          *time.Time     `json:"date,omitempty"`
	ETag          string         `json:"etag,omitempty"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
	Vary          string         `json:"vary,omitempty"`
	NetlifyVary   string         `json:"netlifyVary,omitempty"`
	TTL           *float64       `json:"ttl,omitempty"`
	CDNTTL        *float64       `json:"cdnTtl,omitempty"`
	NetlifyCDNTTL *float64       `json:"netlifyCdnTtl,omitempty"`
	Revalidate    Revalidate     `json:"revalidate,omitempty"`
	Directives    TierDirectives `json:"directives"`
}

// Analysis is the full diagnosis of one response.
type Analysis struct {
	ServedBy     ServedBy            `json:"servedBy"`
	CacheStatus  []cachestatus.Entry `json:"cacheStatus"`
	CacheControl ParsedCacheControl  `json:"cacheControl"`
}

// Analyze diagnoses the caching behaviour of a response from its headers.
// now is the reference time for age and TTL computations.
//
// Errors from the served-by resolution are returned as is; the caller is
// expected to report them rather than fall back to a guess.
func Analyze(h headers.Headers, now time.Time) (*Analysis, error) {
	entries := cachestatus.Parse(h.Value(headers.CacheStatus))

	servedBy, err := ResolveServedBy(h, entries)
	if err != nil {
		return nil, err
	}

	cc, err := parseCacheControl(h, now)
	if err != nil {
		return nil, err
	}

	return &Analysis{
		ServedBy:     servedBy,
		CacheStatus:  entries,
		CacheControl: cc,
	}, nil
}

// AnalyzeMap is Analyze over a plain header map.
func AnalyzeMap(raw map[string]string, now time.Time) (*Analysis, error) {
	return Analyze(headers.FromMap(raw), now)
}

func parseCacheControl(h headers.Headers, now time.Time) (ParsedCacheControl, error) {
	base, err := cachecontrol.Parse(h.Value(headers.CacheControl))
	if err != nil {
		return ParsedCacheControl{}, err
	}
	cdn, err := cachecontrol.Parse(h.Value(headers.CDNCacheControl))
	if err != nil {
		return ParsedCacheControl{}, err
	}
	// Netlify only echoes its own header back under debug logging.
	netlifyRaw, _ := h.First(headers.NetlifyCDNCacheControl, headers.DebugNetlifyCDNCacheControl)
	netlify, err := cachecontrol.Parse(netlifyRaw)
	if err != nil {
		return ParsedCacheControl{}, err
	}

	age := parseAge(h.Value(headers.Age))
	date := parseHTTPDate(h.Value(headers.Date))
	expiresAt := parseHTTPDate(h.Value(headers.Expires))

	cdnMaxAge := firstDefined(cdn.SharedMaxAge, cdn.MaxAge, base.SharedMaxAge, base.MaxAge)
	netlifyMaxAge := firstDefined(netlify.SharedMaxAge, netlify.MaxAge, cdnMaxAge)

	pcc := ParsedCacheControl{
		IsCacheable:   !(base.Private || base.NoStore || base.NoCache),
		Age:           age,
		Date:          date,
		ETag:          h.Value(headers.ETag),
		ExpiresAt:     expiresAt,
		Vary:          h.Value(headers.Vary),
		NetlifyVary:   h.Value(headers.NetlifyVary),
		TTL:           ttlPtr(TimeToLive(age, date, expiresAt, base.MaxAge, now)),
		CDNTTL:        ttlPtr(TimeToLive(age, date, expiresAt, cdnMaxAge, now)),
		NetlifyCDNTTL: ttlPtr(TimeToLive(age, date, expiresAt, netlifyMaxAge, now)),
		Directives: TierDirectives{
			CacheControl:           base,
			CDNCacheControl:        cdn,
			NetlifyCDNCacheControl: netlify,
		},
	}

	switch {
	case base.MustRevalidate:
		pcc.Revalidate = RevalidateMustRevalidate
	case base.Immutable:
		pcc.Revalidate = RevalidateImmutable
	}

	return pcc, nil
}

func firstDefined(values ...*int64) *int64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func ttlPtr(ttl float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &ttl
}

// parseAge parses the Age header (RFC 9111 §5.1); anything but a
// non-negative integer is treated as absent.
func parseAge(raw string) *int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// parseHTTPDate parses an HTTP-date. Invalid dates, including the "0"
// Expires value, are treated as absent.
func parseHTTPDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := http.ParseTime(raw)
	if err != nil {
		return nil
	}
	return &t
}
