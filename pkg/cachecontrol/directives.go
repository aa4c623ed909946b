// Package cachecontrol parses headers that use the Cache-Control directive
// grammar (RFC 9111 §5.2).
//
// The same parser serves every header of the family:
//
//   - Cache-Control (browsers and all caches)
//   - CDN-Cache-Control (RFC 9213, any CDN)
//   - Netlify-CDN-Cache-Control (Netlify only)
//
// Unrecognised directives are not dropped: they are kept in
// Directives.Extensions so that vendor directives such as "durable" remain
// visible.
//
// # Basic Usage
//
//	d, err := cachecontrol.Parse("public, max-age=3600, durable")
//	if err != nil {
//		return err
//	}
//	if d.MaxAge != nil {
//		fmt.Println(*d.MaxAge) // 3600
//	}
//	_, _, ok := d.Extension("durable") // ok == true
package cachecontrol

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ErrMalformedDirective is returned when a directive token has no name.
var ErrMalformedDirective = errors.New("malformed cache-control directive")

// Directive names as they appear on the wire.
const (
	DirectiveMaxAge               = "max-age"
	DirectiveSharedMaxAge         = "s-maxage"
	DirectiveMaxStale             = "max-stale"
	DirectiveMinFresh             = "min-fresh"
	DirectiveImmutable            = "immutable"
	DirectiveMustRevalidate       = "must-revalidate"
	DirectiveNoCache              = "no-cache"
	DirectiveNoStore              = "no-store"
	DirectiveNoTransform          = "no-transform"
	DirectiveOnlyIfCached         = "only-if-cached"
	DirectivePrivate              = "private"
	DirectiveProxyRevalidate      = "proxy-revalidate"
	DirectivePublic               = "public"
	DirectiveStaleWhileRevalidate = "stale-while-revalidate"
	DirectiveStaleIfError         = "stale-if-error"
)

var recognized = map[string]struct{}{
	DirectiveMaxAge:               {},
	DirectiveSharedMaxAge:         {},
	DirectiveMaxStale:             {},
	DirectiveMinFresh:             {},
	DirectiveImmutable:            {},
	DirectiveMustRevalidate:       {},
	DirectiveNoCache:              {},
	DirectiveNoStore:              {},
	DirectiveNoTransform:          {},
	DirectiveOnlyIfCached:         {},
	DirectivePrivate:              {},
	DirectiveProxyRevalidate:      {},
	DirectivePublic:               {},
	DirectiveStaleWhileRevalidate: {},
	DirectiveStaleIfError:         {},
}

// headerPattern matches a directive name optionally followed by "=" and
// either a quoted string or a bare token.
var headerPattern = regexp.MustCompile(`([a-zA-Z][a-zA-Z_-]*)\s*(?:=(?:"([^"]*)"|([^ \t",;]*)))?`)

// Directives is the parse result of one Cache-Control family header.
//
// Boolean fields are true when the directive is present. Numeric fields hold
// a number of seconds and are nil when the directive is absent or its value
// is not a non-negative integer.
type Directives struct {
	MaxAge               *int64 `json:"maxAge,omitempty"`
	SharedMaxAge         *int64 `json:"sharedMaxAge,omitempty"`
	MaxStale             bool   `json:"maxStale,omitempty"`
	MaxStaleDuration     *int64 `json:"maxStaleDuration,omitempty"`
	MinFresh             *int64 `json:"minFresh,omitempty"`
	Immutable            bool   `json:"immutable,omitempty"`
	MustRevalidate       bool   `json:"mustRevalidate,omitempty"`
	NoCache              bool   `json:"noCache,omitempty"`
	NoStore              bool   `json:"noStore,omitempty"`
	NoTransform          bool   `json:"noTransform,omitempty"`
	OnlyIfCached         bool   `json:"onlyIfCached,omitempty"`
	Private              bool   `json:"private,omitempty"`
	ProxyRevalidate      bool   `json:"proxyRevalidate,omitempty"`
	Public               bool   `json:"public,omitempty"`
	StaleWhileRevalidate *int64 `json:"staleWhileRevalidate,omitempty"`
	StaleIfError         *int64 `json:"staleIfError,omitempty"`

	// Extensions maps unrecognised directive names (lowercase) to their raw
	// value, or to nil when the directive had no value.
	Extensions map[string]*string `json:"extensions"`
}

// Parse parses a Cache-Control family header value.
// An empty header yields Directives with every field absent.
func Parse(header string) (*Directives, error) {
	d := &Directives{Extensions: make(map[string]*string)}
	if strings.TrimSpace(header) == "" {
		return d, nil
	}

	values := make(map[string]*string)
	for _, m := range headerPattern.FindAllStringSubmatchIndex(header, -1) {
		if m[2] < 0 || m[2] == m[3] {
			return nil, fmt.Errorf("%w: %q", ErrMalformedDirective, header[m[0]:m[1]])
		}
		name := strings.ToLower(header[m[2]:m[3]])

		var value *string
		switch {
		case m[4] >= 0:
			v := header[m[4]:m[5]]
			value = &v
		case m[6] >= 0:
			v := strings.TrimSpace(header[m[6]:m[7]])
			value = &v
		}
		// later occurrences win
		values[name] = value
	}

	d.MaxAge = parseDuration(values, DirectiveMaxAge)
	d.SharedMaxAge = parseDuration(values, DirectiveSharedMaxAge)
	d.MaxStale = isPresent(values, DirectiveMaxStale)
	d.MaxStaleDuration = parseDuration(values, DirectiveMaxStale)
	d.MinFresh = parseDuration(values, DirectiveMinFresh)
	d.Immutable = isPresent(values, DirectiveImmutable)
	d.MustRevalidate = isPresent(values, DirectiveMustRevalidate)
	d.NoCache = isPresent(values, DirectiveNoCache)
	d.NoStore = isPresent(values, DirectiveNoStore)
	d.NoTransform = isPresent(values, DirectiveNoTransform)
	d.OnlyIfCached = isPresent(values, DirectiveOnlyIfCached)
	d.Private = isPresent(values, DirectivePrivate)
	d.ProxyRevalidate = isPresent(values, DirectiveProxyRevalidate)
	d.Public = isPresent(values, DirectivePublic)
	d.StaleWhileRevalidate = parseDuration(values, DirectiveStaleWhileRevalidate)
	d.StaleIfError = parseDuration(values, DirectiveStaleIfError)

	for name, value := range values {
		if _, ok := recognized[name]; !ok {
			d.Extensions[name] = value
		}
	}

	return d, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// static headers.
func MustParse(header string) *Directives {
	d, err := Parse(header)
	if err != nil {
		panic(err)
	}
	return d
}

// Extension reports whether the unrecognised directive name was present and
// returns its value if it had one.
func (d *Directives) Extension(name string) (value string, hasValue bool, ok bool) {
	if d == nil {
		return "", false, false
	}
	v, ok := d.Extensions[strings.ToLower(name)]
	if !ok {
		return "", false, false
	}
	if v == nil {
		return "", false, true
	}
	return *v, true, true
}

// IsEmpty returns true if no directive, recognised or not, was parsed.
func (d *Directives) IsEmpty() bool {
	if d == nil {
		return true
	}
	return d.MaxAge == nil && d.SharedMaxAge == nil && !d.MaxStale &&
		d.MinFresh == nil && !d.Immutable && !d.MustRevalidate && !d.NoCache &&
		!d.NoStore && !d.NoTransform && !d.OnlyIfCached && !d.Private &&
		!d.ProxyRevalidate && !d.Public && d.StaleWhileRevalidate == nil &&
		d.StaleIfError == nil && len(d.Extensions) == 0
}

// String renders the directives in canonical order: recognised directives
// in the order of Names, then extensions sorted by name.
func (d *Directives) String() string {
	if d == nil {
		return ""
	}

	var parts []string
	flag := func(name string, on bool) {
		if on {
			parts = append(parts, name)
		}
	}
	seconds := func(name string, v *int64) {
		if v != nil {
			parts = append(parts, name+"="+strconv.FormatInt(*v, 10))
		}
	}

	seconds(DirectiveMaxAge, d.MaxAge)
	seconds(DirectiveSharedMaxAge, d.SharedMaxAge)
	switch {
	case d.MaxStaleDuration != nil:
		seconds(DirectiveMaxStale, d.MaxStaleDuration)
	default:
		flag(DirectiveMaxStale, d.MaxStale)
	}
	seconds(DirectiveMinFresh, d.MinFresh)
	flag(DirectiveImmutable, d.Immutable)
	flag(DirectiveMustRevalidate, d.MustRevalidate)
	flag(DirectiveNoCache, d.NoCache)
	flag(DirectiveNoStore, d.NoStore)
	flag(DirectiveNoTransform, d.NoTransform)
	flag(DirectiveOnlyIfCached, d.OnlyIfCached)
	flag(DirectivePrivate, d.Private)
	flag(DirectiveProxyRevalidate, d.ProxyRevalidate)
	flag(DirectivePublic, d.Public)
	seconds(DirectiveStaleWhileRevalidate, d.StaleWhileRevalidate)
	seconds(DirectiveStaleIfError, d.StaleIfError)

	names := make([]string, 0, len(d.Extensions))
	for name := range d.Extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if v := d.Extensions[name]; v != nil {
			parts = append(parts, name+"="+*v)
			continue
		}
		parts = append(parts, name)
	}

	return strings.Join(parts, ", ")
}

// Names returns the recognised directive names.
func Names() []string {
	return []string{
		DirectiveMaxAge,
		DirectiveSharedMaxAge,
		DirectiveMaxStale,
		DirectiveMinFresh,
		DirectiveImmutable,
		DirectiveMustRevalidate,
		DirectiveNoCache,
		DirectiveNoStore,
		DirectiveNoTransform,
		DirectiveOnlyIfCached,
		DirectivePrivate,
		DirectiveProxyRevalidate,
		DirectivePublic,
		DirectiveStaleWhileRevalidate,
		DirectiveStaleIfError,
	}
}

func isPresent(values map[string]*string, name string) bool {
	_, ok := values[name]
	return ok
}

// parseDuration parses delta-seconds (RFC 9111 §1.2.2). Values too large for
// int64 saturate instead of being rejected.
func parseDuration(values map[string]*string, name string) *int64 {
	v, ok := values[name]
	if !ok || v == nil || *v == "" || (*v)[0] == '-' || (*v)[0] == '+' {
		return nil
	}
	n, err := strconv.ParseInt(*v, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && numErr.Err == strconv.ErrRange {
			n = math.MaxInt64
		} else {
			return nil
		}
	}
	return &n
}
