// Package cachestatus parses the Cache-Status response header (RFC 9211).
//
// On the wire, Cache-Status lists caches from the one closest to the origin
// server to the one closest to the user. Parse returns them the other way
// around, starting from the user, which is the order in which a person
// reads "what happened to my request".
package cachestatus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Well-known cache names reported by the Netlify platform.
const (
	CacheNameNextJS         = "Next.js"
	CacheNameNetlifyDurable = "Netlify Durable"
	CacheNameNetlifyEdge    = "Netlify Edge"
)

// precedence is the expected origin-to-user order of known caches.
// Netlify has been observed to emit these out of order, so entries are
// re-sorted against it before being reversed.
var precedence = []string{
	CacheNameNextJS,
	CacheNameNetlifyDurable,
	CacheNameNetlifyEdge,
}

// FwdReason is the value of the fwd parameter (RFC 9211 §2.2).
type FwdReason string

const (
	// FwdBypass: the cache was configured to not handle this request.
	FwdBypass FwdReason = "bypass"

	// FwdMethod: the request method's semantics require the request to be
	// forwarded.
	FwdMethod FwdReason = "method"

	// FwdURIMiss: the cache did not contain any responses that matched the
	// request URI.
	FwdURIMiss FwdReason = "uri-miss"

	// FwdVaryMiss: the cache contained a response that matched the request
	// URI, but could not select a response based upon this request's header
	// fields and stored Vary header fields.
	FwdVaryMiss FwdReason = "vary-miss"

	// FwdMiss: the cache did not contain any responses that could be used
	// to satisfy this request.
	FwdMiss FwdReason = "miss"

	// FwdRequest: the cache was able to select a fresh response for the
	// request, but the request's semantics did not allow its use.
	FwdRequest FwdReason = "request"

	// FwdStale: the cache was able to select a response for the request,
	// but it was stale.
	FwdStale FwdReason = "stale"

	// FwdPartial: the cache was able to select a partial response for the
	// request, but it did not contain all of the requested ranges.
	FwdPartial FwdReason = "partial"
)

// FwdReasons returns every forwarding reason defined by RFC 9211.
func FwdReasons() []FwdReason {
	return []FwdReason{
		FwdBypass,
		FwdMethod,
		FwdURIMiss,
		FwdVaryMiss,
		FwdMiss,
		FwdRequest,
		FwdStale,
		FwdPartial,
	}
}

// ParseFwdReason returns the FwdReason for s, or false if s is not one of
// the reasons defined by RFC 9211.
func ParseFwdReason(s string) (FwdReason, bool) {
	r := FwdReason(s)
	switch r {
	case FwdBypass, FwdMethod, FwdURIMiss, FwdVaryMiss, FwdMiss, FwdRequest, FwdStale, FwdPartial:
		return r, true
	default:
		return "", false
	}
}

// Description explains the forwarding reason in plain words.
func (r FwdReason) Description() string {
	switch r {
	case FwdBypass:
		return "The cache was configured to not store or serve a response for this request."
	case FwdMethod:
		return "The request method was such that the request had to be forwarded."
	case FwdURIMiss:
		return "The cache did not have a stored response for this request URI."
	case FwdVaryMiss:
		return "The cache had a response stored for this URI, but the request's Vary header field(s) differed from it."
	case FwdMiss:
		return "The cache did not have a stored response that could be used for this request."
	case FwdRequest:
		return "The cache had a fresh response, but the request's semantics (e.g. Cache-Control request directives) did not allow its use."
	case FwdStale:
		return "The cache had a stored response, but it was stale."
	case FwdPartial:
		return "The cache had only a partial response that did not cover the requested ranges."
	default:
		return ""
	}
}

// Parameters holds the typed parameters of a Cache-Status entry.
type Parameters struct {
	Hit       bool      `json:"hit"`
	Fwd       FwdReason `json:"fwd,omitempty"`
	FwdStatus *int      `json:"fwd-status,omitempty"`
	TTL       *int      `json:"ttl,omitempty"`
	Stored    bool      `json:"stored,omitempty"`
	Collapsed bool      `json:"collapsed,omitempty"`
	Key       string    `json:"key,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// Entry is one cache layer reported in a Cache-Status header.
type Entry struct {
	CacheName  string     `json:"cacheName"`
	Parameters Parameters `json:"parameters"`
}

// String renders the entry in its RFC 9211 wire form.
func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(strconv.Quote(e.CacheName))

	p := e.Parameters
	if p.Hit {
		b.WriteString("; hit")
	}
	if p.Fwd != "" {
		fmt.Fprintf(&b, "; fwd=%s", p.Fwd)
	}
	if p.FwdStatus != nil {
		fmt.Fprintf(&b, "; fwd-status=%d", *p.FwdStatus)
	}
	if p.TTL != nil {
		fmt.Fprintf(&b, "; ttl=%d", *p.TTL)
	}
	if p.Stored {
		b.WriteString("; stored")
	}
	if p.Collapsed {
		b.WriteString("; collapsed")
	}
	if p.Key != "" {
		b.WriteString("; key=" + p.Key)
	}
	if p.Detail != "" {
		b.WriteString("; detail=" + p.Detail)
	}
	return b.String()
}

// IsMiss returns true if the cache was consulted and did not serve the
// response.
func (e Entry) IsMiss() bool {
	return !e.Parameters.Hit
}

// Parse parses a Cache-Status header value into entries ordered from the
// cache closest to the user to the cache closest to the origin.
// Invalid segments are skipped.
func Parse(header string) []Entry {
	entries := make([]Entry, 0)
	if header == "" {
		return entries
	}

	for _, segment := range strings.Split(header, ", ") {
		entry, ok := parseEntry(segment)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return rank(entries[i].CacheName) < rank(entries[j].CacheName)
	})

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries
}

// rank returns the position of name in the precedence list, or -1 for
// caches we know nothing about. Unknown caches therefore end up closest to
// the origin.
func rank(name string) int {
	for i, n := range precedence {
		if n == name {
			return i
		}
	}
	return -1
}

func parseEntry(segment string) (Entry, bool) {
	parts := strings.Split(segment, "; ")
	name := unquote(parts[0])
	if name == "" || len(parts) < 2 {
		log.Warn().
			Str("component", "cachestatus").
			Str("entry", segment).
			Msg("Ignoring invalid cache status entry")
		return Entry{}, false
	}

	params := make(map[string]string, len(parts)-1)
	for _, part := range parts[1:] {
		key, value, _ := strings.Cut(part, "=")
		if key == "" {
			log.Warn().
				Str("component", "cachestatus").
				Str("entry", segment).
				Str("parameter", part).
				Msg("Ignoring invalid cache status parameter")
			continue
		}
		params[key] = value
	}

	entry := Entry{CacheName: name}
	p := &entry.Parameters
	_, p.Hit = params["hit"]
	_, p.Stored = params["stored"]
	_, p.Collapsed = params["collapsed"]
	p.FwdStatus = parseInt(params, "fwd-status")
	p.TTL = parseInt(params, "ttl")
	p.Key = unquote(params["key"])
	p.Detail = unquote(params["detail"])

	if raw, ok := params["fwd"]; ok {
		if reason, known := ParseFwdReason(raw); known {
			p.Fwd = reason
		} else {
			log.Warn().
				Str("component", "cachestatus").
				Str("cache_name", name).
				Str("fwd", raw).
				Msg("Ignoring unknown cache status forward reason")
		}
	}

	return entry, true
}

// parseInt parses a non-negative integer parameter, returning nil when
// absent or malformed.
func parseInt(params map[string]string, key string) *int {
	raw, ok := params[key]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// unquote strips the surrounding double quotes of an sf-string.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
