// Package headers provides a case-insensitive, ordered view over HTTP
// response headers.
//
// A Headers value is built once per analysis from whatever the fetch step
// captured (a plain map, an http.Header) and is never modified afterwards,
// so it can be shared freely between goroutines.
package headers

import (
	"net/http"
	"sort"
	"strings"
)

// Header names the analysis engine reads.
const (
	Age                         = "Age"
	CacheControl                = "Cache-Control"
	CacheStatus                 = "Cache-Status"
	CDNCacheControl             = "CDN-Cache-Control"
	NetlifyCDNCacheControl      = "Netlify-CDN-Cache-Control"
	DebugNetlifyCDNCacheControl = "Debug-Netlify-CDN-Cache-Control"
	Date                        = "Date"
	ETag                        = "ETag"
	Expires                     = "Expires"
	Vary                        = "Vary"
	NetlifyVary                 = "Netlify-Vary"
	Server                      = "Server"
	DebugFunctionType           = "Debug-X-NF-Function-Type"
	FunctionType                = "X-NF-Function-Type"
	DebugEdgeFunctions          = "Debug-X-NF-Edge-Functions"
	EdgeFunctions               = "X-NF-Edge-Functions"
	DebugHostID                 = "Debug-X-BB-Host-Id"
	HostID                      = "X-BB-Host-Id"
	NetlifyDebugLoggingRequest  = "X-NF-Debug-Logging"
)

const (
	valueSeparator = ", "
	debugPrefix    = "debug-"
)

type field struct {
	name  string // as first seen
	value string
}

// Headers is an immutable case-insensitive header mapping. Names keep the
// spelling they were first seen with; iteration order is by lowercase name.
// The zero value is an empty mapping.
type Headers struct {
	fields []field
	index  map[string]int
}

// FromMap builds Headers from a name→value map. Names that differ only in
// case are merged, their values joined with ", " in name order.
func FromMap(m map[string]string) Headers {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	b := newBuilder(len(m))
	for _, name := range names {
		b.add(name, m[name])
	}
	return b.build()
}

// FromHTTP builds Headers from an http.Header. Multiple values of one
// header are joined with ", ".
func FromHTTP(h http.Header) Headers {
	m := make(map[string]string, len(h))
	for name, values := range h {
		m[name] = strings.Join(values, valueSeparator)
	}
	return FromMap(m)
}

// New builds Headers from alternating name, value arguments. A trailing
// name without a value is ignored.
func New(pairs ...string) Headers {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		if existing, ok := m[pairs[i]]; ok {
			m[pairs[i]] = existing + valueSeparator + pairs[i+1]
			continue
		}
		m[pairs[i]] = pairs[i+1]
	}
	return FromMap(m)
}

// Get returns the value of the named header and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	i, ok := h.index[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return h.fields[i].value, true
}

// Value returns the value of the named header, or "" when absent.
func (h Headers) Value(name string) string {
	v, _ := h.Get(name)
	return v
}

// Has reports whether the named header is present, even with an empty value.
func (h Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// First returns the value of the first present header among names.
func (h Headers) First(names ...string) (string, bool) {
	for _, name := range names {
		if v, ok := h.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

// Len returns the number of distinct headers.
func (h Headers) Len() int {
	return len(h.fields)
}

// Names returns header names in iteration order.
func (h Headers) Names() []string {
	out := make([]string, len(h.fields))
	for i, f := range h.fields {
		out[i] = f.name
	}
	return out
}

// Map returns a copy of the headers as a plain map.
func (h Headers) Map() map[string]string {
	out := make(map[string]string, len(h.fields))
	for _, f := range h.fields {
		out[f.name] = f.value
	}
	return out
}

// relevantPrefixes and relevantNames select the headers worth showing when
// explaining caching behaviour. Debug- variants are matched after stripping
// the prefix.
var (
	relevantPrefixes = []string{"content-", "netlify-", "x-bb-", "x-nf-"}
	relevantNames    = map[string]struct{}{
		"age":               {},
		"cache-control":     {},
		"cdn-cache-control": {},
		"cache-status":      {},
		"cache-tag":         {},
		"date":              {},
		"etag":              {},
		"expires":           {},
		"vary":              {},
		"x-nextjs-cache":    {},
	}
)

// IsCacheRelevant reports whether the named header influences or describes
// caching.
func IsCacheRelevant(name string) bool {
	lower := strings.TrimPrefix(strings.ToLower(name), debugPrefix)
	if _, ok := relevantNames[lower]; ok {
		return true
	}
	for _, p := range relevantPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// CacheRelevant returns the subset of h that relates to caching.
func CacheRelevant(h Headers) Headers {
	b := newBuilder(h.Len())
	for _, f := range h.fields {
		if IsCacheRelevant(f.name) {
			b.add(f.name, f.value)
		}
	}
	return b.build()
}

type builder struct {
	fields []field
	index  map[string]int
}

func newBuilder(n int) *builder {
	return &builder{
		fields: make([]field, 0, n),
		index:  make(map[string]int, n),
	}
}

func (b *builder) add(name, value string) {
	key := strings.ToLower(name)
	if i, ok := b.index[key]; ok {
		b.fields[i].value += valueSeparator + value
		return
	}
	b.index[key] = len(b.fields)
	b.fields = append(b.fields, field{name: name, value: value})
}

// build orders fields by lowercase name and reindexes them.
func (b *builder) build() Headers {
	sort.SliceStable(b.fields, func(i, j int) bool {
		return strings.ToLower(b.fields[i].name) < strings.ToLower(b.fields[j].name)
	})
	for i, f := range b.fields {
		b.index[strings.ToLower(f.name)] = i
	}
	return Headers{fields: b.fields, index: b.index}
}
