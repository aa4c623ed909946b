package analysis

import (
	"strings"

	"github.com/Sternrassler/cache-inspector/pkg/cachestatus"
	"github.com/Sternrassler/cache-inspector/pkg/headers"
)

// Source is the component that produced a response.
type Source string

const (
	// SourceCDN: a Netlify Edge cache hit.
	SourceCDN Source = "CDN"

	// SourceCDNOrigin: the edge missed and forwarded to origin with no
	// other cache layer consulted.
	SourceCDNOrigin Source = "CDN Origin"

	// SourceDurableCache: a hit in the regionally shared durable cache.
	SourceDurableCache Source = "Durable Cache"

	// SourceFunction: generated by a serverless function.
	SourceFunction Source = "Function"

	// SourceEdgeFunction: generated by an edge function.
	SourceEdgeFunction Source = "Edge Function"
)

// UnknownCDNNode stands in for the CDN node list when the response does not
// name any node.
const UnknownCDNNode = "unknown CDN node"

// Sources returns every Source.
func Sources() []Source {
	return []Source{SourceCDN, SourceCDNOrigin, SourceDurableCache, SourceFunction, SourceEdgeFunction}
}

// Valid reports whether s is one of the defined sources.
func (s Source) Valid() bool {
	switch s {
	case SourceCDN, SourceCDNOrigin, SourceDurableCache, SourceFunction, SourceEdgeFunction:
		return true
	default:
		return false
	}
}

// Description explains the source in plain words.
func (s Source) Description() string {
	switch s {
	case SourceCDN:
		return "Served from Netlify's global edge cache without contacting the origin."
	case SourceCDNOrigin:
		return "The edge cache missed and forwarded the request to the origin; no other cache layer was consulted."
	case SourceDurableCache:
		return "Served from the Netlify Durable cache, an opt-in cache layer that is shared regionally."
	case SourceFunction:
		return "Generated by a serverless function."
	case SourceEdgeFunction:
		return "Generated by an edge function."
	default:
		return ""
	}
}

// ServedBy is the resolved serving component and the CDN nodes involved.
type ServedBy struct {
	Source   Source `json:"source"`
	CDNNodes string `json:"cdnNodes"`
}

// ResolveServedBy determines which single component served the response.
// entries must be in user-to-origin order, as returned by cachestatus.Parse.
//
// Rules are applied in order, first match wins:
//
//  1. the first Netlify Edge or Netlify Durable hit
//  2. a function debug header
//  3. an edge function debug header
//  4. a lone Netlify Edge miss (forwarded to origin)
//
// When nothing matches an *UndeterminedServedByError is returned.
func ResolveServedBy(h headers.Headers, entries []cachestatus.Entry) (ServedBy, error) {
	source, err := resolveSource(h, entries)
	if err != nil {
		return ServedBy{}, err
	}
	return ServedBy{
		Source:   source,
		CDNNodes: cdnNodes(h),
	}, nil
}

func resolveSource(h headers.Headers, entries []cachestatus.Entry) (Source, error) {
	for _, e := range entries {
		if !e.Parameters.Hit {
			continue
		}
		switch e.CacheName {
		case cachestatus.CacheNameNetlifyEdge:
			return SourceCDN, nil
		case cachestatus.CacheNameNetlifyDurable:
			return SourceDurableCache, nil
		}
	}

	// A function response can also carry the edge functions header when
	// middleware ran, so functions are checked first.
	if h.Has(headers.DebugFunctionType) || h.Has(headers.FunctionType) {
		return SourceFunction, nil
	}
	if h.Has(headers.DebugEdgeFunctions) || h.Has(headers.EdgeFunctions) {
		return SourceEdgeFunction, nil
	}

	if len(entries) == 1 && entries[0].CacheName == cachestatus.CacheNameNetlifyEdge && entries[0].IsMiss() {
		return SourceCDNOrigin, nil
	}

	return "", &UndeterminedServedByError{Entries: entries}
}

// cdnNodes returns the deduplicated host id list. The same node is
// sometimes reported twice for one request.
func cdnNodes(h headers.Headers) string {
	raw, ok := h.First(headers.DebugHostID, headers.HostID)
	if !ok {
		return UnknownCDNNode
	}

	seen := make(map[string]struct{})
	nodes := make([]string, 0)
	for _, node := range strings.Split(raw, ", ") {
		if _, dup := seen[node]; dup {
			continue
		}
		seen[node] = struct{}{}
		nodes = append(nodes, node)
	}
	return strings.Join(nodes, ", ")
}
