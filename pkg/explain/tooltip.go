// Package explain turns an analysis into words: short tooltips for each
// cache layer, forwarding reason and report field, and a plain-text report
// for terminals.
package explain

import (
	"fmt"

	"github.com/Sternrassler/cache-inspector/pkg/cachestatus"
)

// Tooltip is a short explanation with an optional documentation link.
type Tooltip struct {
	Text string `json:"text"`
	URL  string `json:"url,omitempty"`
}

// Format renders t as text, followed by a "Learn more" line when t has a URL.
func Format(t Tooltip) string {
	if t.URL == "" {
		return t.Text
	}
	return t.Text + "\n\nLearn more: " + t.URL
}

var cacheNameTooltips = map[string]Tooltip{
	cachestatus.CacheNameNetlifyEdge: {
		Text: "Netlify's global edge cache layer. Responses cached here are served from the CDN node closest to the user.",
		URL:  "https://docs.netlify.com/platform/caching/",
	},
	cachestatus.CacheNameNetlifyDurable: {
		Text: "Netlify's durable cache, an opt-in cache layer that is shared regionally across CDN nodes. Enabled with the durable directive.",
		URL:  "https://docs.netlify.com/build/caching/caching-overview/#durable-directive",
	},
	cachestatus.CacheNameNextJS: {
		Text: "Next.js application-level caching (Full Route Cache), applied by the framework before the response reaches the CDN.",
		URL:  "https://nextjs.org/docs/app/guides/caching#full-route-cache",
	},
}

// CacheNameTooltip explains a cache layer named in Cache-Status.
func CacheNameTooltip(name string) Tooltip {
	if t, ok := cacheNameTooltips[name]; ok {
		return t
	}
	return Tooltip{
		Text: fmt.Sprintf("Third-party cache layer %q reported in the Cache-Status header.", name),
	}
}

// ForwardReasonTooltip explains the fwd parameter of a Cache-Status entry.
func ForwardReasonTooltip(reason string) Tooltip {
	if r, ok := cachestatus.ParseFwdReason(reason); ok {
		return Tooltip{
			Text: r.Description(),
			URL:  "https://www.rfc-editor.org/rfc/rfc9211#section-2.2",
		}
	}
	return Tooltip{Text: "Cache forwarding reason: " + reason}
}

// Report fields with a tooltip.
const (
	FieldServedBy               = "served-by"
	FieldCDNNodes               = "cdn-nodes"
	FieldCacheStatus            = "cache-status"
	FieldCacheable              = "cacheable"
	FieldAge                    = "age"
	FieldDate                   = "date"
	FieldExpires                = "expires"
	FieldETag                   = "etag"
	FieldVary                   = "vary"
	FieldNetlifyVary            = "netlify-vary"
	FieldTTL                    = "ttl"
	FieldCDNTTL                 = "cdn-ttl"
	FieldNetlifyCDNTTL          = "netlify-cdn-ttl"
	FieldRevalidate             = "revalidate"
	FieldCacheControl           = "cache-control"
	FieldCDNCacheControl        = "cdn-cache-control"
	FieldNetlifyCDNCacheControl = "netlify-cdn-cache-control"
)

var fieldTooltips = map[string]Tooltip{
	FieldServedBy: {
		Text: "The service or component that ultimately served this response: a CDN cache, the durable cache, a function, an edge function or the origin behind the CDN.",
	},
	FieldCDNNodes: {
		Text: "The specific CDN node(s) that handled this request, from the X-BB-Host-Id header.",
	},
	FieldCacheStatus: {
		Text: "Each cache the request passed through, from the one closest to the user to the one closest to the origin, and what it did.",
		URL:  "https://www.rfc-editor.org/rfc/rfc9211",
	},
	FieldCacheable: {
		Text: "Whether browsers and shared caches may store this response. private, no-store and no-cache in Cache-Control make it not cacheable.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cache-Control",
	},
	FieldAge: {
		Text: "How many seconds the response has been in a cache, from the Age header.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Age",
	},
	FieldDate: {
		Text: "When the response was generated by the origin, from the Date header.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Date",
	},
	FieldExpires: {
		Text: "When the response becomes stale, from the Expires header. Ignored when max-age is present.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Expires",
	},
	FieldETag: {
		Text: "An identifier for this version of the resource, used to revalidate a stale response without downloading it again.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/ETag",
	},
	FieldVary: {
		Text: "Request headers that select between different cached versions of this URL.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Vary",
	},
	FieldNetlifyVary: {
		Text: "Netlify-specific header that controls cache key variation by query parameters, headers, cookies, language or country.",
		URL:  "https://docs.netlify.com/build/caching/caching-overview/#cache-key-variation",
	},
	FieldTTL: {
		Text: "How long browsers will consider this response fresh, in seconds, from Cache-Control max-age.",
	},
	FieldCDNTTL: {
		Text: "How long shared caches will consider this response fresh, in seconds, from CDN-Cache-Control or Cache-Control s-maxage.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cache-Control#s-maxage",
	},
	FieldNetlifyCDNTTL: {
		Text: "How long Netlify's CDN will consider this response fresh, in seconds. Netlify-CDN-Cache-Control takes precedence over CDN-Cache-Control.",
		URL:  "https://docs.netlify.com/build/caching/caching-overview/#supported-cache-control-headers",
	},
	FieldRevalidate: {
		Text: "What happens once the response is stale: must-revalidate requires a check with the origin, immutable promises the response never changes.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cache-Control#must-revalidate",
	},
	FieldCacheControl: {
		Text: "Caching directives for every cache, browsers included.",
		URL:  "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/Cache-Control",
	},
	FieldCDNCacheControl: {
		Text: "Caching directives for CDNs only. Browsers ignore this header.",
		URL:  "https://www.rfc-editor.org/rfc/rfc9213",
	},
	FieldNetlifyCDNCacheControl: {
		Text: "Caching directives for Netlify's CDN only. Neither browsers nor other CDNs see them.",
		URL:  "https://docs.netlify.com/build/caching/caching-overview/#supported-cache-control-headers",
	},
}

// FieldTooltip explains a report field.
func FieldTooltip(field string) Tooltip {
	if t, ok := fieldTooltips[field]; ok {
		return t
	}
	return Tooltip{Text: "Information about " + field}
}
