package explain

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/cache-inspector/pkg/analysis"
	"github.com/Sternrassler/cache-inspector/pkg/cachecontrol"
	"github.com/Sternrassler/cache-inspector/pkg/cachestatus"
	"github.com/Sternrassler/cache-inspector/pkg/headers"
)

const none = "-"

// Render writes a plain-text report of a to w.
func Render(w io.Writer, a *analysis.Analysis) error {
	if a == nil {
		return fmt.Errorf("render: nil analysis")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Served by:\t%s\n", a.ServedBy.Source)
	if desc := a.ServedBy.Source.Description(); desc != "" {
		fmt.Fprintf(tw, "\t%s\n", desc)
	}
	fmt.Fprintf(tw, "CDN nodes:\t%s\n", a.ServedBy.CDNNodes)

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Cache status (user to origin):")
	if len(a.CacheStatus) == 0 {
		fmt.Fprintf(tw, "  %s\n", none)
	}
	for i, e := range a.CacheStatus {
		fmt.Fprintf(tw, "  %d. %s\t%s\n", i+1, e.CacheName, entrySummary(e))
	}

	cc := a.CacheControl
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "Cache control:")
	fmt.Fprintf(tw, "  Cacheable:\t%s\n", yesNo(cc.IsCacheable))
	fmt.Fprintf(tw, "  Age:\t%s\n", seconds(cc.Age))
	fmt.Fprintf(tw, "  Date:\t%s\n", timestamp(cc.Date))
	fmt.Fprintf(tw, "  Expires:\t%s\n", timestamp(cc.ExpiresAt))
	fmt.Fprintf(tw, "  ETag:\t%s\n", text(cc.ETag))
	fmt.Fprintf(tw, "  Vary:\t%s\n", text(cc.Vary))
	fmt.Fprintf(tw, "  Netlify-Vary:\t%s\n", text(cc.NetlifyVary))
	fmt.Fprintf(tw, "  TTL (browser):\t%s\n", ttl(cc.TTL))
	fmt.Fprintf(tw, "  TTL (CDN):\t%s\n", ttl(cc.CDNTTL))
	fmt.Fprintf(tw, "  TTL (Netlify CDN):\t%s\n", ttl(cc.NetlifyCDNTTL))
	fmt.Fprintf(tw, "  Revalidate:\t%s\n", text(string(cc.Revalidate)))
	fmt.Fprintf(tw, "  Cache-Control:\t%s\n", directives(cc.Directives.CacheControl))
	fmt.Fprintf(tw, "  CDN-Cache-Control:\t%s\n", directives(cc.Directives.CDNCacheControl))
	fmt.Fprintf(tw, "  Netlify-CDN-Cache-Control:\t%s\n", directives(cc.Directives.NetlifyCDNCacheControl))

	return tw.Flush()
}

// RenderHeaders writes the cache-relevant subset of h, one header per line.
func RenderHeaders(w io.Writer, h headers.Headers) error {
	relevant := headers.CacheRelevant(h)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Cache headers:")
	if relevant.Len() == 0 {
		fmt.Fprintf(tw, "  %s\n", none)
	}
	for _, name := range relevant.Names() {
		fmt.Fprintf(tw, "  %s:\t%s\n", name, relevant.Value(name))
	}
	return tw.Flush()
}

// RenderNotes writes the tooltips relevant to a: the cache layers and
// forwarding reasons it mentions, then the report fields that have a value.
func RenderNotes(w io.Writer, a *analysis.Analysis) error {
	if a == nil {
		return fmt.Errorf("render notes: nil analysis")
	}

	var b strings.Builder
	b.WriteString("Notes:\n")
	note := func(title string, t Tooltip) {
		fmt.Fprintf(&b, "\n  %s\n", title)
		for _, line := range strings.Split(Format(t), "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}

	seen := make(map[string]bool)
	for _, e := range a.CacheStatus {
		if !seen[e.CacheName] {
			seen[e.CacheName] = true
			note(e.CacheName, CacheNameTooltip(e.CacheName))
		}
	}
	for _, e := range a.CacheStatus {
		fwd := string(e.Parameters.Fwd)
		if fwd != "" && !seen["fwd="+fwd] {
			seen["fwd="+fwd] = true
			note("fwd="+fwd, ForwardReasonTooltip(fwd))
		}
	}

	cc := a.CacheControl
	fields := []struct {
		name    string
		present bool
	}{
		{FieldServedBy, true},
		{FieldCDNNodes, true},
		{FieldCacheStatus, len(a.CacheStatus) > 0},
		{FieldCacheable, true},
		{FieldAge, cc.Age != nil},
		{FieldDate, cc.Date != nil},
		{FieldExpires, cc.ExpiresAt != nil},
		{FieldETag, cc.ETag != ""},
		{FieldVary, cc.Vary != ""},
		{FieldNetlifyVary, cc.NetlifyVary != ""},
		{FieldTTL, cc.TTL != nil},
		{FieldCDNTTL, cc.CDNTTL != nil},
		{FieldNetlifyCDNTTL, cc.NetlifyCDNTTL != nil},
		{FieldRevalidate, cc.Revalidate != ""},
		{FieldCacheControl, !cc.Directives.CacheControl.IsEmpty()},
		{FieldCDNCacheControl, !cc.Directives.CDNCacheControl.IsEmpty()},
		{FieldNetlifyCDNCacheControl, !cc.Directives.NetlifyCDNCacheControl.IsEmpty()},
	}
	for _, f := range fields {
		if f.present {
			note(f.name, FieldTooltip(f.name))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// entrySummary describes what one cache did, e.g. "hit, ttl 59s" or
// "miss (fwd=uri-miss), stored".
func entrySummary(e cachestatus.Entry) string {
	p := e.Parameters
	var parts []string

	switch {
	case p.Hit:
		parts = append(parts, "hit")
	case p.Fwd != "":
		parts = append(parts, fmt.Sprintf("miss (fwd=%s)", p.Fwd))
	default:
		parts = append(parts, "miss")
	}
	if p.FwdStatus != nil {
		parts = append(parts, fmt.Sprintf("origin status %d", *p.FwdStatus))
	}
	if p.TTL != nil {
		parts = append(parts, fmt.Sprintf("ttl %ds", *p.TTL))
	}
	if p.Stored {
		parts = append(parts, "stored")
	}
	if p.Collapsed {
		parts = append(parts, "collapsed")
	}
	if p.Detail != "" {
		parts = append(parts, "detail "+p.Detail)
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func text(s string) string {
	if s == "" {
		return none
	}
	return s
}

func seconds(v *int64) string {
	if v == nil {
		return none
	}
	return fmt.Sprintf("%ds", *v)
}

func timestamp(t *time.Time) string {
	if t == nil {
		return none
	}
	return t.UTC().Format(time.RFC1123)
}

// ttl shows a TTL in whole seconds; negative TTLs read as expired.
func ttl(v *float64) string {
	if v == nil {
		return none
	}
	secs := math.Round(*v)
	if math.Abs(secs) > maxDurationSeconds {
		if secs < 0 {
			return fmt.Sprintf("expired %.0fs ago", -secs)
		}
		return fmt.Sprintf("%.0fs", secs)
	}
	d := time.Duration(secs * float64(time.Second)).Round(time.Second)
	if secs < 0 {
		return fmt.Sprintf("expired %s ago", -d)
	}
	return fmt.Sprintf("%.0fs (%s)", secs, d)
}

// maxDurationSeconds is the largest TTL that fits in a time.Duration.
const maxDurationSeconds = float64(math.MaxInt64 / int64(time.Second))

func directives(d *cachecontrol.Directives) string {
	if d.IsEmpty() {
		return none
	}
	return d.String()
}
