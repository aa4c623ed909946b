// Package analysis explains the caching behaviour of a single HTTP response.
//
// Given the response headers and a reference time, the analyzer reports:
//
//   - who served the response and through which CDN nodes
//   - the Cache-Status chain, ordered from the user towards the origin
//   - cacheability, per-tier TTLs and the revalidation policy
//
// Every function in this package is pure. The current time is always passed
// in by the caller and never read from the clock, so results are
// reproducible and safe to compute concurrently.
//
// # Basic Usage
//
//	a, err := analysis.AnalyzeMap(map[string]string{
//		"Cache-Status":       `"Netlify Edge"; hit`,
//		"Debug-X-BB-Host-Id": "node1.example.com",
//		"Cache-Control":      "public, max-age=3600",
//		"Age":                "120",
//	}, time.Now())
//	if errors.Is(err, analysis.ErrUndeterminedServedBy) {
//		// the response shape is not recognised
//	}
//	fmt.Println(a.ServedBy.Source) // CDN
//
// # TTLs
//
// Each cache tier reads its max-age from a precedence chain:
//
//   - ttl: Cache-Control max-age
//   - cdnTtl: CDN-Cache-Control s-maxage, max-age, then Cache-Control s-maxage, max-age
//   - netlifyCdnTtl: Netlify-CDN-Cache-Control s-maxage, max-age, then the cdnTtl chain
//
// A negative TTL means the response is already stale for that tier.
package analysis
