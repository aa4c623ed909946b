package analysis

import "time"

// TimeToLive returns the number of seconds a response stays fresh, computed
// from its age, Date, Expires and an effective max-age. The result is
// negative when the response is already stale. ok is false when neither
// maxAge nor expiresAt is known.
//
// Missing inputs are reconstructed from now:
//
//   - date defaults to now
//   - age defaults to now - date
//   - with no maxAge, expiresAt - date is used (date defaulting to now - age)
//
// Arithmetic is done at millisecond precision.
func TimeToLive(age *int64, date, expiresAt *time.Time, maxAge *int64, now time.Time) (ttl float64, ok bool) {
	nowMs := float64(now.UnixMilli())

	dateMs := nowMs
	if date != nil {
		dateMs = float64(date.UnixMilli())
	}

	var effectiveAge float64
	if age != nil {
		effectiveAge = float64(*age)
	} else {
		effectiveAge = (nowMs - dateMs) / 1000
	}

	var effectiveMaxAge float64
	switch {
	case maxAge != nil:
		effectiveMaxAge = float64(*maxAge)
	case expiresAt != nil:
		baseMs := nowMs - 1000*effectiveAge
		if date != nil {
			baseMs = dateMs
		}
		effectiveMaxAge = (float64(expiresAt.UnixMilli()) - baseMs) / 1000
	default:
		return 0, false
	}

	return effectiveMaxAge - effectiveAge, true
}
