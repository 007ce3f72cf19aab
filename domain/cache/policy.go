package cache

import "time"

// IsValidAt reports whether a value with the given status is still usable at
// now under the maxAge validity window. A status that was never classified
// (zero CachedAt) is never valid.
func IsValidAt(s Status, maxAge time.Duration, now time.Time) bool {
	if s.CachedAt.IsZero() {
		return false
	}
	return now.Sub(s.CachedAt) < maxAge
}

// IsValid is IsValidAt evaluated at the current time.
func IsValid(s Status, maxAge time.Duration) bool {
	return IsValidAt(s, maxAge, time.Now())
}

// ShouldRefreshAt reports whether a value with the given status should be
// proactively re-fetched at now. Unknown provenance always refreshes. Values
// served from cache refresh once past half their validity window, so views
// stay warm without a visible stale-then-refetch flash. Freshly fetched
// values are trusted for the full window.
func ShouldRefreshAt(s Status, maxAge time.Duration, now time.Time) bool {
	if s.CachedAt.IsZero() {
		return true
	}
	if s.Cached {
		return now.Sub(s.CachedAt) > maxAge/2
	}
	return !IsValidAt(s, maxAge, now)
}

// ShouldRefresh is ShouldRefreshAt evaluated at the current time.
func ShouldRefresh(s Status, maxAge time.Duration) bool {
	return ShouldRefreshAt(s, maxAge, time.Now())
}
