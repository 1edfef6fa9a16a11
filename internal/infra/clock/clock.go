// Package clock centralizes "what time is it" so components that need to be
// tested deterministically (dedup windows, the scanner's staleness ladder)
// depend on a func value, not on time.Now directly. The translation cache's
// TTL reads time.Now itself and is not governed by Set.
package clock

import "time"

// Func returns the current time. Swappable in tests via Set.
type Func func() time.Time

var now Func = time.Now

// Now returns the current time via the active Func.
func Now() time.Time {
	return now()
}

// Set overrides the active clock function for tests; it returns the
// previous Func so callers can defer clock.Set(previous) to restore it.
func Set(fn Func) (previous Func) {
	previous = now
	if fn == nil {
		now = time.Now
	} else {
		now = fn
	}
	return previous
}
