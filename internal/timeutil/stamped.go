package timeutil

import "time"

// Fresh reports whether a value stamped at `at` is still usable at now. A
// zero stamp is never fresh; an age equal to window is stale.
func Fresh(now, at time.Time, window time.Duration) bool {
	return !at.IsZero() && now.Sub(at) < window
}

// Stamped pairs a value with the clock time it was recorded.
type Stamped[T any] struct {
	Value T
	At    time.Time
}

// Stamp records v at the clock's current time.
func Stamp[T any](c Clock, v T) Stamped[T] {
	return Stamped[T]{Value: v, At: c.Now()}
}

// IsSet reports whether a value has ever been recorded.
func (s Stamped[T]) IsSet() bool { return !s.At.IsZero() }

// FreshAt reports whether the value is younger than window at now.
func (s Stamped[T]) FreshAt(now time.Time, window time.Duration) bool {
	return Fresh(now, s.At, window)
}
