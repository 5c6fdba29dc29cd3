package fluent

import "time"

// Clock is the injectable wall-clock source every node uses for
// Periodic deadlines and for the physical_time_inserted column lineage
// records carry. Logical time (the tick counter) is tracked by the
// Executor itself and is not injectable — only the wall clock is.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock is a test double returning a constant time, letting
// Periodic-deadline tests control elapsed-time decisions deterministically.
type FixedClock struct {
	At time.Time
}

// Now implements Clock.
func (f FixedClock) Now() time.Time { return f.At }
