package timeline

import "time"

// TicksPerSecond is the server tick resolution (100ns units).
const TicksPerSecond int64 = 10_000_000

// Ticks is a position or duration in server ticks.
type Ticks int64

// TicksFromSeconds converts whole seconds to ticks.
func TicksFromSeconds(seconds int64) Ticks {
	return Ticks(seconds * TicksPerSecond)
}

// TicksFromDuration converts a time.Duration to ticks.
func TicksFromDuration(d time.Duration) Ticks {
	return Ticks(d.Nanoseconds() / 100)
}

// Seconds returns the tick value in whole seconds, truncated.
func (t Ticks) Seconds() int64 {
	return int64(t) / TicksPerSecond
}

// Duration returns the tick value as a time.Duration.
func (t Ticks) Duration() time.Duration {
	return time.Duration(int64(t) * 100)
}
