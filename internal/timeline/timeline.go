// Package timeline computes playback positions, remaining time and chapter
// lookups from a fractional position and an item duration. It is pure
// computation: no I/O, no failure modes. A zero or unknown duration yields
// position 0 and no chapter.
package timeline

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Chapter is a named marker on the timeline. Its range runs from Start to
// the next chapter's start; the last chapter extends to the end of the item.
type Chapter struct {
	Name  string
	Start Ticks
}

// PositionSeconds returns the current position in whole seconds for a
// fractional position in [0, 1] and a total duration in ticks.
func PositionSeconds(fraction float64, duration Ticks) int64 {
	if duration <= 0 {
		return 0
	}
	return int64(math.Round(fraction * float64(duration.Seconds())))
}

// PositionTicks returns the current position in ticks, at second precision.
func PositionTicks(fraction float64, duration Ticks) Ticks {
	return TicksFromSeconds(PositionSeconds(fraction, duration))
}

// RemainingSeconds returns the seconds left at the given fractional position.
func RemainingSeconds(fraction float64, duration Ticks) int64 {
	return duration.Seconds() - PositionSeconds(fraction, duration)
}

// ChapterAt returns the chapter containing the given tick position, or nil
// when the chapter list is empty. Chapters must be ordered by start tick.
func ChapterAt(position Ticks, chapters []Chapter) *Chapter {
	for i := range chapters {
		if position < chapters[i].Start {
			continue
		}
		if i == len(chapters)-1 || position < chapters[i+1].Start {
			return &chapters[i]
		}
	}
	return nil
}

// FormatElapsed renders a second count as "H:MM:SS", or "MM:SS" when under
// an hour. Minutes and seconds are always zero-padded to two digits.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours != 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}

// FriendlyStorage renders a file size for display ("1.2 GB"). Returns an
// empty string for an unknown size.
func FriendlyStorage(bytes int64) string {
	if bytes <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(bytes))
}
