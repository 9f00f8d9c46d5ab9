package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSeconds(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
		duration Ticks
		want     int64
	}{
		{"zero fraction", 0, TicksFromSeconds(360), 0},
		{"midpoint", 0.5, Ticks(3_600_000_000), 180},
		{"end", 1, TicksFromSeconds(360), 360},
		{"rounds nearest", 0.25, TicksFromSeconds(90), 23}, // 22.5 rounds up
		{"zero duration", 0.5, 0, 0},
		{"negative duration", 0.5, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionSeconds(tt.fraction, tt.duration); got != tt.want {
				t.Errorf("PositionSeconds(%v, %d) = %d, want %d", tt.fraction, tt.duration, got, tt.want)
			}
		})
	}
}

func TestRemainingSeconds(t *testing.T) {
	duration := TicksFromSeconds(360)
	for _, fraction := range []float64{0, 0.1, 0.25, 0.5, 0.9, 1} {
		pos := PositionSeconds(fraction, duration)
		rem := RemainingSeconds(fraction, duration)
		assert.Equal(t, duration.Seconds(), pos+rem, "fraction %v", fraction)
		assert.GreaterOrEqual(t, rem, int64(0), "fraction %v", fraction)
	}
}

func TestPositionTicks(t *testing.T) {
	got := PositionTicks(0.5, Ticks(3_600_000_000))
	if got != Ticks(1_800_000_000) {
		t.Errorf("PositionTicks = %d, want 1800000000", got)
	}
}

func TestChapterAt(t *testing.T) {
	chapters := []Chapter{
		{Name: "Opening", Start: 0},
		{Name: "Act One", Start: TicksFromSeconds(90)},
		{Name: "Act Two", Start: TicksFromSeconds(200)},
	}

	tests := []struct {
		name     string
		position Ticks
		want     string
	}{
		{"start of first", 0, "Opening"},
		{"inside first", TicksFromSeconds(89), "Opening"},
		{"boundary belongs to next", TicksFromSeconds(90), "Act One"},
		{"inside second", TicksFromSeconds(150), "Act One"},
		{"last chapter is unbounded", TicksFromSeconds(5000), "Act Two"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ChapterAt(tt.position, chapters)
			if got == nil {
				t.Fatalf("ChapterAt(%d) = nil, want %q", tt.position, tt.want)
			}
			if got.Name != tt.want {
				t.Errorf("ChapterAt(%d) = %q, want %q", tt.position, got.Name, tt.want)
			}
		})
	}
}

func TestChapterAt_NoChapters(t *testing.T) {
	if got := ChapterAt(TicksFromSeconds(10), nil); got != nil {
		t.Errorf("ChapterAt with no chapters = %v, want nil", got)
	}
}

func TestChapterAt_PartitionsTimeline(t *testing.T) {
	chapters := []Chapter{
		{Name: "a", Start: 0},
		{Name: "b", Start: TicksFromSeconds(60)},
		{Name: "c", Start: TicksFromSeconds(120)},
	}
	duration := TicksFromSeconds(180)
	for s := int64(0); s <= duration.Seconds(); s += 7 {
		got := ChapterAt(TicksFromSeconds(s), chapters)
		if got == nil {
			t.Fatalf("ChapterAt(%ds) = nil, every position must have a chapter", s)
		}
	}
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		seconds int64
		want    string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{180, "03:00"},
		{3599, "59:59"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{36000, "10:00:00"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatElapsed(tt.seconds); got != tt.want {
			t.Errorf("FormatElapsed(%d) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestFriendlyStorage(t *testing.T) {
	assert.Equal(t, "", FriendlyStorage(0))
	assert.Equal(t, "1.0 GB", FriendlyStorage(1_000_000_000))
}

func TestTicksRoundTrip(t *testing.T) {
	assert.Equal(t, int64(360), Ticks(3_600_000_000).Seconds())
	assert.Equal(t, Ticks(3_600_000_000), TicksFromSeconds(360))
	assert.Equal(t, Ticks(10_000_000), TicksFromDuration(1_000_000_000)) // 1s
}
