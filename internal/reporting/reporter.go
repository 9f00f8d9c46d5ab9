// Package reporting delivers session lifecycle events (start, pause,
// progress, stop) to the server's playstate endpoints. Reporting is
// best-effort telemetry: deliveries run in the background, failures are
// logged and swallowed, and nothing is retried. Progress reports pass
// through a debouncer so scrubbing bursts reach the server as a single
// report per window.
package reporting

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/jlarvor/playhead/internal/debounce"
	"github.com/jlarvor/playhead/internal/events"
	"github.com/jlarvor/playhead/internal/jellyfin"
	"github.com/jlarvor/playhead/internal/timeline"
)

// DefaultProgressWindow is the debounce window for progress reports.
const DefaultProgressWindow = 700 * time.Millisecond

const deliveryTimeout = 15 * time.Second

// PlaystateClient is the remote delivery surface the reporter needs.
type PlaystateClient interface {
	ReportPlaybackStart(ctx context.Context, info jellyfin.PlaybackStartInfo) error
	ReportPlaybackProgress(ctx context.Context, info jellyfin.PlaybackProgressInfo) error
	ReportPlaybackStopped(ctx context.Context, info jellyfin.PlaybackStopInfo) error
}

// Snapshot is the view of session state a single report is built from. The
// owning session produces one per report so the reporter never reaches back
// into live session state from a background goroutine.
type Snapshot struct {
	Online              bool
	ItemID              string
	PlaySessionID       string
	AudioStreamIndex    int
	SubtitlesEnabled    bool
	SubtitleStreamIndex int
	PositionTicks       timeline.Ticks
	ResumePositionTicks timeline.Ticks
	PlayMethod          jellyfin.PlayMethod
}

// subtitleIndex returns the index to report, or nil when subtitles are
// disabled. The wire schema omits the field entirely in that case.
func (s Snapshot) subtitleIndex() *int {
	if !s.SubtitlesEnabled {
		return nil
	}
	idx := s.SubtitleStreamIndex
	return &idx
}

// Fixed values the playstate schema requires but this subsystem does not
// model.
const (
	reportVolumeLevel    = 100
	reportBrightness     = 100
	reportRepeatMode     = "RepeatNone"
	reportPlaylistItemID = "playlistItem0"
)

// Reporter emits lifecycle reports for one session.
type Reporter struct {
	client   PlaystateClient
	snapshot func() Snapshot
	bus      *events.Bus
	log      zerolog.Logger

	progress *debounce.Debouncer[jellyfin.PlaybackProgressInfo]

	// Wall-clock ticks captured when the start report went out.
	startTimeTicks atomic.Int64

	now func() time.Time
}

// New creates a reporter for the session described by snapshot. The
// progress window controls debouncing; zero selects the default.
func New(client PlaystateClient, snapshot func() Snapshot, bus *events.Bus, window time.Duration, log zerolog.Logger) *Reporter {
	if window <= 0 {
		window = DefaultProgressWindow
	}
	r := &Reporter{
		client:   client,
		snapshot: snapshot,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
	r.progress = debounce.New(window, r.deliverProgress)
	return r
}

// ReportStart announces the session to the server and records the playback
// start wall-clock. No-op for offline sessions.
func (r *Reporter) ReportStart() {
	snap := r.snapshot()
	if !snap.Online || r.client == nil {
		return
	}

	r.startTimeTicks.Store(r.now().Unix() * timeline.TicksPerSecond)

	info := jellyfin.PlaybackStartInfo{
		CanSeek:                true,
		ItemID:                 snap.ItemID,
		SessionID:              snap.PlaySessionID,
		MediaSourceID:          snap.ItemID,
		AudioStreamIndex:       snap.AudioStreamIndex,
		SubtitleStreamIndex:    snap.subtitleIndex(),
		IsPaused:               false,
		PositionTicks:          int64(snap.ResumePositionTicks),
		PlaybackStartTimeTicks: r.startTimeTicks.Load(),
		VolumeLevel:            reportVolumeLevel,
		Brightness:             reportBrightness,
		PlayMethod:             snap.PlayMethod,
		PlaySessionID:          snap.PlaySessionID,
		RepeatMode:             reportRepeatMode,
		PlaylistItemID:         reportPlaylistItemID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := r.client.ReportPlaybackStart(ctx, info); err != nil {
			r.log.Warn().Err(err).Str("item", snap.ItemID).Msg("start report failed")
			return
		}
		r.log.Debug().Str("item", snap.ItemID).Msg("start report sent")
	}()
}

// ReportPause announces a pause or resume at the current position. No-op
// for offline sessions.
func (r *Reporter) ReportPause(paused bool) {
	snap := r.snapshot()
	if !snap.Online || r.client == nil {
		return
	}

	info := jellyfin.PlaybackStartInfo{
		CanSeek:                true,
		ItemID:                 snap.ItemID,
		SessionID:              snap.PlaySessionID,
		MediaSourceID:          snap.ItemID,
		AudioStreamIndex:       snap.AudioStreamIndex,
		SubtitleStreamIndex:    snap.subtitleIndex(),
		IsPaused:               paused,
		PositionTicks:          int64(snap.PositionTicks),
		PlaybackStartTimeTicks: r.startTimeTicks.Load(),
		VolumeLevel:            reportVolumeLevel,
		Brightness:             reportBrightness,
		PlayMethod:             snap.PlayMethod,
		PlaySessionID:          snap.PlaySessionID,
		RepeatMode:             reportRepeatMode,
		PlaylistItemID:         reportPlaylistItemID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := r.client.ReportPlaybackStart(ctx, info); err != nil {
			r.log.Warn().Err(err).Str("item", snap.ItemID).Bool("paused", paused).Msg("pause report failed")
			return
		}
		r.log.Debug().Str("item", snap.ItemID).Bool("paused", paused).Msg("pause report sent")
	}()
}

// ReportProgress submits the current position through the debouncer. Only
// the most recent submission per window reaches the server. No-op for
// offline sessions.
func (r *Reporter) ReportProgress() {
	snap := r.snapshot()
	if !snap.Online || r.client == nil {
		return
	}

	info := jellyfin.PlaybackProgressInfo{
		CanSeek:                true,
		ItemID:                 snap.ItemID,
		SessionID:              snap.PlaySessionID,
		MediaSourceID:          snap.ItemID,
		AudioStreamIndex:       snap.AudioStreamIndex,
		SubtitleStreamIndex:    snap.subtitleIndex(),
		PositionTicks:          int64(snap.PositionTicks),
		PlaybackStartTimeTicks: r.startTimeTicks.Load(),
		PlayMethod:             snap.PlayMethod,
		PlaySessionID:          snap.PlaySessionID,
		RepeatMode:             reportRepeatMode,
		PlaylistItemID:         reportPlaylistItemID,
	}

	r.progress.Submit(info)
}

func (r *Reporter) deliverProgress(info jellyfin.PlaybackProgressInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := r.client.ReportPlaybackProgress(ctx, info); err != nil {
		r.log.Warn().Err(err).Str("item", info.ItemID).Msg("progress report failed")
		return
	}
	r.log.Debug().Str("item", info.ItemID).Int64("position", info.PositionTicks).Msg("progress report sent")
}

// ReportStop announces the end of the session and publishes StopReportSent
// on the bus whether or not the delivery succeeds. No-op for offline
// sessions.
func (r *Reporter) ReportStop() {
	snap := r.snapshot()
	if !snap.Online || r.client == nil {
		return
	}

	info := jellyfin.PlaybackStopInfo{
		ItemID:         snap.ItemID,
		SessionID:      snap.PlaySessionID,
		MediaSourceID:  snap.ItemID,
		PositionTicks:  int64(snap.PositionTicks),
		PlaySessionID:  snap.PlaySessionID,
		PlaylistItemID: reportPlaylistItemID,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		if err := r.client.ReportPlaybackStopped(ctx, info); err != nil {
			r.log.Warn().Err(err).Str("item", snap.ItemID).Msg("stop report failed")
		} else {
			r.log.Debug().Str("item", snap.ItemID).Msg("stop report sent")
		}
		if r.bus != nil {
			r.bus.PublishStopReport(events.StopReportSent{ItemID: snap.ItemID})
		}
	}()
}

// StartTimeTicks returns the wall-clock ticks recorded by ReportStart, or
// zero before it ran.
func (r *Reporter) StartTimeTicks() int64 {
	return r.startTimeTicks.Load()
}

// Close cancels any pending debounced progress report. Safe to call more
// than once.
func (r *Reporter) Close() {
	r.progress.Cancel()
}
