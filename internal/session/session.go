// Package session coordinates one in-progress playback session: its
// timeline state, its lifecycle reporting, and its links to the previous
// and next queued sessions. A session is owned by a single coordinating
// context; its mutating methods must not be called concurrently from two
// goroutines.
package session

import (
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jlarvor/playhead/internal/events"
	"github.com/jlarvor/playhead/internal/jellyfin"
	"github.com/jlarvor/playhead/internal/player"
	"github.com/jlarvor/playhead/internal/reporting"
	"github.com/jlarvor/playhead/internal/timeline"
)

// NetworkMode selects whether the session reports to the server.
type NetworkMode string

const (
	// NetworkOnline enables playstate reporting.
	NetworkOnline NetworkMode = "online"
	// NetworkLocal plays local media only; the session never performs
	// network I/O.
	NetworkLocal NetworkMode = "local"
)

// Options seeds the mutable session state at construction.
type Options struct {
	NetworkMode         NetworkMode // default online
	AudioStreamIndex    int
	SubtitleStreamIndex int
	SubtitlesEnabled    bool
	Autoplay            bool
	SyncAdjacent        bool
	PlaybackSpeed       float64       // default 1.0
	ProgressWindow      time.Duration // default reporting.DefaultProgressWindow
	JumpBackwardSeconds int64         // skip-back step, default 15
	JumpForwardSeconds  int64         // skip-forward step, default 15
	ResumeOffset        bool          // rewind slightly when resuming partially watched media
	ConfirmClose        bool          // the UI should confirm before closing this session
}

// resumeRewindSeconds is how far a resume position is pulled back when the
// resume-offset option is on, so the viewer re-sees the moment they left.
const resumeRewindSeconds = 5

// Session tracks the timeline and preference state of a single playing
// item and owns its lifecycle reporter.
type Session struct {
	mu sync.Mutex

	media Media
	log   zerolog.Logger
	bus   *events.Bus

	reporter *reporting.Reporter
	engine   player.Interface

	mode                NetworkMode
	fraction            float64
	leftLabel           string
	rightLabel          string
	audioStreamIndex    int
	subtitlesEnabled    bool
	subtitleStreamIndex int
	autoplay            bool
	playbackSpeed       float64
	syncAdjacent        bool
	jumpBackward        int64
	jumpForward         int64
	confirmClose        bool

	previous *Session
	next     *Session

	// True while a sibling sync push is being applied to this session;
	// blocks propagation from recursing beyond one hop.
	propagating bool

	closed bool

	subs   []*Subscription
	subsMu sync.RWMutex
}

// New creates a session for the given media. The playstate client may be
// nil for purely local sessions.
func New(media Media, client reporting.PlaystateClient, bus *events.Bus, opts Options, log zerolog.Logger) *Session {
	if opts.NetworkMode == "" {
		opts.NetworkMode = NetworkOnline
	}
	if opts.PlaybackSpeed == 0 {
		opts.PlaybackSpeed = 1.0
	}
	if opts.JumpBackwardSeconds <= 0 {
		opts.JumpBackwardSeconds = 15
	}
	if opts.JumpForwardSeconds <= 0 {
		opts.JumpForwardSeconds = 15
	}

	s := &Session{
		media:               media,
		log:                 log.With().Str("item", media.Item.ID).Logger(),
		bus:                 bus,
		mode:                opts.NetworkMode,
		audioStreamIndex:    opts.AudioStreamIndex,
		subtitleStreamIndex: opts.SubtitleStreamIndex,
		subtitlesEnabled:    opts.SubtitlesEnabled,
		autoplay:            opts.Autoplay,
		playbackSpeed:       opts.PlaybackSpeed,
		syncAdjacent:        opts.SyncAdjacent,
		jumpBackward:        opts.JumpBackwardSeconds,
		jumpForward:         opts.JumpForwardSeconds,
		confirmClose:        opts.ConfirmClose,
	}

	if media.Item.UserData != nil {
		s.fraction = media.Item.UserData.PlayedPercentage / 100
	}
	if opts.ResumeOffset && s.fraction > 0 {
		if duration := media.DurationTicks(); duration > 0 {
			s.fraction -= float64(resumeRewindSeconds*timeline.TicksPerSecond) / float64(duration)
			if s.fraction < 0 {
				s.fraction = 0
			}
		}
	}
	s.leftLabel, s.rightLabel = s.labelsLocked()

	s.reporter = reporting.New(client, s.reportSnapshot, bus, opts.ProgressWindow, s.log)
	return s
}

// Item returns the item this session plays.
func (s *Session) Item() jellyfin.Item {
	return s.media.Item
}

// Media returns the resolved media descriptor.
func (s *Session) Media() Media {
	return s.media
}

// PlaySessionID returns the server-assigned session identifier.
func (s *Session) PlaySessionID() string {
	return s.media.Response.PlaySessionID
}

// NetworkMode returns the current reporting mode.
func (s *Session) NetworkMode() NetworkMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SetNetworkMode toggles reporting between online and local.
func (s *Session) SetNetworkMode(mode NetworkMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// AttachPlayer connects the media engine so seeks and rate changes reach
// it.
func (s *Session) AttachPlayer(p player.Interface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine = p
}

// reportSnapshot builds the reporter's view of current state.
func (s *Session) reportSnapshot() reporting.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var resume timeline.Ticks
	if s.media.Item.UserData != nil {
		resume = timeline.Ticks(s.media.Item.UserData.PlaybackPositionTicks)
	}
	return reporting.Snapshot{
		Online:              s.mode == NetworkOnline,
		ItemID:              s.media.Item.ID,
		PlaySessionID:       s.media.Response.PlaySessionID,
		AudioStreamIndex:    s.audioStreamIndex,
		SubtitlesEnabled:    s.subtitlesEnabled,
		SubtitleStreamIndex: s.subtitleStreamIndex,
		PositionTicks:       timeline.PositionTicks(s.fraction, s.media.DurationTicks()),
		ResumePositionTicks: resume,
		PlayMethod:          s.media.PlayMethod,
	}
}

func (s *Session) labelsLocked() (left, right string) {
	pos := timeline.PositionSeconds(s.fraction, s.media.DurationTicks())
	rem := timeline.RemainingSeconds(s.fraction, s.media.DurationTicks())
	return timeline.FormatElapsed(pos), timeline.FormatElapsed(rem)
}

// Fraction returns the fractional position in [0, 1].
func (s *Session) Fraction() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fraction
}

// SetFraction moves the playhead to a fractional position and refreshes
// the time labels.
func (s *Session) SetFraction(fraction float64) {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	s.mu.Lock()
	s.fraction = fraction
	s.leftLabel, s.rightLabel = s.labelsLocked()
	e := s.positionChangeLocked()
	s.mu.Unlock()

	s.notifyPosition(e)
}

func (s *Session) positionChangeLocked() PositionChange {
	return PositionChange{
		Fraction:   s.fraction,
		Position:   timeline.PositionSeconds(s.fraction, s.media.DurationTicks()),
		Remaining:  timeline.RemainingSeconds(s.fraction, s.media.DurationTicks()),
		LeftLabel:  s.leftLabel,
		RightLabel: s.rightLabel,
		Chapter:    timeline.ChapterAt(timeline.PositionTicks(s.fraction, s.media.DurationTicks()), s.media.TimelineChapters()),
	}
}

// SetSeconds seeks to an absolute position in seconds. With an unknown
// duration the call is a no-op.
func (s *Session) SetSeconds(seconds int64) {
	duration := s.media.DurationTicks()
	if duration <= 0 {
		s.log.Debug().Int64("seconds", seconds).Msg("seek ignored, duration unknown")
		return
	}

	s.SetFraction(float64(seconds*timeline.TicksPerSecond) / float64(duration))

	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine != nil {
		engine.SeekTo(time.Duration(seconds) * time.Second)
	}
}

// JumpBackward seeks back by the configured skip step, stopping at the
// start of the item.
func (s *Session) JumpBackward() {
	s.mu.Lock()
	step := s.jumpBackward
	s.mu.Unlock()

	seconds := s.CurrentSeconds() - step
	if seconds < 0 {
		seconds = 0
	}
	s.SetSeconds(seconds)
}

// JumpForward seeks ahead by the configured skip step, stopping at the end
// of the item.
func (s *Session) JumpForward() {
	s.mu.Lock()
	step := s.jumpForward
	s.mu.Unlock()

	seconds := s.CurrentSeconds() + step
	if max := s.media.DurationTicks().Seconds(); seconds > max {
		seconds = max
	}
	s.SetSeconds(seconds)
}

// ConfirmClose reports whether the UI should ask before closing this
// session.
func (s *Session) ConfirmClose() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmClose
}

// SyncFromPlayer pulls the position from the attached media engine.
func (s *Session) SyncFromPlayer() {
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine == nil {
		return
	}

	duration := engine.Duration()
	if duration <= 0 {
		return
	}
	s.SetFraction(float64(engine.Position()) / float64(duration))
}

// CurrentSeconds returns the position in whole seconds.
func (s *Session) CurrentSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timeline.PositionSeconds(s.fraction, s.media.DurationTicks())
}

// CurrentTicks returns the position in ticks at second precision.
func (s *Session) CurrentTicks() timeline.Ticks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timeline.PositionTicks(s.fraction, s.media.DurationTicks())
}

// RemainingSeconds returns the seconds left.
func (s *Session) RemainingSeconds() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timeline.RemainingSeconds(s.fraction, s.media.DurationTicks())
}

// Labels returns the elapsed and remaining time labels.
func (s *Session) Labels() (left, right string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leftLabel, s.rightLabel
}

// CurrentChapter returns the chapter at the playhead, nil without chapter
// data.
func (s *Session) CurrentChapter() *timeline.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timeline.ChapterAt(timeline.PositionTicks(s.fraction, s.media.DurationTicks()), s.media.TimelineChapters())
}

// CurrentAudioStream returns the selected audio stream, nil when the index
// matches nothing.
func (s *Session) CurrentAudioStream() *jellyfin.MediaStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media.audioStream(s.audioStreamIndex)
}

// CurrentSubtitleStream returns the selected subtitle stream, nil when the
// index matches nothing.
func (s *Session) CurrentSubtitleStream() *jellyfin.MediaStream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.media.subtitleStream(s.subtitleStreamIndex)
}

// AudioStreamIndex returns the selected audio stream index.
func (s *Session) AudioStreamIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioStreamIndex
}

// SetAudioStreamIndex selects an audio stream and pushes the selection to
// sibling sessions.
func (s *Session) SetAudioStreamIndex(index int) {
	s.mu.Lock()
	s.audioStreamIndex = index
	e := s.selectionChangeLocked()
	prev, next, sync := s.propagationTargetsLocked()
	s.mu.Unlock()

	s.notifySelection(e)
	if sync {
		if prev != nil {
			prev.matchAudioStream(s)
		}
		if next != nil {
			next.matchAudioStream(s)
		}
	}
}

// SubtitlesEnabled reports whether subtitles are on.
func (s *Session) SubtitlesEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtitlesEnabled
}

// SetSubtitlesEnabled toggles subtitles and pushes the state to sibling
// sessions.
func (s *Session) SetSubtitlesEnabled(enabled bool) {
	s.mu.Lock()
	s.subtitlesEnabled = enabled
	e := s.selectionChangeLocked()
	prev, next, sync := s.propagationTargetsLocked()
	s.mu.Unlock()

	s.notifySelection(e)
	if sync {
		if prev != nil {
			prev.matchSubtitlesEnabled(s)
		}
		if next != nil {
			next.matchSubtitlesEnabled(s)
		}
	}
}

// SubtitleStreamIndex returns the selected subtitle stream index.
func (s *Session) SubtitleStreamIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtitleStreamIndex
}

// SetSubtitleStreamIndex selects a subtitle stream and pushes the
// selection to sibling sessions.
func (s *Session) SetSubtitleStreamIndex(index int) {
	s.mu.Lock()
	s.subtitleStreamIndex = index
	e := s.selectionChangeLocked()
	prev, next, sync := s.propagationTargetsLocked()
	s.mu.Unlock()

	s.notifySelection(e)
	if sync {
		if prev != nil {
			prev.matchSubtitleStream(s)
		}
		if next != nil {
			next.matchSubtitleStream(s)
		}
	}
}

// Autoplay reports whether the next session starts automatically.
func (s *Session) Autoplay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoplay
}

// SetAutoplay toggles autoplay and pushes the flag to sibling sessions.
func (s *Session) SetAutoplay(enabled bool) {
	s.mu.Lock()
	s.autoplay = enabled
	e := s.selectionChangeLocked()
	prev, next, sync := s.propagationTargetsLocked()
	s.mu.Unlock()

	s.notifySelection(e)
	if sync {
		if prev != nil {
			prev.matchAutoplay(enabled)
		}
		if next != nil {
			next.matchAutoplay(enabled)
		}
	}
}

// PlaybackSpeed returns the playback rate.
func (s *Session) PlaybackSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playbackSpeed
}

// SetPlaybackSpeed sets the playback rate on the session and the attached
// engine. Speed is local state and never synced to siblings.
func (s *Session) SetPlaybackSpeed(rate float64) {
	if rate <= 0 {
		return
	}
	s.mu.Lock()
	s.playbackSpeed = rate
	engine := s.engine
	s.mu.Unlock()

	if engine != nil {
		engine.SetRate(rate)
	}
}

func (s *Session) selectionChangeLocked() SelectionChange {
	return SelectionChange{
		AudioStreamIndex:    s.audioStreamIndex,
		SubtitlesEnabled:    s.subtitlesEnabled,
		SubtitleStreamIndex: s.subtitleStreamIndex,
		Autoplay:            s.autoplay,
	}
}

// propagationTargetsLocked returns the sibling links and whether a sync
// push should run. Pushes are suppressed while this session is itself the
// target of one, which limits propagation to a single hop.
func (s *Session) propagationTargetsLocked() (prev, next *Session, sync bool) {
	if s.propagating || !s.syncAdjacent {
		return nil, nil, false
	}
	return s.previous, s.next, true
}

// Sibling sync application. Each matcher runs with the propagation guard
// held so the applied change cannot bounce back.

func (s *Session) beginPropagation() {
	s.mu.Lock()
	s.propagating = true
	s.mu.Unlock()
}

func (s *Session) endPropagation() {
	s.mu.Lock()
	s.propagating = false
	s.mu.Unlock()
}

// matchAudioStream selects this session's audio stream matching the
// master's current one by display title and language. No change when there
// is no match.
func (s *Session) matchAudioStream(master *Session) {
	masterStream := master.CurrentAudioStream()
	if masterStream == nil {
		return
	}

	for _, stream := range s.media.AudioStreams {
		if streamsAboutEqual(stream, *masterStream) {
			s.beginPropagation()
			s.SetAudioStreamIndex(stream.Index)
			s.endPropagation()
			return
		}
	}
}

// matchSubtitleStream mirrors the master's subtitle selection. When the
// master has subtitles disabled the enablement is carried over first.
func (s *Session) matchSubtitleStream(master *Session) {
	if !master.SubtitlesEnabled() {
		s.matchSubtitlesEnabled(master)
	}

	masterStream := master.CurrentSubtitleStream()
	if masterStream == nil {
		return
	}

	for _, stream := range s.media.SubtitleStreams {
		if streamsAboutEqual(stream, *masterStream) {
			s.beginPropagation()
			s.SetSubtitleStreamIndex(stream.Index)
			s.endPropagation()
			return
		}
	}
}

// matchSubtitlesEnabled copies the master's subtitle enablement.
func (s *Session) matchSubtitlesEnabled(master *Session) {
	s.beginPropagation()
	s.SetSubtitlesEnabled(master.SubtitlesEnabled())
	s.endPropagation()
}

// matchAutoplay copies the autoplay flag.
func (s *Session) matchAutoplay(enabled bool) {
	s.beginPropagation()
	s.SetAutoplay(enabled)
	s.endPropagation()
}

// Previous returns the previous queued session, nil when none resolved.
func (s *Session) Previous() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.previous
}

// Next returns the next queued session, nil when none resolved.
func (s *Session) Next() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// setPrevious links a resolved previous session with a symmetric
// back-reference. Returns false when this session is already closed and
// the link must be dropped.
func (s *Session) setPrevious(prev *Session) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.previous = prev
	e := s.siblingsChangeLocked()
	s.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		prev.next = s
		prev.mu.Unlock()
	}
	s.notifySiblings(e)
	return true
}

// setNext links a resolved next session with a symmetric back-reference.
func (s *Session) setNext(next *Session) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.next = next
	e := s.siblingsChangeLocked()
	s.mu.Unlock()

	if next != nil {
		next.mu.Lock()
		next.previous = s
		next.mu.Unlock()
	}
	s.notifySiblings(e)
	return true
}

func (s *Session) siblingsChangeLocked() SiblingsChange {
	return SiblingsChange{
		HasPrevious: s.previous != nil,
		HasNext:     s.next != nil,
	}
}

// DetachSiblings clears both sibling links and their back-references. Used
// by cleanup logic after a stop report.
func (s *Session) DetachSiblings() {
	s.mu.Lock()
	prev, next := s.previous, s.next
	s.previous, s.next = nil, nil
	e := s.siblingsChangeLocked()
	s.mu.Unlock()

	if prev != nil {
		prev.mu.Lock()
		if prev.next == s {
			prev.next = nil
		}
		prev.mu.Unlock()
	}
	if next != nil {
		next.mu.Lock()
		if next.previous == s {
			next.previous = nil
		}
		next.mu.Unlock()
	}
	s.notifySiblings(e)
}

// Lifecycle reporting passthroughs. The reporter holds the debouncer and
// the online guard.

// ReportStart sends the playback-start report.
func (s *Session) ReportStart() { s.reporter.ReportStart() }

// ReportPause sends a pause or resume report.
func (s *Session) ReportPause(paused bool) { s.reporter.ReportPause(paused) }

// ReportProgress submits a debounced progress report.
func (s *Session) ReportProgress() { s.reporter.ReportProgress() }

// ReportStop sends the stop report and publishes the stop notification.
func (s *Session) ReportStop() { s.reporter.ReportStop() }

// Reporter exposes the lifecycle reporter, mainly for delegation.
func (s *Session) Reporter() *reporting.Reporter { return s.reporter }

// InjectCustomValues overrides selected settings after construction.
// startFromBeginning discards the resume position.
func (s *Session) InjectCustomValues(startFromBeginning bool) {
	if !startFromBeginning {
		return
	}

	s.mu.Lock()
	if s.media.Item.UserData != nil {
		s.media.Item.UserData.PlaybackPositionTicks = 0
		s.media.Item.UserData.PlayedPercentage = 0
	}
	s.fraction = 0
	s.leftLabel, s.rightLabel = s.labelsLocked()
	e := s.positionChangeLocked()
	s.mu.Unlock()

	s.notifyPosition(e)
}

// Same reports whether the other session plays the same item at the same
// resume position.
func (s *Session) Same(other *Session) bool {
	if other == nil {
		return false
	}
	if s.media.Item.ID != other.media.Item.ID {
		return false
	}
	var a, b int64
	if s.media.Item.UserData != nil {
		a = s.media.Item.UserData.PlaybackPositionTicks
	}
	if other.media.Item.UserData != nil {
		b = other.media.Item.UserData.PlaybackPositionTicks
	}
	return a == b
}

// EmbeddedSubtitleURL derives a stream URL that burns the given subtitle
// stream into the transcode, replacing any subtitle parameters already on
// the direct stream URL.
func (s *Session) EmbeddedSubtitleURL(stream jellyfin.MediaStream) (string, error) {
	u, err := url.Parse(s.media.DirectStreamURL)
	if err != nil {
		return "", fmt.Errorf("parse direct stream url: %w", err)
	}

	query := u.Query()
	query.Del("SubtitleStreamIndex")
	query.Del("SubtitleMethod")
	query.Set("SubtitleMethod", "Encode")
	query.Set("SubtitleStreamIndex", strconv.Itoa(stream.Index))
	u.RawQuery = query.Encode()

	return u.String(), nil
}

// Subscribe registers an observer of this session's state.
func (s *Session) Subscribe() *Subscription {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	sub := newSubscription()
	s.subs = append(s.subs, sub)
	return sub
}

func (s *Session) notifyPosition(e PositionChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendPosition(e)
	}
}

func (s *Session) notifySelection(e SelectionChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendSelection(e)
	}
}

func (s *Session) notifySiblings(e SiblingsChange) {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	for _, sub := range s.subs {
		sub.sendSiblings(e)
	}
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down: the pending debounced report is cancelled
// and results of still-running adjacency fetches will be dropped.
// Idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.reporter.Close()

	s.subsMu.Lock()
	for _, sub := range s.subs {
		sub.close()
	}
	s.subs = nil
	s.subsMu.Unlock()

	return nil
}
