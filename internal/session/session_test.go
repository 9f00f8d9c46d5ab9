package session

import (
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jlarvor/playhead/internal/events"
	"github.com/jlarvor/playhead/internal/jellyfin"
	"github.com/jlarvor/playhead/internal/player"
)

const testDurationTicks = 3_600_000_000 // 360s

func testMedia(id string) Media {
	return Media{
		Item: jellyfin.Item{
			ID:           id,
			Type:         "Episode",
			SeriesID:     "series-1",
			RunTimeTicks: testDurationTicks,
			UserData:     &jellyfin.UserData{},
		},
		Title:           "Episode " + id,
		DirectStreamURL: "http://server/Videos/" + id + "/stream?static=true",
		AudioStreams: []jellyfin.MediaStream{
			{Index: 1, Type: "Audio", DisplayTitle: "English - Stereo", Language: "eng"},
			{Index: 2, Type: "Audio", DisplayTitle: "French - Stereo", Language: "fra"},
		},
		SubtitleStreams: []jellyfin.MediaStream{
			{Index: 3, Type: "Subtitle", DisplayTitle: "English", Language: "eng"},
			{Index: 4, Type: "Subtitle", DisplayTitle: "German", Language: "deu"},
		},
		Chapters: []jellyfin.ChapterInfo{
			{StartPositionTicks: 0, Name: "Opening"},
			{StartPositionTicks: 1_200_000_000, Name: "Main"},
		},
		PlayMethod: jellyfin.PlayMethodDirect,
		Response:   jellyfin.PlaybackInfoResponse{PlaySessionID: "ps-" + id},
	}
}

func newTestSession(t *testing.T, id string, opts Options) *Session {
	t.Helper()
	s := New(testMedia(id), nil, events.NewBus(), opts, zerolog.Nop())
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPositionAndLabels(t *testing.T) {
	s := newTestSession(t, "a", Options{AudioStreamIndex: 1})

	s.SetFraction(0.5)

	assert.Equal(t, int64(180), s.CurrentSeconds())
	assert.Equal(t, int64(180), s.RemainingSeconds())
	left, right := s.Labels()
	assert.Equal(t, "03:00", left)
	assert.Equal(t, "03:00", right)
}

func TestSetFractionClamps(t *testing.T) {
	s := newTestSession(t, "a", Options{})

	s.SetFraction(1.7)
	assert.Equal(t, 1.0, s.Fraction())

	s.SetFraction(-0.2)
	assert.Equal(t, 0.0, s.Fraction())
}

func TestCurrentChapter(t *testing.T) {
	s := newTestSession(t, "a", Options{})

	s.SetFraction(0.1) // 36s, inside Opening
	require.NotNil(t, s.CurrentChapter())
	assert.Equal(t, "Opening", s.CurrentChapter().Name)

	s.SetFraction(0.5) // 180s, past the 120s boundary
	require.NotNil(t, s.CurrentChapter())
	assert.Equal(t, "Main", s.CurrentChapter().Name)
}

func TestSetSecondsSeeksEngine(t *testing.T) {
	s := newTestSession(t, "a", Options{})
	engine := player.NewMock()
	s.AttachPlayer(engine)

	s.SetSeconds(90)

	assert.Equal(t, 0.25, s.Fraction())
	require.Len(t, engine.SeekCalls(), 1)
	assert.Equal(t, 90*time.Second, engine.SeekCalls()[0])
}

func TestSetSecondsUnknownDurationIsNoop(t *testing.T) {
	media := testMedia("a")
	media.Item.RunTimeTicks = 0
	s := New(media, nil, events.NewBus(), Options{}, zerolog.Nop())
	defer s.Close()

	s.SetFraction(0.5)
	s.SetSeconds(90)

	assert.Equal(t, 0.5, s.Fraction(), "seek with unknown duration must not move the playhead")
}

func TestSyncFromPlayer(t *testing.T) {
	s := newTestSession(t, "a", Options{})
	engine := player.NewMock()
	engine.SetDuration(360 * time.Second)
	engine.SetPosition(90 * time.Second)
	s.AttachPlayer(engine)

	s.SyncFromPlayer()

	assert.Equal(t, 0.25, s.Fraction())
}

func TestInitialFractionFromResumeState(t *testing.T) {
	media := testMedia("a")
	media.Item.UserData.PlayedPercentage = 50
	s := New(media, nil, events.NewBus(), Options{}, zerolog.Nop())
	defer s.Close()

	assert.Equal(t, 0.5, s.Fraction())
	assert.Equal(t, int64(180), s.CurrentSeconds())
}

func TestResumeOffsetRewindsResumePosition(t *testing.T) {
	media := testMedia("a")
	media.Item.UserData.PlayedPercentage = 50
	s := New(media, nil, events.NewBus(), Options{ResumeOffset: true}, zerolog.Nop())
	defer s.Close()

	assert.Equal(t, int64(175), s.CurrentSeconds(), "resume position rewound by 5s")
}

func TestResumeOffsetFromBeginningStaysAtZero(t *testing.T) {
	s := newTestSession(t, "a", Options{ResumeOffset: true})

	assert.Equal(t, 0.0, s.Fraction(), "unwatched media never starts negative")
}

func TestJumpBackward(t *testing.T) {
	s := newTestSession(t, "a", Options{})

	s.SetSeconds(180)
	s.JumpBackward()
	assert.Equal(t, int64(165), s.CurrentSeconds(), "default step is 15s")

	s.SetSeconds(5)
	s.JumpBackward()
	assert.Equal(t, int64(0), s.CurrentSeconds(), "clamped at the start")
}

func TestJumpForward(t *testing.T) {
	s := newTestSession(t, "a", Options{JumpForwardSeconds: 30})

	s.SetSeconds(180)
	s.JumpForward()
	assert.Equal(t, int64(210), s.CurrentSeconds())

	s.SetSeconds(350)
	s.JumpForward()
	assert.Equal(t, int64(360), s.CurrentSeconds(), "clamped at the end")
}

func TestConfirmClose(t *testing.T) {
	assert.False(t, newTestSession(t, "a", Options{}).ConfirmClose())
	assert.True(t, newTestSession(t, "b", Options{ConfirmClose: true}).ConfirmClose())
}

func TestInjectCustomValuesStartFromBeginning(t *testing.T) {
	media := testMedia("a")
	media.Item.UserData.PlayedPercentage = 50
	media.Item.UserData.PlaybackPositionTicks = 1_800_000_000
	s := New(media, nil, events.NewBus(), Options{}, zerolog.Nop())
	defer s.Close()

	s.InjectCustomValues(true)

	assert.Equal(t, 0.0, s.Fraction())
	assert.Zero(t, s.Item().UserData.PlaybackPositionTicks)

	// Without the flag nothing changes.
	s.SetFraction(0.3)
	s.InjectCustomValues(false)
	assert.Equal(t, 0.3, s.Fraction())
}

func TestSetNetworkMode(t *testing.T) {
	s := newTestSession(t, "a", Options{NetworkMode: NetworkLocal})
	assert.Equal(t, NetworkLocal, s.NetworkMode())

	s.SetNetworkMode(NetworkOnline)
	assert.Equal(t, NetworkOnline, s.NetworkMode())
}

func TestCurrentStreams(t *testing.T) {
	s := newTestSession(t, "a", Options{AudioStreamIndex: 2, SubtitleStreamIndex: 4, SubtitlesEnabled: true})

	require.NotNil(t, s.CurrentAudioStream())
	assert.Equal(t, "French - Stereo", s.CurrentAudioStream().DisplayTitle)
	require.NotNil(t, s.CurrentSubtitleStream())
	assert.Equal(t, "German", s.CurrentSubtitleStream().DisplayTitle)

	s.SetAudioStreamIndex(99)
	assert.Nil(t, s.CurrentAudioStream())
}

func TestPositionEvents(t *testing.T) {
	s := newTestSession(t, "a", Options{})
	sub := s.Subscribe()

	s.SetFraction(0.5)

	select {
	case e := <-sub.PositionChanged:
		assert.Equal(t, 0.5, e.Fraction)
		assert.Equal(t, int64(180), e.Position)
		assert.Equal(t, "03:00", e.LeftLabel)
		require.NotNil(t, e.Chapter)
		assert.Equal(t, "Main", e.Chapter.Name)
	case <-time.After(time.Second):
		t.Fatal("no position event")
	}
}

func TestCloseSignalsSubscribers(t *testing.T) {
	s := newTestSession(t, "a", Options{})
	sub := s.Subscribe()

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close must be idempotent")

	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("Done not closed")
	}
	assert.True(t, s.Closed())
}

func TestSame(t *testing.T) {
	a := newTestSession(t, "x", Options{})
	b := newTestSession(t, "x", Options{})
	c := newTestSession(t, "y", Options{})

	assert.True(t, a.Same(b))
	assert.False(t, a.Same(c))
	assert.False(t, a.Same(nil))

	b.media.Item.UserData.PlaybackPositionTicks = 5
	assert.False(t, a.Same(b), "different resume positions are different sessions")
}

func TestEmbeddedSubtitleURL(t *testing.T) {
	media := testMedia("a")
	media.DirectStreamURL = "http://server/Videos/a/stream?static=true&SubtitleStreamIndex=9&SubtitleMethod=External"
	s := New(media, nil, events.NewBus(), Options{}, zerolog.Nop())
	defer s.Close()

	got, err := s.EmbeddedSubtitleURL(jellyfin.MediaStream{Index: 3})
	require.NoError(t, err)

	u, err := urlParse(got)
	require.NoError(t, err)
	assert.Equal(t, "Encode", u.Get("SubtitleMethod"))
	assert.Equal(t, "3", u.Get("SubtitleStreamIndex"))
	assert.Equal(t, "true", u.Get("static"), "unrelated parameters survive")
}

func urlParse(raw string) (url.Values, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	return u.Query(), nil
}

func TestPlaybackSpeed(t *testing.T) {
	s := newTestSession(t, "a", Options{})
	engine := player.NewMock()
	s.AttachPlayer(engine)

	assert.Equal(t, 1.0, s.PlaybackSpeed())

	s.SetPlaybackSpeed(1.5)
	assert.Equal(t, 1.5, s.PlaybackSpeed())
	assert.Equal(t, []float64{1.5}, engine.RateCalls())

	s.SetPlaybackSpeed(0)
	assert.Equal(t, 1.5, s.PlaybackSpeed(), "non-positive rates are ignored")
}

func TestFriendlyStorage(t *testing.T) {
	media := testMedia("a")
	media.FileSize = 1_000_000_000
	assert.Equal(t, "1.0 GB", media.FriendlyStorage())
}
