package session

import (
	"github.com/jlarvor/playhead/internal/jellyfin"
	"github.com/jlarvor/playhead/internal/timeline"
)

// Media is the already-resolved descriptor a session is built from: the
// item, its stream URLs, the selectable streams and the playback-info
// response that carries the play session id. Resolution itself happens
// upstream.
type Media struct {
	Item jellyfin.Item

	Title    string
	Subtitle string

	DirectStreamURL     string
	TranscodedStreamURL string
	HLSStreamURL        string
	LocalFileURL        string

	AudioStreams    []jellyfin.MediaStream
	SubtitleStreams []jellyfin.MediaStream
	Chapters        []jellyfin.ChapterInfo

	Container   string
	Filename    string
	FileSize    int64
	VersionName string

	PlayMethod jellyfin.PlayMethod
	Response   jellyfin.PlaybackInfoResponse
}

// DurationTicks returns the item runtime in ticks, zero when unknown.
func (m Media) DurationTicks() timeline.Ticks {
	return timeline.Ticks(m.Item.RunTimeTicks)
}

// TimelineChapters converts the wire chapter list for timeline lookups.
func (m Media) TimelineChapters() []timeline.Chapter {
	if len(m.Chapters) == 0 {
		return nil
	}
	chapters := make([]timeline.Chapter, len(m.Chapters))
	for i, c := range m.Chapters {
		chapters[i] = timeline.Chapter{
			Name:  c.Name,
			Start: timeline.Ticks(c.StartPositionTicks),
		}
	}
	return chapters
}

// FriendlyStorage returns the media file size for display, empty when
// unknown.
func (m Media) FriendlyStorage() string {
	return timeline.FriendlyStorage(m.FileSize)
}

// audioStream returns the audio stream with the given index, or nil.
func (m Media) audioStream(index int) *jellyfin.MediaStream {
	for i := range m.AudioStreams {
		if m.AudioStreams[i].Index == index {
			return &m.AudioStreams[i]
		}
	}
	return nil
}

// subtitleStream returns the subtitle stream with the given index, or nil.
func (m Media) subtitleStream(index int) *jellyfin.MediaStream {
	for i := range m.SubtitleStreams {
		if m.SubtitleStreams[i].Index == index {
			return &m.SubtitleStreams[i]
		}
	}
	return nil
}

// streamsAboutEqual is the match rule for carrying a stream selection from
// one item to another: same display title and language.
func streamsAboutEqual(a, b jellyfin.MediaStream) bool {
	return a.DisplayTitle == b.DisplayTitle && a.Language == b.Language
}
