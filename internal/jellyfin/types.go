package jellyfin

// Item is a library item as returned by the server. Only the fields the
// playback subsystem reads are mapped.
type Item struct {
	ID               string    `json:"Id"`
	Name             string    `json:"Name"`
	Type             string    `json:"Type"` // "Movie", "Episode", ...
	SeriesID         string    `json:"SeriesId,omitempty"`
	SeriesName       string    `json:"SeriesName,omitempty"`
	IndexNumber      int       `json:"IndexNumber,omitempty"`
	ParentIndexNumber int      `json:"ParentIndexNumber,omitempty"`
	RunTimeTicks     int64     `json:"RunTimeTicks,omitempty"`
	Container        string    `json:"Container,omitempty"`
	UserData         *UserData `json:"UserData,omitempty"`
}

// IsEpisode reports whether the item is part of a series.
func (i Item) IsEpisode() bool {
	return i.Type == "Episode" && i.SeriesID != ""
}

// UserData carries per-user playback state for an item.
type UserData struct {
	PlaybackPositionTicks int64   `json:"PlaybackPositionTicks"`
	PlayedPercentage      float64 `json:"PlayedPercentage"`
	Played                bool    `json:"Played"`
}

// MediaStream describes one audio or subtitle stream of a media source.
type MediaStream struct {
	Index        int    `json:"Index"`
	Type         string `json:"Type"` // "Audio" or "Subtitle"
	DisplayTitle string `json:"DisplayTitle,omitempty"`
	Language     string `json:"Language,omitempty"`
	Codec        string `json:"Codec,omitempty"`
	IsDefault    bool   `json:"IsDefault"`
	IsExternal   bool   `json:"IsExternal"`
}

// ChapterInfo is a chapter marker on an item.
type ChapterInfo struct {
	StartPositionTicks int64  `json:"StartPositionTicks"`
	Name               string `json:"Name,omitempty"`
}

// PlaybackInfoResponse is the server's answer to a playback-info request.
// The play session id in it identifies the session in every playstate
// report.
type PlaybackInfoResponse struct {
	PlaySessionID string `json:"PlaySessionId"`
}

// ItemsResult is the standard windowed item list envelope.
type ItemsResult struct {
	Items            []Item `json:"Items"`
	TotalRecordCount int    `json:"TotalRecordCount"`
}

// PlayMethod tells the server how the client obtained the stream.
type PlayMethod string

const (
	PlayMethodDirect    PlayMethod = "DirectPlay"
	PlayMethodTranscode PlayMethod = "Transcode"
)

// PlaybackStartInfo is the body of start and pause reports.
type PlaybackStartInfo struct {
	CanSeek                bool       `json:"CanSeek"`
	ItemID                 string     `json:"ItemId"`
	SessionID              string     `json:"SessionId,omitempty"`
	MediaSourceID          string     `json:"MediaSourceId,omitempty"`
	AudioStreamIndex       int        `json:"AudioStreamIndex"`
	SubtitleStreamIndex    *int       `json:"SubtitleStreamIndex,omitempty"`
	IsPaused               bool       `json:"IsPaused"`
	IsMuted                bool       `json:"IsMuted"`
	PositionTicks          int64      `json:"PositionTicks"`
	PlaybackStartTimeTicks int64      `json:"PlaybackStartTimeTicks"`
	VolumeLevel            int        `json:"VolumeLevel"`
	Brightness             int        `json:"Brightness"`
	PlayMethod             PlayMethod `json:"PlayMethod"`
	PlaySessionID          string     `json:"PlaySessionId,omitempty"`
	RepeatMode             string     `json:"RepeatMode"`
	PlaylistItemID         string     `json:"PlaylistItemId"`
}

// PlaybackProgressInfo is the body of progress reports.
type PlaybackProgressInfo struct {
	CanSeek                bool       `json:"CanSeek"`
	ItemID                 string     `json:"ItemId"`
	SessionID              string     `json:"SessionId,omitempty"`
	MediaSourceID          string     `json:"MediaSourceId,omitempty"`
	AudioStreamIndex       int        `json:"AudioStreamIndex"`
	SubtitleStreamIndex    *int       `json:"SubtitleStreamIndex,omitempty"`
	IsPaused               bool       `json:"IsPaused"`
	IsMuted                bool       `json:"IsMuted"`
	PositionTicks          int64      `json:"PositionTicks"`
	PlaybackStartTimeTicks int64      `json:"PlaybackStartTimeTicks"`
	PlayMethod             PlayMethod `json:"PlayMethod"`
	PlaySessionID          string     `json:"PlaySessionId,omitempty"`
	RepeatMode             string     `json:"RepeatMode"`
	PlaylistItemID         string     `json:"PlaylistItemId"`
}

// PlaybackStopInfo is the body of stop reports.
type PlaybackStopInfo struct {
	ItemID         string `json:"ItemId"`
	SessionID      string `json:"SessionId,omitempty"`
	MediaSourceID  string `json:"MediaSourceId,omitempty"`
	PositionTicks  int64  `json:"PositionTicks"`
	PlaySessionID  string `json:"PlaySessionId,omitempty"`
	Failed         bool   `json:"Failed"`
	PlaylistItemID string `json:"PlaylistItemId"`
}
