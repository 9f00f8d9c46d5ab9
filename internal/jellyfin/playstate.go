package jellyfin

import "context"

// ReportPlaybackStart tells the server a session began playing.
func (c *Client) ReportPlaybackStart(ctx context.Context, info PlaybackStartInfo) error {
	return c.postJSON(ctx, "/Sessions/Playing", info)
}

// ReportPlaybackProgress updates the server with the current position.
// Pause and resume reports use the same endpoint as start with IsPaused set.
func (c *Client) ReportPlaybackProgress(ctx context.Context, info PlaybackProgressInfo) error {
	return c.postJSON(ctx, "/Sessions/Playing/Progress", info)
}

// ReportPlaybackStopped tells the server a session ended.
func (c *Client) ReportPlaybackStopped(ctx context.Context, info PlaybackStopInfo) error {
	return c.postJSON(ctx, "/Sessions/Playing/Stopped", info)
}
