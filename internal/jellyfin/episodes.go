package jellyfin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// AdjacentEpisodes fetches the episode window of the given size centered on
// adjacentTo within a series. The server returns the window in playback
// order; the current episode's position inside it tells the caller which
// neighbors exist.
func (c *Client) AdjacentEpisodes(ctx context.Context, seriesID, adjacentTo string, limit int) ([]Item, error) {
	query := url.Values{}
	query.Set("UserId", c.userID)
	query.Set("AdjacentTo", adjacentTo)
	query.Set("Limit", strconv.Itoa(limit))
	query.Set("Fields", "MediaStreams,Chapters,Overview")

	var result ItemsResult
	path := "/Shows/" + url.PathEscape(seriesID) + "/Episodes"
	if err := c.getJSON(ctx, path, query, &result); err != nil {
		return nil, fmt.Errorf("adjacent episodes: %w", err)
	}
	return result.Items, nil
}
