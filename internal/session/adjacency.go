package session

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jlarvor/playhead/internal/errmsg"
	"github.com/jlarvor/playhead/internal/events"
	"github.com/jlarvor/playhead/internal/jellyfin"
)

// neighborWindow is the size of the episode window fetched around the
// current item: at most one previous and one next.
const neighborWindow = 3

// Catalog is the episode-window query the resolver needs from the server.
type Catalog interface {
	AdjacentEpisodes(ctx context.Context, seriesID, adjacentTo string, limit int) ([]jellyfin.Item, error)
}

// Builder materializes a playable session for a neighbor item. In the real
// application it performs the playback-info round trip; tests substitute a
// local constructor.
type Builder func(ctx context.Context, item jellyfin.Item) (*Session, error)

// Resolver populates a session's previous and next links from the server's
// episode window. Failures are reported on the bus and logged, never
// surfaced to the caller; an unresolved neighbor simply stays unset.
type Resolver struct {
	catalog Catalog
	build   Builder
	bus     *events.Bus
	log     zerolog.Logger
}

// NewResolver creates a resolver.
func NewResolver(catalog Catalog, build Builder, bus *events.Bus, log zerolog.Logger) *Resolver {
	return &Resolver{
		catalog: catalog,
		build:   build,
		bus:     bus,
		log:     log,
	}
}

// Resolve fetches the neighbor window for the master session and links the
// sessions it can materialize. It returns immediately; the fetch and both
// neighbor builds run in the background and apply their results
// independently. Results arriving after the master is closed are dropped.
// No-op for non-episodes and offline sessions.
func (r *Resolver) Resolve(ctx context.Context, master *Session) {
	if master.NetworkMode() != NetworkOnline {
		return
	}
	item := master.Item()
	if !item.IsEpisode() {
		return
	}

	go r.resolve(ctx, master, item)
}

func (r *Resolver) resolve(ctx context.Context, master *Session, item jellyfin.Item) {
	items, err := r.catalog.AdjacentEpisodes(ctx, item.SeriesID, item.ID, neighborWindow)
	if err != nil {
		r.fail(item.ID, errmsg.OpResolveAdjacent, err)
		return
	}

	previous, next, ok := classifyNeighbors(items, item.ID)
	if !ok {
		r.log.Debug().Str("item", item.ID).Int("count", len(items)).Msg("unexpected neighbor window shape, no links set")
		return
	}

	// The two builds are independent: either may fail or finish first
	// without affecting the other.
	if previous != nil {
		go r.materialize(ctx, master, *previous, master.setPrevious)
	}
	if next != nil {
		go r.materialize(ctx, master, *next, master.setNext)
	}
}

// classifyNeighbors decides which neighbors exist from the window's size
// and the current item's position in it. The classification is closed:
// any shape outside the four known cases yields no links.
func classifyNeighbors(items []jellyfin.Item, currentID string) (previous, next *jellyfin.Item, ok bool) {
	switch len(items) {
	case 0, 1:
		// Only the current episode: nothing to link.
		return nil, nil, true
	case 2:
		if items[0].ID == currentID {
			return nil, &items[1], true
		}
		if items[1].ID == currentID {
			return &items[0], nil, true
		}
		return nil, nil, false
	case 3:
		return &items[0], &items[2], true
	default:
		return nil, nil, false
	}
}

func (r *Resolver) materialize(ctx context.Context, master *Session, item jellyfin.Item, link func(*Session) bool) {
	built, err := r.build(ctx, item)
	if err != nil {
		r.fail(item.ID, errmsg.OpBuildAdjacent, err)
		return
	}

	built.matchSubtitleStream(master)
	built.matchAudioStream(master)

	if !link(built) {
		// Master was torn down while the fetch was in flight.
		_ = built.Close()
	}
}

func (r *Resolver) fail(itemID string, op errmsg.Op, err error) {
	r.log.Warn().Err(err).Str("item", itemID).Str("op", string(op)).Msg("adjacency resolution failed")
	if r.bus != nil {
		r.bus.PublishError(events.PlaybackError{Op: string(op), ItemID: itemID, Err: err})
	}
}
