package session

import "github.com/jlarvor/playhead/internal/timeline"

const eventBufferSize = 16

// PositionChange is emitted whenever the fractional position moves.
type PositionChange struct {
	Fraction   float64
	Position   int64 // seconds
	Remaining  int64 // seconds
	LeftLabel  string
	RightLabel string
	Chapter    *timeline.Chapter
}

// SelectionChange is emitted when a stream selection or the autoplay flag
// changes, whether from a local call or a sibling sync push.
type SelectionChange struct {
	AudioStreamIndex    int
	SubtitlesEnabled    bool
	SubtitleStreamIndex int
	Autoplay            bool
}

// SiblingsChange is emitted when a previous or next session link is set or
// cleared.
type SiblingsChange struct {
	HasPrevious bool
	HasNext     bool
}

// Subscription provides event channels for one observer of a session.
// Sends never block; events are dropped when a buffer is full.
type Subscription struct {
	PositionChanged  <-chan PositionChange
	SelectionChanged <-chan SelectionChange
	SiblingsChanged  <-chan SiblingsChange
	Done             <-chan struct{}

	positionCh  chan PositionChange
	selectionCh chan SelectionChange
	siblingsCh  chan SiblingsChange
	doneCh      chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		positionCh:  make(chan PositionChange, eventBufferSize),
		selectionCh: make(chan SelectionChange, eventBufferSize),
		siblingsCh:  make(chan SiblingsChange, eventBufferSize),
		doneCh:      make(chan struct{}),
	}
	s.PositionChanged = s.positionCh
	s.SelectionChanged = s.selectionCh
	s.SiblingsChanged = s.siblingsCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendPosition(e PositionChange) {
	select {
	case s.positionCh <- e:
	default:
	}
}

func (s *Subscription) sendSelection(e SelectionChange) {
	select {
	case s.selectionCh <- e:
	default:
	}
}

func (s *Subscription) sendSiblings(e SiblingsChange) {
	select {
	case s.siblingsCh <- e:
	default:
	}
}
