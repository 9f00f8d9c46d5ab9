// Package events is the in-process notification bus shared across the
// playback subsystem. Subscribers receive events on buffered channels;
// publishers never block, events are dropped when a subscriber's buffer is
// full.
package events

import (
	"sync"

	"github.com/jlarvor/playhead/internal/errmsg"
)

const eventBufferSize = 16

// StopReportSent is published after a stop report delivery attempt
// completes, regardless of the delivery outcome. Sibling-cleanup logic
// listens for it to release adjacent sessions.
type StopReportSent struct {
	ItemID string
}

// PlaybackError is published when a background operation fails. It is
// diagnostic only; nothing in the subsystem treats it as fatal.
type PlaybackError struct {
	Op     string // e.g. "resolve adjacent", "send progress report"
	ItemID string
	Err    error
}

// Message renders the failure for display.
func (e PlaybackError) Message() string {
	return errmsg.FormatWith(errmsg.Op(e.Op), e.ItemID, e.Err)
}

// Subscription exposes receive channels for one subscriber.
type Subscription struct {
	StopReports <-chan StopReportSent
	Errors      <-chan PlaybackError
	Done        <-chan struct{}

	stopCh  chan StopReportSent
	errorCh chan PlaybackError
	doneCh  chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		stopCh:  make(chan StopReportSent, eventBufferSize),
		errorCh: make(chan PlaybackError, eventBufferSize),
		doneCh:  make(chan struct{}),
	}
	s.StopReports = s.stopCh
	s.Errors = s.errorCh
	s.Done = s.doneCh
	return s
}

func (s *Subscription) sendStop(e StopReportSent) {
	select {
	case s.stopCh <- e:
	default:
	}
}

func (s *Subscription) sendError(e PlaybackError) {
	select {
	case s.errorCh <- e:
	default:
	}
}

// Bus fans events out to all current subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   []*Subscription
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers a new subscriber. Subscriptions created after Close
// are returned already done.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := newSubscription()
	if b.closed {
		close(sub.doneCh)
		return sub
	}
	b.subs = append(b.subs, sub)
	return sub
}

// PublishStopReport notifies all subscribers that a stop report went out.
func (b *Bus) PublishStopReport(e StopReportSent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.sendStop(e)
	}
}

// PublishError notifies all subscribers of a background failure.
func (b *Bus) PublishError(e PlaybackError) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		sub.sendError(e)
	}
}

// Close signals all subscribers and rejects future ones.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.doneCh)
	}
	b.subs = nil
}
