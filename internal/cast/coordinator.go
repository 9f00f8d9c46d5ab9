package cast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	castv2 "github.com/vishen/go-chromecast/cast"

	"github.com/jlarvor/playhead/internal/jellyfin"
	"github.com/jlarvor/playhead/internal/timeline"
)

// State describes where the coordinator sits in its lifecycle.
type State int

const (
	// StateIdle means discovery has not started and nothing is selected.
	StateIdle State = iota
	// StateDiscovering means discovery runs but no device is selected.
	StateDiscovering
	// StateTargeted means a device is selected with an open channel and no
	// delegated session.
	StateTargeted
	// StateCasting means a session is delegated to the targeted device.
	StateCasting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateTargeted:
		return "targeted"
	case StateCasting:
		return "casting"
	default:
		return "unknown"
	}
}

// Identity carries the sender-side fields stamped onto every command so
// the receiver can attribute them.
type Identity struct {
	UserID   string
	ServerID string
	DeviceID string
}

// Delegate is the playback session surface the coordinator needs when a
// session is handed to a remote device.
type Delegate interface {
	Item() jellyfin.Item
	PlaySessionID() string
	CurrentSeconds() int64
}

// commandPayload is the envelope for commands on the application channel.
type commandPayload struct {
	castv2.PayloadHeader
	MessageID     string         `json:"messageId"`
	Command       string         `json:"command"`
	Options       map[string]any `json:"options,omitempty"`
	UserID        string         `json:"userId,omitempty"`
	ServerID      string         `json:"serverId,omitempty"`
	DeviceID      string         `json:"deviceId,omitempty"`
	PlaySessionID string         `json:"playSessionId,omitempty"`
	ItemID        string         `json:"itemId,omitempty"`
}

var _ castv2.Payload = (*commandPayload)(nil)

const commandBufferSize = 16

// Subscription delivers device-set and selection updates to one observer.
// Sends never block; updates are dropped when a buffer is full. Snapshots
// are immediately stale and must be re-read on each update.
type Subscription struct {
	Devices   <-chan []Target
	Selection <-chan *Target

	devicesCh   chan []Target
	selectionCh chan *Target
}

func newSubscription() *Subscription {
	s := &Subscription{
		devicesCh:   make(chan []Target, commandBufferSize),
		selectionCh: make(chan *Target, commandBufferSize),
	}
	s.Devices = s.devicesCh
	s.Selection = s.selectionCh
	return s
}

// Coordinator owns the discovered device set, the selected target and the
// delegation of at most one playback session to it. A single instance is
// shared by all consumers; its lifecycle ends with Shutdown.
type Coordinator struct {
	dial     Dialer
	identity Identity
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	discovery *Discoverer
	devices   []Target
	selected  *Target
	channel   Channel
	delegated Delegate
	subs      []*Subscription
}

// NewCoordinator creates an idle coordinator. dial defaults to Dial.
func NewCoordinator(dial Dialer, identity Identity, log zerolog.Logger) *Coordinator {
	if dial == nil {
		dial = Dial
	}
	return &Coordinator{
		dial:     dial,
		identity: identity,
		log:      log,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartDiscovery begins polling for devices until ctx is canceled. Calling
// it again while running has no effect.
func (c *Coordinator) StartDiscovery(ctx context.Context) {
	c.mu.Lock()
	if c.discovery != nil {
		c.mu.Unlock()
		return
	}
	c.discovery = NewDiscoverer(c.UpdateDevices, c.log)
	if c.state == StateIdle {
		c.state = StateDiscovering
	}
	d := c.discovery
	c.mu.Unlock()

	go d.Run(ctx)
}

// Devices returns a copy of the current device set.
func (c *Coordinator) Devices() []Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Target, len(c.devices))
	copy(out, c.devices)
	return out
}

// Selected returns the currently selected target, nil when none.
func (c *Coordinator) Selected() *Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return nil
	}
	t := *c.selected
	return &t
}

// UpdateDevices replaces the known device set wholesale; an empty update
// clears it. If the update no longer contains the selected device the
// selection is cleared and any active cast is ended.
func (c *Coordinator) UpdateDevices(devices []Target) {
	c.mu.Lock()
	c.devices = devices
	if c.state == StateIdle {
		c.state = StateDiscovering
	}

	lost := c.selected != nil && !containsAddr(devices, c.selected.Addr())
	var channel Channel
	if lost {
		c.log.Info().Str("device", c.selected.Name).Msg("selected cast device disappeared")
		channel = c.clearSelectionLocked()
	}
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if channel != nil {
		if err := channel.Close(true); err != nil {
			c.log.Warn().Err(err).Msg("close cast channel")
		}
	}

	for _, sub := range subs {
		sub.sendDevices(devices)
		if lost {
			sub.sendSelection(nil)
		}
	}
}

// Select targets a device from the current set, opening its command
// channel. A prior selection is torn down first, ending any active cast.
func (c *Coordinator) Select(target Target) error {
	c.StopCast()

	channel, err := c.dial(target)
	if err != nil {
		c.log.Error().Err(err).Str("device", target.Name).Msg("cast channel dial failed")
		return err
	}

	c.mu.Lock()
	c.selected = &target
	c.channel = channel
	c.state = StateTargeted
	subs := c.subscribersLocked()
	c.mu.Unlock()

	c.log.Info().Str("device", target.Name).Str("addr", target.Addr()).Msg("cast device selected")
	for _, sub := range subs {
		t := target
		sub.sendSelection(&t)
	}
	return nil
}

// StartCast delegates a session to the selected device. Without a selected
// target this is a no-op. A prior delegation is torn down first; at most
// one session is ever delegated.
func (c *Coordinator) StartCast(d Delegate) {
	c.mu.Lock()
	if c.channel == nil || c.selected == nil {
		c.mu.Unlock()
		c.log.Debug().Msg("start cast without a selected target, ignoring")
		return
	}
	prior := c.delegated
	c.mu.Unlock()

	if prior != nil {
		c.sendCommand("Stop", nil, prior)
	}

	c.mu.Lock()
	c.delegated = d
	c.state = StateCasting
	c.mu.Unlock()

	item := d.Item()
	c.sendCommand("PlayNow", map[string]any{
		"ids":                []string{item.ID},
		"startPositionTicks": int64(timeline.TicksFromSeconds(d.CurrentSeconds())),
	}, d)
	c.log.Info().Str("item", item.ID).Msg("cast started")
}

// StopCast ends the remote session and clears the channel and selection
// together. Partial teardown is never possible; after StopCast the
// coordinator is back to discovering.
func (c *Coordinator) StopCast() {
	c.mu.Lock()
	delegated := c.delegated
	channel := c.clearSelectionLocked()
	subs := c.subscribersLocked()
	c.mu.Unlock()

	if channel == nil {
		return
	}

	if delegated != nil {
		c.sendOn(channel, "Stop", nil, delegated)
	}
	if err := channel.Close(true); err != nil {
		c.log.Warn().Err(err).Msg("close cast channel")
	}
	c.log.Info().Msg("cast stopped")

	for _, sub := range subs {
		sub.sendSelection(nil)
	}
}

// SendCommand dispatches a named command with options to the open channel.
// Without an active channel this is a no-op. Commands are fire-and-forget;
// a delivery failure is logged, never retried.
func (c *Coordinator) SendCommand(name string, options map[string]any) {
	c.mu.Lock()
	delegated := c.delegated
	c.mu.Unlock()
	c.sendCommand(name, options, delegated)
}

func (c *Coordinator) sendCommand(name string, options map[string]any, d Delegate) {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		c.log.Debug().Str("command", name).Msg("cast command without a channel, ignoring")
		return
	}
	c.sendOn(channel, name, options, d)
}

func (c *Coordinator) sendOn(channel Channel, name string, options map[string]any, d Delegate) {
	payload := &commandPayload{
		PayloadHeader: castv2.PayloadHeader{Type: "COMMAND"},
		MessageID:     uuid.NewString(),
		Command:       name,
		Options:       options,
		UserID:        c.identity.UserID,
		ServerID:      c.identity.ServerID,
		DeviceID:      c.identity.DeviceID,
	}
	if d != nil {
		payload.PlaySessionID = d.PlaySessionID()
		payload.ItemID = d.Item().ID
	}

	if err := channel.Send(payload); err != nil {
		c.log.Warn().Err(err).Str("command", name).Msg("cast command delivery failed")
	}
}

// Subscribe registers an observer for device-set and selection updates.
func (c *Coordinator) Subscribe() *Subscription {
	sub := newSubscription()
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return sub
}

// Shutdown ends any active cast and releases the channel.
func (c *Coordinator) Shutdown() {
	c.StopCast()
	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
}

// clearSelectionLocked drops the selection, channel and delegation as one
// unit and returns the channel for the caller to close outside the lock.
func (c *Coordinator) clearSelectionLocked() Channel {
	channel := c.channel
	c.selected = nil
	c.channel = nil
	c.delegated = nil
	if c.state == StateTargeted || c.state == StateCasting {
		c.state = StateDiscovering
	}
	return channel
}

func (c *Coordinator) subscribersLocked() []*Subscription {
	subs := make([]*Subscription, len(c.subs))
	copy(subs, c.subs)
	return subs
}

func containsAddr(devices []Target, addr string) bool {
	for _, d := range devices {
		if d.Addr() == addr {
			return true
		}
	}
	return false
}

func (s *Subscription) sendDevices(devices []Target) {
	select {
	case s.devicesCh <- devices:
	default:
	}
}

func (s *Subscription) sendSelection(target *Target) {
	select {
	case s.selectionCh <- target:
	default:
	}
}
