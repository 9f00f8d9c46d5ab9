package player

import "time"

// Mock is a test double for the media engine.
type Mock struct {
	state     State
	position  time.Duration
	duration  time.Duration
	seekCalls []time.Duration
	rateCalls []float64
}

// NewMock creates a stopped mock engine.
func NewMock() *Mock {
	return &Mock{state: Stopped}
}

func (m *Mock) State() State { return m.state }

func (m *Mock) Position() time.Duration { return m.position }

func (m *Mock) Duration() time.Duration { return m.duration }

func (m *Mock) SeekTo(position time.Duration) {
	m.seekCalls = append(m.seekCalls, position)
	m.position = position
}

func (m *Mock) SetRate(rate float64) {
	m.rateCalls = append(m.rateCalls, rate)
}

// Test helpers

func (m *Mock) SetState(s State) { m.state = s }

func (m *Mock) SetPosition(d time.Duration) { m.position = d }

func (m *Mock) SetDuration(d time.Duration) { m.duration = d }

func (m *Mock) SeekCalls() []time.Duration { return m.seekCalls }

func (m *Mock) RateCalls() []float64 { return m.rateCalls }

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
