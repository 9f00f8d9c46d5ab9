// Package player defines the contract the session coordinator has with the
// media engine. The engine is opaque: it exposes time and position and
// accepts seek commands, nothing more.
package player

import "time"

// State is the engine playback state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Buffering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Buffering:
		return "Buffering"
	default:
		return "Unknown"
	}
}

// Interface is the engine surface used for dependency injection and
// testing.
type Interface interface {
	State() State
	Position() time.Duration
	Duration() time.Duration
	SeekTo(position time.Duration)
	SetRate(rate float64)
}
