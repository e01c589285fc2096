// Package media defines the capability contract between the comparison engine and
// the external engines that actually decode and present each clip.
//
// A Stream is owned and driven by its engine. The engine reports progress through
// Events delivered to subscribed Observers, from whatever goroutine it runs on;
// consumers must re-marshal those callbacks onto their own control thread.
package media

import (
	"context"
	"time"
)

// ID identifies a stream for the lifetime of a comparison.
type ID string

// State is the lifecycle state of a stream as reported by its engine.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Controllable reports whether the stream can take part in coordinated transport operations.
func (s State) Controllable() bool {
	switch s {
	case StateReady, StatePlaying, StatePaused, StateEnded:
		return true
	default:
		return false
	}
}

// Direction is the direction of a single frame step.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// Stream is the capability surface of one externally owned decoder/player.
type Stream interface {
	ID() ID

	// Open loads source and blocks until the stream is Ready or fails.
	Open(ctx context.Context, source string) error

	Play() error
	Pause() error

	// Stop halts playback. Repositioning is left to the caller.
	Stop() error

	// Seek requests a move to an absolute position. The engine acknowledges
	// asynchronously with an EventPosition.
	Seek(position time.Duration) error

	// Step moves exactly one frame in the given direction. Only meaningful while paused.
	Step(direction Direction) error

	Rate() float64
	SetRate(rate float64) error

	// Position returns the engine's current position, read synchronously.
	Position() time.Duration
	Duration() time.Duration
	State() State

	// Subscribe attaches an observer. The returned Subscription detaches exactly that observer.
	Subscribe(observer Observer) Subscription

	// Close releases the engine. Observers receive no further events.
	Close() error
}

// ScheduledStarter is implemented by engines that can assume a position and begin
// playing at an exact instant on the host monotonic clock.
//
// A later Pause, Seek, Stop or StartAt supersedes a start that has not yet begun.
type ScheduledStarter interface {
	StartAt(position time.Duration, rate float64, deadline time.Time) error
}

// StallControl is implemented by engines that may delay playback to minimize
// buffering stalls. Synchronized starts turn that behavior off.
type StallControl interface {
	SetWaitForBuffering(enabled bool) error
}

// AnchorMarker is implemented by engines able to display the sync point on their own timeline.
type AnchorMarker interface {
	MarkAnchor(offset time.Duration) error
}
