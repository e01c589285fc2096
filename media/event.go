package media

import (
	"fmt"
	"time"
)

// EventKind enumerates the notifications an engine emits.
type EventKind int

const (
	// EventOpened fires once the source is loaded and Duration is known.
	EventOpened EventKind = iota
	// EventPosition fires when the reported position changes, including seek acknowledgements.
	EventPosition
	// EventState fires on every lifecycle state transition.
	EventState
	// EventEnded fires when playback reaches the end of the clip.
	EventEnded
	// EventError fires when the engine fails after opening. The stream is in StateError afterwards.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventPosition:
		return "position"
	case EventState:
		return "state"
	case EventEnded:
		return "ended"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is a single engine notification.
type Event struct {
	Stream   ID
	Kind     EventKind
	State    State
	Position time.Duration
	Duration time.Duration
	Err      error
}

func (e Event) String() string {
	switch e.Kind {
	case EventPosition:
		return fmt.Sprintf("%s %s %s", e.Stream, e.Kind, e.Position)
	case EventState:
		return fmt.Sprintf("%s %s %s", e.Stream, e.Kind, e.State)
	case EventError:
		return fmt.Sprintf("%s %s %v", e.Stream, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s %s", e.Stream, e.Kind)
	}
}

// Observer receives engine events. It may be called from any goroutine.
type Observer func(Event)

// Subscription is the handle returned by Stream.Subscribe.
type Subscription interface {
	// Cancel detaches the observer. It is safe to call more than once.
	Cancel()
}
