package coordinator

import (
	"fmt"
	"time"

	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/media"
)

// Mode is the coordination mode of a session.
type Mode int

const (
	// Simultaneous drives every stream from one global position through its sync point.
	Simultaneous Mode = iota
	// Individual lets every stream move on its own.
	Individual
)

func (m Mode) String() string {
	if m == Individual {
		return constant.ModeIndividual
	}
	return constant.ModeSimultaneous
}

// ParseMode parses a mode name.
func ParseMode(name string) (Mode, error) {
	switch name {
	case constant.ModeSimultaneous:
		return Simultaneous, nil
	case constant.ModeIndividual:
		return Individual, nil
	default:
		return Simultaneous, fmt.Errorf("unknown mode %q", name)
	}
}

// StreamStatus is a snapshot of one registered stream.
type StreamStatus struct {
	ID           media.ID
	Source       string
	State        media.State
	Position     time.Duration
	Duration     time.Duration
	SyncPoint    time.Duration
	SyncPointSet bool
	Rate         float64
	Playing      bool
	Err          error
}

// Session is a snapshot of the whole comparison.
type Session struct {
	Mode           Mode
	Rate           float64
	Global         time.Duration
	GlobalDuration time.Duration
	Playing        bool
	Scrubbing      bool
	Streams        []StreamStatus
}
