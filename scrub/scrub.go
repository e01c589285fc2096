// Package scrub accumulates continuous scrub gestures into seek positions.
//
// A gesture records the true position once when it starts; every delta then
// moves an accumulator that never leaves [0, max]. At most one gesture is
// active per target.
package scrub

import (
	"errors"
	"fmt"
	"time"

	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/util"
)

var ErrNoGesture = errors.New("no active scrub gesture")

// Target is what a gesture moves: the global timeline or one stream.
type Target struct {
	Global bool
	Stream media.ID
}

// GlobalTarget scrubs the shared timeline.
func GlobalTarget() Target {
	return Target{Global: true}
}

// StreamTarget scrubs a single stream.
func StreamTarget(id media.ID) Target {
	return Target{Stream: id}
}

func (t Target) String() string {
	if t.Global {
		return "global"
	}
	return fmt.Sprintf("stream %s", t.Stream)
}

// Gesture is one in-progress scrub.
type Gesture struct {
	Target Target
	Start  time.Duration
	Delta  time.Duration
	Max    time.Duration
}

// Position is the position the gesture currently points at.
func (g *Gesture) Position() time.Duration {
	return g.Start + g.Delta
}

func (g *Gesture) moveTo(position time.Duration) time.Duration {
	g.Delta = util.Clamp(position, 0, g.Max) - g.Start
	return g.Position()
}

// Session tracks the active gestures of one comparison.
type Session struct {
	gestures map[Target]*Gesture
}

func New() *Session {
	return &Session{gestures: make(map[Target]*Gesture)}
}

// Begin starts a gesture at start, replacing any gesture already active on target.
func (s *Session) Begin(target Target, start, max time.Duration) *Gesture {
	max = util.Max(max, 0)
	g := &Gesture{Target: target, Start: util.Clamp(start, 0, max), Max: max}
	s.gestures[target] = g
	return g
}

// Apply adds delta to the gesture on target and returns the resulting position.
func (s *Session) Apply(target Target, delta time.Duration) (time.Duration, error) {
	g, ok := s.gestures[target]
	if !ok {
		return 0, ErrNoGesture
	}
	return g.moveTo(g.Position() + delta), nil
}

// Set moves the gesture on target to an absolute position, as a slider drag does.
func (s *Session) Set(target Target, position time.Duration) (time.Duration, error) {
	g, ok := s.gestures[target]
	if !ok {
		return 0, ErrNoGesture
	}
	return g.moveTo(position), nil
}

// End finishes the gesture on target and returns its final position.
func (s *Session) End(target Target) (time.Duration, bool) {
	g, ok := s.gestures[target]
	if !ok {
		return 0, false
	}

	delete(s.gestures, target)
	return g.Position(), true
}

// Gesture returns the active gesture on target.
func (s *Session) Gesture(target Target) (*Gesture, bool) {
	g, ok := s.gestures[target]
	return g, ok
}

// Active reports whether any gesture is in progress.
func (s *Session) Active() bool {
	return len(s.gestures) > 0
}

// Affects reports whether stream id is being moved by an active gesture.
// A global gesture affects every stream.
func (s *Session) Affects(id media.ID) bool {
	if _, ok := s.gestures[GlobalTarget()]; ok {
		return true
	}
	_, ok := s.gestures[StreamTarget(id)]
	return ok
}

// Reset abandons every gesture.
func (s *Session) Reset() {
	clear(s.gestures)
}
