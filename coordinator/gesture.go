package coordinator

import (
	"fmt"
	"time"

	"github.com/tandem-cli/tandem/scrub"
)

// Gesture is one event of a continuous scrub gesture. Start marks the first
// event of a new gesture; Delta moves it relative to where it is.
type Gesture struct {
	Target scrub.Target
	Start  bool
	Delta  time.Duration
}

// HandleGesture feeds one gesture event. A gesture ends with EndScrub or after
// receiving no input for the configured idle time.
func (c *Coordinator) HandleGesture(g Gesture) error {
	if _, active := c.scrub.Gesture(g.Target); g.Start || !active {
		if err := c.BeginScrub(g.Target); err != nil {
			return err
		}
	}

	if g.Delta != 0 {
		if err := c.Scrub(g.Target, g.Delta); err != nil {
			return err
		}
	}

	c.armIdle(g.Target)
	return nil
}

// BeginScrub starts a gesture on target, pausing whatever it moves. The true
// current position is recorded once and never re-read during the gesture.
// Simultaneous mode accepts only the global target, Individual mode only stream targets.
func (c *Coordinator) BeginScrub(target scrub.Target) error {
	if err := c.checkTarget(target); err != nil {
		return err
	}

	c.arm.Cancel()

	if target.Global {
		if len(c.active()) == 0 {
			return ErrNoStreams
		}
		c.halt()
		c.scrub.Begin(target, c.global, c.GlobalDuration())
		return nil
	}

	e := c.index[target.Stream]
	if e.playing {
		if err := e.stream.Pause(); err != nil {
			c.warn(e, "scrub", err)
		}
		e.playing = false
	}

	e.individual = e.stream.Position()
	c.scrub.Begin(target, e.individual, e.stream.Duration())
	return nil
}

// Scrub moves the gesture on target by delta and seeks at once.
func (c *Coordinator) Scrub(target scrub.Target, delta time.Duration) error {
	position, err := c.scrub.Apply(target, delta)
	if err != nil {
		return err
	}

	c.land(target, position)
	return nil
}

// ScrubTo moves the gesture on target to an absolute position and seeks at once.
func (c *Coordinator) ScrubTo(target scrub.Target, position time.Duration) error {
	position, err := c.scrub.Set(target, position)
	if err != nil {
		return err
	}

	c.land(target, position)
	return nil
}

// EndScrub finishes the gesture on target. Streams stay paused where it landed.
func (c *Coordinator) EndScrub(target scrub.Target) error {
	position, ok := c.scrub.End(target)
	if !ok {
		return ErrNoGesture
	}

	c.idleGen[target]++
	c.land(target, position)
	return nil
}

// BeginDrag starts a slider drag. In Simultaneous mode a stream slider drives
// the global timeline through that stream's sync point.
func (c *Coordinator) BeginDrag(target scrub.Target) error {
	t, _, err := c.dragTarget(target)
	if err != nil {
		return err
	}
	return c.BeginScrub(t)
}

// DragTo moves a slider drag to position on the dragged slider's own timeline.
func (c *Coordinator) DragTo(target scrub.Target, position time.Duration) error {
	t, offset, err := c.dragTarget(target)
	if err != nil {
		return err
	}
	return c.ScrubTo(t, position-offset)
}

// EndDrag completes a slider drag.
func (c *Coordinator) EndDrag(target scrub.Target) error {
	t, _, err := c.dragTarget(target)
	if err != nil {
		return err
	}
	return c.EndScrub(t)
}

func (c *Coordinator) dragTarget(target scrub.Target) (scrub.Target, time.Duration, error) {
	if c.mode != Simultaneous || target.Global {
		return target, 0, nil
	}
	if _, err := c.lookup(target.Stream); err != nil {
		return target, 0, err
	}
	return scrub.GlobalTarget(), c.points.Offset(target.Stream), nil
}

// land seeks whatever target moves to position.
func (c *Coordinator) land(target scrub.Target, position time.Duration) {
	if target.Global {
		c.global = position
		c.seekAll(position)
		return
	}

	e, ok := c.index[target.Stream]
	if !ok {
		return
	}
	if err := e.stream.Seek(position); err != nil {
		c.warn(e, "scrub", err)
	}
	e.individual = position
}

func (c *Coordinator) checkTarget(target scrub.Target) error {
	switch {
	case c.mode == Simultaneous && !target.Global:
		return fmt.Errorf("%w: stream scrub in %s mode", ErrModeMismatch, c.mode)
	case c.mode == Individual && target.Global:
		return fmt.Errorf("%w: global scrub in %s mode", ErrModeMismatch, c.mode)
	case target.Global:
		return nil
	}

	_, err := c.lookup(target.Stream)
	return err
}

// armIdle ends the gesture on target once it has been idle for the configured time.
// The timer only dispatches; the gesture is ended on the control thread.
func (c *Coordinator) armIdle(target scrub.Target) {
	if c.scrubIdle <= 0 {
		return
	}

	c.idleGen[target]++
	gen := c.idleGen[target]

	c.clock.AfterFunc(c.scrubIdle, func() {
		c.dispatcher.Dispatch(func() {
			if c.idleGen[target] == gen {
				_ = c.EndScrub(target)
			}
		})
	})
}
