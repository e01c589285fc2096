package coordinator

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/synchronizer"
	"github.com/tandem-cli/tandem/syncpoint"
)

// Play starts every active stream together. In Simultaneous mode each stream
// starts at its sync point plus the global position; in Individual mode each
// starts from its own position at its own rate. A session already at the end
// of the global timeline restarts from global 0, and in Individual mode a
// stream that has ended restarts from its sync point.
func (c *Coordinator) Play() error {
	active := c.active()
	if len(active) == 0 {
		return ErrNoStreams
	}

	c.arm.Cancel()
	c.scrub.Reset()

	var targets []synchronizer.Target
	if c.mode == Simultaneous {
		global := c.Global()
		if duration := c.GlobalDuration(); global >= duration {
			global = 0
		}
		c.global = global

		targets = lo.Map(active, func(e *entry, _ int) synchronizer.Target {
			return synchronizer.Target{
				Stream:   e.stream,
				Position: c.points.Absolute(e.id(), global, e.stream.Duration()),
			}
		})
	} else {
		targets = lo.Map(active, func(e *entry, _ int) synchronizer.Target {
			if e.playing {
				e.individual = e.stream.Position()
			}
			c.rewind(e)
			return synchronizer.Target{Stream: e.stream, Position: e.individual, Rate: e.rate}
		})
	}

	c.start(targets)
	c.playing = c.mode == Simultaneous
	return nil
}

// start hands a batch to the synchronizer and reports per-stream outcomes.
func (c *Coordinator) start(targets []synchronizer.Target) {
	c.arm = c.sync.Start(synchronizer.Batch{Targets: targets, Rate: c.rate})
	result := c.arm.Result()

	for _, outcome := range result.Outcomes {
		e, ok := c.index[outcome.ID]
		if !ok {
			continue
		}

		switch outcome.Status {
		case synchronizer.Synchronized:
			e.playing = c.mode == Individual
		case synchronizer.Degraded:
			e.playing = c.mode == Individual
			c.notify(Notice{Kind: NoticeDegradedStart, Stream: outcome.ID, Err: outcome.Err})
		case synchronizer.Failed:
			e.playing = false
			c.notify(Notice{Kind: NoticeStartFailed, Stream: outcome.ID, Err: outcome.Err})
		}
	}

	log.WithFields(logrus.Fields{
		"streams":  len(targets),
		"fallback": result.Fallback,
		"degraded": len(result.Degraded()),
		"failed":   len(result.Failed()),
	}).Debug("playback started")

	c.Drain()
}

// Pause halts every active stream where it is.
func (c *Coordinator) Pause() error {
	if len(c.active()) == 0 {
		return ErrNoStreams
	}

	c.arm.Cancel()
	c.halt()
	return nil
}

// halt pauses every active stream and records where the session stopped.
func (c *Coordinator) halt() {
	wasPlaying := c.playing

	for _, e := range c.active() {
		if err := e.stream.Pause(); err != nil {
			c.warn(e, "pause", err)
		}
		if c.mode == Individual {
			e.individual = e.stream.Position()
		}
		e.playing = false
	}

	if c.mode == Simultaneous && wasPlaying {
		c.global = c.derive()
	}
	c.playing = false
}

// Stop halts every active stream and returns it to its sync point (global 0).
func (c *Coordinator) Stop() error {
	active := c.active()
	if len(active) == 0 {
		return ErrNoStreams
	}

	c.arm.Cancel()
	c.scrub.Reset()

	for _, e := range active {
		if err := e.stream.Stop(); err != nil {
			c.warn(e, "stop", err)
		}

		position := syncpoint.Clamp(c.points.Offset(e.id()), e.stream.Duration())
		if err := e.stream.Seek(position); err != nil {
			c.warn(e, "stop", err)
		}
		e.individual = position
		e.playing = false
	}

	c.global = 0
	c.playing = false
	return nil
}

// SeekGlobal moves every stream to its sync point plus global, clamped to the
// global timeline. A playing session re-arms a synchronized start from there.
func (c *Coordinator) SeekGlobal(global time.Duration) error {
	if c.mode != Simultaneous {
		return fmt.Errorf("%w: global seek in %s mode", ErrModeMismatch, c.mode)
	}
	if len(c.active()) == 0 {
		return ErrNoStreams
	}

	resume := c.playing
	c.arm.Cancel()
	if resume {
		c.halt()
	}

	duration := c.GlobalDuration()
	c.global = syncpoint.Clamp(global, duration)
	c.seekAll(c.global)

	if resume && c.global < duration {
		return c.Play()
	}
	return nil
}

// SeekStream seeks one stream. In Simultaneous mode the position is mapped
// through the stream's sync point and every stream follows.
func (c *Coordinator) SeekStream(id media.ID, position time.Duration) error {
	e, err := c.lookup(id)
	if err != nil {
		return err
	}

	position = syncpoint.Clamp(position, e.stream.Duration())
	if c.mode == Simultaneous {
		return c.SeekGlobal(c.points.Global(id, position))
	}

	resume := e.playing
	if resume {
		if err := e.stream.Pause(); err != nil {
			c.warn(e, "seek", err)
		}
		e.playing = false
	}

	if err := e.stream.Seek(position); err != nil {
		return err
	}
	e.individual = position

	if resume {
		return c.PlayStream(id)
	}
	return nil
}

// seekAll positions every active stream at its sync point plus global.
func (c *Coordinator) seekAll(global time.Duration) {
	for _, e := range c.active() {
		position := c.points.Absolute(e.id(), global, e.stream.Duration())
		if err := e.stream.Seek(position); err != nil {
			c.warn(e, "seek", err)
		}
		e.individual = position
	}
}

// StepFrame moves every active stream by one frame. Playback must be paused.
func (c *Coordinator) StepFrame(direction media.Direction) error {
	active := c.active()
	if len(active) == 0 {
		return ErrNoStreams
	}
	if c.Playing() {
		return ErrNotPaused
	}

	c.arm.Cancel()

	for _, e := range active {
		if err := e.stream.Step(direction); err != nil {
			c.warn(e, "step", err)
		}
		e.individual = e.stream.Position()
	}

	if c.mode == Simultaneous {
		c.global = c.derive()
	}
	return nil
}

// SetRate changes the session rate and applies it to every active stream at
// once. It never re-arms a synchronized start. In Individual mode it also
// replaces every per-stream rate.
func (c *Coordinator) SetRate(rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}

	c.rate = rate
	for _, e := range c.entries {
		e.rate = rate
	}

	for _, e := range c.active() {
		if err := e.stream.SetRate(rate); err != nil {
			c.warn(e, "rate", err)
		}
	}
	return nil
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

// PlayStream starts a single stream from its own position. Individual mode only.
func (c *Coordinator) PlayStream(id media.ID) error {
	e, err := c.individualEntry(id)
	if err != nil {
		return err
	}

	if e.playing {
		e.individual = e.stream.Position()
	}
	c.rewind(e)

	outcomes := c.sync.Start(synchronizer.Batch{
		Targets: []synchronizer.Target{{Stream: e.stream, Position: e.individual, Rate: e.rate}},
		Rate:    c.rate,
	}).Result().Outcomes

	for _, outcome := range outcomes {
		switch outcome.Status {
		case synchronizer.Failed:
			e.playing = false
			c.notify(Notice{Kind: NoticeStartFailed, Stream: id, Err: outcome.Err})
			c.Drain()
			return outcome.Err
		case synchronizer.Degraded:
			c.notify(Notice{Kind: NoticeDegradedStart, Stream: id, Err: outcome.Err})
		}
	}

	e.playing = true
	c.Drain()
	return nil
}

// rewind moves an Individual stream that sits at its end back to its sync
// point, or to 0 when the sync point is the end too. The engine's state counts
// even when its ended event is still queued.
func (c *Coordinator) rewind(e *entry) {
	duration := e.stream.Duration()
	atEnd := e.individual >= duration || e.stream.State() == media.StateEnded
	if duration <= 0 || !atEnd {
		return
	}

	e.individual = syncpoint.Clamp(c.points.Offset(e.id()), duration)
	if e.individual >= duration {
		e.individual = 0
	}
}

// PauseStream pauses a single stream. Individual mode only.
func (c *Coordinator) PauseStream(id media.ID) error {
	e, err := c.individualEntry(id)
	if err != nil {
		return err
	}

	if err := e.stream.Pause(); err != nil {
		return err
	}
	e.individual = e.stream.Position()
	e.playing = false
	return nil
}

// StepStream moves a single paused stream by one frame. Individual mode only.
func (c *Coordinator) StepStream(id media.ID, direction media.Direction) error {
	e, err := c.individualEntry(id)
	if err != nil {
		return err
	}
	if e.playing {
		return ErrNotPaused
	}

	if err := e.stream.Step(direction); err != nil {
		return err
	}
	e.individual = e.stream.Position()
	return nil
}

// SetStreamRate changes the rate of a single stream at once. Individual mode only.
func (c *Coordinator) SetStreamRate(id media.ID, rate float64) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, rate)
	}

	e, err := c.individualEntry(id)
	if err != nil {
		return err
	}

	e.rate = rate
	return e.stream.SetRate(rate)
}

func (c *Coordinator) individualEntry(id media.ID) (*entry, error) {
	if c.mode != Individual {
		return nil, fmt.Errorf("%w: per-stream transport in %s mode", ErrModeMismatch, c.mode)
	}
	return c.lookup(id)
}
