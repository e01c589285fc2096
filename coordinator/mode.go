package coordinator

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/syncpoint"
)

// SetMode switches between Simultaneous and Individual. The transport is halted
// and every stream repositioned; a mode switch never starts playback.
//
// Leaving Simultaneous mode keeps every stream at its sync point plus the
// global position. Entering it returns every stream to exactly its sync point
// and resets the global position to 0.
func (c *Coordinator) SetMode(mode Mode) error {
	if mode != Simultaneous && mode != Individual {
		return fmt.Errorf("%w: %d", ErrModeMismatch, mode)
	}
	if mode == c.mode {
		return nil
	}

	c.arm.Cancel()
	c.scrub.Reset()
	c.halt()

	switch mode {
	case Individual:
		for _, e := range c.active() {
			position := c.points.Absolute(e.id(), c.global, e.stream.Duration())
			if err := e.stream.Seek(position); err != nil {
				c.warn(e, "mode", err)
			}
			e.individual = position
			e.rate = c.rate
		}
	case Simultaneous:
		for _, e := range c.active() {
			position := syncpoint.Clamp(c.points.Offset(e.id()), e.stream.Duration())
			if err := e.stream.Seek(position); err != nil {
				c.warn(e, "mode", err)
			}
			if err := e.stream.SetRate(c.rate); err != nil {
				c.warn(e, "mode", err)
			}
			e.individual = position
			e.rate = c.rate
		}
		c.global = 0
	}

	c.mode = mode
	log.WithFields(logrus.Fields{"mode": mode}).Info("mode switched")
	return nil
}

// SetSyncPoints assigns sync points, each clamped to its clip. In Simultaneous
// mode this re-anchors the session: playback halts and every stream returns to
// its sync point at global 0.
func (c *Coordinator) SetSyncPoints(points map[media.ID]time.Duration) error {
	for id := range points {
		if _, ok := c.index[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownStream, id)
		}
	}

	for id, offset := range points {
		e := c.index[id]
		if duration := e.stream.Duration(); duration > 0 {
			offset = syncpoint.Clamp(offset, duration)
		}
		c.points.Set(id, offset)

		if marker, ok := e.stream.(media.AnchorMarker); ok {
			if err := marker.MarkAnchor(c.points.Offset(id)); err != nil {
				c.warn(e, "mark anchor", err)
			}
		}
	}

	if c.mode == Simultaneous {
		c.arm.Cancel()
		c.scrub.Reset()
		c.halt()
		c.global = 0
		c.seekAll(0)
	}
	return nil
}

// MarkSyncPoint captures the current position of stream id as its sync point
// and returns it.
func (c *Coordinator) MarkSyncPoint(id media.ID) (time.Duration, error) {
	e, err := c.lookup(id)
	if err != nil {
		return 0, err
	}

	position := e.stream.Position()
	if err := c.SetSyncPoints(map[media.ID]time.Duration{id: position}); err != nil {
		return 0, err
	}
	return c.points.Offset(id), nil
}
