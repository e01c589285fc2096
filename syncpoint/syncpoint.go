// Package syncpoint maps between the shared global timeline and each stream's
// own position. A sync point is the position in a stream that corresponds to
// global 0; an unset sync point behaves as offset 0.
package syncpoint

import (
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/util"
)

// Span is a stream and the duration of its clip.
type Span struct {
	ID       media.ID
	Duration time.Duration
}

// Model holds one sync point per tracked stream.
// It is not safe for concurrent use; the coordinator owns it on its control thread.
type Model struct {
	points map[media.ID]mo.Option[time.Duration]
}

func New() *Model {
	return &Model{points: make(map[media.ID]mo.Option[time.Duration])}
}

// Track starts tracking id with an unset sync point. Tracking twice keeps the existing point.
func (m *Model) Track(id media.ID) {
	if _, ok := m.points[id]; !ok {
		m.points[id] = mo.None[time.Duration]()
	}
}

// Forget stops tracking id.
func (m *Model) Forget(id media.ID) {
	delete(m.points, id)
}

// Tracked reports whether id is tracked.
func (m *Model) Tracked(id media.ID) bool {
	_, ok := m.points[id]
	return ok
}

// Set assigns the sync point of id. Negative offsets are clamped to 0.
func (m *Model) Set(id media.ID, offset time.Duration) {
	m.points[id] = mo.Some(util.Max(offset, 0))
}

// Unset clears the sync point of id while keeping it tracked.
func (m *Model) Unset(id media.ID) {
	if m.Tracked(id) {
		m.points[id] = mo.None[time.Duration]()
	}
}

// Point returns the sync point of id, if one was set.
func (m *Model) Point(id media.ID) mo.Option[time.Duration] {
	return m.points[id]
}

// Offset returns the sync point of id, or 0 when unset.
func (m *Model) Offset(id media.ID) time.Duration {
	return m.points[id].OrElse(0)
}

// Offsets returns every tracked stream's effective offset.
func (m *Model) Offsets() map[media.ID]time.Duration {
	return lo.MapValues(m.points, func(point mo.Option[time.Duration], _ media.ID) time.Duration {
		return point.OrElse(0)
	})
}

// Absolute converts a global position to the position in stream id, clamped to its clip.
func (m *Model) Absolute(id media.ID, global, duration time.Duration) time.Duration {
	return Clamp(m.Offset(id)+global, duration)
}

// Global converts a position in stream id to the global timeline. The result
// is negative for positions before the stream's sync point.
func (m *Model) Global(id media.ID, absolute time.Duration) time.Duration {
	return absolute - m.Offset(id)
}

// GlobalDuration is the length of the global timeline: the longest remainder
// of any clip after its sync point.
func (m *Model) GlobalDuration(spans []Span) time.Duration {
	remainders := lo.Map(spans, func(span Span, _ int) time.Duration {
		return span.Duration - m.Offset(span.ID)
	})
	return util.Max(lo.Max(remainders), 0)
}

// Clamp bounds position to [0, duration].
func Clamp(position, duration time.Duration) time.Duration {
	return util.Clamp(position, 0, util.Max(duration, 0))
}
