// Package coordinator makes several independently opened streams behave as one
// logical transport.
//
// A Coordinator is not safe for concurrent use. All of its methods, and every
// task handed to its Dispatcher, must run on one control thread. Engines report
// back from their own goroutines; those callbacks are re-marshaled through the
// Dispatcher before they touch coordinator state.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/scrub"
	"github.com/tandem-cli/tandem/synchronizer"
	"github.com/tandem-cli/tandem/syncpoint"
	"k8s.io/utils/clock"
)

// Options configures a Coordinator. Zero fields take their configured defaults.
type Options struct {
	Clock        clock.WithDelayedExecution
	Synchronizer synchronizer.Synchronizer
	// Dispatcher carries engine callbacks to the control thread. Without one the
	// coordinator queues them itself; see Drain.
	Dispatcher Dispatcher
	// MaxStreams bounds the number of registered streams.
	MaxStreams int
	Mode       Mode
	// Rate is the initial session rate.
	Rate float64
	// ScrubIdle ends a gesture that received no input for this long. Zero disables it.
	ScrubIdle time.Duration
	// Notify receives degraded starts, failures and ends.
	Notify func(Notice)
}

// OptionsFromConfig fills the zero fields of opts from the configuration.
func OptionsFromConfig(opts Options) Options {
	if opts.MaxStreams <= 0 {
		opts.MaxStreams = viper.GetInt(key.SyncMaxStreams)
	}
	if opts.Rate <= 0 {
		opts.Rate = float64(viper.GetInt(key.PlayerRate)) / 100
	}
	if opts.ScrubIdle == 0 {
		opts.ScrubIdle = time.Duration(viper.GetInt(key.ScrubIdleMs)) * time.Millisecond
	}
	if mode, err := ParseMode(viper.GetString(key.CompareMode)); err == nil && opts.Mode == Simultaneous {
		opts.Mode = mode
	}
	return opts
}

type entry struct {
	stream     media.Stream
	source     string
	sub        media.Subscription
	individual time.Duration
	rate       float64
	playing    bool
	opening    bool
	err        error
}

func (e *entry) id() media.ID {
	return e.stream.ID()
}

func (e *entry) controllable() bool {
	return e.err == nil && e.stream.State().Controllable()
}

// Coordinator owns the streams, sync points, scrub session and synchronizer of one comparison.
type Coordinator struct {
	clock      clock.WithDelayedExecution
	sync       synchronizer.Synchronizer
	dispatcher Dispatcher
	owned      *Queue
	notify     func(Notice)
	maxStreams int
	scrubIdle  time.Duration

	entries []*entry
	index   map[media.ID]*entry
	points  *syncpoint.Model
	scrub   *scrub.Session
	arm     *synchronizer.Arm
	idleGen map[scrub.Target]uint64

	mode    Mode
	rate    float64
	global  time.Duration
	playing bool
}

// New creates a coordinator with no streams.
func New(opts Options) *Coordinator {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Synchronizer == nil {
		opts.Synchronizer = synchronizer.NewHostClock(opts.Clock, synchronizer.OptionsFromConfig())
	}
	var owned *Queue
	if opts.Dispatcher == nil {
		owned = NewQueue()
		opts.Dispatcher = owned
	}
	if opts.MaxStreams <= 0 {
		opts.MaxStreams = 4
	}
	if opts.Rate <= 0 {
		opts.Rate = 1
	}
	if opts.Notify == nil {
		opts.Notify = func(Notice) {}
	}

	return &Coordinator{
		clock:      opts.Clock,
		sync:       opts.Synchronizer,
		dispatcher: opts.Dispatcher,
		owned:      owned,
		notify:     opts.Notify,
		maxStreams: opts.MaxStreams,
		scrubIdle:  opts.ScrubIdle,
		index:      make(map[media.ID]*entry),
		points:     syncpoint.New(),
		scrub:      scrub.New(),
		idleGen:    make(map[scrub.Target]uint64),
		mode:       opts.Mode,
		rate:       opts.Rate,
	}
}

// Register adds an already created stream. Its observer is attached until
// Unregister or Close.
func (c *Coordinator) Register(stream media.Stream, source string) error {
	id := stream.ID()
	if _, ok := c.index[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStream, id)
	}
	if len(c.entries) >= c.maxStreams {
		return fmt.Errorf("%w: at most %d", ErrTooManyStreams, c.maxStreams)
	}

	e := &entry{stream: stream, source: source, rate: c.rate}
	e.sub = stream.Subscribe(func(ev media.Event) {
		c.dispatcher.Dispatch(func() { c.handle(e, ev) })
	})

	c.entries = append(c.entries, e)
	c.index[id] = e
	c.points.Track(id)

	if e.stream.State().Controllable() {
		c.align(e)
	}

	log.WithFields(logrus.Fields{"stream": id, "source": source}).Debug("stream registered")
	return nil
}

// Open registers stream if needed and opens source on it. A failure leaves the
// stream registered in the error state and returns an *OpenError.
func (c *Coordinator) Open(ctx context.Context, stream media.Stream, source string) error {
	e, ok := c.index[stream.ID()]
	if !ok {
		if err := c.Register(stream, source); err != nil {
			return err
		}
		e = c.index[stream.ID()]
	}

	e.source = source
	e.err = nil

	e.opening = true
	err := stream.Open(ctx, source)
	e.opening = false

	if err != nil {
		defer c.Drain()
		return c.failOpen(e, err)
	}

	c.align(e)
	c.Drain()
	return nil
}

// Attach registers a stream whose engine was opened off the control thread,
// together with the outcome of that open. A failed open is recorded the way
// Open records it.
func (c *Coordinator) Attach(stream media.Stream, source string, openErr error) error {
	if err := c.Register(stream, source); err != nil {
		return err
	}
	defer c.Drain()

	if openErr != nil {
		return c.failOpen(c.index[stream.ID()], openErr)
	}
	return nil
}

func (c *Coordinator) failOpen(e *entry, err error) error {
	openErr := &OpenError{ID: e.id(), Source: e.source, Err: err}
	e.err = openErr
	e.playing = false

	log.WithFields(logrus.Fields{"stream": e.id(), "source": e.source}).Errorf("open failed: %v", err)
	c.notify(Notice{Kind: NoticeOpenFailed, Stream: e.id(), Err: openErr})
	return openErr
}

// align moves a newly usable stream to where the session currently is.
func (c *Coordinator) align(e *entry) {
	id := e.id()
	duration := e.stream.Duration()

	if marker, ok := e.stream.(media.AnchorMarker); ok {
		_ = marker.MarkAnchor(c.points.Offset(id))
	}

	position := c.points.Absolute(id, c.global, duration)
	if c.mode == Individual {
		position = syncpoint.Clamp(c.points.Offset(id), duration)
	}

	e.individual = position
	if err := e.stream.Seek(position); err != nil {
		c.warn(e, "align", err)
	}
	if err := e.stream.SetRate(e.rate); err != nil {
		c.warn(e, "align rate", err)
	}
}

// Unregister detaches the coordinator from stream id. The stream itself is left
// as it is; it remains owned by the caller.
func (c *Coordinator) Unregister(id media.ID) error {
	e, ok := c.index[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStream, id)
	}

	e.sub.Cancel()
	delete(c.index, id)
	c.entries = lo.Without(c.entries, e)
	c.points.Forget(id)
	c.scrub.End(scrub.StreamTarget(id))

	if len(c.active()) == 0 {
		c.arm.Cancel()
		c.playing = false
	}

	log.WithFields(logrus.Fields{"stream": id}).Debug("stream unregistered")
	return nil
}

// Close detaches every stream.
func (c *Coordinator) Close() {
	c.arm.Cancel()
	c.scrub.Reset()

	for _, e := range c.entries {
		e.sub.Cancel()
	}

	c.entries = nil
	c.index = make(map[media.ID]*entry)
	c.points = syncpoint.New()
	c.playing = false
	c.global = 0
}

// Streams returns the registered stream ids in registration order.
func (c *Coordinator) Streams() []media.ID {
	return lo.Map(c.entries, func(e *entry, _ int) media.ID { return e.id() })
}

func (c *Coordinator) Mode() Mode {
	return c.mode
}

func (c *Coordinator) Rate() float64 {
	return c.rate
}

// Playing reports whether the transport is running. In Individual mode it is
// true while any stream plays.
func (c *Coordinator) Playing() bool {
	if c.mode == Individual {
		return lo.SomeBy(c.entries, func(e *entry) bool { return e.playing })
	}
	return c.playing
}

// Global returns the global position. It is only meaningful in Simultaneous mode.
func (c *Coordinator) Global() time.Duration {
	if c.mode == Simultaneous && c.playing {
		return c.derive()
	}
	return c.global
}

// GlobalDuration returns the length of the global timeline.
func (c *Coordinator) GlobalDuration() time.Duration {
	spans := lo.FilterMap(c.entries, func(e *entry, _ int) (syncpoint.Span, bool) {
		return syncpoint.Span{ID: e.id(), Duration: e.stream.Duration()}, e.controllable()
	})
	return c.points.GlobalDuration(spans)
}

// SyncPoints returns every registered stream's effective sync point.
func (c *Coordinator) SyncPoints() map[media.ID]time.Duration {
	return c.points.Offsets()
}

// Snapshot reports the session and every stream. Streams under an active
// gesture report the gesture's position rather than the engine's.
func (c *Coordinator) Snapshot() Session {
	session := Session{
		Mode:           c.mode,
		Rate:           c.rate,
		Global:         c.Global(),
		GlobalDuration: c.GlobalDuration(),
		Playing:        c.Playing(),
		Scrubbing:      c.scrub.Active(),
	}

	for _, e := range c.entries {
		id := e.id()
		point := c.points.Point(id)

		status := StreamStatus{
			ID:           id,
			Source:       e.source,
			State:        e.stream.State(),
			Position:     e.stream.Position(),
			Duration:     e.stream.Duration(),
			SyncPoint:    point.OrElse(0),
			SyncPointSet: point.IsPresent(),
			Rate:         e.stream.Rate(),
			Playing:      e.playing || (c.mode == Simultaneous && c.playing && e.controllable()),
			Err:          e.err,
		}

		if position, ok := c.gesturePosition(e); ok {
			status.Position = position
		}

		session.Streams = append(session.Streams, status)
	}

	return session
}

func (c *Coordinator) gesturePosition(e *entry) (time.Duration, bool) {
	if g, ok := c.scrub.Gesture(scrub.GlobalTarget()); ok {
		return c.points.Absolute(e.id(), g.Position(), e.stream.Duration()), true
	}
	if g, ok := c.scrub.Gesture(scrub.StreamTarget(e.id())); ok {
		return g.Position(), true
	}
	return 0, false
}

// handle applies one engine event on the control thread.
func (c *Coordinator) handle(e *entry, ev media.Event) {
	if _, ok := c.index[e.id()]; !ok {
		return
	}

	switch ev.Kind {
	case media.EventPosition:
		// The gesture's accumulator is authoritative while it is active.
		if c.scrub.Affects(e.id()) {
			return
		}
		if c.mode == Individual && !e.playing {
			e.individual = ev.Position
		}
	case media.EventError:
		// A queued event may arrive after Open has reported the failure.
		if !e.opening && e.err == nil {
			c.fail(e, ev.Err)
		}
	case media.EventState:
		// Open reports its own failure.
		if ev.State == media.StateError && e.err == nil && !e.opening {
			c.fail(e, errors.New("engine reported an error"))
		}
	case media.EventEnded:
		c.ended(e)
	}
}

func (c *Coordinator) fail(e *entry, err error) {
	if err == nil {
		err = errors.New("engine reported an error")
	}

	e.err = err
	e.playing = false
	log.WithFields(logrus.Fields{"stream": e.id()}).Errorf("stream failed: %v", err)
	c.notify(Notice{Kind: NoticeStreamError, Stream: e.id(), Err: err})
}

func (c *Coordinator) ended(e *entry) {
	c.notify(Notice{Kind: NoticeEnded, Stream: e.id()})

	if c.mode == Individual {
		e.playing = false
		e.individual = e.stream.Duration()
		return
	}

	done := lo.EveryBy(c.active(), func(other *entry) bool {
		return other.stream.State() == media.StateEnded
	})
	if done && c.playing {
		c.playing = false
		c.global = c.GlobalDuration()
	}
}

// active returns the streams that take part in coordinated operations.
func (c *Coordinator) active() []*entry {
	return lo.Filter(c.entries, func(e *entry, _ int) bool { return e.controllable() })
}

func (c *Coordinator) lookup(id media.ID) (*entry, error) {
	e, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStream, id)
	}
	if !e.controllable() {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	return e, nil
}

// derive reads the global position back from the streams: the furthest any
// stream has advanced past its sync point.
func (c *Coordinator) derive() time.Duration {
	active := c.active()
	if len(active) == 0 {
		return c.global
	}

	positions := lo.Map(active, func(e *entry, _ int) time.Duration {
		return c.points.Global(e.id(), e.stream.Position())
	})
	return syncpoint.Clamp(lo.Max(positions), c.GlobalDuration())
}

func (c *Coordinator) warn(e *entry, op string, err error) {
	log.WithFields(logrus.Fields{"stream": e.id(), "op": op}).Warnf("%s: %v", op, err)
}
