package player

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/util"
	"k8s.io/utils/clock"
)

var (
	ErrNotOpen           = errors.New("stream is not open")
	ErrOpenRejected      = errors.New("simulated open failure")
	ErrScheduleRejected  = errors.New("scheduled start rejected")
	ErrStepWhilePlaying  = errors.New("frame step requires a paused stream")
	ErrInvalidRate       = errors.New("rate must be positive")
	ErrInvalidSimSource  = errors.New("invalid simulated source")
	defaultFrameDuration = time.Second / 30
)

// SimOptions configures a simulated engine.
type SimOptions struct {
	// Clock drives playback. Defaults to the real clock.
	Clock clock.WithDelayedExecution
	// Frame is the duration of one frame step. Defaults to 1/30s.
	Frame time.Duration
	// FailOpen makes Open fail and leaves the stream in StateError.
	FailOpen bool
	// RejectScheduledStart makes every StartAt call fail.
	RejectScheduledStart bool
}

// Sim is a deterministic, clock-driven engine. Its position is derived from the
// clock on every read, so it stays exact under a fake clock; timers only exist
// to deliver events.
type Sim struct {
	id        media.ID
	clock     clock.WithDelayedExecution
	frame     time.Duration
	opts      SimOptions
	observers media.Observers

	mu               sync.Mutex
	source           string
	state            media.State
	duration         time.Duration
	base             time.Duration
	startedAt        time.Time
	scheduled        bool
	rate             float64
	waitForBuffering bool
	anchor           time.Duration
	gen              uint64
}

// NewSim creates a simulated stream in StateIdle.
func NewSim(opts SimOptions) *Sim {
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Frame <= 0 {
		opts.Frame = defaultFrameDuration
	}

	return &Sim{
		id:               media.ID(uuid.NewString()),
		clock:            opts.Clock,
		frame:            opts.Frame,
		opts:             opts,
		state:            media.StateIdle,
		rate:             1,
		waitForBuffering: true,
	}
}

// ParseSimSource reads a simulated source of the form "[label:]duration", e.g. "vault-a:10s".
func ParseSimSource(source string) (label string, duration time.Duration, err error) {
	raw := strings.TrimSpace(source)
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		label, raw = raw[:i], raw[i+1:]
	}

	duration, err = time.ParseDuration(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%w %q: %v", ErrInvalidSimSource, source, err)
	}
	if duration <= 0 {
		return "", 0, fmt.Errorf("%w %q: duration must be positive", ErrInvalidSimSource, source)
	}

	return label, duration, nil
}

type simTimer struct {
	gen uint64
	at  time.Time
}

func (s *Sim) ID() media.ID {
	return s.id
}

// Source returns the source the stream was opened with.
func (s *Sim) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *Sim) Open(ctx context.Context, source string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.source = source
	s.state = media.StateOpening

	if s.opts.FailOpen {
		s.state = media.StateError
		s.mu.Unlock()
		s.emit(media.Event{Kind: media.EventState, State: media.StateError})
		return fmt.Errorf("open %s: %w", source, ErrOpenRejected)
	}

	_, duration, err := ParseSimSource(source)
	if err != nil {
		s.state = media.StateError
		s.mu.Unlock()
		s.emit(media.Event{Kind: media.EventState, State: media.StateError})
		return err
	}

	s.duration = duration
	s.base = 0
	s.state = media.StateReady
	s.mu.Unlock()

	s.emit(
		media.Event{Kind: media.EventOpened, Duration: duration},
		media.Event{Kind: media.EventState, State: media.StateReady},
	)
	return nil
}

func (s *Sim) Play() error {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}

	if s.state == media.StateEnded || s.state == media.StatePlaying {
		s.mu.Unlock()
		s.emit(events...)
		return nil
	}

	s.scheduled = false
	s.startedAt = now
	s.state = media.StatePlaying
	events = append(events, media.Event{Kind: media.EventState, State: media.StatePlaying})
	timers := s.replanLocked()
	s.mu.Unlock()

	s.arm(now, timers)
	s.emit(events...)
	return nil
}

// StartAt assumes position and begins playing at rate exactly at deadline.
func (s *Sim) StartAt(position time.Duration, rate float64, deadline time.Time) error {
	if s.opts.RejectScheduledStart {
		return ErrScheduleRejected
	}
	if rate <= 0 {
		return ErrInvalidRate
	}

	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}

	s.base = util.Clamp(position, 0, s.duration)
	s.rate = rate
	s.startedAt = deadline
	s.scheduled = true
	s.state = media.StatePaused
	events = append(events,
		media.Event{Kind: media.EventPosition, Position: s.base},
		media.Event{Kind: media.EventState, State: media.StatePaused},
	)
	// Already due: begin right away rather than waiting for the timer.
	events = append(events, s.settleLocked(now)...)
	timers := s.replanLocked()
	s.mu.Unlock()

	s.arm(now, timers)
	s.emit(events...)
	return nil
}

func (s *Sim) Pause() error {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}

	if s.state == media.StateEnded {
		s.mu.Unlock()
		s.emit(events...)
		return nil
	}

	s.base = s.positionLocked(now)
	s.scheduled = false
	s.state = media.StatePaused
	s.gen++
	events = append(events,
		media.Event{Kind: media.EventState, State: media.StatePaused},
		media.Event{Kind: media.EventPosition, Position: s.base},
	)
	s.mu.Unlock()

	s.emit(events...)
	return nil
}

func (s *Sim) Stop() error {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}

	s.base = s.positionLocked(now)
	s.scheduled = false
	s.state = media.StateReady
	s.gen++
	s.mu.Unlock()

	s.emit(append(events, media.Event{Kind: media.EventState, State: media.StateReady})...)
	return nil
}

func (s *Sim) Seek(position time.Duration) error {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}

	s.base = util.Clamp(position, 0, s.duration)
	switch {
	case s.scheduled:
		s.scheduled = false
		s.state = media.StatePaused
		events = append(events, media.Event{Kind: media.EventState, State: media.StatePaused})
	case s.state == media.StatePlaying:
		s.startedAt = now
	case s.state == media.StateEnded && s.base < s.duration:
		s.state = media.StatePaused
		events = append(events, media.Event{Kind: media.EventState, State: media.StatePaused})
	}
	timers := s.replanLocked()
	events = append(events, media.Event{Kind: media.EventPosition, Position: s.base})
	s.mu.Unlock()

	s.arm(now, timers)
	s.emit(events...)
	return nil
}

func (s *Sim) Step(direction media.Direction) error {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if !s.state.Controllable() {
		s.mu.Unlock()
		s.emit(events...)
		return ErrNotOpen
	}
	if s.state == media.StatePlaying || s.scheduled {
		s.mu.Unlock()
		s.emit(events...)
		return ErrStepWhilePlaying
	}

	s.base = util.Clamp(s.base+time.Duration(direction)*s.frame, 0, s.duration)
	if s.state == media.StateEnded && s.base < s.duration {
		s.state = media.StatePaused
		events = append(events, media.Event{Kind: media.EventState, State: media.StatePaused})
	}
	events = append(events, media.Event{Kind: media.EventPosition, Position: s.base})
	s.mu.Unlock()

	s.emit(events...)
	return nil
}

func (s *Sim) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func (s *Sim) SetRate(rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}

	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	if s.state == media.StatePlaying {
		s.base = s.positionLocked(now)
		s.startedAt = now
	}
	s.rate = rate
	timers := s.replanLocked()
	s.mu.Unlock()

	s.arm(now, timers)
	s.emit(events...)
	return nil
}

func (s *Sim) Position() time.Duration {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	position := s.positionLocked(now)
	s.mu.Unlock()

	s.emit(events...)
	return position
}

func (s *Sim) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

func (s *Sim) State() media.State {
	now := s.clock.Now()

	s.mu.Lock()
	events := s.settleLocked(now)
	state := s.state
	s.mu.Unlock()

	s.emit(events...)
	return state
}

// SetWaitForBuffering records whether the engine may delay playback to avoid stalls.
func (s *Sim) SetWaitForBuffering(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitForBuffering = enabled
	return nil
}

// WaitsForBuffering reports the last value passed to SetWaitForBuffering.
func (s *Sim) WaitsForBuffering() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitForBuffering
}

// MarkAnchor records the sync point shown on the simulated timeline.
func (s *Sim) MarkAnchor(offset time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anchor = offset
	return nil
}

// Anchor returns the last marked sync point.
func (s *Sim) Anchor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anchor
}

func (s *Sim) Subscribe(observer media.Observer) media.Subscription {
	return s.observers.Subscribe(observer)
}

// ObserverCount returns the number of attached observers.
func (s *Sim) ObserverCount() int {
	return s.observers.Len()
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.gen++
	s.scheduled = false
	s.state = media.StateIdle
	s.mu.Unlock()

	s.observers.Clear()
	return nil
}

// positionLocked derives the position at now without mutating state.
func (s *Sim) positionLocked(now time.Time) time.Duration {
	if s.state != media.StatePlaying && !s.scheduled {
		return s.base
	}
	if now.Before(s.startedAt) {
		return s.base
	}

	elapsed := now.Sub(s.startedAt)
	position := s.base + time.Duration(float64(elapsed)*s.rate)
	return util.Min(position, s.duration)
}

// settleLocked applies the transitions that became due by now: a scheduled start
// beginning, and playback reaching the end of the clip.
func (s *Sim) settleLocked(now time.Time) []media.Event {
	var events []media.Event

	if s.scheduled && !now.Before(s.startedAt) {
		s.scheduled = false
		s.state = media.StatePlaying
		events = append(events, media.Event{Kind: media.EventState, State: media.StatePlaying})
	}

	if s.state == media.StatePlaying && s.positionLocked(now) >= s.duration {
		s.base = s.duration
		s.state = media.StateEnded
		s.gen++
		events = append(events,
			media.Event{Kind: media.EventPosition, Position: s.duration},
			media.Event{Kind: media.EventEnded, Position: s.duration},
			media.Event{Kind: media.EventState, State: media.StateEnded},
		)
	}

	return events
}

// replanLocked invalidates pending timers and returns the instants at which the
// current state needs events delivered.
func (s *Sim) replanLocked() []simTimer {
	s.gen++

	if s.state != media.StatePlaying && !s.scheduled {
		return nil
	}

	var timers []simTimer
	if s.scheduled {
		timers = append(timers, simTimer{gen: s.gen, at: s.startedAt})
	}

	remaining := time.Duration(math.Ceil(float64(s.duration-s.base) / s.rate))
	timers = append(timers, simTimer{gen: s.gen, at: s.startedAt.Add(remaining)})
	return timers
}

// arm registers timers outside the stream lock. Callbacks never read the clock,
// since they may run while the clock holds its own lock.
func (s *Sim) arm(now time.Time, timers []simTimer) {
	for _, t := range timers {
		t := t
		s.clock.AfterFunc(t.at.Sub(now), func() {
			s.fire(t)
		})
	}
}

func (s *Sim) fire(t simTimer) {
	s.mu.Lock()
	if t.gen != s.gen {
		s.mu.Unlock()
		return
	}
	events := s.settleLocked(t.at)
	s.mu.Unlock()

	s.emit(events...)
}

func (s *Sim) emit(events ...media.Event) {
	for _, ev := range events {
		ev.Stream = s.id
		s.observers.Emit(ev)
	}
}
