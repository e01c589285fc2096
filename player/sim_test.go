package player

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/media"
	testingclock "k8s.io/utils/clock/testing"
)

func newSim(opts SimOptions) (*Sim, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Unix(0, 0))
	opts.Clock = clk
	if opts.Frame == 0 {
		opts.Frame = 40 * time.Millisecond
	}
	return NewSim(opts), clk
}

func TestParseSimSource(t *testing.T) {
	Convey("Simulated sources carry their duration", t, func() {
		label, d, err := ParseSimSource("take-a:10s")
		So(err, ShouldBeNil)
		So(label, ShouldEqual, "take-a")
		So(d, ShouldEqual, 10*time.Second)

		_, d, err = ParseSimSource("1m30s")
		So(err, ShouldBeNil)
		So(d, ShouldEqual, 90*time.Second)

		_, _, err = ParseSimSource("take-a:forever")
		So(errors.Is(err, ErrInvalidSimSource), ShouldBeTrue)

		_, _, err = ParseSimSource("0s")
		So(errors.Is(err, ErrInvalidSimSource), ShouldBeTrue)
	})
}

func TestSim(t *testing.T) {
	Convey("Given an opened simulated stream", t, func() {
		sim, clk := newSim(SimOptions{})
		var events []media.Event
		sim.Subscribe(func(ev media.Event) { events = append(events, ev) })

		So(sim.Open(context.Background(), "a:10s"), ShouldBeNil)
		So(sim.State(), ShouldEqual, media.StateReady)
		So(sim.Duration(), ShouldEqual, 10*time.Second)
		So(events[0].Kind, ShouldEqual, media.EventOpened)
		So(events[0].Stream, ShouldEqual, sim.ID())

		Convey("Playing advances with the clock at the current rate", func() {
			So(sim.Play(), ShouldBeNil)
			clk.Step(time.Second)
			So(sim.Position(), ShouldEqual, time.Second)

			So(sim.SetRate(2), ShouldBeNil)
			clk.Step(time.Second)
			So(sim.Position(), ShouldEqual, 3*time.Second)

			So(sim.Pause(), ShouldBeNil)
			clk.Step(time.Second)
			So(sim.Position(), ShouldEqual, 3*time.Second)
			So(sim.State(), ShouldEqual, media.StatePaused)
		})

		Convey("Reaching the end emits a single ended event", func() {
			So(sim.Seek(9*time.Second), ShouldBeNil)
			So(sim.Play(), ShouldBeNil)
			events = nil

			clk.Step(2 * time.Second)
			So(sim.State(), ShouldEqual, media.StateEnded)
			So(sim.Position(), ShouldEqual, 10*time.Second)

			ended := 0
			for _, ev := range events {
				if ev.Kind == media.EventEnded {
					ended++
				}
			}
			So(ended, ShouldEqual, 1)

			Convey("Seeking back leaves the ended state", func() {
				So(sim.Seek(time.Second), ShouldBeNil)
				So(sim.State(), ShouldEqual, media.StatePaused)
			})
		})

		Convey("Seeks are clamped to the clip", func() {
			So(sim.Seek(-time.Second), ShouldBeNil)
			So(sim.Position(), ShouldEqual, time.Duration(0))

			So(sim.Seek(20*time.Second), ShouldBeNil)
			So(sim.Position(), ShouldEqual, 10*time.Second)
		})

		Convey("A scheduled start begins exactly at its deadline", func() {
			deadline := clk.Now().Add(40 * time.Millisecond)
			So(sim.StartAt(2*time.Second, 1, deadline), ShouldBeNil)

			clk.Step(30 * time.Millisecond)
			So(sim.State(), ShouldEqual, media.StatePaused)
			So(sim.Position(), ShouldEqual, 2*time.Second)

			clk.Step(510 * time.Millisecond)
			So(sim.State(), ShouldEqual, media.StatePlaying)
			So(sim.Position(), ShouldEqual, 2500*time.Millisecond)
		})

		Convey("A pause before the deadline cancels the scheduled start", func() {
			So(sim.StartAt(time.Second, 1, clk.Now().Add(40*time.Millisecond)), ShouldBeNil)
			So(sim.Pause(), ShouldBeNil)

			clk.Step(time.Second)
			So(sim.State(), ShouldEqual, media.StatePaused)
			So(sim.Position(), ShouldEqual, time.Second)
		})

		Convey("Frame steps move by exactly one frame", func() {
			So(sim.Step(media.Forward), ShouldBeNil)
			So(sim.Position(), ShouldEqual, 40*time.Millisecond)
			So(sim.Step(media.Forward), ShouldBeNil)
			So(sim.Step(media.Backward), ShouldBeNil)
			So(sim.Position(), ShouldEqual, 40*time.Millisecond)

			So(sim.Seek(50*time.Millisecond), ShouldBeNil)
			So(sim.Step(media.Backward), ShouldBeNil)
			So(sim.Position(), ShouldEqual, 10*time.Millisecond)

			So(sim.Step(media.Backward), ShouldBeNil)
			So(sim.Position(), ShouldEqual, time.Duration(0))

			So(sim.Seek(10*time.Second), ShouldBeNil)
			So(sim.Step(media.Forward), ShouldBeNil)
			So(sim.Position(), ShouldEqual, 10*time.Second)
		})

		Convey("Frame steps are refused while playing", func() {
			So(sim.Play(), ShouldBeNil)
			So(sim.Step(media.Forward), ShouldEqual, ErrStepWhilePlaying)
		})

		Convey("Invalid rates are rejected", func() {
			So(sim.SetRate(0), ShouldEqual, ErrInvalidRate)
			So(sim.Rate(), ShouldEqual, 1.0)
		})

		Convey("Optional capabilities are recorded", func() {
			So(sim.SetWaitForBuffering(false), ShouldBeNil)
			So(sim.WaitsForBuffering(), ShouldBeFalse)
			So(sim.MarkAnchor(500*time.Millisecond), ShouldBeNil)
			So(sim.Anchor(), ShouldEqual, 500*time.Millisecond)
		})

		Convey("Close detaches every observer", func() {
			So(sim.ObserverCount(), ShouldEqual, 1)
			So(sim.Close(), ShouldBeNil)
			So(sim.ObserverCount(), ShouldEqual, 0)
			So(sim.State(), ShouldEqual, media.StateIdle)
		})
	})

	Convey("Failure injection", t, func() {
		Convey("A failing open leaves the stream in error", func() {
			sim, _ := newSim(SimOptions{FailOpen: true})
			So(errors.Is(sim.Open(context.Background(), "a:10s"), ErrOpenRejected), ShouldBeTrue)
			So(sim.State(), ShouldEqual, media.StateError)
			So(sim.Play(), ShouldEqual, ErrNotOpen)
		})

		Convey("Rejected scheduled starts leave the stream untouched", func() {
			sim, clk := newSim(SimOptions{RejectScheduledStart: true})
			So(sim.Open(context.Background(), "a:10s"), ShouldBeNil)
			So(sim.StartAt(time.Second, 1, clk.Now()), ShouldEqual, ErrScheduleRejected)
			So(sim.State(), ShouldEqual, media.StateReady)
			So(sim.Position(), ShouldEqual, time.Duration(0))
		})
	})
}

func TestNew(t *testing.T) {
	Convey("Engines are created by name", t, func() {
		clk := testingclock.NewFakeClock(time.Unix(0, 0))

		stream, err := New("sim", clk)
		So(err, ShouldBeNil)
		So(stream, ShouldHaveSameTypeAs, &Sim{})

		stream, err = New("mpv", clk)
		So(err, ShouldBeNil)
		So(stream, ShouldHaveSameTypeAs, &MPV{})

		_, err = New("vlc", clk)
		So(err, ShouldNotBeNil)
	})

	Convey("WithoutScheduledStart hides the scheduled start and keeps stall control", t, func() {
		sim, _ := newSim(SimOptions{})
		var stream media.Stream = sim

		_, ok := stream.(media.ScheduledStarter)
		So(ok, ShouldBeTrue)

		wrapped := WithoutScheduledStart(sim)
		_, ok = wrapped.(media.ScheduledStarter)
		So(ok, ShouldBeFalse)
		So(wrapped.ID(), ShouldEqual, sim.ID())

		control, ok := wrapped.(media.StallControl)
		So(ok, ShouldBeTrue)
		So(control.SetWaitForBuffering(false), ShouldBeNil)
		So(sim.WaitsForBuffering(), ShouldBeFalse)
	})
}
