package media

import (
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestObservers(t *testing.T) {
	Convey("Given an observer set", t, func() {
		var observers Observers
		var got []Event

		sub := observers.Subscribe(func(ev Event) {
			got = append(got, ev)
		})
		So(observers.Len(), ShouldEqual, 1)

		Convey("Emit should reach the observer", func() {
			observers.Emit(Event{Stream: "a", Kind: EventPosition, Position: time.Second})
			So(got, ShouldHaveLength, 1)
			So(got[0].Position, ShouldEqual, time.Second)
		})

		Convey("Cancel should detach exactly that observer", func() {
			other := 0
			observers.Subscribe(func(Event) { other++ })

			sub.Cancel()
			sub.Cancel()
			observers.Emit(Event{Kind: EventEnded})

			So(got, ShouldBeEmpty)
			So(other, ShouldEqual, 1)
			So(observers.Len(), ShouldEqual, 1)
		})

		Convey("An observer may cancel itself while being notified", func() {
			var self Subscription
			self = observers.Subscribe(func(Event) { self.Cancel() })

			observers.Emit(Event{Kind: EventOpened})
			So(observers.Len(), ShouldEqual, 1)
		})

		Convey("Clear should detach everything", func() {
			observers.Clear()
			observers.Emit(Event{Kind: EventOpened})
			So(got, ShouldBeEmpty)
			So(observers.Len(), ShouldEqual, 0)
		})
	})
}

func TestState(t *testing.T) {
	Convey("Controllable states", t, func() {
		So(StateReady.Controllable(), ShouldBeTrue)
		So(StatePlaying.Controllable(), ShouldBeTrue)
		So(StateEnded.Controllable(), ShouldBeTrue)
		So(StateOpening.Controllable(), ShouldBeFalse)
		So(StateError.Controllable(), ShouldBeFalse)
		So(StateIdle.Controllable(), ShouldBeFalse)
	})

	Convey("Event strings", t, func() {
		So(Event{Stream: "a", Kind: EventState, State: StatePaused}.String(), ShouldEqual, "a state paused")
		So(Event{Stream: "a", Kind: EventError, Err: errors.New("boom")}.String(), ShouldEqual, "a error boom")
		So(Backward.String(), ShouldEqual, "backward")
	})
}
