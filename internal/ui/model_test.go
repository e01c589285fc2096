package ui

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestModel(t *testing.T) {
	Convey("Given a notifier", t, func() {
		m := &Model{}

		Convey("Without a notification the view is untouched", func() {
			So(m.View("a\nb"), ShouldEqual, "a\nb")
		})

		Convey("A notification is appended to the last line", func() {
			So(m.Notify("clip 1: degraded start", true), ShouldNotBeNil)
			view := m.View("a\nb")
			So(view, ShouldStartWith, "a\nb  ")
			So(view, ShouldContainSubstring, "clip 1: degraded start")
		})

		Convey("Only the clear of the latest notification removes it", func() {
			m.Notify("first", false)
			stale := ClearNotificationMsg{gen: m.gen}
			m.Notify("second", false)

			m.Update(stale)
			So(m.Notification(), ShouldEqual, "second")

			m.Update(ClearNotificationMsg{gen: m.gen})
			So(m.Notification(), ShouldBeEmpty)
		})
	})
}
