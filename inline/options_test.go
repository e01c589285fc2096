package inline

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/media"
)

func TestParseOp(t *testing.T) {
	Convey("Operations parse with and without a clip index", t, func() {
		op, err := ParseOp("seek 1500")
		So(err, ShouldBeNil)
		So(op.Stream.IsAbsent(), ShouldBeTrue)
		So(op.Duration, ShouldEqual, 1500*time.Millisecond)

		op, err = ParseOp("seek 1 -2s")
		So(err, ShouldBeNil)
		So(op.Stream.MustGet(), ShouldEqual, 1)
		So(op.Duration, ShouldEqual, -2*time.Second)

		op, err = ParseOp("  PLAY   0 ")
		So(err, ShouldBeNil)
		So(op.Name, ShouldEqual, "play")
		So(op.Text, ShouldEqual, "PLAY 0")
		So(op.Stream.MustGet(), ShouldEqual, 0)
	})

	Convey("Frame steps take an optional clip and direction", t, func() {
		op, err := ParseOp("step")
		So(err, ShouldBeNil)
		So(op.Direction, ShouldEqual, media.Forward)

		op, err = ParseOp("step back")
		So(err, ShouldBeNil)
		So(op.Stream.IsAbsent(), ShouldBeTrue)
		So(op.Direction, ShouldEqual, media.Backward)

		op, err = ParseOp("step 2")
		So(err, ShouldBeNil)
		So(op.Stream.MustGet(), ShouldEqual, 2)
		So(op.Direction, ShouldEqual, media.Forward)

		op, err = ParseOp("step 2 -")
		So(err, ShouldBeNil)
		So(op.Direction, ShouldEqual, media.Backward)

		_, err = ParseOp("step sideways")
		So(err, ShouldNotBeNil)
	})

	Convey("Rates accept factors and percents", t, func() {
		op, err := ParseOp("rate 50%")
		So(err, ShouldBeNil)
		So(op.Rate, ShouldEqual, 0.5)

		op, err = ParseOp("rate 1 2x")
		So(err, ShouldBeNil)
		So(op.Stream.MustGet(), ShouldEqual, 1)
		So(op.Rate, ShouldEqual, 2.0)
	})

	Convey("Modes are parsed by name", t, func() {
		op, err := ParseOp("mode Individual")
		So(err, ShouldBeNil)
		So(op.Mode, ShouldEqual, coordinator.Individual)

		_, err = ParseOp("mode sideways")
		So(err, ShouldNotBeNil)
	})

	Convey("Malformed operations are rejected", t, func() {
		for _, text := range []string{
			"jump 100",
			"stop now",
			"seek",
			"seek 1 2 3",
			"mark",
			"mark x",
			"sync 1",
			"wait -1s",
			"wait soon",
			"play x",
			"rate fast",
		} {
			_, err := ParseOp(text)
			So(err, ShouldNotBeNil)
		}
	})
}

func TestParseScript(t *testing.T) {
	Convey("Scripts split on newlines and semicolons and skip comments", t, func() {
		ops, err := ParseScript(`
# line up both clips
sync 1 500; play
wait 1s ;; print
`)
		So(err, ShouldBeNil)
		So(ops, ShouldHaveLength, 4)
		So(ops[0].String(), ShouldEqual, "sync 1 500")
		So(ops[3].Name, ShouldEqual, "print")
	})

	Convey("A bad operation fails the whole script", t, func() {
		_, err := ParseScript("play; seek; print")
		So(err, ShouldNotBeNil)
	})
}
