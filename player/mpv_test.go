package player

import (
	"bufio"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/media"
)

func TestMPV(t *testing.T) {
	Convey("Given an mpv stream that has not been started", t, func() {
		mpv := NewMPV(nil)
		var events []media.Event
		mpv.Subscribe(func(ev media.Event) { events = append(events, ev) })

		Convey("Pause changes are ignored until the clip is loaded", func() {
			mpv.handleProperty("pause", false)
			So(mpv.State(), ShouldEqual, media.StateIdle)
			So(events, ShouldBeEmpty)
		})

		Convey("When the clip is ready", func() {
			mpv.setState(media.StateReady)

			Convey("The initial pause report keeps it ready", func() {
				mpv.handleProperty("pause", true)
				So(mpv.State(), ShouldEqual, media.StateReady)
			})

			Convey("Unpausing reports playing, then pausing reports paused", func() {
				mpv.handleProperty("pause", false)
				mpv.handleProperty("pause", true)

				So(events, ShouldHaveLength, 2)
				So(events[0].State, ShouldEqual, media.StatePlaying)
				So(events[1].State, ShouldEqual, media.StatePaused)
				So(events[1].Stream, ShouldEqual, mpv.ID())
			})

			Convey("time-pos is mirrored as a position event", func() {
				mpv.handleProperty("time-pos", 1.5)
				So(events, ShouldHaveLength, 1)
				So(events[0].Kind, ShouldEqual, media.EventPosition)
				So(events[0].Position, ShouldEqual, 1500*time.Millisecond)
			})

			Convey("eof-reached ends the stream once", func() {
				mpv.handleProperty("duration", 8.0)
				mpv.handleProperty("eof-reached", true)
				mpv.handleProperty("eof-reached", true)

				So(mpv.State(), ShouldEqual, media.StateEnded)
				So(mpv.Duration(), ShouldEqual, 8*time.Second)
				So(events, ShouldHaveLength, 2)
				So(events[0].Kind, ShouldEqual, media.EventEnded)
			})

			Convey("A failed file reports an error", func() {
				mpv.handleProperty("end-file", map[string]any{"reason": "error", "file_error": "unrecognized file format"})

				So(mpv.State(), ShouldEqual, media.StateError)
				So(events[0].Kind, ShouldEqual, media.EventError)
				So(events[0].Err.Error(), ShouldContainSubstring, "unrecognized file format")
			})

			Convey("speed updates the rate", func() {
				mpv.handleProperty("speed", 0.5)
				So(mpv.Rate(), ShouldEqual, 0.5)
			})
		})
	})
}

func TestBuildArgs(t *testing.T) {
	Convey("The mpv command line starts paused and keeps the last frame", t, func() {
		args := buildArgs("/tmp/tandem/mpv-1.sock", "/clips/take\t1.mp4")

		So(args, ShouldContain, "--input-ipc-server=/tmp/tandem/mpv-1.sock")
		So(args, ShouldContain, "--pause")
		So(args, ShouldContain, "--keep-open=yes")
		So(args, ShouldContain, "--force-media-title=take 1.mp4")
		So(args[len(args)-1], ShouldEqual, "/clips/take\t1.mp4")
	})
}

func TestSanitizeMediaTarget(t *testing.T) {
	Convey("Sources are validated before reaching mpv", t, func() {
		_, err := sanitizeMediaTarget("  ")
		So(err, ShouldNotBeNil)

		_, err = sanitizeMediaTarget("--script=evil.lua")
		So(err, ShouldNotBeNil)

		_, err = sanitizeMediaTarget("ftp://host/clip.mp4")
		So(err, ShouldNotBeNil)

		target, err := sanitizeMediaTarget("https://cdn.example.com/a.mp4")
		So(err, ShouldBeNil)
		So(target, ShouldEqual, "https://cdn.example.com/a.mp4")

		target, err = sanitizeMediaTarget("clips/../clips/a.mp4")
		So(err, ShouldBeNil)
		So(target, ShouldEqual, "clips/a.mp4")
	})
}

func TestReadResponse(t *testing.T) {
	Convey("Replies are matched by request id, skipping events", t, func() {
		input := strings.Join([]string{
			`{"event":"property-change","name":"time-pos","data":1.0}`,
			`{"data":null,"error":"success","request_id":6}`,
			`{"data":12.5,"error":"success","request_id":7}`,
		}, "\n")

		data, err := readResponse(bufio.NewScanner(strings.NewReader(input)), 7)
		So(err, ShouldBeNil)
		So(data, ShouldEqual, 12.5)
	})

	Convey("mpv errors are surfaced", t, func() {
		input := `{"data":null,"error":"property unavailable","request_id":3}`
		_, err := readResponse(bufio.NewScanner(strings.NewReader(input)), 3)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "property unavailable")
	})

	Convey("A closed connection without a reply is an error", t, func() {
		_, err := readResponse(bufio.NewScanner(strings.NewReader("")), 1)
		So(err, ShouldNotBeNil)
	})
}

func TestEventListener(t *testing.T) {
	Convey("Property changes and other events reach the callback", t, func() {
		var names []string
		el := NewEventListener("", func(name string, _ any) { names = append(names, name) })

		el.processEvent([]byte(`{"event":"property-change","id":1,"name":"pause","data":true}`))
		el.processEvent([]byte(`{"event":"end-file","reason":"eof"}`))
		el.processEvent([]byte(`{"data":null,"error":"success","request_id":2}`))
		el.processEvent([]byte(`not json`))

		So(names, ShouldResemble, []string{"pause", "end-file"})
	})
}

func TestAnchorChapters(t *testing.T) {
	Convey("The sync point becomes a chapter", t, func() {
		So(anchorChapters(0), ShouldHaveLength, 1)

		chapters := anchorChapters(2500 * time.Millisecond)
		So(chapters, ShouldHaveLength, 2)
		So(chapters[1]["time"], ShouldEqual, 2.5)
	})
}
