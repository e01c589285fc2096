package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/media"
	testingclock "k8s.io/utils/clock/testing"
)

func init() {
	filesystem.SetMemMapFs()
	viper.Set(key.ScrubStepMs, 100)
	viper.Set(key.PlayerFPS, 25)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func opened(sources ...string) (*statefulBubble, *testingclock.FakeClock) {
	clk := testingclock.NewFakeClock(time.Unix(1000, 0))
	b := newBubble(&Options{Engine: constant.EngineSim, Sources: sources}, clk)
	b.Init()

	for i := range sources {
		b.Update(b.open(i)())
	}
	b.Update(openMsg{index: len(sources)})
	b.Update(wakeMsg{})
	return b, clk
}

func TestCompare(t *testing.T) {
	Convey("Given a comparison of two simulated clips", t, func() {
		b, _ := opened("a:10s", "b:8s")

		So(b.state, ShouldEqual, compareState)
		So(b.clips, ShouldHaveLength, 2)

		Convey("Space toggles playback", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			So(b.coord.Playing(), ShouldBeTrue)

			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			So(b.coord.Playing(), ShouldBeFalse)
		})

		Convey("Arrows scrub the global timeline", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyRight})
			b.Update(tea.KeyMsg{Type: tea.KeyRight})
			So(b.coord.Global(), ShouldEqual, 200*time.Millisecond)
			So(b.coord.Snapshot().Scrubbing, ShouldBeTrue)

			b.Update(tea.KeyMsg{Type: tea.KeyLeft})
			So(b.coord.Global(), ShouldEqual, 100*time.Millisecond)
		})

		Convey("Frame steps while playing raise a hint", func() {
			b.Update(tea.KeyMsg{Type: tea.KeySpace})
			b.Update(runes("."))
			So(b.notifier.Notification(), ShouldEqual, "pause before stepping frames")
		})

		Convey("The rate keys cycle through the configured rates", func() {
			b.Update(runes("]"))
			So(b.coord.Rate(), ShouldEqual, 2.0)
			b.Update(runes("["))
			b.Update(runes("["))
			So(b.coord.Rate(), ShouldEqual, 0.5)
		})

		Convey("In Individual mode the keys drive the selected clip", func() {
			b.Update(runes("m"))
			So(b.coord.Mode(), ShouldEqual, coordinator.Individual)
			So(b.notifier.Notification(), ShouldEqual, coordinator.Individual.String())

			b.Update(tea.KeyMsg{Type: tea.KeyTab})
			So(b.selected, ShouldEqual, 1)

			b.Update(runes("]"))
			status, ok := b.status(b.clips[1].stream.ID())
			So(ok, ShouldBeTrue)
			So(status.Rate, ShouldEqual, 2.0)

			b.Update(tea.KeyMsg{Type: tea.KeyRight})
			b.Update(runes("."))
			b.Update(runes("a"))
			So(b.coord.SyncPoints()[b.clips[1].stream.ID()], ShouldEqual, 140*time.Millisecond)
			So(b.clips[0].stream.Position(), ShouldEqual, time.Duration(0))

			b.Update(tea.KeyMsg{Type: tea.KeyEnter})
			So(b.coord.Playing(), ShouldBeTrue)
			b.Update(tea.KeyMsg{Type: tea.KeyEnter})
			So(b.coord.Playing(), ShouldBeFalse)
		})

		Convey("Playing a single clip is refused in Simultaneous mode", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyEnter})
			So(b.notifier.Notification(), ShouldContainSubstring, "individual mode")
		})

		Convey("The view shows the mode and every clip", func() {
			b.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
			view := b.View()
			So(view, ShouldContainSubstring, "simultaneous")
			So(view, ShouldContainSubstring, "a:10s")
			So(view, ShouldContainSubstring, "0:08.000")
		})

		Convey("Tab wraps around", func() {
			b.Update(tea.KeyMsg{Type: tea.KeyShiftTab})
			So(b.selected, ShouldEqual, 1)
			b.Update(tea.KeyMsg{Type: tea.KeyTab})
			So(b.selected, ShouldEqual, 0)
		})
	})

	Convey("A clip that fails to open is listed but the comparison starts", t, func() {
		b, _ := opened("a:10s", "broken")

		So(b.state, ShouldEqual, compareState)
		So(b.notifier.Notification(), ShouldContainSubstring, "open failed")

		b.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
		So(b.View(), ShouldContainSubstring, "invalid simulated source")
	})

	Convey("Opening a clip leaves the update loop free until the engine reports back", t, func() {
		clk := testingclock.NewFakeClock(time.Unix(1000, 0))
		b := newBubble(&Options{Engine: constant.EngineSim, Sources: []string{"a:10s", "b:8s"}}, clk)
		b.Init()

		open := b.open(0)
		So(open, ShouldNotBeNil)
		So(b.state, ShouldEqual, loadingState)
		So(b.progressStatus, ShouldContainSubstring, "a:10s")
		So(b.coord.Streams(), ShouldBeEmpty)

		msg, ok := open().(openedMsg)
		So(ok, ShouldBeTrue)
		So(msg.err, ShouldBeNil)
		So(b.coord.Streams(), ShouldBeEmpty)

		b.Update(msg)
		So(b.coord.Streams(), ShouldResemble, []media.ID{msg.stream.ID()})
		So(b.clips, ShouldHaveLength, 1)
		So(b.state, ShouldEqual, loadingState)
	})

	Convey("When no clip opens the comparison fails", t, func() {
		b, _ := opened("broken")
		So(b.state, ShouldEqual, errorState)
		So(b.View(), ShouldContainSubstring, "Error")
	})
}

func TestRates(t *testing.T) {
	Convey("Configured rates are sorted and deduplicated", t, func() {
		viper.Set(key.PlayerRates, []int{200, 50, 0, 100, 50})
		defer viper.Set(key.PlayerRates, nil)

		So(configuredRates(), ShouldResemble, []float64{0.5, 1, 2})
	})

	Convey("Rates step to the neighbouring configured rate", t, func() {
		rates := []float64{0.25, 0.5, 1, 2}

		So(nextRate(rates, 1, 1), ShouldEqual, 2.0)
		So(nextRate(rates, 2, 1), ShouldEqual, 2.0)
		So(nextRate(rates, 1, -1), ShouldEqual, 0.5)
		So(nextRate(rates, 0.25, -1), ShouldEqual, 0.25)
		So(nextRate(rates, 0.75, 1), ShouldEqual, 1.0)
		So(nextRate(rates, 0.75, -1), ShouldEqual, 0.5)
	})
}

func TestKeymapHelp(t *testing.T) {
	Convey("Help lists more bindings than the short help while comparing", t, func() {
		k := newStatefulKeymap()
		k.setState(compareState)
		So(len(k.FullHelp()[0]), ShouldBeGreaterThan, len(k.ShortHelp()))

		k.setState(loadingState)
		So(strings.Join(k.ShortHelp()[0].Keys(), ","), ShouldContainSubstring, "ctrl+c")
	})
}
