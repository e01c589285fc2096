package anchors

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/player"
	testingclock "k8s.io/utils/clock/testing"
)

func init() {
	filesystem.SetMemMapFs()
}

func TestKey(t *testing.T) {
	Convey("The key of a clip set ignores order and surrounding space", t, func() {
		So(Key([]string{"b.mp4", " a.mp4"}), ShouldEqual, Key([]string{"a.mp4", "b.mp4"}))
		So(Key([]string{"./clips/../a.mp4"}), ShouldEqual, "a.mp4")
		So(Key([]string{"https://example.com/a.mp4"}), ShouldEqual, "https://example.com/a.mp4")
	})
}

func TestAnchors(t *testing.T) {
	Convey("Given a remembered clip set", t, func() {
		So(Clear(), ShouldBeNil)

		record := &Record{
			Clips: []Clip{
				{Source: "vault-a.mp4", SyncPointMs: 0},
				{Source: "vault-b.mp4", SyncPointMs: 500},
			},
			Mode:    coordinator.Individual.String(),
			Rate:    0.5,
			SavedAt: time.Unix(2000, 0),
		}
		So(Save(record), ShouldBeNil)

		Convey("It is found whatever the clip order", func() {
			found := Lookup([]string{"vault-b.mp4", "vault-a.mp4"})
			So(found.IsPresent(), ShouldBeTrue)
			So(found.MustGet().Rate, ShouldEqual, 0.5)
			So(found.MustGet().Clips[1].SyncPoint(), ShouldEqual, 500*time.Millisecond)
		})

		Convey("A different clip set is not found", func() {
			So(Lookup([]string{"vault-a.mp4"}).IsAbsent(), ShouldBeTrue)
		})

		Convey("Saving again replaces it", func() {
			record.Rate = 2
			So(Save(record), ShouldBeNil)

			saved, err := Get()
			So(err, ShouldBeNil)
			So(saved, ShouldHaveLength, 1)
			So(saved[record.Key()].Rate, ShouldEqual, 2.0)
		})

		Convey("Search matches fuzzily, most recent first", func() {
			So(Save(&Record{
				Clips:   []Clip{{Source: "sprint-1.mp4"}, {Source: "vault-c.mp4"}},
				SavedAt: time.Unix(3000, 0),
			}), ShouldBeNil)

			records, err := Search("vlt")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
			So(records[0].Clips[0].Source, ShouldEqual, "sprint-1.mp4")

			records, err = Search("sprnt")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 1)

			records, err = Search("")
			So(err, ShouldBeNil)
			So(records, ShouldHaveLength, 2)
		})

		Convey("Forget removes it", func() {
			So(Forget(record.Key()), ShouldBeNil)
			So(Lookup([]string{"vault-a.mp4", "vault-b.mp4"}).IsAbsent(), ShouldBeTrue)
			So(Forget("unknown"), ShouldBeNil)
		})

		Convey("Its sync points map onto a session by source", func() {
			streams := []coordinator.StreamStatus{
				{ID: media.ID("2"), Source: "vault-b.mp4"},
				{ID: media.ID("1"), Source: "./vault-a.mp4"},
				{ID: media.ID("3"), Source: "other.mp4"},
			}

			points := record.Points(streams)
			So(points, ShouldHaveLength, 2)
			So(points[media.ID("1")], ShouldEqual, time.Duration(0))
			So(points[media.ID("2")], ShouldEqual, 500*time.Millisecond)
		})
	})
}

func TestFromSession(t *testing.T) {
	Convey("A session snapshot becomes a record", t, func() {
		record := FromSession(coordinator.Session{
			Mode: coordinator.Simultaneous,
			Rate: 1.5,
			Streams: []coordinator.StreamStatus{
				{Source: "a.mp4", SyncPoint: 1250 * time.Millisecond},
				{Source: "b.mp4"},
			},
		})

		So(record.Mode, ShouldEqual, coordinator.Simultaneous.String())
		So(record.Rate, ShouldEqual, 1.5)
		So(record.Clips, ShouldResemble, []Clip{{Source: "a.mp4", SyncPointMs: 1250}, {Source: "b.mp4"}})
		So(record.SavedAt.IsZero(), ShouldBeFalse)
		So(record.Key(), ShouldEqual, "a.mp4 | b.mp4")
	})
}

func TestRestore(t *testing.T) {
	Convey("Given a comparison of two simulated clips", t, func() {
		So(Clear(), ShouldBeNil)

		clk := testingclock.NewFakeClock(time.Unix(1000, 0))
		newSession := func() (*coordinator.Coordinator, []*player.Sim) {
			c := coordinator.New(coordinator.Options{Clock: clk, MaxStreams: 4, Rate: 1})
			sims := []*player.Sim{
				player.NewSim(player.SimOptions{Clock: clk}),
				player.NewSim(player.SimOptions{Clock: clk}),
			}
			So(c.Open(context.Background(), sims[0], "a:10s"), ShouldBeNil)
			So(c.Open(context.Background(), sims[1], "b:8s"), ShouldBeNil)
			return c, sims
		}

		Convey("Nothing is restored for an unknown clip set", func() {
			c, _ := newSession()
			restored, err := Restore(c, []string{"a:10s", "b:8s"})
			So(err, ShouldBeNil)
			So(restored, ShouldBeFalse)
		})

		Convey("A remembered session comes back with its sync points, mode and rate", func() {
			c, sims := newSession()
			So(c.SetSyncPoints(map[media.ID]time.Duration{sims[1].ID(): 1500 * time.Millisecond}), ShouldBeNil)
			So(c.SetMode(coordinator.Individual), ShouldBeNil)
			So(c.SetRate(0.5), ShouldBeNil)
			So(Remember(c), ShouldBeNil)

			again, sims := newSession()
			restored, err := Restore(again, []string{"b:8s", "a:10s"})
			So(err, ShouldBeNil)
			So(restored, ShouldBeTrue)

			So(again.Mode(), ShouldEqual, coordinator.Individual)
			So(again.Rate(), ShouldEqual, 0.5)
			So(again.SyncPoints()[sims[1].ID()], ShouldEqual, 1500*time.Millisecond)
			So(sims[1].Position(), ShouldEqual, 1500*time.Millisecond)
		})

		Convey("An empty session is not remembered", func() {
			So(Remember(coordinator.New(coordinator.Options{Clock: clk})), ShouldBeNil)
			saved, err := Get()
			So(err, ShouldBeNil)
			So(saved, ShouldBeEmpty)
		})
	})
}
