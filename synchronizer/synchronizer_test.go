package synchronizer

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/filesystem"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/player"
	testingclock "k8s.io/utils/clock/testing"
)

const ms = time.Millisecond

func init() {
	filesystem.SetMemMapFs()
}

func enableLogs() *test.Hook {
	viper.Set(key.LogsWrite, true)
	viper.Set(key.LogsLevel, "info")
	lo.Must0(log.Setup())
	return test.NewGlobal()
}

func openSims(clk *testingclock.FakeClock, opts player.SimOptions, sources ...string) []*player.Sim {
	opts.Clock = clk
	return lo.Map(sources, func(source string, _ int) *player.Sim {
		sim := player.NewSim(opts)
		lo.Must0(sim.Open(context.Background(), source))
		return sim
	})
}

func batchOf(sims []*player.Sim, positions ...time.Duration) Batch {
	targets := lo.Map(sims, func(sim *player.Sim, i int) Target {
		return Target{Stream: sim, Position: positions[i]}
	})
	return Batch{Targets: targets, Rate: 1}
}

func entriesAt(hook *test.Hook, level logrus.Level) []*logrus.Entry {
	return lo.Filter(hook.AllEntries(), func(e *logrus.Entry, _ int) bool {
		return e.Level == level
	})
}

func TestHostClock(t *testing.T) {
	Convey("Given a host clock synchronizer with a 40ms lead", t, func() {
		hook := enableLogs()
		clk := testingclock.NewFakeClock(time.Unix(100, 0))
		sync := NewHostClock(clk, Options{Lead: 40 * ms, Native: true})

		Convey("Capable streams begin together at the deadline", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s", "b:8s")
			arm := sync.Start(batchOf(sims, 0, 500*ms))

			result := arm.Result()
			So(result.Fallback, ShouldBeFalse)
			So(result.Deadline.Equal(clk.Now().Add(40*ms)), ShouldBeTrue)
			So(result.Degraded(), ShouldBeEmpty)
			So(result.Failed(), ShouldBeEmpty)
			So(arm.Pending(), ShouldBeTrue)

			for _, sim := range sims {
				So(sim.WaitsForBuffering(), ShouldBeFalse)
				So(sim.State(), ShouldEqual, media.StatePaused)
			}

			clk.Step(40*ms + time.Second)
			So(arm.Pending(), ShouldBeFalse)
			So(sims[0].Position(), ShouldEqual, time.Second)
			So(sims[1].Position(), ShouldEqual, 1500*ms)
			So(sims[0].State(), ShouldEqual, media.StatePlaying)

			Convey("Cancel after the deadline has no effect", func() {
				arm.Cancel()
				So(sims[0].State(), ShouldEqual, media.StatePlaying)
			})
		})

		Convey("Cancel before the deadline leaves every stream paused", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s", "b:8s")
			arm := sync.Start(batchOf(sims, 0, 500*ms))

			clk.Step(10 * ms)
			arm.Cancel()
			So(arm.Pending(), ShouldBeFalse)

			clk.Step(time.Second)
			So(sims[0].State(), ShouldEqual, media.StatePaused)
			So(sims[1].Position(), ShouldEqual, 500*ms)
		})

		Convey("When every stream rejects its scheduled start", func() {
			sims := openSims(clk, player.SimOptions{RejectScheduledStart: true}, "a:10s", "b:8s", "c:6s")
			arm := sync.Start(batchOf(sims, 0, 500*ms, 0))

			Convey("Every stream still plays, degraded", func() {
				So(arm.Result().Degraded(), ShouldHaveLength, 3)
				for _, sim := range sims {
					So(sim.State(), ShouldEqual, media.StatePlaying)
				}
				So(sims[1].Position(), ShouldEqual, 500*ms)
			})

			Convey("One warning is logged per stream", func() {
				warnings := entriesAt(hook, logrus.WarnLevel)
				So(warnings, ShouldHaveLength, 3)

				streams := lo.Map(warnings, func(e *logrus.Entry, _ int) any { return e.Data["stream"] })
				So(streams, ShouldContain, sims[0].ID())
				So(streams, ShouldContain, sims[2].ID())
			})
		})

		Convey("A stream that cannot start does not abort the batch", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s", "b:8s")
			broken := player.NewSim(player.SimOptions{Clock: clk, FailOpen: true})
			_ = broken.Open(context.Background(), "c:5s")

			batch := batchOf(sims, 0, 0)
			batch.Targets = append(batch.Targets, Target{Stream: broken})
			arm := sync.Start(batch)

			failed := arm.Result().Failed()
			So(failed, ShouldHaveLength, 1)
			So(failed[0].ID, ShouldEqual, broken.ID())
			So(failed[0].Err, ShouldNotBeNil)

			clk.Step(40 * ms)
			So(sims[0].State(), ShouldEqual, media.StatePlaying)
			So(sims[1].State(), ShouldEqual, media.StatePlaying)
		})

		Convey("Per-target rates override the batch rate", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s", "b:10s")
			batch := batchOf(sims, 0, 0)
			batch.Targets[1].Rate = 2
			sync.Start(batch)

			clk.Step(40*ms + time.Second)
			So(sims[0].Position(), ShouldEqual, time.Second)
			So(sims[1].Position(), ShouldEqual, 2*time.Second)
		})

		Convey("A stream without the scheduled start primitive moves the batch to the shared timeline", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s", "b:8s")
			batch := batchOf(sims, 0, 500*ms)
			batch.Targets[1].Stream = player.WithoutScheduledStart(sims[1])

			arm := sync.Start(batch)
			So(arm.Result().Fallback, ShouldBeTrue)
			So(arm.Pending(), ShouldBeFalse)
			So(entriesAt(hook, logrus.WarnLevel), ShouldBeEmpty)
			So(entriesAt(hook, logrus.InfoLevel), ShouldNotBeEmpty)

			So(sims[0].State(), ShouldEqual, media.StatePlaying)
			So(sims[1].State(), ShouldEqual, media.StatePlaying)

			clk.Step(time.Second)
			So(sims[0].Position(), ShouldEqual, time.Second)
			So(sims[1].Position(), ShouldEqual, 1500*ms)
		})

		Convey("Disabling native starts always uses the shared timeline", func() {
			sims := openSims(clk, player.SimOptions{}, "a:10s")
			arm := NewHostClock(clk, Options{Native: false}).Start(batchOf(sims, 2*time.Second))

			So(arm.Result().Fallback, ShouldBeTrue)
			So(sims[0].WaitsForBuffering(), ShouldBeFalse)
			So(sims[0].Position(), ShouldEqual, 2*time.Second)
		})

		Reset(func() {
			viper.Set(key.LogsWrite, false)
			_ = log.Setup()
		})
	})
}

func TestSharedTimeline(t *testing.T) {
	Convey("Streams that fail to attach are reported and skipped", t, func() {
		clk := testingclock.NewFakeClock(time.Unix(0, 0))
		sims := openSims(clk, player.SimOptions{}, "a:10s")
		broken := player.NewSim(player.SimOptions{Clock: clk})

		batch := batchOf(sims, time.Second)
		batch.Targets = append(batch.Targets, Target{Stream: broken, Position: time.Second})

		result := NewSharedTimeline(clk).Start(batch).Result()
		So(result.Outcomes[0].Status, ShouldEqual, Synchronized)
		So(result.Outcomes[1].Status, ShouldEqual, Failed)
		So(result.Outcomes[1].ID, ShouldEqual, broken.ID())
		So(sims[0].State(), ShouldEqual, media.StatePlaying)
	})

	Convey("The shared timeline turns off stall avoidance before release", t, func() {
		clk := testingclock.NewFakeClock(time.Unix(0, 0))
		sims := openSims(clk, player.SimOptions{}, "a:10s", "b:10s")
		So(sims[0].WaitsForBuffering(), ShouldBeTrue)

		result := NewSharedTimeline(clk).Start(batchOf(sims, 0, 500*ms)).Result()
		So(result.Fallback, ShouldBeTrue)
		for _, sim := range sims {
			So(sim.WaitsForBuffering(), ShouldBeFalse)
			So(sim.State(), ShouldEqual, media.StatePlaying)
		}
	})

	Convey("Options are read from the configuration", t, func() {
		viper.Set(key.SyncLeadMs, 25)
		viper.Set(key.SyncNative, false)
		So(OptionsFromConfig(), ShouldResemble, Options{Lead: 25 * ms, Native: false})
	})

	Convey("Status strings", t, func() {
		So(Degraded.String(), ShouldEqual, "degraded")
	})
}
