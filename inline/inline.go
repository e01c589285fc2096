// Package inline provides the implementation for the application's non-interactive, programmable execution mode.
package inline

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/tandem-cli/tandem/anchors"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/player"
	"github.com/tandem-cli/tandem/scrub"
	"github.com/tandem-cli/tandem/util"
	"k8s.io/utils/clock"
	testingclock "k8s.io/utils/clock/testing"
)

// pollInterval bounds how long a real-time wait goes without running engine callbacks.
const pollInterval = 10 * time.Millisecond

type runner struct {
	coord   *coordinator.Coordinator
	queue   *coordinator.Queue
	ids     []media.ID
	streams []media.Stream
	wait    func(time.Duration)
	output  *Output
}

// Run opens every source, runs the script against the comparison and writes
// one snapshot per print operation plus a final one.
//
// The simulated engine runs on simulated time, so waits return immediately.
func Run(ctx context.Context, options *Options) error {
	if options.Out == nil {
		options.Out = os.Stdout
	}

	r, err := newRunner(ctx, options)
	if err != nil {
		return err
	}
	defer r.close()

	if options.Restore {
		restored, err := anchors.Restore(r.coord, options.Sources)
		if err != nil {
			return err
		}
		r.output.Restored = restored
		r.queue.Drain()
	}

	for i, op := range options.Script {
		if err := r.exec(op); err != nil {
			return fmt.Errorf("operation %d %q: %w", i+1, op, err)
		}
		r.queue.Drain()
	}

	r.snapshot("end")

	if options.Save {
		if err := anchors.Remember(r.coord); err != nil {
			log.Warnf("could not remember anchors: %v", err)
		}
	}

	if options.Json {
		data, err := asJson(r.output)
		if err != nil {
			return err
		}
		_, err = options.Out.Write(data)
		return err
	}

	return writeText(options.Out, r.output)
}

func newRunner(ctx context.Context, options *Options) (*runner, error) {
	if len(options.Sources) == 0 {
		return nil, coordinator.ErrNoStreams
	}

	engine := lo.Ternary(options.Engine == "", constant.EngineSim, options.Engine)
	queue := coordinator.NewQueue()
	r := &runner{
		queue:  queue,
		output: &Output{Engine: engine, Sources: options.Sources},
	}

	var clk clock.WithDelayedExecution
	if engine == constant.EngineSim {
		fake := testingclock.NewFakeClock(time.Now())
		frame := player.FrameDuration()
		clk = fake
		r.wait = func(d time.Duration) {
			for d > 0 {
				tick := util.Min(d, frame)
				fake.Step(tick)
				queue.Drain()
				d -= tick
			}
		}
	} else {
		host := clock.RealClock{}
		clk = host
		r.wait = func(d time.Duration) {
			deadline := host.Now().Add(d)
			for remaining := d; remaining > 0; remaining = deadline.Sub(host.Now()) {
				host.Sleep(util.Min(remaining, pollInterval))
				queue.Drain()
			}
		}
	}

	r.coord = coordinator.New(coordinator.OptionsFromConfig(coordinator.Options{
		Clock:      clk,
		Dispatcher: queue,
		Notify: func(n coordinator.Notice) {
			r.output.Notices = append(r.output.Notices, r.describe(n))
		},
	}))

	for _, source := range options.Sources {
		stream, err := player.New(engine, clk)
		if err != nil {
			r.close()
			return nil, err
		}

		if err := r.coord.Open(ctx, stream, source); err != nil {
			log.Warnf("clip %s left out: %v", source, err)
		}
		r.ids = append(r.ids, stream.ID())
		r.streams = append(r.streams, stream)
		queue.Drain()
	}

	return r, nil
}

func (r *runner) exec(op *Op) error {
	c := r.coord

	var stream media.ID
	index, indexed := op.Stream.Get()
	if indexed {
		if index >= len(r.ids) {
			return fmt.Errorf("clip index %d out of range, %d clips", index, len(r.ids))
		}
		stream = r.ids[index]
	}

	switch op.Name {
	case "play":
		if indexed {
			return c.PlayStream(stream)
		}
		return c.Play()
	case "pause":
		if indexed {
			return c.PauseStream(stream)
		}
		return c.Pause()
	case "stop":
		return c.Stop()
	case "seek":
		if indexed {
			return c.SeekStream(stream, op.Duration)
		}
		return c.SeekGlobal(op.Duration)
	case "step":
		if indexed {
			return c.StepStream(stream, op.Direction)
		}
		return c.StepFrame(op.Direction)
	case "rate":
		if indexed {
			return c.SetStreamRate(stream, op.Rate)
		}
		return c.SetRate(op.Rate)
	case "mode":
		return c.SetMode(op.Mode)
	case "scrub":
		target := lo.Ternary(indexed, scrub.StreamTarget(stream), scrub.GlobalTarget())
		if err := c.BeginScrub(target); err != nil {
			return err
		}
		if err := c.Scrub(target, op.Duration); err != nil {
			return err
		}
		return c.EndScrub(target)
	case "drag":
		target := scrub.StreamTarget(stream)
		if err := c.BeginDrag(target); err != nil {
			return err
		}
		if err := c.DragTo(target, op.Duration); err != nil {
			return err
		}
		return c.EndDrag(target)
	case "sync":
		return c.SetSyncPoints(map[media.ID]time.Duration{stream: op.Duration})
	case "mark":
		_, err := c.MarkSyncPoint(stream)
		return err
	case "wait":
		r.wait(op.Duration)
		return nil
	case "print":
		r.snapshot(op.Text)
		return nil
	default:
		return fmt.Errorf("unknown operation %q", op.Name)
	}
}

func (r *runner) snapshot(op string) {
	r.output.Snapshots = append(r.output.Snapshots, newSnapshot(op, r.coord.Snapshot()))
}

// describe names the clip of a notice by index rather than by stream id.
func (r *runner) describe(n coordinator.Notice) string {
	index := lo.IndexOf(r.ids, n.Stream)
	if index < 0 {
		// still opening
		index = len(r.ids)
	}

	if n.Err != nil {
		return fmt.Sprintf("clip %d: %s: %v", index, n.Kind, n.Err)
	}
	return fmt.Sprintf("clip %d: %s", index, n.Kind)
}

func (r *runner) close() {
	r.coord.Close()
	for _, stream := range r.streams {
		if err := stream.Close(); err != nil {
			log.Warnf("closing %s: %v", stream.ID(), err)
		}
	}
}

func writeText(out io.Writer, output *Output) error {
	var b strings.Builder

	for _, s := range output.Snapshots {
		fmt.Fprintf(&b, "[%s] %s x%.2f global %s/%s%s\n",
			s.Op,
			s.Mode,
			s.Rate,
			util.FormatPosition(time.Duration(s.GlobalMs)*time.Millisecond),
			util.FormatPosition(time.Duration(s.GlobalDurationMs)*time.Millisecond),
			lo.Ternary(s.Playing, " playing", ""),
		)

		for _, stream := range s.Streams {
			fmt.Fprintf(&b, "  %d %-7s %s/%s sync %s x%.2f %s\n",
				stream.Index,
				stream.State,
				util.FormatPosition(time.Duration(stream.PositionMs)*time.Millisecond),
				util.FormatPosition(time.Duration(stream.DurationMs)*time.Millisecond),
				util.FormatPosition(time.Duration(stream.SyncPointMs)*time.Millisecond),
				stream.Rate,
				stream.Source,
			)
		}
	}

	for _, notice := range output.Notices {
		fmt.Fprintf(&b, "! %s\n", notice)
	}

	_, err := io.WriteString(out, b.String())
	return err
}
