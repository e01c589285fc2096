package synchronizer

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"k8s.io/utils/clock"
)

// HostClock schedules every stream of a batch to begin at one deadline on the
// host monotonic clock.
type HostClock struct {
	clock    clock.PassiveClock
	lead     time.Duration
	native   bool
	fallback *SharedTimeline
}

// NewHostClock creates a synchronizer driven by clk.
func NewHostClock(clk clock.PassiveClock, opts Options) *HostClock {
	if clk == nil {
		clk = clock.RealClock{}
	}

	return &HostClock{
		clock:    clk,
		lead:     max(opts.Lead, 0),
		native:   opts.Native,
		fallback: NewSharedTimeline(clk),
	}
}

// Start arms the batch. If native scheduling is disabled, or any stream lacks
// the scheduled start primitive, the whole batch uses the shared timeline.
func (h *HostClock) Start(batch Batch) *Arm {
	if !h.native {
		log.Info("native synchronized start disabled, using shared timeline")
		return h.fallback.Start(batch)
	}

	for _, target := range batch.Targets {
		if _, ok := target.Stream.(media.ScheduledStarter); !ok {
			log.WithFields(logrus.Fields{"stream": target.Stream.ID()}).
				Info("stream cannot schedule its start, using shared timeline")
			return h.fallback.Start(batch)
		}
	}

	deadline := h.clock.Now().Add(h.lead)
	outcomes := make([]Outcome, len(batch.Targets))

	var wg conc.WaitGroup
	for i, target := range batch.Targets {
		i, target := i, target
		wg.Go(func() {
			outcomes[i] = h.startOne(target, batch.rateOf(target), deadline)
		})
	}
	wg.Wait()

	var scheduled []media.Stream
	for i, outcome := range outcomes {
		if outcome.Status == Synchronized {
			scheduled = append(scheduled, batch.Targets[i].Stream)
		}
	}

	return &Arm{
		clock:   h.clock,
		streams: scheduled,
		result:  Result{Deadline: deadline, Outcomes: outcomes},
	}
}

func (h *HostClock) startOne(target Target, rate float64, deadline time.Time) Outcome {
	stream := target.Stream
	entry := log.WithFields(logrus.Fields{"stream": stream.ID()})

	disableStallAvoidance(stream)

	starter := stream.(media.ScheduledStarter)
	err := starter.StartAt(target.Position, rate, deadline)
	if err == nil {
		return Outcome{ID: stream.ID(), Status: Synchronized}
	}

	entry.Warnf("synchronized start rejected, starting immediately: %v", err)

	if playErr := startNow(target, rate); playErr != nil {
		entry.Errorf("immediate start failed: %v", playErr)
		return Outcome{ID: stream.ID(), Status: Failed, Err: fmt.Errorf("%w; immediate start: %w", err, playErr)}
	}

	return Outcome{ID: stream.ID(), Status: Degraded, Err: err}
}

// disableStallAvoidance stops stream from pausing itself to buffer, which
// would drift it away from the rest of the batch.
func disableStallAvoidance(stream media.Stream) {
	control, ok := stream.(media.StallControl)
	if !ok {
		return
	}
	if err := control.SetWaitForBuffering(false); err != nil {
		log.WithFields(logrus.Fields{"stream": stream.ID()}).Debugf("disable stall avoidance: %v", err)
	}
}

// startNow plays a stream from its target position without a deadline.
func startNow(target Target, rate float64) error {
	stream := target.Stream

	if err := stream.Seek(target.Position); err != nil {
		return err
	}
	if err := stream.SetRate(rate); err != nil {
		return err
	}
	return stream.Play()
}
