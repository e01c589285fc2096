package synchronizer

import (
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"k8s.io/utils/clock"
)

// SharedTimeline starts streams that cannot schedule their own start. Every
// stream is paused and attached to one controller at its own offset; starting
// the controller from zero releases all attached streams together.
type SharedTimeline struct {
	clock clock.PassiveClock
}

func NewSharedTimeline(clk clock.PassiveClock) *SharedTimeline {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &SharedTimeline{clock: clk}
}

type member struct {
	index  int
	stream media.Stream
	rate   float64
}

// controller holds the streams attached to the timeline.
type controller struct {
	members []member
}

// attach positions a paused stream at its offset on the timeline.
func (c *controller) attach(index int, target Target, rate float64) error {
	stream := target.Stream

	if err := stream.Seek(target.Position); err != nil {
		return err
	}
	if err := stream.SetRate(rate); err != nil {
		return err
	}

	c.members = append(c.members, member{index: index, stream: stream, rate: rate})
	return nil
}

// release starts every attached stream at once.
func (c *controller) release(outcomes []Outcome) {
	var wg conc.WaitGroup
	for _, m := range c.members {
		m := m
		wg.Go(func() {
			if err := m.stream.Play(); err != nil {
				log.WithFields(logrus.Fields{"stream": m.stream.ID()}).Errorf("timeline release: %v", err)
				outcomes[m.index] = Outcome{ID: m.stream.ID(), Status: Failed, Err: err}
				return
			}
			outcomes[m.index] = Outcome{ID: m.stream.ID(), Status: Synchronized}
		})
	}
	wg.Wait()
}

// Start pauses, attaches and releases the batch. Stall avoidance is turned
// off for every stream first. The returned Arm is never pending.
func (s *SharedTimeline) Start(batch Batch) *Arm {
	outcomes := make([]Outcome, len(batch.Targets))

	for _, target := range batch.Targets {
		_ = target.Stream.Pause()
		disableStallAvoidance(target.Stream)
	}

	var timeline controller
	for i, target := range batch.Targets {
		if err := timeline.attach(i, target, batch.rateOf(target)); err != nil {
			log.WithFields(logrus.Fields{"stream": target.Stream.ID()}).Errorf("timeline attach: %v", err)
			outcomes[i] = Outcome{ID: target.Stream.ID(), Status: Failed, Err: err}
		}
	}

	now := s.clock.Now()
	timeline.release(outcomes)

	return &Arm{
		clock:  s.clock,
		result: Result{Deadline: now, Fallback: true, Outcomes: outcomes},
	}
}
