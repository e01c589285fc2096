// Package synchronizer starts a batch of streams so that they begin playing
// together. The host clock adapter schedules every stream against one deadline
// on the monotonic clock; streams that cannot be scheduled are released
// together from a shared timeline instead.
//
// Failures are reported per stream as outcome values. A failing stream never
// aborts the rest of its batch.
package synchronizer

import (
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/media"
	"k8s.io/utils/clock"
)

// Status is the outcome of starting one stream.
type Status int

const (
	// Synchronized streams begin at the shared deadline.
	Synchronized Status = iota
	// Degraded streams rejected the scheduled start and were played immediately.
	Degraded
	// Failed streams could not be started at all.
	Failed
)

func (s Status) String() string {
	switch s {
	case Synchronized:
		return "synchronized"
	case Degraded:
		return "degraded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Target is one stream of a batch and the position it must start from.
// A zero Rate uses the batch rate.
type Target struct {
	Stream   media.Stream
	Position time.Duration
	Rate     float64
}

// Batch is a set of streams to start together.
type Batch struct {
	Targets []Target
	Rate    float64
}

func (b Batch) rateOf(t Target) float64 {
	if t.Rate > 0 {
		return t.Rate
	}
	if b.Rate > 0 {
		return b.Rate
	}
	return 1
}

// Outcome reports how one stream of a batch was started.
type Outcome struct {
	ID     media.ID
	Status Status
	Err    error
}

// Result reports how a batch was started.
type Result struct {
	// Deadline is the instant synchronized streams begin playing.
	Deadline time.Time
	// Fallback is set when the batch was released from the shared timeline.
	Fallback bool
	Outcomes []Outcome
}

// Degraded returns the outcomes of streams started without synchronization.
func (r Result) Degraded() []Outcome {
	return r.with(Degraded)
}

// Failed returns the outcomes of streams that could not be started.
func (r Result) Failed() []Outcome {
	return r.with(Failed)
}

func (r Result) with(status Status) []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool {
		return o.Status == status
	})
}

// Synchronizer starts batches of streams.
type Synchronizer interface {
	Start(batch Batch) *Arm
}

// Options tunes a HostClock synchronizer.
type Options struct {
	// Lead is the time between arming a batch and its deadline.
	Lead time.Duration
	// Native enables scheduled starts. When false every batch uses the shared timeline.
	Native bool
}

// OptionsFromConfig reads the synchronizer options from the configuration.
func OptionsFromConfig() Options {
	return Options{
		Lead:   time.Duration(viper.GetInt(key.SyncLeadMs)) * time.Millisecond,
		Native: viper.GetBool(key.SyncNative),
	}
}

// Arm is a started batch. Until its deadline passes it can still be cancelled.
type Arm struct {
	clock     clock.PassiveClock
	result    Result
	streams   []media.Stream
	cancelled bool
}

// Result reports how the batch was started.
func (a *Arm) Result() Result {
	return a.result
}

// Pending reports whether synchronized streams are still waiting for the deadline.
func (a *Arm) Pending() bool {
	return !a.cancelled && a.clock.Now().Before(a.result.Deadline)
}

// Cancel supersedes a pending start by pausing the streams that were scheduled.
// It does nothing once the deadline has passed.
func (a *Arm) Cancel() {
	if a == nil || !a.Pending() {
		return
	}

	a.cancelled = true
	for _, stream := range a.streams {
		_ = stream.Pause()
	}
}
