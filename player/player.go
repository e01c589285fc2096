// Package player provides the playback engines that back each compared clip.
// The primary engine drives 'mpv' via its JSON-IPC interface; the simulated
// engine runs on an injectable clock for headless scripts and tests.
package player

import (
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/constant"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/media"
	"k8s.io/utils/clock"
)

// Engines lists the available engine names.
var Engines = []string{constant.EngineMPV, constant.EngineSim}

// New creates an unopened stream for the named engine. An empty name selects
// the configured default.
func New(engine string, clk clock.WithDelayedExecution) (media.Stream, error) {
	if engine == "" {
		engine = viper.GetString(key.Player)
	}

	switch engine {
	case constant.EngineMPV:
		return NewMPV(clk), nil
	case constant.EngineSim:
		return NewSim(SimOptions{Clock: clk, Frame: FrameDuration()}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q, expected one of %v", engine, Engines)
	}
}

// FrameDuration returns the duration of one frame at the configured frame rate.
func FrameDuration() time.Duration {
	fps := lo.Max([]int{viper.GetInt(key.PlayerFPS), 1})
	return time.Second / time.Duration(fps)
}

// unscheduled hides the scheduled start primitive of the wrapped stream.
type unscheduled struct {
	media.Stream
}

func (u unscheduled) SetWaitForBuffering(enabled bool) error {
	if control, ok := u.Stream.(media.StallControl); ok {
		return control.SetWaitForBuffering(enabled)
	}
	return nil
}

// WithoutScheduledStart hides the scheduled start primitive of stream, so
// coordinated starts fall back to the shared timeline. Stall control stays
// reachable.
func WithoutScheduledStart(stream media.Stream) media.Stream {
	return unscheduled{Stream: stream}
}
