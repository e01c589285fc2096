package inline

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/media"
)

type Options struct {
	Out     io.Writer
	Engine  string
	Sources []string
	Script  []*Op
	Json    bool
	// Restore applies remembered anchors for the clip set before the script runs.
	Restore bool
	// Save remembers the anchors of the session once the script has run.
	Save bool
}

// Op is one parsed script operation.
type Op struct {
	Name      string
	Text      string
	Stream    mo.Option[int]
	Duration  time.Duration
	Rate      float64
	Direction media.Direction
	Mode      coordinator.Mode
}

func (o *Op) String() string {
	return o.Text
}

// ParseScript parses operations separated by newlines or semicolons.
// Blank operations and lines starting with '#' are skipped.
//
//	play [N]          pause [N]           stop
//	seek [N] <pos>    step [N] [fwd|back] rate [N] <rate>
//	scrub [N] <delta> drag N <pos>        mode simultaneous|individual
//	sync N <pos>      mark N              wait <duration>
//	print
//
// N is a 0-based clip index. Positions and durations are Go durations or
// plain milliseconds.
func ParseScript(script string) ([]*Op, error) {
	var ops []*Op

	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		for _, text := range strings.Split(line, ";") {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}

			op, err := ParseOp(text)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
		}
	}

	return ops, nil
}

// ParseOp parses a single operation.
func ParseOp(text string) (*Op, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty operation")
	}

	op := &Op{Name: strings.ToLower(fields[0]), Text: strings.Join(fields, " "), Direction: media.Forward}
	args := fields[1:]

	invalid := func(usage string) error {
		return fmt.Errorf("invalid operation %q, usage: %s", op.Text, usage)
	}

	// leading clip index, when present
	stream := func(required bool) error {
		if len(args) == 0 {
			if required {
				return fmt.Errorf("operation %q needs a clip index", op.Text)
			}
			return nil
		}

		index, err := strconv.Atoi(args[0])
		if err != nil || index < 0 {
			if required {
				return fmt.Errorf("invalid clip index %q", args[0])
			}
			return nil
		}

		op.Stream = mo.Some(index)
		args = args[1:]
		return nil
	}

	var err error
	switch op.Name {
	case "play", "pause":
		if len(args) > 1 {
			return nil, invalid(op.Name + " [N]")
		}
		err = stream(len(args) == 1)
	case "stop", "print":
		if len(args) != 0 {
			return nil, invalid(op.Name)
		}
	case "seek", "scrub":
		if len(args) == 2 {
			err = stream(true)
		}
		if err == nil && len(args) != 1 {
			return nil, invalid(op.Name + " [N] <duration>")
		}
		if err == nil {
			op.Duration, err = parseDuration(args[0])
		}
	case "drag", "sync":
		if len(args) != 2 {
			return nil, invalid(op.Name + " N <duration>")
		}
		if err = stream(true); err == nil {
			op.Duration, err = parseDuration(args[0])
		}
	case "mark":
		if len(args) != 1 {
			return nil, invalid("mark N")
		}
		err = stream(true)
	case "wait":
		if len(args) != 1 {
			return nil, invalid("wait <duration>")
		}
		op.Duration, err = parseDuration(args[0])
		if err == nil && op.Duration < 0 {
			err = fmt.Errorf("negative wait %q", args[0])
		}
	case "step":
		if len(args) > 2 {
			return nil, invalid("step [N] [fwd|back]")
		}
		if err = stream(len(args) == 2); err == nil && len(args) == 1 {
			op.Direction, err = parseDirection(args[0])
		}
	case "rate":
		if len(args) == 2 {
			err = stream(true)
		}
		if err == nil && len(args) != 1 {
			return nil, invalid("rate [N] <rate>")
		}
		if err == nil {
			op.Rate, err = parseRate(args[0])
		}
	case "mode":
		if len(args) != 1 {
			return nil, invalid("mode simultaneous|individual")
		}
		op.Mode, err = coordinator.ParseMode(strings.ToLower(args[0]))
	default:
		return nil, fmt.Errorf("unknown operation %q", op.Name)
	}

	if err != nil {
		return nil, err
	}
	return op, nil
}

// parseDuration accepts Go durations ("1.5s", "-200ms") or plain milliseconds.
func parseDuration(value string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", value)
	}
	return d, nil
}

// parseRate accepts factors ("0.5", "2x") and percents ("50%").
func parseRate(value string) (float64, error) {
	percent := strings.HasSuffix(value, "%")
	trimmed := strings.TrimSuffix(strings.TrimSuffix(value, "%"), "x")

	rate, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rate %q", value)
	}
	if percent {
		rate /= 100
	}
	return rate, nil
}

var directions = map[string]media.Direction{
	"fwd":      media.Forward,
	"forward":  media.Forward,
	"+":        media.Forward,
	"back":     media.Backward,
	"backward": media.Backward,
	"-":        media.Backward,
}

func parseDirection(value string) (media.Direction, error) {
	direction, ok := directions[strings.ToLower(value)]
	if !ok {
		return media.Forward, fmt.Errorf("invalid direction %q, expected one of %v", value, lo.Keys(directions))
	}
	return direction, nil
}
