// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/anchors"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/internal/ui"
	"github.com/tandem-cli/tandem/key"
	"github.com/tandem-cli/tandem/log"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/player"
	"github.com/tandem-cli/tandem/style"
	"k8s.io/utils/clock"
)

// refreshInterval is how often the view re-reads positions while nothing else happens.
const refreshInterval = 50 * time.Millisecond

type clip struct {
	source string
	stream media.Stream
	bar    progress.Model
}

func (c *clip) name() string {
	return filepath.Base(c.source)
}

// wakeDispatcher queues engine callbacks and wakes the program to drain them on
// its own goroutine.
type wakeDispatcher struct {
	queue *coordinator.Queue
	wake  chan struct{}
}

func (d *wakeDispatcher) Dispatch(task func()) {
	d.queue.Dispatch(task)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// statefulBubble encapsulates the comprehensive application state, including component models and workflow tracking.
type statefulBubble struct {
	state  state
	keymap *statefulKeymap

	// components
	spinnerC spinner.Model
	helpC    help.Model
	globalC  progress.Model

	clock      clock.WithDelayedExecution
	dispatcher *wakeDispatcher
	coord      *coordinator.Coordinator
	clips      []*clip
	selected   int
	rates      []float64
	scrubStep  time.Duration

	progressStatus string
	lastError      error
	pending        []tea.Cmd

	width, height int
	notifier      *ui.Model

	options *Options
}

type (
	openMsg struct{ index int }
	wakeMsg struct{}
	tickMsg time.Time
)

// openedMsg carries the outcome of opening one clip's engine.
type openedMsg struct {
	index  int
	stream media.Stream
	err    error
}

// raiseError dispatches a terminal error and transitions the application to the failure view.
func (b *statefulBubble) raiseError(err error) {
	b.lastError = err
	b.setState(errorState)
}

// setState performs a synchronous transition of both the application workflow and its associated keymap.
func (b *statefulBubble) setState(s state) {
	b.state = s
	b.keymap.setState(s)
}

// resize propagates terminal dimension changes to all child component models.
func (b *statefulBubble) resize(width, height int) {
	x, y := paddingStyle.GetFrameSize()

	b.width = width - x
	b.height = height - y
	b.helpC.Width = b.width

	b.globalC.Width = lo.Max([]int{b.width - 32, 10})
	for _, c := range b.clips {
		c.bar.Width = b.globalC.Width
	}
}

// notify queues a notification to be shown after the current update.
func (b *statefulBubble) notify(text string, warning bool) {
	b.pending = append(b.pending, b.notifier.Notify(text, warning))
}

func (b *statefulBubble) onNotice(n coordinator.Notice) {
	if !n.Kind.Warning() {
		return
	}

	name := string(n.Stream)
	if i, ok := b.indexOf(n.Stream); ok {
		name = b.clips[i].name()
	}
	if n.Err != nil {
		b.notify(fmt.Sprintf("%s: %s: %v", name, n.Kind, n.Err), true)
		return
	}
	b.notify(fmt.Sprintf("%s: %s", name, n.Kind), true)
}

func (b *statefulBubble) indexOf(id media.ID) (int, bool) {
	_, i, ok := lo.FindIndexOf(b.clips, func(c *clip) bool { return c.stream.ID() == id })
	return i, ok
}

func (b *statefulBubble) selectedClip() (*clip, bool) {
	if b.selected < 0 || b.selected >= len(b.clips) {
		return nil, false
	}
	return b.clips[b.selected], true
}

// close remembers the anchors if asked to and releases every engine.
func (b *statefulBubble) close() {
	if b.options.Save && b.state == compareState {
		if err := anchors.Remember(b.coord); err != nil {
			log.Warnf("could not remember anchors: %v", err)
		}
	}

	b.coord.Close()
	for _, c := range b.clips {
		if err := c.stream.Close(); err != nil {
			log.Warnf("closing %s: %v", c.source, err)
		}
	}
}

// configuredRates returns the configured playback rates in ascending order.
func configuredRates() []float64 {
	rates := lo.FilterMap(viper.GetIntSlice(key.PlayerRates), func(percent int, _ int) (float64, bool) {
		return float64(percent) / 100, percent > 0
	})
	if len(rates) == 0 {
		rates = []float64{0.25, 0.5, 1, 2}
	}

	rates = lo.Uniq(rates)
	sort.Float64s(rates)
	return rates
}

// nextRate returns the configured rate after (direction > 0) or before current.
// The ends of the list are sticky.
func nextRate(rates []float64, current float64, direction int) float64 {
	if direction > 0 {
		if rate, ok := lo.Find(rates, func(r float64) bool { return r > current }); ok {
			return rate
		}
		return rates[len(rates)-1]
	}

	smaller := lo.Filter(rates, func(r float64, _ int) bool { return r < current })
	if len(smaller) == 0 {
		return rates[0]
	}
	return smaller[len(smaller)-1]
}

// newBubble performs a complete initialization of the application's primary UI model.
func newBubble(options *Options, clk clock.WithDelayedExecution) *statefulBubble {
	bubble := &statefulBubble{
		keymap:   newStatefulKeymap(),
		clock:    clk,
		rates:    configuredRates(),
		notifier: &ui.Model{},
		options:  options,
		dispatcher: &wakeDispatcher{
			queue: coordinator.NewQueue(),
			wake:  make(chan struct{}, 1),
		},
		scrubStep: time.Duration(lo.Max([]int{viper.GetInt(key.ScrubStepMs), 1})) * time.Millisecond,
	}

	bubble.coord = coordinator.New(coordinator.OptionsFromConfig(coordinator.Options{
		Clock:      clk,
		Dispatcher: bubble.dispatcher,
		Notify:     bubble.onNotice,
	}))

	bubble.helpC = help.New()

	bubble.spinnerC = spinner.New()
	bubble.spinnerC.Spinner = spinner.Dot
	bubble.spinnerC.Style = lipgloss.NewStyle().Foreground(style.AccentColor)

	bubble.globalC = progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())

	bubble.setState(loadingState)
	return bubble
}

// Init starts opening the first clip.
func (b *statefulBubble) Init() tea.Cmd {
	return tea.Batch(b.spinnerC.Tick, b.openNext(0), b.waitForWake())
}

func (b *statefulBubble) openNext(index int) tea.Cmd {
	return func() tea.Msg {
		return openMsg{index: index}
	}
}

func (b *statefulBubble) waitForWake() tea.Cmd {
	return func() tea.Msg {
		<-b.dispatcher.wake
		return wakeMsg{}
	}
}

func (b *statefulBubble) tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// open starts opening clip index. The engine opens on a command goroutine so
// the spinner keeps running; attach applies the outcome.
func (b *statefulBubble) open(index int) tea.Cmd {
	if index >= len(b.options.Sources) {
		return b.opened()
	}

	source := b.options.Sources[index]
	b.progressStatus = fmt.Sprintf("Opening %s (%d/%d)", filepath.Base(source), index+1, len(b.options.Sources))

	stream, err := player.New(b.options.Engine, b.clock)
	if err != nil {
		b.raiseError(err)
		return nil
	}

	return func() tea.Msg {
		err := stream.Open(context.Background(), source)
		return openedMsg{index: index, stream: stream, err: err}
	}
}

// attach hands an opened clip to the coordinator. A clip that fails to open
// stays listed in the error state; the comparison only fails when no clip opens.
func (b *statefulBubble) attach(msg openedMsg) tea.Cmd {
	source := b.options.Sources[msg.index]

	bar := progress.New(progress.WithSolidFill(string(style.ClipColor(msg.index))), progress.WithoutPercentage())
	bar.Width = b.globalC.Width
	b.clips = append(b.clips, &clip{source: source, stream: msg.stream, bar: bar})

	if err := b.coord.Attach(msg.stream, source, msg.err); err != nil {
		var openErr *coordinator.OpenError
		if !errors.As(err, &openErr) {
			b.raiseError(err)
			return nil
		}
	}

	return b.openNext(msg.index + 1)
}

// opened finishes loading once every clip has been tried.
func (b *statefulBubble) opened() tea.Cmd {
	usable := lo.CountBy(b.coord.Snapshot().Streams, func(s coordinator.StreamStatus) bool {
		return s.Err == nil
	})
	if usable == 0 {
		b.raiseError(coordinator.ErrNoStreams)
		return nil
	}

	if b.options.Restore {
		restored, err := anchors.Restore(b.coord, b.options.Sources)
		if err != nil {
			b.notify(fmt.Sprintf("could not restore sync points: %v", err), true)
		} else if restored {
			b.notify("sync points restored", false)
		}
	}

	b.setState(compareState)
	return b.tick()
}
