// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"errors"
	"fmt"
	"time"

	bubblesKey "github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/scrub"
	"github.com/tandem-cli/tandem/util"
)

func (b *statefulBubble) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	b.notifier.Update(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.resize(msg.Width, msg.Height)
	case spinner.TickMsg:
		if b.state == loadingState {
			b.spinnerC, cmd = b.spinnerC.Update(msg)
		}
	case openMsg:
		cmd = b.open(msg.index)
	case openedMsg:
		cmd = b.attach(msg)
	case wakeMsg:
		b.dispatcher.queue.Drain()
		cmd = b.waitForWake()
	case tickMsg:
		b.dispatcher.queue.Drain()
		cmd = b.tick()
	case tea.KeyMsg:
		if bubblesKey.Matches(msg, b.keymap.forceQuit) {
			return b, tea.Quit
		}

		switch b.state {
		case compareState:
			cmd = b.handleCompareKey(msg)
		case errorState:
			if bubblesKey.Matches(msg, b.keymap.quit) {
				return b, tea.Quit
			}
		}
	}

	return b, b.flush(cmd)
}

// flush batches cmd with every notification raised during the update.
func (b *statefulBubble) flush(cmd tea.Cmd) tea.Cmd {
	cmds := append(b.pending, cmd)
	b.pending = nil
	return tea.Batch(cmds...)
}

func (b *statefulBubble) handleCompareKey(msg tea.KeyMsg) tea.Cmd {
	c := b.coord
	individual := c.Mode() == coordinator.Individual

	var err error
	switch {
	case bubblesKey.Matches(msg, b.keymap.quit):
		return tea.Quit
	case bubblesKey.Matches(msg, b.keymap.showHelp):
		b.helpC.ShowAll = !b.helpC.ShowAll
	case bubblesKey.Matches(msg, b.keymap.playPause):
		if c.Playing() {
			err = c.Pause()
		} else {
			err = c.Play()
		}
	case bubblesKey.Matches(msg, b.keymap.playClip):
		err = b.toggleSelected()
	case bubblesKey.Matches(msg, b.keymap.stop):
		err = c.Stop()
	case bubblesKey.Matches(msg, b.keymap.scrubBack):
		err = b.scrub(-b.scrubStep)
	case bubblesKey.Matches(msg, b.keymap.scrubForward):
		err = b.scrub(b.scrubStep)
	case bubblesKey.Matches(msg, b.keymap.stepBack):
		err = b.step(media.Backward)
	case bubblesKey.Matches(msg, b.keymap.stepForward):
		err = b.step(media.Forward)
	case bubblesKey.Matches(msg, b.keymap.slower):
		err = b.changeRate(-1)
	case bubblesKey.Matches(msg, b.keymap.faster):
		err = b.changeRate(1)
	case bubblesKey.Matches(msg, b.keymap.mode):
		next := coordinator.Individual
		if individual {
			next = coordinator.Simultaneous
		}
		if err = c.SetMode(next); err == nil {
			b.notify(next.String(), false)
		}
	case bubblesKey.Matches(msg, b.keymap.next):
		b.selected = (b.selected + 1) % len(b.clips)
	case bubblesKey.Matches(msg, b.keymap.prev):
		b.selected = (b.selected + len(b.clips) - 1) % len(b.clips)
	case bubblesKey.Matches(msg, b.keymap.mark):
		err = b.markSelected()
	}

	if err != nil {
		b.notify(describe(err), true)
	}
	return nil
}

func (b *statefulBubble) selectedID() (media.ID, error) {
	selected, ok := b.selectedClip()
	if !ok {
		return "", coordinator.ErrNoStreams
	}
	return selected.stream.ID(), nil
}

// scrubTarget is the global timeline in Simultaneous mode and the selected clip otherwise.
func (b *statefulBubble) scrubTarget() (scrub.Target, error) {
	if b.coord.Mode() == coordinator.Simultaneous {
		return scrub.GlobalTarget(), nil
	}

	id, err := b.selectedID()
	if err != nil {
		return scrub.Target{}, err
	}
	return scrub.StreamTarget(id), nil
}

func (b *statefulBubble) scrub(delta time.Duration) error {
	target, err := b.scrubTarget()
	if err != nil {
		return err
	}
	return b.coord.HandleGesture(coordinator.Gesture{Target: target, Delta: delta})
}

func (b *statefulBubble) step(direction media.Direction) error {
	if b.coord.Mode() == coordinator.Simultaneous {
		return b.coord.StepFrame(direction)
	}

	id, err := b.selectedID()
	if err != nil {
		return err
	}
	return b.coord.StepStream(id, direction)
}

func (b *statefulBubble) toggleSelected() error {
	if b.coord.Mode() != coordinator.Individual {
		return fmt.Errorf("%w: switch to %s mode to play a single clip", coordinator.ErrModeMismatch, coordinator.Individual)
	}

	id, err := b.selectedID()
	if err != nil {
		return err
	}

	status, ok := b.status(id)
	if ok && status.Playing {
		return b.coord.PauseStream(id)
	}
	return b.coord.PlayStream(id)
}

func (b *statefulBubble) changeRate(direction int) error {
	if b.coord.Mode() == coordinator.Simultaneous {
		rate := nextRate(b.rates, b.coord.Rate(), direction)
		if err := b.coord.SetRate(rate); err != nil {
			return err
		}
		b.notify(fmt.Sprintf("x%.2f", rate), false)
		return nil
	}

	id, err := b.selectedID()
	if err != nil {
		return err
	}

	status, _ := b.status(id)
	rate := nextRate(b.rates, status.Rate, direction)
	if err := b.coord.SetStreamRate(id, rate); err != nil {
		return err
	}
	b.notify(fmt.Sprintf("%s x%.2f", b.clips[b.selected].name(), rate), false)
	return nil
}

func (b *statefulBubble) markSelected() error {
	id, err := b.selectedID()
	if err != nil {
		return err
	}

	offset, err := b.coord.MarkSyncPoint(id)
	if err != nil {
		return err
	}
	b.notify(fmt.Sprintf("%s synced at %s", b.clips[b.selected].name(), util.FormatPosition(offset)), false)
	return nil
}

func (b *statefulBubble) status(id media.ID) (coordinator.StreamStatus, bool) {
	for _, s := range b.coord.Snapshot().Streams {
		if s.ID == id {
			return s, true
		}
	}
	return coordinator.StreamStatus{}, false
}

// describe turns transport errors into short hints.
func describe(err error) string {
	switch {
	case errors.Is(err, coordinator.ErrNotPaused):
		return "pause before stepping frames"
	case errors.Is(err, coordinator.ErrUnavailable):
		return "that clip is not available"
	case errors.Is(err, coordinator.ErrNoStreams):
		return "no clip is available"
	default:
		return err.Error()
	}
}
