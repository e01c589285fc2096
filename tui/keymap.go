// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/tandem-cli/tandem/color"
	"github.com/tandem-cli/tandem/style"
)

// statefulKeymap defines the keyboard interactions available within various application states.
type statefulKeymap struct {
	state state

	quit, forceQuit,
	playPause, playClip, stop,
	scrubBack, scrubForward,
	stepBack, stepForward,
	slower, faster,
	mode, next, prev, mark,
	showHelp key.Binding
}

// setState updates the active keymap configuration to match the specified application state.
func (k *statefulKeymap) setState(newState state) {
	k.state = newState
}

func newStatefulKeymap() *statefulKeymap {
	return &statefulKeymap{
		quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		forceQuit: key.NewBinding(
			key.WithKeys("ctrl+c", "ctrl+d"),
			key.WithHelp("ctrl+c", "quit"),
		),
		playPause: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp(style.Fg(color.Orange)("space"), style.Fg(color.Orange)("play/pause")),
		),
		playClip: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play/pause clip"),
		),
		stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		scrubBack: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "scrub back"),
		),
		scrubForward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "scrub forward"),
		),
		stepBack: key.NewBinding(
			key.WithKeys(","),
			key.WithHelp(",", "frame back"),
		),
		stepForward: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "frame forward"),
		),
		slower: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "slower"),
		),
		faster: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "faster"),
		),
		mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "switch mode"),
		),
		next: key.NewBinding(
			key.WithKeys("tab", "down", "j"),
			key.WithHelp("tab", "next clip"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab", "up", "k"),
			key.WithHelp("shift+tab", "previous clip"),
		),
		mark: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "mark sync point"),
		),
		showHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

func (k *statefulKeymap) help() ([]key.Binding, []key.Binding) {
	h := func(bindings ...key.Binding) []key.Binding {
		return bindings
	}

	to2 := func(a []key.Binding) ([]key.Binding, []key.Binding) {
		return a, a
	}

	switch k.state {
	case loadingState:
		return to2(h(k.forceQuit))
	case compareState:
		return h(k.playPause, k.scrubBack, k.scrubForward, k.mode, k.mark, k.showHelp, k.quit),
			h(k.playPause, k.playClip, k.stop,
				k.scrubBack, k.scrubForward, k.stepBack, k.stepForward,
				k.slower, k.faster, k.mode, k.next, k.prev, k.mark, k.quit)
	case errorState:
		return to2(h(k.quit))
	default:
		return to2(h())
	}
}

func (k *statefulKeymap) ShortHelp() []key.Binding {
	short, _ := k.help()
	return short
}

func (k *statefulKeymap) FullHelp() [][]key.Binding {
	_, full := k.help()
	return [][]key.Binding{full}
}
