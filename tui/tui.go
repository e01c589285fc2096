// Package tui provides the primary terminal user interface implementation.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"k8s.io/utils/clock"
)

// Options encapsulates the runtime configuration for the terminal user interface.
type Options struct {
	Engine  string
	Sources []string
	// Restore applies remembered anchors once every clip is open.
	Restore bool
	// Save remembers the anchors of the comparison on exit.
	Save bool
}

// Run opens every clip and drives the comparison until the user quits.
func Run(options *Options) error {
	bubble := newBubble(options, clock.RealClock{})
	defer bubble.close()

	_, err := tea.NewProgram(bubble, tea.WithAltScreen()).Run()
	return err
}
