// Package ui provides internal state management and rendering utilities for ephemeral terminal notifications.
package ui

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tandem-cli/tandem/icon"
	"github.com/tandem-cli/tandem/style"
)

// Lifetime is how long a notification stays on screen.
const Lifetime = 4 * time.Second

// Model encapsulates the state for displaying non-blocking terminal alerts.
type Model struct {
	notification string
	warning      bool
	// generation of the notification, so a stale clear leaves a newer one alone
	gen uint64
}

// ClearNotificationMsg is a Bubbletea message used to reset the visual notification state.
type ClearNotificationMsg struct {
	gen uint64
}

// Notify shows text until it expires or is replaced. Warnings are highlighted.
func (m *Model) Notify(text string, warning bool) tea.Cmd {
	m.gen++
	m.notification = text
	m.warning = warning

	gen := m.gen
	return tea.Tick(Lifetime, func(time.Time) tea.Msg {
		return ClearNotificationMsg{gen: gen}
	})
}

// Notification returns the text currently shown, if any.
func (m *Model) Notification() string {
	return m.notification
}

// Update processes incoming messages to modify the notification state.
func (m *Model) Update(msg tea.Msg) tea.Cmd {
	if msg, ok := msg.(ClearNotificationMsg); ok && msg.gen == m.gen {
		m.notification = ""
		m.warning = false
	}
	return nil
}

// View appends the current notification to the last line of mainContent.
func (m *Model) View(mainContent string) string {
	if m.notification == "" {
		return mainContent
	}

	notifier := style.Faint(m.notification)
	if m.warning {
		notifier = style.Fg(style.WarningColor)(icon.Get(icon.Warn) + " " + m.notification)
	}

	lines := strings.Split(mainContent, "\n")
	lines[len(lines)-1] = lines[len(lines)-1] + "  " + notifier
	return strings.Join(lines, "\n")
}
