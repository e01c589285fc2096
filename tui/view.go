// Package tui provides the primary terminal user interface implementation.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wrap"
	"github.com/tandem-cli/tandem/color"
	"github.com/tandem-cli/tandem/coordinator"
	"github.com/tandem-cli/tandem/icon"
	"github.com/tandem-cli/tandem/media"
	"github.com/tandem-cli/tandem/style"
	"github.com/tandem-cli/tandem/util"
)

var (
	paddingStyle  = lipgloss.NewStyle().Padding(1, 2)
	selectedStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(style.AccentColor).
			PaddingLeft(1)
	unselectedStyle = lipgloss.NewStyle().PaddingLeft(2)
)

func (b *statefulBubble) View() string {
	var output string

	switch b.state {
	case loadingState:
		output = b.viewLoading()
	case compareState:
		output = b.viewCompare()
	case errorState:
		output = b.viewError()
	default:
		output = "Unknown state"
	}

	return b.notifier.View(output)
}

func (b *statefulBubble) viewLoading() string {
	return b.renderLines(
		true,
		[]string{
			style.Title("Loading"),
			"",
			b.spinnerC.View() + " " + b.progressStatus,
		},
	)
}

func (b *statefulBubble) viewCompare() string {
	session := b.coord.Snapshot()

	lines := []string{b.viewHeader(session), ""}

	if session.Mode == coordinator.Simultaneous {
		lines = append(lines,
			fmt.Sprintf("%s %s / %s",
				style.Bold("global"),
				util.FormatPosition(session.Global),
				util.FormatPosition(session.GlobalDuration),
			),
			b.globalC.ViewAs(fraction(session.Global, session.GlobalDuration)),
			"",
		)
	}

	for i, s := range session.Streams {
		lines = append(lines, b.viewClip(i, s)...)
	}

	return b.renderLines(true, lines)
}

func (b *statefulBubble) viewHeader(session coordinator.Session) string {
	transport := icon.Get(icon.Pause)
	if session.Playing {
		transport = icon.Get(icon.Play)
	}

	link := icon.Get(icon.Linked)
	if session.Mode == coordinator.Individual {
		link = icon.Get(icon.Unlinked)
	}

	header := []string{
		style.Title("tandem"),
		style.Fg(color.Purple)(link + " " + session.Mode.String()),
		style.Fg(color.Cyan)(fmt.Sprintf("x%.2f", session.Rate)),
		transport,
	}
	if session.Scrubbing {
		header = append(header, style.Fg(style.ScrubColor)("scrubbing"))
	}
	return strings.Join(header, "  ")
}

func (b *statefulBubble) viewClip(i int, s coordinator.StreamStatus) []string {
	name := b.clips[i].name()

	var details string
	switch {
	case s.Err != nil:
		details = style.Fg(color.Red)(icon.Get(icon.Fail) + " " + s.Err.Error())
	default:
		details = fmt.Sprintf("%s  %s / %s  %s %s  x%.2f",
			stateLabel(s.State),
			util.FormatPosition(s.Position),
			util.FormatPosition(s.Duration),
			icon.Get(icon.Anchor),
			util.FormatPosition(s.SyncPoint),
			s.Rate,
		)
	}

	line := truncate.StringWithTail(fmt.Sprintf("%s  %s", style.Clip(i)(fmt.Sprintf("%d %s", i, name)), details), uint(max(b.width, 20)), "…")
	body := []string{line, b.clips[i].bar.ViewAs(fraction(s.Position, s.Duration))}

	rowStyle := unselectedStyle
	if i == b.selected {
		rowStyle = selectedStyle
	}
	return []string{rowStyle.Render(strings.Join(body, "\n")), ""}
}

func stateLabel(state media.State) string {
	switch state {
	case media.StatePlaying:
		return style.Fg(style.PlayingColor)(state.String())
	case media.StateEnded:
		return style.Fg(style.EndedColor)(state.String())
	case media.StateError:
		return style.Fg(style.ErrorColor)(state.String())
	default:
		return style.Fg(style.PausedColor)(state.String())
	}
}

func fraction(position, duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}
	return util.Clamp(float64(position)/float64(duration), 0, 1)
}

func (b *statefulBubble) viewError() string {
	errorStyle := lipgloss.NewStyle().Foreground(style.ErrorColor).Bold(true)
	errorBody := errorStyle.Render(fmt.Sprintf("Critical Failure: %v", b.lastError))
	errorMsg := wrap.String(errorBody, max(b.width, 20))
	return b.renderLines(
		true,
		[]string{
			style.ErrorTitle("Error"),
			"",
			icon.Get(icon.Fail) + " The comparison could not start:",
			"",
			errorMsg,
		},
	)
}

func (b *statefulBubble) renderLines(addHelp bool, lines []string) string {
	h := len(lines)
	l := strings.Join(lines, "\n")
	if addHelp {
		if b.height > h {
			l += strings.Repeat("\n", b.height-h)
		}
		l += b.helpC.View(b.keymap)
	}

	return paddingStyle.Render(l)
}
