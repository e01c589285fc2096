package style

import "github.com/charmbracelet/lipgloss"

// Base colors
var (
	Base    = lipgloss.Color("#1e1e2e")
	Text    = lipgloss.Color("#cdd6f4")
	Overlay = lipgloss.Color("#6c7086")
	Surface = lipgloss.Color("#313244")
)

// Accents
var (
	Mauve    = lipgloss.Color("#cba6f7")
	Red      = lipgloss.Color("#f38ba8")
	Peach    = lipgloss.Color("#fab387")
	Yellow   = lipgloss.Color("#f9e2af")
	Green    = lipgloss.Color("#a6e3a1")
	Teal     = lipgloss.Color("#94e2d5")
	Sapphire = lipgloss.Color("#74c7ec")
	Lavender = lipgloss.Color("#b4befe")
	Pink     = lipgloss.Color("#f5c2e7")
)

// Semantic mappings
var (
	AccentColor    = Mauve
	SecondaryColor = Lavender
	WarningColor   = Yellow
	ErrorColor     = Red
	HiRed          = Red

	// Transport states of a clip or the whole session.
	PlayingColor = Green
	PausedColor  = Overlay
	EndedColor   = Peach
	ScrubColor   = Sapphire
)

// clipColors tells compared clips apart. Clip i keeps the same color in every view.
var clipColors = []lipgloss.Color{Sapphire, Peach, Teal, Pink}

// ClipColor returns the color of the clip at index, cycling past the end of the palette.
func ClipColor(index int) lipgloss.Color {
	if index < 0 {
		index = -index
	}
	return clipColors[index%len(clipColors)]
}
