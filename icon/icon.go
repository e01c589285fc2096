// Package icon provides a flexible multi-variant rendering engine for UI symbols and feedback indicators.
//
// Icons can be displayed as emoji, nerd-font glyphs, plain ASCII, kaomoji,
// or Unicode squares depending on user preference.
package icon

import (
	"github.com/spf13/viper"
	"github.com/tandem-cli/tandem/key"
)

// Visual Variant Constants - these define the supported aesthetic styles for icon rendering.
const (
	emoji   = "emoji"
	nerd    = "nerd"
	plain   = "plain"
	kaomoji = "kaomoji"
	squares = "squares"
)

// AvailableVariants returns a slice of all registered icon style identifiers.
func AvailableVariants() []string {
	return []string{emoji, nerd, plain, kaomoji, squares}
}

// iconDef encapsulates the visual representations of a single UI symbol across all supported variants.
type iconDef struct {
	emoji   string
	nerd    string
	plain   string
	kaomoji string
	squares string
}

// Get retrieves the visual representation for the receiver Def based on the global icons variant configuration.
func (d *iconDef) Get() string {
	switch viper.GetString(key.IconsVariant) {
	case emoji:
		return d.emoji
	case nerd:
		return d.nerd
	case plain:
		return d.plain
	case kaomoji:
		return d.kaomoji
	case squares:
		return d.squares
	default:
		return ""
	}
}

// Get returns the rendered string for a specified Icon identifier from the global registry.
func Get(i Icon) string {
	return icons[i].Get()
}

// Icon identifies a UI symbol in the registry.
type Icon int

// Registered icons.
const (
	Fail Icon = iota
	Success
	Progress
	Warn
	Play
	Pause
	Anchor
	Linked
	Unlinked
)

var icons = map[Icon]*iconDef{
	Fail: {
		emoji:   "💀",
		nerd:    "\uf00d",
		plain:   "x",
		kaomoji: "(×_×)",
		squares: "🟥",
	},
	Success: {
		emoji:   "🎉",
		nerd:    "\uf00c",
		plain:   "✓",
		kaomoji: "(ᵔ◡ᵔ)",
		squares: "🟩",
	},
	Progress: {
		emoji:   "👾",
		nerd:    "\uf110",
		plain:   "~",
		kaomoji: "┬─┬ノ( º _ ºノ)",
		squares: "🟦",
	},
	Warn: {
		emoji:   "🚧",
		nerd:    "\uf071",
		plain:   "!",
		kaomoji: "(・_・;)",
		squares: "🟨",
	},
	Play: {
		emoji:   "▶️",
		nerd:    "\uf04b",
		plain:   ">",
		kaomoji: "ᕕ( ᐛ )ᕗ",
		squares: "🟩",
	},
	Pause: {
		emoji:   "⏸️",
		nerd:    "\uf04c",
		plain:   "||",
		kaomoji: "(－_－) zzZ",
		squares: "🟧",
	},
	Anchor: {
		emoji:   "⚓",
		nerd:    "\uf13d",
		plain:   "#",
		kaomoji: "(⌐■_■)",
		squares: "🟪",
	},
	Linked: {
		emoji:   "🔗",
		nerd:    "\uf0c1",
		plain:   "=",
		kaomoji: "(づ｡◕‿‿◕｡)づ",
		squares: "🟫",
	},
	Unlinked: {
		emoji:   "✂️",
		nerd:    "\uf127",
		plain:   "/",
		kaomoji: "(╯°□°)╯",
		squares: "⬜",
	},
}
