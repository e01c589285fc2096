// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// Synchronized Start - these keys tune how coordinated playback is armed across streams.
const (
	SyncNative     = "sync.native"
	SyncLeadMs     = "sync.lead_ms"
	SyncMaxStreams = "sync.max_streams"
)

// Media Playback - these keys select and configure the playback engine behind every clip.
const (
	Player      = "player.default"
	PlayerFPS   = "player.fps"
	PlayerRate  = "player.rate"
	PlayerRates = "player.rates"
)

// Scrubbing - these keys define how keyboard scrub gestures translate into seeks.
const (
	ScrubStepMs = "scrub.step_ms"
	ScrubIdleMs = "scrub.idle_ms"
)

// Comparison Session - these keys set the initial coordination mode.
const (
	CompareMode = "compare.mode"
)

// Anchors - these keys control persistence of sync points between sessions.
const (
	AnchorsSave    = "anchors.save"
	AnchorsRestore = "anchors.restore"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern the non-TUI application behavior.
const (
	CliColored = "cli.colored"
)
