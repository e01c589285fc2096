package constant

// Playback engine identifiers accepted by player.New and the player.default setting.
const (
	EngineMPV = "mpv"
	EngineSim = "sim"
)

// Comparison mode identifiers used by the compare.mode setting and CLI flags.
const (
	ModeSimultaneous = "simultaneous"
	ModeIndividual   = "individual"
)
