package colors

// enabled describes whether Colorize emits ANSI escape codes.
var enabled bool

// init will ensure that ANSI coloring is enabled on Windows and Unix systems. Note that ANSI coloring is enabled by
// default on Unix system and Windows needs specific kernel calls for enablement
func init() {
	EnableColor()
}

// DisableColor turns off ANSI coloring, so every ColorFunc returns its input unchanged. This is used when output is
// not a terminal or the user asked for plain output.
func DisableColor() {
	enabled = false
}

// Enabled indicates whether ANSI coloring is currently turned on.
func Enabled() bool {
	return enabled
}
