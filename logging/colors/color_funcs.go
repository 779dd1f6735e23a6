package colors

import "fmt"

// ColorFunc is a function which renders its input as a string, possibly wrapped in ANSI codes. Formatters accept a
// ColorFunc wherever a value may be highlighted.
type ColorFunc = func(s any) string

// Reset renders the input without any color. It resets the color context when a message mixes colored parts.
func Reset(s any) string {
	return fmt.Sprintf("%v", s)
}

// Bold renders the input in bold.
func Bold(s any) string {
	return Colorize(s, BOLD)
}

// Green renders the input in green.
func Green(s any) string {
	return Colorize(s, GREEN)
}

// GreenBold renders the input in bold green.
func GreenBold(s any) string {
	return Colorize(Colorize(s, GREEN), BOLD)
}

// RedBold renders the input in bold red.
func RedBold(s any) string {
	return Colorize(Colorize(s, RED), BOLD)
}

// YellowBold renders the input in bold yellow.
func YellowBold(s any) string {
	return Colorize(Colorize(s, YELLOW), BOLD)
}

// BlueBold renders the input in bold blue.
func BlueBold(s any) string {
	return Colorize(Colorize(s, BLUE), BOLD)
}

// CyanBold renders the input in bold cyan.
func CyanBold(s any) string {
	return Colorize(Colorize(s, CYAN), BOLD)
}

// DarkGray renders the input in dark gray. Skipped paths are dimmed with it.
func DarkGray(s any) string {
	return Colorize(s, DARK_GRAY)
}
