package tui

import (
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the palette used consistently across every pane and
// component, resolved once for dark or light mode.
type Theme struct {
	IsDarkMode bool
	PrimaryFg  lipgloss.Color
	SecondaryFg lipgloss.Color
	Error      lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Info       lipgloss.Color
	InfoLight  lipgloss.Color
}

var (
	themeOnce sync.Once
	theme     Theme
)

// CurrentTheme resolves and caches the theme for the running terminal.
func CurrentTheme() Theme {
	themeOnce.Do(func() {
		if isDarkMode() {
			theme = darkTheme()
		} else {
			theme = lightTheme()
		}
	})
	return theme
}

func darkTheme() Theme {
	return Theme{
		IsDarkMode:  true,
		PrimaryFg:   lipgloss.Color("15"),
		SecondaryFg: lipgloss.Color("247"),
		Error:       lipgloss.Color("1"),
		Success:     lipgloss.Color("2"),
		Warning:     lipgloss.Color("3"),
		Info:        lipgloss.Color("6"),
		InfoLight:   lipgloss.Color("14"),
	}
}

func lightTheme() Theme {
	return Theme{
		IsDarkMode:  false,
		PrimaryFg:   lipgloss.Color("0"),
		SecondaryFg: lipgloss.Color("240"),
		Error:       lipgloss.Color("1"),
		Success:     lipgloss.Color("2"),
		Warning:     lipgloss.Color("3"),
		Info:        lipgloss.Color("6"),
		InfoLight:   lipgloss.Color("14"),
	}
}

// isDarkMode guesses the terminal's background brightness from the
// COLORFGBG convention most terminal emulators set ("fg;bg", bg >= 8 is
// usually dark); detection failing defaults to dark, matching the native
// layer's own fallback when its color-scheme query errors out.
func isDarkMode() bool {
	fgbg := os.Getenv("COLORFGBG")
	if fgbg == "" {
		return true
	}

	parts := strings.Split(fgbg, ";")
	bg := parts[len(parts)-1]

	switch bg {
	case "0", "1", "2", "3", "4", "5", "6", "7":
		return false
	default:
		return true
	}
}
