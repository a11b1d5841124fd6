package tui

import "github.com/charmbracelet/lipgloss"

// HelpText renders the keybinding hint line shown at the bottom of the
// dashboard, collapsing to a minimal "quit / help" reminder when the
// terminal is too narrow for the full shortcut list.
type HelpText struct {
	Collapsed bool
	Dimmed    bool
	AlignLeft bool
}

func (h HelpText) Render() string {
	base := lipgloss.NewStyle()
	if h.Dimmed {
		base = base.Faint(true)
	}
	t := CurrentTheme()
	key := base.Foreground(t.Info)
	label := base.Foreground(t.SecondaryFg)

	var line string
	if h.Collapsed {
		line = label.Render("quit: ") + key.Render("q") + label.Render("  help: ") + key.Render("?")
	} else {
		line = label.Render("quit: ") + key.Render("q") +
			label.Render("  help: ") + key.Render("?") +
			label.Render("  navigate: ") + key.Render("↑ ↓") +
			label.Render("  filter: ") + key.Render("/") +
			label.Render("  mark: ") + key.Render("space") +
			label.Render("  show output: ") + key.Render("<enter>")
	}

	style := lipgloss.NewStyle()
	if h.AlignLeft {
		style = style.Align(lipgloss.Left)
	} else {
		style = style.Align(lipgloss.Right)
	}
	return style.Render(line)
}
