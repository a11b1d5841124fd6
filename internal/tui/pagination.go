package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Pagination renders the "← n/total →" indicator for a paged list,
// dimming whichever arrow points past the first or last page.
type Pagination struct {
	CurrentPage int
	TotalPages  int
}

// Render returns the styled pagination line; dimmed further mutes it for
// panes that don't have focus.
func (p Pagination) Render(dimmed bool) string {
	t := CurrentTheme()

	base := lipgloss.NewStyle()
	if dimmed {
		base = base.Faint(true)
	}

	total := p.TotalPages
	if total < 1 {
		total = 1
	}
	current := p.CurrentPage
	if current > total-1 {
		current = total - 1
	}

	leftStyle := base.Foreground(lipgloss.Color("6"))
	if current == 0 {
		leftStyle = leftStyle.Faint(true)
	}

	rightStyle := base.Foreground(lipgloss.Color("6"))
	if current >= total-1 {
		rightStyle = rightStyle.Faint(true)
	}

	label := base.Foreground(t.SecondaryFg).Render(fmt.Sprintf("%d/%d", current+1, total))

	return leftStyle.Render("←") + " " + label + " " + rightStyle.Render("→")
}
