package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// ConfirmDialog is a modal Yes/No prompt for destructive actions
// (killing a task, killing everything running). It always opens with
// "No" selected so an accidental Enter can never confirm by itself.
type ConfirmDialog struct {
	visible       bool
	message       string
	pendingAction dispatched
	selectedYes   bool
}

// NewConfirmDialog returns a hidden dialog.
func NewConfirmDialog() *ConfirmDialog {
	return &ConfirmDialog{}
}

// Show opens the dialog with message, arming action to fire on confirm.
func (d *ConfirmDialog) Show(message string, action dispatched) {
	d.visible = true
	d.message = message
	d.pendingAction = action
	d.selectedYes = false
}

// Hide closes the dialog without firing its action.
func (d *ConfirmDialog) Hide() {
	d.visible = false
}

// Visible reports whether the dialog is currently shown.
func (d *ConfirmDialog) Visible() bool {
	return d.visible
}

// ToggleSelection flips between the Yes and No options.
func (d *ConfirmDialog) ToggleSelection() {
	d.selectedYes = !d.selectedYes
}

// SelectYes forces the Yes option selected (used by the "y" shortcut).
func (d *ConfirmDialog) SelectYes() {
	d.selectedYes = true
}

// Confirm returns the pending action if Yes is selected, signaling the
// dialog should close either way.
func (d *ConfirmDialog) Confirm() (dispatched, bool) {
	d.visible = false
	if d.selectedYes {
		return d.pendingAction, true
	}
	return dispatched{}, false
}

// View renders the dialog's message and Yes/No buttons.
func (d *ConfirmDialog) View() string {
	if !d.visible {
		return ""
	}

	t := CurrentTheme()

	titleStyle := lipgloss.NewStyle().Bold(true).Background(t.Warning).Foreground(t.PrimaryFg)
	title := titleStyle.Render(" NX ") + lipgloss.NewStyle().Foreground(t.PrimaryFg).Render("  Confirm  ")

	yesStyle := lipgloss.NewStyle().Foreground(t.SecondaryFg)
	noStyle := lipgloss.NewStyle().Foreground(t.SecondaryFg)
	if d.selectedYes {
		yesStyle = lipgloss.NewStyle().Bold(true).Background(t.Success).Foreground(t.PrimaryFg)
	} else {
		noStyle = lipgloss.NewStyle().Bold(true).Background(t.Error).Foreground(t.PrimaryFg)
	}

	buttons := yesStyle.Render(" Yes (y) ") + "   " + noStyle.Render(" No (n) ")

	box := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(t.Warning).
		Padding(1, 2).
		Width(46)

	body := title + "\n\n" + d.message + "\n\n" + buttons
	return box.Render(body)
}
