package tui

import "github.com/charmbracelet/lipgloss"

// TaskStatus is a task's current lifecycle state as shown in the task list.
type TaskStatus int

const (
	TaskNotStarted TaskStatus = iota
	TaskInProgress
	TaskShared
	TaskSuccess
	TaskFailure
	TaskSkipped
	TaskStopped
	TaskLocalCache
	TaskLocalCacheKeptExisting
	TaskRemoteCache
)

var throbberFrames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// StatusChar returns the single glyph representing status; for the
// in-progress/shared states throbberCounter selects the current frame of
// the spinner animation.
func StatusChar(status TaskStatus, throbberCounter int) rune {
	switch status {
	case TaskSuccess, TaskLocalCacheKeptExisting, TaskLocalCache, TaskRemoteCache:
		return '✔'
	case TaskFailure:
		return '✖'
	case TaskSkipped:
		return '⏭'
	case TaskInProgress, TaskShared:
		return throbberFrames[throbberCounter%len(throbberFrames)]
	case TaskStopped:
		return '◼'
	default:
		return '·'
	}
}

// StatusStyle returns the lipgloss style paired with status.
func StatusStyle(status TaskStatus) lipgloss.Style {
	t := CurrentTheme()
	base := lipgloss.NewStyle().Bold(true)

	switch status {
	case TaskSuccess, TaskLocalCacheKeptExisting, TaskLocalCache, TaskRemoteCache:
		return base.Foreground(t.Success)
	case TaskFailure:
		return base.Foreground(t.Error)
	case TaskSkipped:
		return base.Foreground(t.Warning)
	case TaskInProgress, TaskShared:
		return base.Foreground(t.Info)
	default:
		return base.Foreground(t.SecondaryFg)
	}
}

// StatusIcon renders the padded, styled status glyph used in the task
// list rows.
func StatusIcon(status TaskStatus, throbberCounter int) string {
	return StatusStyle(status).Render("  " + string(StatusChar(status, throbberCounter)) + "  ")
}
