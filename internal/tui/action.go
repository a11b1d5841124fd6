// Package tui is the terminal dashboard that drives interactive task runs:
// a live-updating task list, a focused pane streaming a task's pty output,
// and the keyboard-driven navigation, filtering, and confirm-before-kill
// flows layered on top of it.
package tui

// Action names a request an input event or a timer tick can produce,
// mirroring the native layer's own Action enum consumed by its app loop.
// The bubbletea model's Update loop dispatches on key strings and tick
// messages directly; an Action value is carried only as the confirm
// dialog's pending action, which fireConfirm turns into a LifecycleEvent.
type Action int

const (
	ActionTick Action = iota
	ActionRender
	ActionQuit
	ActionHelp
	ActionEnterFilterMode
	ActionClearFilter
	ActionScrollUp
	ActionScrollDown
	ActionNextTask
	ActionPreviousTask
	ActionNextPage
	ActionPreviousPage
	ActionToggleOutput
	ActionToggleMark
	ActionUnmarkAll
	ActionFocusNext
	ActionFocusPrevious
	ActionScrollPaneUp
	ActionScrollPaneDown
	ActionRerunTask
	ActionKillTask
	ActionRerunAllFailed
	ActionKillAllRunning
)

// dispatched is an Action paired with the extra data some actions carry
// (a filter character, a scroll amount, a task id) - the Go equivalent of
// the enum's tuple/struct variants.
type dispatched struct {
	action Action
	ch     rune
	amount int
	taskID string
}
