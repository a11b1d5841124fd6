package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestScrollMomentum_AcceleratesOnRepeatedScrolls(t *testing.T) {
	m := NewScrollMomentum()

	first := m.Calculate(ScrollDown)
	assert.Equal(t, 1, first)

	time.Sleep(60 * time.Millisecond)
	second := m.Calculate(ScrollDown)
	assert.GreaterOrEqual(t, second, 1)

	// Further scrolls inside the momentum window compound past one line.
	var later int
	for i := 0; i < 3; i++ {
		m.lastScrollTime = time.Now().Add(-100 * time.Millisecond)
		later = m.Calculate(ScrollDown)
	}
	assert.Greater(t, later, 1)
}

func TestScrollMomentum_ResetsOnDirectionChange(t *testing.T) {
	m := NewScrollMomentum()
	m.Calculate(ScrollDown)
	time.Sleep(60 * time.Millisecond)
	m.Calculate(ScrollDown)

	up := m.Calculate(ScrollUp)
	assert.Equal(t, 1, up)
}

func TestScrollMomentum_IgnoresEventsTooCloseTogether(t *testing.T) {
	m := NewScrollMomentum()
	m.Calculate(ScrollDown)
	immediate := m.Calculate(ScrollDown)
	assert.Equal(t, 0, immediate)
}

func TestStatusChar(t *testing.T) {
	assert.Equal(t, '✔', StatusChar(TaskSuccess, 0))
	assert.Equal(t, '✖', StatusChar(TaskFailure, 0))
	assert.Equal(t, '·', StatusChar(TaskNotStarted, 0))
	assert.Contains(t, throbberFrames, StatusChar(TaskInProgress, 3))
}

func TestConfirmDialog_DefaultsToNo(t *testing.T) {
	d := NewConfirmDialog()
	d.Show("kill it?", dispatched{action: ActionKillTask, taskID: "app:build"})

	assert.True(t, d.Visible())

	_, confirmed := d.Confirm()
	assert.False(t, confirmed, "dialog must default to No so Enter alone cannot confirm")
}

func TestConfirmDialog_YesFiresPendingAction(t *testing.T) {
	d := NewConfirmDialog()
	d.Show("kill it?", dispatched{action: ActionKillTask, taskID: "app:build"})
	d.SelectYes()

	action, confirmed := d.Confirm()
	assert.True(t, confirmed)
	assert.Equal(t, "app:build", action.taskID)
	assert.False(t, d.Visible())
}

func TestModel_FilterNarrowsTaskList(t *testing.T) {
	tasks := []Task{{ID: "app:build"}, {ID: "app:test"}, {ID: "lib:build"}}
	m := NewModel(tasks, nil, nil)

	m.filter = "build"
	filtered := m.filteredTasks()

	assert.Len(t, filtered, 2)
}

func TestModel_ToggleMark(t *testing.T) {
	tasks := []Task{{ID: "app:build"}}
	m := NewModel(tasks, nil, nil)

	m.toggleMark()
	_, marked := m.marked["app:build"]
	assert.True(t, marked)

	m.toggleMark()
	_, marked = m.marked["app:build"]
	assert.False(t, marked)
}

func TestModel_RerunAllFailedKeyOpensConfirmWhenFailuresExist(t *testing.T) {
	tasks := []Task{{ID: "app:build", Status: TaskFailure}, {ID: "app:test", Status: TaskSuccess}}
	m := NewModel(tasks, nil, nil)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})

	assert.True(t, m.confirm.Visible())

	m.confirm.SelectYes()
	action, confirmed := m.confirm.Confirm()
	assert.True(t, confirmed)
	assert.Equal(t, ActionRerunAllFailed, action.action)
}

func TestModel_RerunAllFailedKeyNoOpWithoutFailures(t *testing.T) {
	tasks := []Task{{ID: "app:build", Status: TaskSuccess}}
	m := NewModel(tasks, nil, nil)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})

	assert.False(t, m.confirm.Visible())
}

func TestModel_KillAllRunningKeyOpensConfirmWhenTasksRunning(t *testing.T) {
	tasks := []Task{{ID: "app:build", Status: TaskInProgress}}
	m := NewModel(tasks, nil, nil)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("X")})

	assert.True(t, m.confirm.Visible())

	m.confirm.SelectYes()
	action, confirmed := m.confirm.Confirm()
	assert.True(t, confirmed)
	assert.Equal(t, ActionKillAllRunning, action.action)
}

func TestModel_KillAllRunningKeyNoOpWithoutRunningTasks(t *testing.T) {
	tasks := []Task{{ID: "app:build", Status: TaskSuccess}}
	m := NewModel(tasks, nil, nil)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("X")})

	assert.False(t, m.confirm.Visible())
}

func TestModel_PaginationBounds(t *testing.T) {
	tasks := make([]Task, 45)
	for i := range tasks {
		tasks[i] = Task{ID: string(rune('a' + i%26))}
	}
	m := NewModel(tasks, nil, nil)
	m.pageSize = 20

	assert.Equal(t, 3, m.totalPages())

	m.page = 0
	m.prevPage()
	assert.Equal(t, 0, m.page)

	m.nextPage()
	m.nextPage()
	m.nextPage()
	assert.Equal(t, 2, m.page, "must clamp at the last page")
}
