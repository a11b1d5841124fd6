package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nrwl-labs/nxcore/internal/pty"
)

const (
	tickRate   = 4.0  // Hz - drives the status throbber and timing refresh
	renderRate = 60.0 // Hz - drives the redraw loop

	minPaneWidth = 20
)

// Pane is which half of the split view has keyboard focus.
type Pane int

const (
	PaneTaskList Pane = iota
	PaneOutput
)

type tickMsg time.Time
type renderMsg time.Time

// LifecycleSink receives the control events the dashboard emits when the
// user reruns or kills a task from the keyboard.
type LifecycleSink func(LifecycleEvent)

// Model is the dashboard's bubbletea model: the task list, the focused
// pane's pty-backed output view, and the transient filter and confirm
// overlays layered on top of it. The "?" key toggles showHelp, but View
// draws no help overlay; the footer's HelpText line is shown either way.
type Model struct {
	tasks   []Task
	filter  string
	filterMode bool

	selected int
	page     int
	pageSize int

	marked map[string]struct{}

	pane          Pane
	momentum      *ScrollMomentum
	scrollOffsets map[string]int

	confirm  *ConfirmDialog
	showHelp bool

	pool *pty.Pool
	sink LifecycleSink

	throbberCounter int
	width, height   int
}

// NewModel builds a dashboard for tasks, streaming pty output through
// pool and emitting lifecycle control requests to sink.
func NewModel(tasks []Task, pool *pty.Pool, sink LifecycleSink) *Model {
	return &Model{
		tasks:         tasks,
		pageSize:      20,
		marked:        make(map[string]struct{}),
		momentum:      NewScrollMomentum(),
		scrollOffsets: make(map[string]int),
		confirm:       NewConfirmDialog(),
		pool:          pool,
		sink:          sink,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), renderCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)/tickRate), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func renderCmd() tea.Cmd {
	return tea.Tick(time.Duration(float64(time.Second)/renderRate), func(t time.Time) tea.Msg {
		return renderMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.pool.ResizeAll(paneSize(msg.Width, msg.Height))
		return m, nil

	case tickMsg:
		m.throbberCounter++
		return m, tickCmd()

	case renderMsg:
		return m, renderCmd()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func paneSize(width, height int) pty.Size {
	return pty.Size{Rows: height - 2, Cols: width/2 - 2}.Clamp()
}

func (m *Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm.Visible() {
		return m.handleConfirmKey(key)
	}
	if m.filterMode {
		return m.handleFilterKey(key)
	}

	switch key.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case "/":
		m.filterMode = true
	case "up", "k":
		m.scroll(ScrollUp)
	case "down", "j":
		m.scroll(ScrollDown)
	case "left", "h":
		m.prevPage()
	case "right", "l":
		m.nextPage()
	case "tab":
		m.togglePane()
	case "shift+tab":
		m.togglePane()
	case " ":
		m.toggleMark()
	case "u":
		m.marked = make(map[string]struct{})
	case "enter":
		m.pane = PaneOutput
	case "r":
		if t, ok := m.currentTask(); ok {
			m.confirm.Show("Rerun "+t.ID+"?", dispatched{action: ActionRerunTask, taskID: t.ID})
		}
	case "x":
		if t, ok := m.currentTask(); ok {
			m.confirm.Show("Kill "+t.ID+"?", dispatched{action: ActionKillTask, taskID: t.ID})
		}
	case "R":
		if n := m.countByStatus(TaskFailure); n > 0 {
			m.confirm.Show(fmt.Sprintf("Rerun %d failed task(s)?", n), dispatched{action: ActionRerunAllFailed})
		}
	case "X":
		if n := m.countByStatus(TaskInProgress); n > 0 {
			m.confirm.Show(fmt.Sprintf("Kill %d running task(s)?", n), dispatched{action: ActionKillAllRunning})
		}
	}

	return m, nil
}

func (m *Model) handleConfirmKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "left", "right", "tab":
		m.confirm.ToggleSelection()
	case "y", "Y":
		m.confirm.SelectYes()
		m.fireConfirm()
	case "n", "N", "esc":
		m.confirm.Hide()
	case "enter":
		m.fireConfirm()
	}
	return m, nil
}

func (m *Model) fireConfirm() {
	action, ok := m.confirm.Confirm()
	if !ok || m.sink == nil {
		return
	}
	switch action.action {
	case ActionRerunTask:
		m.sink(RerunTaskEvent(action.taskID))
	case ActionKillTask:
		m.sink(KillTaskEvent(action.taskID))
	case ActionRerunAllFailed:
		m.sink(RerunAllFailedEvent())
	case ActionKillAllRunning:
		m.sink(KillAllRunningEvent())
	}
}

func (m *Model) handleFilterKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filter = ""
	case tea.KeyEnter:
		m.filterMode = false
	case tea.KeyBackspace:
		if len(m.filter) > 0 {
			m.filter = m.filter[:len(m.filter)-1]
		}
	case tea.KeyRunes:
		m.filter += string(key.Runes)
	}
	m.selected = 0
	m.page = 0
	return m, nil
}

func (m *Model) scroll(dir ScrollDirection) {
	lines := m.momentum.Calculate(dir)
	if lines == 0 {
		return
	}

	if m.pane == PaneOutput {
		if t, ok := m.currentTask(); ok {
			offset := m.scrollOffsets[t.ID]
			if dir == ScrollUp {
				offset += lines
			} else {
				offset -= lines
				if offset < 0 {
					offset = 0
				}
			}
			m.scrollOffsets[t.ID] = offset
		}
		return
	}

	filtered := m.filteredTasks()
	if len(filtered) == 0 {
		return
	}
	if dir == ScrollDown {
		m.selected += lines
		if m.selected > len(filtered)-1 {
			m.selected = len(filtered) - 1
		}
	} else {
		m.selected -= lines
		if m.selected < 0 {
			m.selected = 0
		}
	}
}

func (m *Model) togglePane() {
	if m.pane == PaneTaskList {
		m.pane = PaneOutput
	} else {
		m.pane = PaneTaskList
	}
	m.momentum.Reset()
}

func (m *Model) toggleMark() {
	t, ok := m.currentTask()
	if !ok {
		return
	}
	if _, marked := m.marked[t.ID]; marked {
		delete(m.marked, t.ID)
	} else {
		m.marked[t.ID] = struct{}{}
	}
}

func (m *Model) nextPage() {
	totalPages := m.totalPages()
	if m.page < totalPages-1 {
		m.page++
	}
}

func (m *Model) prevPage() {
	if m.page > 0 {
		m.page--
	}
}

func (m *Model) totalPages() int {
	n := len(m.filteredTasks())
	if n == 0 {
		return 1
	}
	pages := (n + m.pageSize - 1) / m.pageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (m *Model) filteredTasks() []Task {
	if m.filter == "" {
		return m.tasks
	}
	var out []Task
	for _, t := range m.tasks {
		if strings.Contains(strings.ToLower(t.ID), strings.ToLower(m.filter)) {
			out = append(out, t)
		}
	}
	return out
}

func (m *Model) countByStatus(status TaskStatus) int {
	n := 0
	for _, t := range m.tasks {
		if t.Status == status {
			n++
		}
	}
	return n
}

func (m *Model) currentTask() (Task, bool) {
	filtered := m.filteredTasks()
	if m.selected < 0 || m.selected >= len(filtered) {
		return Task{}, false
	}
	return filtered[m.selected], true
}

func (m *Model) View() string {
	t := CurrentTheme()

	if m.width == 0 {
		return "starting…"
	}

	listWidth := m.width / 2
	outputWidth := m.width - listWidth - 1
	bodyHeight := m.height - 2

	list := m.renderTaskList(listWidth, bodyHeight)
	output := m.renderOutput(outputWidth, bodyHeight)

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", output)

	help := HelpText{Collapsed: m.width < 100, AlignLeft: false}.Render()
	footer := lipgloss.NewStyle().Width(m.width).Render(help)

	view := lipgloss.JoinVertical(lipgloss.Left, body, footer)

	if m.confirm.Visible() {
		dialog := m.confirm.View()
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, dialog)
	}

	if m.filterMode {
		filterLine := lipgloss.NewStyle().Foreground(t.Info).Render("filter: " + m.filter + "▌")
		view = lipgloss.JoinVertical(lipgloss.Left, filterLine, view)
	}

	return view
}

func (m *Model) renderTaskList(width, height int) string {
	t := CurrentTheme()
	focused := m.pane == PaneTaskList

	filtered := m.filteredTasks()
	sorted := make([]Task, len(filtered))
	copy(sorted, filtered)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	start := m.page * m.pageSize
	end := start + m.pageSize
	if end > len(sorted) {
		end = len(sorted)
	}
	if start > end {
		start = end
	}
	page := sorted[start:end]

	var b strings.Builder
	for i, task := range page {
		idx := start + i
		rowStyle := lipgloss.NewStyle()
		if idx == m.selected && focused {
			rowStyle = rowStyle.Reverse(true)
		}
		mark := " "
		if _, ok := m.marked[task.ID]; ok {
			mark = "●"
		}
		icon := StatusIcon(task.Status, m.throbberCounter)
		line := mark + icon + task.ID
		b.WriteString(rowStyle.Width(width).Render(line))
		b.WriteString("\n")
	}

	pagination := Pagination{CurrentPage: m.page, TotalPages: m.totalPages()}.Render(!focused)

	border := lipgloss.RoundedBorder()
	borderColor := t.SecondaryFg
	if focused {
		borderColor = t.Info
	}

	box := lipgloss.NewStyle().
		Border(border).
		BorderForeground(borderColor).
		Width(width - 2).
		Height(height - 3)

	return lipgloss.JoinVertical(lipgloss.Left, box.Render(b.String()), pagination)
}

func (m *Model) renderOutput(width, height int) string {
	t := CurrentTheme()
	focused := m.pane == PaneOutput

	border := lipgloss.RoundedBorder()
	borderColor := t.SecondaryFg
	if focused {
		borderColor = t.Info
	}

	box := lipgloss.NewStyle().
		Border(border).
		BorderForeground(borderColor).
		Width(width - 2).
		Height(height - 2)

	task, ok := m.currentTask()
	if !ok {
		return box.Render("no task selected")
	}

	inst, ok := m.pool.Get(task.ID)
	if !ok {
		return box.Render("task has no live output")
	}

	screen := inst.Screen()
	return box.Render(screen)
}
