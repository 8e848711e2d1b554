package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"arise/internal/engine"
	"arise/internal/storage"
	"arise/internal/ui"
)

type rowKind int

const (
	rowTask rowKind = iota
	rowHabit
)

type boardRow struct {
	kind    rowKind
	id      string
	title   string
	done    bool
	overdue bool
	detail  string
}

type boardModel struct {
	ctx context.Context
	svc *engine.Service

	width  int
	height int

	stats  engine.Stats
	tasks  []storage.Task
	habits []storage.Habit

	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	stats  engine.Stats
	tasks  []storage.Task
	habits []storage.Habit
	err    error
}

type toggledMsg struct {
	title string
	xp    engine.XPChange
	note  string
	err   error
}

func newBoardModel(ctx context.Context, svc *engine.Service) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		if _, err := m.svc.RefreshHabitTasks(m.ctx); err != nil {
			return loadedMsg{err: err}
		}
		snap, err := m.svc.LoadSnapshot(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		today := m.svc.Today()
		var todays []storage.Task
		for _, t := range snap.Tasks {
			if t.DueDate == today || (!t.Completed && t.DueDate.Before(today)) {
				todays = append(todays, t)
			}
		}
		return loadedMsg{
			stats:  engine.ComputeStats(snap, today, m.svc.Location()),
			tasks:  todays,
			habits: snap.Habits,
		}
	}
}

func (m boardModel) toggleCmd(row boardRow) tea.Cmd {
	return func() tea.Msg {
		switch row.kind {
		case rowHabit:
			res, err := m.svc.ToggleHabit(m.ctx, row.id)
			if err != nil {
				return toggledMsg{title: row.title, err: err}
			}
			return toggledMsg{title: row.title, xp: res.XP}
		default:
			res, err := m.svc.ToggleTask(m.ctx, row.id)
			if err != nil {
				return toggledMsg{title: row.title, err: err}
			}
			return toggledMsg{title: row.title, xp: res.XP, note: res.Message}
		}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.stats = msg.stats
		m.tasks = msg.tasks
		m.habits = msg.habits
		if rows := m.rows(); m.selected >= len(rows) {
			m.selected = max(len(rows)-1, 0)
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case toggledMsg:
		if msg.err != nil {
			m.lastLog = "Update failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = toggleLog(msg)
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.rows())-1 {
				m.selected++
			}
			return m, nil
		case "c", " ", "enter":
			rows := m.rows()
			if m.selected < 0 || m.selected >= len(rows) {
				return m, nil
			}
			row := rows[m.selected]
			m.lastLog = fmt.Sprintf("Updating %s…", row.title)
			return m, m.toggleCmd(row)
		}
	}
	return m, nil
}

func toggleLog(msg toggledMsg) string {
	var b strings.Builder
	b.WriteString(msg.title)
	switch {
	case msg.xp.Delta > 0:
		fmt.Fprintf(&b, ": +%d XP", msg.xp.Delta)
	case msg.xp.Delta < 0:
		fmt.Fprintf(&b, ": %d XP", msg.xp.Delta)
	default:
		b.WriteString(": updated")
	}
	if msg.xp.LevelUp {
		fmt.Fprintf(&b, " %s level %d", ui.BadgeLevelUp, msg.xp.LevelAfter)
	}
	if msg.note != "" {
		b.WriteString(" (" + msg.note + ")")
	}
	return b.String()
}

// rows lists habits first, then tasks: open before done, overdue first.
func (m boardModel) rows() []boardRow {
	var out []boardRow
	for _, h := range m.habits {
		out = append(out, boardRow{
			kind:   rowHabit,
			id:     h.ID,
			title:  h.Title,
			done:   m.svc.CompletedToday(h),
			detail: fmt.Sprintf("%s %d", ui.IconFlame, h.Streak),
		})
	}

	tasks := append([]storage.Task(nil), m.tasks...)
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Completed != tasks[j].Completed {
			return !tasks[i].Completed
		}
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})
	for _, t := range tasks {
		if engine.IsHabitTask(t) {
			continue
		}
		out = append(out, boardRow{
			kind:    rowTask,
			id:      t.ID,
			title:   t.Title,
			done:    t.Completed,
			overdue: m.svc.TaskOverdue(t),
			detail:  t.Priority,
		})
	}
	return out
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := "\n" + m.lastLog

	leftW := 28
	if m.width > 0 {
		leftW = min(leftW, m.width/2)
		leftW = max(leftW, 18)
	}

	linesLeft := strings.Split(sidebar, "\n")
	linesRight := strings.Split(main, "\n")
	n := max(len(linesLeft), len(linesRight))

	var body strings.Builder
	for i := 0; i < n; i++ {
		l, r := "", ""
		if i < len(linesLeft) {
			l = linesLeft[i]
		}
		if i < len(linesRight) {
			r = linesRight[i]
		}
		body.WriteString(padRight(l, leftW))
		body.WriteString("  ")
		body.WriteString(r)
		body.WriteString("\n")
	}
	return header + "\n" + body.String() + footer
}

func (m boardModel) renderHeader() string {
	if m.loading && m.stats.Level.Level == 0 {
		return "Arise: loading…"
	}
	info := m.stats.Level
	return fmt.Sprintf("Arise | %s | Level %d | XP %d %s %d%%",
		ui.RankBadge(string(info.Rank), info.RankTitle), info.Level, m.stats.XP,
		ui.ProgressBar(info.Progress, 20), info.Progress)
}

func (m boardModel) renderSidebar() string {
	s := m.stats
	lines := []string{
		"Today",
		fmt.Sprintf("- tasks %d/%d", s.TodayCompleted, s.TodayTasks),
		fmt.Sprintf("- habits %d/%d", s.HabitsDoneToday, s.Habits),
		fmt.Sprintf("- overdue %d", s.OverdueTasks),
		"",
		"Streaks",
		fmt.Sprintf("- tasks %d", s.TaskStreak),
		fmt.Sprintf("- journal %d", s.JournalStreak),
		fmt.Sprintf("- focus %d", s.FocusStreak),
		fmt.Sprintf("- best habit %d", s.BestHabitStreak),
		"",
		"Keys",
		"- ↑/↓ or j/k: move",
		"- c/space: toggle",
		"- r: refresh",
		"- q: quit",
	}
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	rows := m.rows()
	out := []string{"Quest Log"}
	if len(rows) == 0 {
		out = append(out, "(nothing due today)")
		return strings.Join(out, "\n")
	}
	for i, r := range rows {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		status := ""
		if r.overdue {
			status = " " + ui.Bad.Render("overdue")
		}
		out = append(out, fmt.Sprintf("%s%s %s %s (%s)%s",
			cursor, ui.CheckIcon(r.done), ui.KindIcon(r.kind == rowHabit), r.title, r.detail, status))
	}
	return strings.Join(out, "\n")
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
