// Package calendarui provides the Bubble Tea calendar interface.
package calendarui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"watchlog/internal/goal"
	"watchlog/internal/merge"
	"watchlog/internal/model"
	"watchlog/internal/stats"
	"watchlog/internal/store"
)

const (
	viewMonth = iota
	viewDay
)

const dayCellWidth = 11

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4A4A4A"))
	cellStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0"))
	achievedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#73C991")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Background(lipgloss.Color("#3A3A5C")).
			Bold(true)
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	hiddenTagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
)

// Model implements the Bubble Tea calendar UI.
type Model struct {
	store        *store.Store
	mergeEnabled bool

	month    time.Time // first of the displayed month, local midnight
	selected int       // day of month, 1-based

	records []model.PlaybackRecord
	byDay   map[string]map[model.Language]int64
	goals   []model.DailyGoal

	view       int
	dayTable   table.Model
	dayDisplay []model.DisplayRecord

	goalMode   bool
	goalInputs []textinput.Model
	goalIndex  int
	goalError  string
	pendingVis map[model.Language]bool

	errMsg string
	width  int
	height int
}

// NewModel constructs a calendar UI model anchored on the given day.
func NewModel(st *store.Store, mergeEnabled bool, now time.Time) *Model {
	local := now.In(time.Local)
	m := &Model{
		store:        st,
		mergeEnabled: mergeEnabled,
		month:        time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.Local),
		selected:     local.Day(),
	}
	m.initGoalInputs()
	m.initDayTable()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.goalMode {
			return m.updateGoalMode(msg)
		}
		if m.view == viewDay {
			return m.updateDayView(msg)
		}
		return m.updateMonthView(msg)
	}
	return m, nil
}

func (m *Model) updateMonthView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveSelection(-1)
	case "right", "l":
		m.moveSelection(1)
	case "up", "k":
		m.moveSelection(-7)
	case "down", "j":
		m.moveSelection(7)
	case "p", "pgup":
		m.moveMonth(-1)
		return m, tea.ClearScreen
	case "n", "pgdown":
		m.moveMonth(1)
		return m, tea.ClearScreen
	case "t":
		now := time.Now().In(time.Local)
		m.month = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local)
		m.selected = now.Day()
		return m, tea.ClearScreen
	case "m":
		m.mergeEnabled = !m.mergeEnabled
	case "g":
		return m.startGoalMode()
	case "enter":
		m.openDayView()
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m *Model) updateDayView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.view = viewMonth
		return m, tea.ClearScreen
	case "m":
		m.mergeEnabled = !m.mergeEnabled
		m.rebuildDayTable()
		return m, nil
	case "g":
		return m.startGoalMode()
	case "x":
		m.deleteSelectedSession()
		return m, nil
	}
	var cmd tea.Cmd
	m.dayTable, cmd = m.dayTable.Update(msg)
	return m, cmd
}

func (m *Model) updateGoalMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.goalMode = false
		m.goalError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyGoalInputs(); err != nil {
			m.goalError = err.Error()
			return m, nil
		}
		m.goalMode = false
		m.goalError = ""
		m.refresh()
		return m, nil
	case tea.KeyTab:
		return m, m.setGoalIndex(m.goalIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setGoalIndex(m.goalIndex - 1)
	case tea.KeyCtrlV:
		lang := model.Languages()[m.goalIndex]
		m.pendingVis[lang] = !m.pendingVis[lang]
		return m, nil
	}
	var cmd tea.Cmd
	m.goalInputs[m.goalIndex], cmd = m.goalInputs[m.goalIndex].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.goalMode {
		return fitLines(m.renderGoalModal(), m.width, m.height)
	}
	var body string
	if m.view == viewDay {
		body = m.renderDayView()
	} else {
		body = m.renderMonthView()
	}
	footer := m.renderFooter()
	bodyHeight := m.height - lipgloss.Height(footer)
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return fitLines(body, m.width, bodyHeight) + "\n" + fitLines(footer, m.width, lipgloss.Height(footer))
}

func (m *Model) refresh() {
	ctx := context.Background()
	records, err := m.store.ListRecords(ctx, model.ListFilter{})
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	goals, err := m.store.ListDailyGoals(ctx)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.errMsg = ""
	m.records = records
	m.goals = goals
	m.byDay = stats.ByDay(records)
	if m.view == viewDay {
		m.rebuildDayTable()
	}
}

func (m *Model) settingsFor(day string) goal.Settings {
	return goal.ResolveFrom(m.goals, day)
}

func (m *Model) selectedDayKey() string {
	return time.Date(m.month.Year(), m.month.Month(), m.selected, 0, 0, 0, 0, time.Local).Format(model.DayKeyLayout)
}

func (m *Model) moveSelection(delta int) {
	next := m.selected + delta
	limit := daysInMonth(m.month)
	if next < 1 {
		m.moveMonth(-1)
		m.selected = daysInMonth(m.month)
		return
	}
	if next > limit {
		m.moveMonth(1)
		m.selected = 1
		return
	}
	m.selected = next
}

func (m *Model) moveMonth(delta int) {
	m.month = m.month.AddDate(0, delta, 0)
	if limit := daysInMonth(m.month); m.selected > limit {
		m.selected = limit
	}
}

func daysInMonth(month time.Time) int {
	return month.AddDate(0, 1, -1).Day()
}

func (m *Model) renderMonthView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.month.Format("January 2006")))
	if m.mergeEnabled {
		b.WriteString(headerStyle.Render("  merged view"))
	} else {
		b.WriteString(headerStyle.Render("  raw view"))
	}
	b.WriteString("\n\n")

	weekdays := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	for _, wd := range weekdays {
		b.WriteString(headerStyle.Render(padCell(wd, dayCellWidth)))
	}
	b.WriteString("\n")

	offset := (int(m.month.Weekday()) + 6) % 7
	limit := daysInMonth(m.month)
	col := 0
	for i := 0; i < offset; i++ {
		b.WriteString(strings.Repeat(" ", dayCellWidth))
		col++
	}
	for day := 1; day <= limit; day++ {
		b.WriteString(m.renderDayCell(day))
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderSelectedSummary())
	return b.String()
}

func (m *Model) renderDayCell(day int) string {
	key := time.Date(m.month.Year(), m.month.Month(), day, 0, 0, 0, 0, time.Local).Format(model.DayKeyLayout)
	settings := m.settingsFor(key)

	var seconds int64
	for lang, s := range m.byDay[key] {
		if settings.Visibility[lang] {
			seconds += s
		}
	}
	label := fmt.Sprintf("%2d", day)
	body := ""
	if seconds > 0 {
		body = fmt.Sprintf(" %dm", seconds/60)
	}
	if marker := m.achievementMarker(key, settings); marker != "" {
		body += marker
	}
	cell := padCell(label+body, dayCellWidth)
	switch {
	case day == m.selected:
		return selectedStyle.Render(cell)
	case seconds == 0:
		return dimStyle.Render(cell)
	case strings.Contains(body, "*"):
		return achievedStyle.Render(cell)
	default:
		return cellStyle.Render(cell)
	}
}

// achievementMarker returns "*" when every visible language with a
// positive goal met it, and at least one such goal exists.
func (m *Model) achievementMarker(key string, settings goal.Settings) string {
	hasGoal := false
	for _, lang := range model.Languages() {
		if !settings.Visibility[lang] {
			continue
		}
		minutes := settings.Goals[lang]
		if minutes <= 0 {
			continue
		}
		hasGoal = true
		if !stats.Achieved(m.byDay[key][lang], minutes) {
			return ""
		}
	}
	if hasGoal {
		return "*"
	}
	return ""
}

func (m *Model) renderSelectedSummary() string {
	key := m.selectedDayKey()
	settings := m.settingsFor(key)
	lines := []string{titleStyle.Render(key)}
	for _, lang := range model.Languages() {
		if !settings.Visibility[lang] {
			lines = append(lines, hiddenTagStyle.Render(fmt.Sprintf("%-10s hidden", lang)))
			continue
		}
		seconds := m.byDay[key][lang]
		minutes := settings.Goals[lang]
		status := ""
		if minutes > 0 {
			if stats.Achieved(seconds, minutes) {
				status = achievedStyle.Render(" goal met")
			} else {
				status = headerStyle.Render(fmt.Sprintf(" goal %dm", minutes))
			}
		}
		lines = append(lines, fmt.Sprintf("%-10s %s%s", lang, stats.FormatDuration(seconds), status))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) openDayView() {
	m.view = viewDay
	m.rebuildDayTable()
}

func (m *Model) rebuildDayTable() {
	key := m.selectedDayKey()
	settings := m.settingsFor(key)
	var dayRecords []model.PlaybackRecord
	for _, rec := range m.records {
		if model.DayKey(rec.Date) != key {
			continue
		}
		if rec.Language.Known() && !settings.Visibility[rec.Language] {
			continue
		}
		dayRecords = append(dayRecords, rec)
	}
	m.dayDisplay = merge.Merge(dayRecords, m.mergeEnabled)

	titleWidth := maxInt(16, m.width-56)
	columns := []table.Column{
		{Title: "Time", Width: 11},
		{Title: "Title", Width: titleWidth},
		{Title: "Channel", Width: 16},
		{Title: "Language", Width: 9},
		{Title: "Duration", Width: 8},
		{Title: "Parts", Width: 5},
	}
	rows := make([]table.Row, 0, len(m.dayDisplay))
	for _, d := range m.dayDisplay {
		span := fmt.Sprintf("%s-%s", d.SpanStart.Local().Format("15:04"), d.SpanEnd.Local().Format("15:04"))
		rows = append(rows, table.Row{
			span,
			runewidth.Truncate(d.Title, titleWidth, "…"),
			runewidth.Truncate(d.ChannelName, 16, "…"),
			string(d.Language),
			stats.FormatDuration(d.TotalDuration),
			fmt.Sprintf("%d", len(d.Segments)),
		})
	}
	m.dayTable.SetColumns(columns)
	m.dayTable.SetRows(rows)
	m.dayTable.SetHeight(maxInt(1, m.height-6))
	m.dayTable.Focus()
}

func (m *Model) renderDayView() string {
	key := m.selectedDayKey()
	header := titleStyle.Render(key)
	if m.mergeEnabled {
		header += headerStyle.Render("  merged view")
	} else {
		header += headerStyle.Render("  raw view")
	}
	if len(m.dayDisplay) == 0 {
		return header + "\n\nNo sessions on this day."
	}
	return header + "\n\n" + m.dayTable.View()
}

// deleteSelectedSession removes every record folded into the selected
// display session. The loop is not transactional; a failure leaves the
// remaining records in place and surfaces the error.
func (m *Model) deleteSelectedSession() {
	idx := m.dayTable.Cursor()
	if idx < 0 || idx >= len(m.dayDisplay) {
		return
	}
	ctx := context.Background()
	for _, id := range m.dayDisplay[idx].MergedSessionIDs {
		if err := m.store.DeleteRecord(ctx, id); err != nil {
			m.errMsg = err.Error()
			m.refresh()
			return
		}
	}
	m.refresh()
}

func (m *Model) initDayTable() {
	t := table.New(table.WithHeight(1))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	t.SetStyles(styles)
	m.dayTable = t
}

func (m *Model) initGoalInputs() {
	langs := model.Languages()
	m.goalInputs = make([]textinput.Model, len(langs))
	for i, lang := range langs {
		input := textinput.New()
		input.Prompt = fmt.Sprintf("%-10s ", lang)
		input.CharLimit = 5
		input.Width = 6
		input.Cursor.SetMode(cursor.CursorBlink)
		m.goalInputs[i] = input
	}
	m.pendingVis = map[model.Language]bool{}
}

func (m *Model) startGoalMode() (tea.Model, tea.Cmd) {
	settings := m.settingsFor(m.selectedDayKey())
	m.pendingVis = map[model.Language]bool{}
	for i, lang := range model.Languages() {
		m.goalInputs[i].SetValue(strconv.Itoa(settings.Goals[lang]))
		m.pendingVis[lang] = settings.Visibility[lang]
	}
	m.goalMode = true
	m.goalError = ""
	return m, m.setGoalIndex(0)
}

func (m *Model) setGoalIndex(idx int) tea.Cmd {
	count := len(m.goalInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.goalIndex = idx
	var cmd tea.Cmd
	for i := range m.goalInputs {
		if i == m.goalIndex {
			cmd = m.goalInputs[i].Focus()
		} else {
			m.goalInputs[i].Blur()
		}
	}
	return cmd
}

// applyGoalInputs persists only the fields the user changed, one
// language at a time, so sibling languages keep their current values.
func (m *Model) applyGoalInputs() error {
	key := m.selectedDayKey()
	current := m.settingsFor(key)
	ctx := context.Background()
	for i, lang := range model.Languages() {
		raw := strings.TrimSpace(m.goalInputs[i].Value())
		minutes := 0
		if raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				return fmt.Errorf("invalid goal for %s (use 0 or positive minutes)", lang)
			}
			minutes = parsed
		}
		if minutes != current.Goals[lang] {
			if err := goal.SetGoal(ctx, m.store, key, lang, minutes); err != nil {
				return err
			}
		}
		if m.pendingVis[lang] != current.Visibility[lang] {
			if err := goal.SetVisibility(ctx, m.store, key, lang, m.pendingVis[lang]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *Model) renderGoalModal() string {
	body := []string{
		titleStyle.Render(fmt.Sprintf("Goals for %s", m.selectedDayKey())),
		"",
	}
	for i, lang := range model.Languages() {
		line := m.goalInputs[i].View()
		if m.pendingVis[lang] {
			line += hiddenTagStyle.Render("  min/day")
		} else {
			line += hiddenTagStyle.Render("  min/day  [hidden]")
		}
		body = append(body, line)
	}
	body = append(body,
		"",
		headerStyle.Render("tab: next field  ctrl+v: toggle visibility"),
		headerStyle.Render("enter: save  esc: cancel"),
	)
	if m.goalError != "" {
		body = append(body, errorStyle.Render(m.goalError))
	}
	box := modalStyle.Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *Model) renderFooter() string {
	var help string
	if m.view == viewDay {
		help = "Back: esc  Delete: x  Merge: m  Goals: g  Quit: q"
	} else {
		help = "Move: arrows  Month: p/n  Today: t  Day: enter  Goals: g  Merge: m  Quit: q"
	}
	if m.errMsg != "" {
		return headerStyle.Render(help) + "\n" + errorStyle.Render(m.errMsg)
	}
	return headerStyle.Render(help)
}

func (m *Model) updateLayout() {
	if m.view == viewDay {
		m.rebuildDayTable()
	}
}

func padCell(value string, width int) string {
	valueWidth := runewidth.StringWidth(value)
	if valueWidth >= width {
		return value
	}
	return value + strings.Repeat(" ", width-valueWidth)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}
