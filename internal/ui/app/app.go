package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"halmon/internal/models"
	"halmon/internal/services"
	"halmon/internal/ui/styles"
	"halmon/internal/ui/widgets"
)

const (
	refreshInterval = 100 * time.Millisecond
	sparkWidth      = 40
	barWidth        = 30
)

type Screen int

const (
	ScreenMenu Screen = iota
	ScreenStatus
	ScreenCreateType
	ScreenCreateThreshold
	ScreenAlarms
	ScreenRemove
	ScreenAlerts
)

type menuItem int

const (
	itemMonitoring menuItem = iota
	itemStatus
	itemCreate
	itemAlarms
	itemRemove
	itemAlerts
	itemExit
)

var menuItems = []menuItem{itemMonitoring, itemStatus, itemCreate, itemAlarms, itemRemove, itemAlerts, itemExit}

type tickMsg struct{}
type hostMsg models.HostInfo
type lifecycleMsg struct{ active bool }
type errMsg struct{ error }

// Model is the interactive front end. It only reads monitor state and
// forwards commands; it never calls the sampler itself.
type Model struct {
	monitor *services.Monitor
	store   *services.AlarmStore

	screen     Screen
	menuCursor int
	typeCursor int
	newType    models.ResourceType
	threshold  textinput.Model
	alarms     table.Model

	snap   services.MonitorSnapshot
	host   models.HostInfo
	busy   bool
	notice string
	err    error

	width, height int
}

func New(monitor *services.Monitor) Model {
	ti := textinput.New()
	ti.Placeholder = "1-100"
	ti.CharLimit = 3
	ti.Width = 5

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Alarm", Width: 24},
			{Title: "Active", Width: 8},
		}),
		table.WithHeight(10),
	)

	return Model{
		monitor:   monitor,
		store:     monitor.Store(),
		threshold: ti,
		alarms:    t,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchHost(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func fetchHost() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		info, err := services.GetHostInfo(ctx)
		if err != nil {
			return errMsg{err}
		}
		return hostMsg(*info)
	}
}

// toggle starts or stops monitoring off the UI goroutine; Stop waits for
// the in-flight sample
func (m Model) toggle(start bool) tea.Cmd {
	mon := m.monitor
	return func() tea.Msg {
		if start {
			mon.Start()
		} else {
			mon.Stop()
		}
		return lifecycleMsg{active: mon.Active()}
	}
}

// Screen returns the screen currently shown
func (m Model) Screen() Screen {
	return m.screen
}

// Notice returns the last status line shown to the user
func (m Model) Notice() string {
	return m.notice
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.snap = m.monitor.Snapshot(sparkWidth)
		m.rebuildAlarms()
		return m, tick()

	case hostMsg:
		m.host = models.HostInfo(msg)
		return m, nil

	case lifecycleMsg:
		m.busy = false
		m.snap = m.monitor.Snapshot(sparkWidth)
		if msg.active {
			m.notice = "Monitoring started"
		} else {
			m.notice = "Monitoring stopped"
		}
		return m, nil

	case errMsg:
		m.err = msg.error
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m.handleKey(msg)
	}

	if m.screen == ScreenCreateThreshold {
		var cmd tea.Cmd
		m.threshold, cmd = m.threshold.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" && m.screen != ScreenMenu {
		m.screen = ScreenMenu
		m.err = nil
		m.threshold.Blur()
		m.alarms.Blur()
		return m, nil
	}

	switch m.screen {
	case ScreenMenu:
		return m.updateMenu(msg)
	case ScreenCreateType:
		return m.updateCreateType(msg)
	case ScreenCreateThreshold:
		return m.updateCreateThreshold(msg)
	case ScreenRemove:
		return m.updateRemove(msg)
	case ScreenAlarms:
		var cmd tea.Cmd
		m.alarms, cmd = m.alarms.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuCursor > 0 {
			m.menuCursor--
		}
	case "down", "j":
		if m.menuCursor < len(menuItems)-1 {
			m.menuCursor++
		}
	case "enter":
		return m.selectItem(menuItems[m.menuCursor])
	}
	return m, nil
}

func (m Model) selectItem(item menuItem) (tea.Model, tea.Cmd) {
	m.notice = ""
	m.err = nil

	switch item {
	case itemMonitoring:
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.toggle(!m.monitor.Active())
	case itemStatus:
		m.screen = ScreenStatus
	case itemCreate:
		m.screen = ScreenCreateType
		m.typeCursor = 0
	case itemAlarms:
		m.screen = ScreenAlarms
		m.rebuildAlarms()
		m.alarms.Focus()
	case itemRemove:
		m.screen = ScreenRemove
		m.rebuildAlarms()
		m.alarms.SetCursor(0)
		m.alarms.Focus()
	case itemAlerts:
		m.screen = ScreenAlerts
		if !m.monitor.Active() && !m.busy {
			m.busy = true
			return m, m.toggle(true)
		}
	case itemExit:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateCreateType(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.typeCursor > 0 {
			m.typeCursor--
		}
	case "down", "j":
		if m.typeCursor < len(models.ResourceTypes)-1 {
			m.typeCursor++
		}
	case "enter":
		m.newType = models.ResourceTypes[m.typeCursor]
		m.screen = ScreenCreateThreshold
		m.threshold.SetValue("")
		return m, m.threshold.Focus()
	}
	return m, nil
}

func (m Model) updateCreateThreshold(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		var cmd tea.Cmd
		m.threshold, cmd = m.threshold.Update(msg)
		return m, cmd
	}

	value, err := strconv.Atoi(strings.TrimSpace(m.threshold.Value()))
	if err != nil {
		m.err = models.ErrInvalidThreshold
		m.threshold.SetValue("")
		return m, nil
	}
	idx, err := m.store.AddAlarm(m.newType, value)
	if err != nil {
		m.err = err
		m.threshold.SetValue("")
		return m, nil
	}

	alarms := m.store.List()
	if idx >= 0 && idx < len(alarms) {
		m.notice = "Alarm created: " + alarms[idx].String()
	}
	m.err = nil
	m.threshold.Blur()
	m.screen = ScreenMenu
	m.rebuildAlarms()
	return m, nil
}

func (m Model) updateRemove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "enter" {
		var cmd tea.Cmd
		m.alarms, cmd = m.alarms.Update(msg)
		return m, cmd
	}

	if removed, ok := m.store.RemoveAt(m.alarms.Cursor()); ok {
		m.notice = "Alarm removed: " + removed.String()
	} else {
		m.notice = "No alarm removed"
	}
	m.rebuildAlarms()
	if m.alarms.Cursor() >= m.store.Len() && m.store.Len() > 0 {
		m.alarms.SetCursor(m.store.Len() - 1)
	}
	return m, nil
}

func (m *Model) rebuildAlarms() {
	alarms := m.store.List()
	rows := make([]table.Row, len(alarms))
	for i, a := range alarms {
		active := "yes"
		if !a.Active {
			active = "no"
		}
		rows[i] = table.Row{strconv.Itoa(i + 1), a.String(), active}
	}
	m.alarms.SetRows(rows)
}

func (m Model) View() string {
	state := styles.Danger.Render("● stopped")
	if m.snap.Active {
		state = styles.Good.Render("● monitoring")
	}
	head := lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("HAL-9000 SYSTEM MONITOR"),
		styles.Header.Render(fmt.Sprintf("%s  %s/%s  up %s  │ %s",
			m.host.Hostname, m.host.OS, m.host.Platform, formatUptime(m.host.Uptime), state)),
	)

	var body string
	switch m.screen {
	case ScreenMenu:
		body = m.viewMenu()
	case ScreenStatus:
		body = m.viewStatus()
	case ScreenCreateType:
		body = m.viewCreateType()
	case ScreenCreateThreshold:
		body = m.viewCreateThreshold()
	case ScreenAlarms:
		body = styles.Box.Render(styles.Title.Render("Alarms") + "\n" + m.viewAlarmTable())
	case ScreenRemove:
		body = styles.Box.Render(styles.Title.Render("Remove Alarm (Enter to remove)") + "\n" + m.viewAlarmTable())
	case ScreenAlerts:
		body = m.viewAlerts()
	}

	status := ""
	if m.err != nil {
		status = styles.Danger.Render(errorText(m.err))
	} else if m.notice != "" {
		status = styles.Good.Render(m.notice)
	}

	footer := styles.Footer.Render("↑/↓ move • [Enter] select • [Esc] back • [q] quit")
	return lipgloss.JoinVertical(lipgloss.Left, head, "", body, status, footer)
}

func (m Model) viewMenu() string {
	var b strings.Builder
	for i, item := range menuItems {
		label := m.menuLabel(item)
		if i == m.menuCursor {
			b.WriteString(styles.Selected.Render("> " + label))
		} else {
			b.WriteString(styles.Item.Render("  " + label))
		}
		b.WriteString("\n")
	}
	return styles.Box.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) menuLabel(item menuItem) string {
	switch item {
	case itemMonitoring:
		if m.busy {
			return "Please wait..."
		}
		if m.snap.Active {
			return "Stop Monitoring"
		}
		return "Start Monitoring"
	case itemStatus:
		return "Show System Status"
	case itemCreate:
		return "Create Alarm"
	case itemAlarms:
		return "Show Alarms"
	case itemRemove:
		return "Remove Alarm"
	case itemAlerts:
		return "Alarm Monitoring"
	case itemExit:
		return "Exit"
	}
	return ""
}

func (m Model) viewStatus() string {
	if !m.snap.Active {
		return styles.Box.Render(styles.Warn.Render("Monitoring is not active. Start it from the menu."))
	}
	if m.snap.Latest == nil {
		return styles.Box.Render(styles.Faint.Render("Waiting for the first sample..."))
	}

	s := m.snap.Latest
	var rows []string
	for _, rt := range models.ResourceTypes {
		rows = append(rows, m.resourceRow(rt, *s))
	}
	rows = append(rows, styles.Faint.Render("sampled "+s.Timestamp.Format("15:04:05")))
	return styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) resourceRow(rt models.ResourceType, s models.Sample) string {
	name := fmt.Sprintf("%-7s", rt.Label())
	p, ok := s.Percent(rt)
	if !ok {
		return name + " " + styles.Faint.Render("unavailable")
	}

	detail := ""
	switch rt {
	case models.ResourceCPU:
		detail = fmt.Sprintf("%d cores", s.CPU.CoreCount)
	case models.ResourceMemory:
		detail = fmt.Sprintf("%.1f / %.1f GB", s.Memory.UsedGB, s.Memory.TotalGB)
	case models.ResourceDisk:
		detail = fmt.Sprintf("%.1f / %.1f GB", s.Disk.UsedGB, s.Disk.TotalGB)
	}

	style := styles.ForPercent(p)
	return fmt.Sprintf("%s %s %s  %s  %s",
		name,
		style.Render(fmt.Sprintf("%5.1f%%", p)),
		style.Render(widgets.Bar(p, barWidth)),
		styles.Faint.Render(widgets.Spark8(m.snap.History.Values(rt), sparkWidth)),
		styles.Faint.Render(detail),
	)
}

func (m Model) viewCreateType() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Create Alarm: choose a resource") + "\n")
	for i, rt := range models.ResourceTypes {
		if i == m.typeCursor {
			b.WriteString(styles.Selected.Render("> " + rt.Label()))
		} else {
			b.WriteString(styles.Item.Render("  " + rt.Label()))
		}
		b.WriteString("\n")
	}
	return styles.Box.Render(strings.TrimRight(b.String(), "\n"))
}

func (m Model) viewCreateThreshold() string {
	return styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render(fmt.Sprintf("Create Alarm: %s threshold", m.newType.Label())),
		"Alert when usage reaches (1-100): "+m.threshold.View(),
	))
}

func (m Model) viewAlarmTable() string {
	if len(m.alarms.Rows()) == 0 {
		return styles.Faint.Render("No alarms configured.")
	}
	return m.alarms.View()
}

func (m Model) viewAlerts() string {
	lines := []string{styles.Title.Render("Alarm Monitoring")}
	if !m.snap.Active {
		lines = append(lines, styles.Warn.Render("Monitoring is not active."))
	}
	if len(m.snap.Alerts) == 0 {
		lines = append(lines, styles.Faint.Render("No warnings."))
	}
	for _, a := range m.snap.Alerts {
		lines = append(lines, styles.Danger.Render("***"+a.Message()+"***"))
	}
	return styles.Box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func errorText(err error) string {
	if errors.Is(err, models.ErrInvalidThreshold) {
		return "Threshold must be a whole number between 1 and 100. Try again."
	}
	return "Error: " + err.Error()
}

func formatUptime(secs uint64) string {
	d := time.Duration(secs) * time.Second
	days := int(d.Hours()) / 24
	if days > 0 {
		return fmt.Sprintf("%dd%dh", days, int(d.Hours())%24)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
