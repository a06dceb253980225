package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stackvity/mcp-discovery/internal/cli/hooks"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
)

// labelWidth aligns the stage messages in one column.
const labelWidth = 20

// DiscoveryFailedMsg tells the model that discovery ended with an error.
type DiscoveryFailedMsg struct{ Err error }

// Model is the progress display shown while a server is being discovered.
// It renders one row per discovery stage and quits once discovery ends.
type Model struct {
	list       list.Model
	spinner    spinner.Model
	appVersion string
	target     string
	width      int
	stages     []stageRow
	stageIndex map[discovery.Stage]int
	serverName string
	fatalError string
	done       bool
	quitting   bool
	startTime  time.Time
	elapsed    time.Duration
}

// stageRow is one discovery stage as shown in the list.
type stageRow struct {
	stage   discovery.Stage
	status  discovery.Status
	message string
	started time.Time
	took    time.Duration
}

// FilterValue implements the list.Item interface.
func (r stageRow) FilterValue() string { return r.stage.Label() }

// stageDelegate draws each stage on a single line. It reads the model's
// spinner so running stages animate without re-setting their items.
type stageDelegate struct {
	spinner *spinner.Model
}

func (d stageDelegate) Height() int { return 1 }

func (d stageDelegate) Spacing() int { return 0 }

func (d stageDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d stageDelegate) Render(w io.Writer, _ list.Model, _ int, item list.Item) {
	row, ok := item.(stageRow)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(row, d.spinner.View()))
}

// NewModel creates the progress model. target describes the server being
// discovered (its command line or endpoint).
func NewModel(appVersion, target string) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusRunning)

	m := &Model{
		spinner:    s,
		appVersion: appVersion,
		target:     target,
		stageIndex: make(map[discovery.Stage]int, len(discovery.Stages)),
		startTime:  time.Now(),
	}
	items := make([]list.Item, 0, len(discovery.Stages))
	for i, stage := range discovery.Stages {
		row := stageRow{stage: stage, status: discovery.StatusPending}
		m.stages = append(m.stages, row)
		m.stageIndex[stage] = i
		items = append(items, row)
	}

	// Every stage fits on one page, so the list chrome stays hidden.
	l := list.New(items, stageDelegate{spinner: &m.spinner}, 0, len(items))
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetShowPagination(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()
	m.list = l
	return m
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles key presses, spinner ticks and the messages sent by hooks.CLIHooks.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.list.SetWidth(msg.Width)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done || m.quitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case hooks.StageUpdateMsg:
		idx, ok := m.stageIndex[msg.Stage]
		if !ok {
			return m, nil
		}
		row := &m.stages[idx]
		switch msg.Status {
		case discovery.StatusRunning:
			row.started = time.Now()
		case discovery.StatusSuccess, discovery.StatusFailed:
			if !row.started.IsZero() {
				row.took = time.Since(row.started)
			}
		}
		row.status = msg.Status
		row.message = msg.Message
		if msg.Stage == discovery.StageInitialize && msg.Status == discovery.StatusSuccess {
			m.serverName = msg.Message
		}
		return m, m.list.SetItem(idx, *row)

	case hooks.DiscoveryCompleteMsg:
		m.done = true
		m.elapsed = time.Since(m.startTime)
		if msg.Info != nil {
			m.serverName = strings.TrimSpace(msg.Info.DisplayName() + " " + msg.Info.Version)
		}
		return m, tea.Quit

	case DiscoveryFailedMsg:
		m.done = true
		m.elapsed = time.Since(m.startTime)
		if msg.Err != nil {
			m.fatalError = msg.Err.Error()
		}
		return m, tea.Quit
	}
	return m, nil
}

// Quitting reports whether the user interrupted the display.
func (m *Model) Quitting() bool { return m.quitting }

// View renders the header and one row per stage.
func (m *Model) View() string {
	var sb strings.Builder

	header := fmt.Sprintf("mcp-discovery %s", m.appVersion)
	if m.target != "" {
		header += "  " + m.target
	}
	style := HeaderStyle
	if m.width > 0 {
		style = style.Width(m.width)
	}
	sb.WriteString(style.Render(header))
	sb.WriteString("\n\n")

	sb.WriteString(m.list.View())
	sb.WriteString("\n")

	switch {
	case m.fatalError != "":
		sb.WriteString("\n")
		sb.WriteString(StatusStyleFailed.Render("Discovery failed: " + m.fatalError))
		sb.WriteString("\n")
	case m.done:
		sb.WriteString("\n")
		sb.WriteString(StatusStyleSuccess.Render(fmt.Sprintf("Discovered %s in %s", m.serverName, formatDuration(m.elapsed))))
		sb.WriteString("\n")
	case m.quitting:
		sb.WriteString("\nCancelling...\n")
	}
	return sb.String()
}

func renderRow(row stageRow, spinnerView string) string {
	var icon string
	var style lipgloss.Style
	switch row.status {
	case discovery.StatusRunning:
		icon, style = spinnerView, StatusStyleRunning
	case discovery.StatusSuccess:
		icon, style = "✔", StatusStyleSuccess
	case discovery.StatusFailed:
		icon, style = "✘", StatusStyleFailed
	case discovery.StatusSkipped:
		icon, style = "-", StatusStyleSkipped
	default:
		icon, style = "·", StatusStylePending
	}

	label := row.stage.Label()
	if pad := labelWidth - lipgloss.Width(label); pad > 0 {
		label += strings.Repeat(" ", pad)
	}
	details := row.message
	if row.took > 0 && row.status == discovery.StatusSuccess {
		details = strings.TrimSpace(details + " " + DimmedStyle.Render(formatDuration(row.took)))
	}
	return fmt.Sprintf("%s %s %s", style.Render(icon), label, details)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		if d == 0 {
			return ""
		}
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
