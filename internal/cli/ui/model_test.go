package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/mcp-discovery/internal/cli/hooks"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowFor(t *testing.T, view, label string) string {
	t.Helper()
	for _, line := range strings.Split(view, "\n") {
		if strings.Contains(line, label) {
			return line
		}
	}
	require.Failf(t, "row not found", "no row for %q in view:\n%s", label, view)
	return ""
}

func TestModel_InitialView(t *testing.T) {
	m := NewModel("1.2.3", "node server.js")
	require.NotNil(t, m.Init())

	view := m.View()
	assert.Contains(t, view, "mcp-discovery 1.2.3")
	assert.Contains(t, view, "node server.js")
	for _, stage := range discovery.Stages {
		assert.Contains(t, rowFor(t, view, stage.Label()), "·", "stage %s starts pending", stage)
	}
}

func TestModel_StageUpdates(t *testing.T) {
	m := NewModel("dev", "")

	m.Update(hooks.StageUpdateMsg{Stage: discovery.StageConnect, Status: discovery.StatusSuccess})
	m.Update(hooks.StageUpdateMsg{Stage: discovery.StageTools, Status: discovery.StatusRunning})
	m.Update(hooks.StageUpdateMsg{Stage: discovery.StageTools, Status: discovery.StatusSuccess, Message: "2 found"})
	m.Update(hooks.StageUpdateMsg{Stage: discovery.StagePrompts, Status: discovery.StatusSkipped, Message: "not advertised"})
	m.Update(hooks.StageUpdateMsg{Stage: discovery.StageResources, Status: discovery.StatusFailed, Message: "timeout"})
	m.Update(hooks.StageUpdateMsg{Stage: "unknown", Status: discovery.StatusFailed})

	view := m.View()
	assert.Contains(t, rowFor(t, view, "Connecting"), "✔")
	assert.Contains(t, rowFor(t, view, "Tools"), "2 found")
	assert.Contains(t, rowFor(t, view, "Prompts"), "not advertised")
	resources := rowFor(t, view, "Resources ")
	assert.Contains(t, resources, "✘")
	assert.Contains(t, resources, "timeout")
}

func TestModel_DiscoveryComplete(t *testing.T) {
	m := NewModel("dev", "")
	_, cmd := m.Update(hooks.DiscoveryCompleteMsg{Info: &discovery.ServerInfo{Name: "fixture", Version: "1.0"}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Discovered fixture 1.0 in")

	_, cmd = m.Update(m.spinner.Tick())
	assert.Nil(t, cmd, "the spinner stops once discovery is done")
}

func TestModel_RunningStageFollowsSpinner(t *testing.T) {
	m := NewModel("dev", "")
	m.Update(hooks.StageUpdateMsg{Stage: discovery.StageTools, Status: discovery.StatusRunning})

	first := m.spinner.View()
	assert.Contains(t, rowFor(t, m.View(), "Tools"), first)

	_, cmd := m.Update(m.spinner.Tick())
	require.NotNil(t, cmd, "the spinner keeps ticking while a stage runs")
	next := m.spinner.View()
	require.NotEqual(t, first, next)
	assert.Contains(t, rowFor(t, m.View(), "Tools"), next)
}

func TestModel_WindowResize(t *testing.T) {
	m := NewModel("dev", "server")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.Equal(t, 100, m.list.Width())
	for _, stage := range discovery.Stages {
		rowFor(t, m.View(), stage.Label())
	}
}

func TestModel_DiscoveryCompletePrefersTitle(t *testing.T) {
	m := NewModel("dev", "")
	m.Update(hooks.DiscoveryCompleteMsg{Info: &discovery.ServerInfo{Name: "fixture", Title: "Fixture Server", Version: "1.0"}})
	assert.Contains(t, m.View(), "Discovered Fixture Server 1.0 in")
}

func TestModel_DiscoveryFailed(t *testing.T) {
	m := NewModel("dev", "")
	_, cmd := m.Update(DiscoveryFailedMsg{Err: errors.New("connection refused")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Discovery failed: connection refused")
}

func TestModel_Quit(t *testing.T) {
	testCases := []struct {
		name string
		key  tea.KeyMsg
	}{
		{name: "q", key: tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}},
		{name: "ctrl+c", key: tea.KeyMsg{Type: tea.KeyCtrlC}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewModel("dev", "")
			_, cmd := m.Update(tc.key)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.True(t, m.Quitting())
			assert.Contains(t, m.View(), "Cancelling...")
		})
	}
}

func TestModel_OtherKeysIgnored(t *testing.T) {
	m := NewModel("dev", "")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	assert.Nil(t, cmd)
	assert.False(t, m.Quitting())
}
