package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/mcp-discovery/internal/testutil"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// baseOptions returns options wired to an in-memory fixture server with the TUI off.
func baseOptions(t *testing.T, mode discovery.Mode) (discovery.Options, *slog.Logger) {
	t.Helper()
	handler := slog.NewTextHandler(io.Discard, nil)
	return discovery.Options{
		Mode:            mode,
		AppVersion:      "test",
		OutputFormat:    discovery.OutputFormatText,
		StartupTimeout:  5 * time.Second,
		DefaultEncoding: discovery.DefaultEncoding,
		Logger:          handler,
		ServerTransport: testutil.NewTestServer(t, testutil.AllFeatures),
	}, slog.New(handler)
}

func TestRun_PrintFormats(t *testing.T) {
	t.Run("Text summary", func(t *testing.T) {
		opts, logger := baseOptions(t, discovery.ModePrint)
		var out bytes.Buffer
		require.NoError(t, Run(testContext(t), opts, logger, &out))

		text := out.String()
		assert.Contains(t, text, "fixture-server 1.4.2")
		assert.Contains(t, text, "Tools(2)")
		assert.Contains(t, text, "1. add_note: Store a note")
		assert.Contains(t, text, "Resource Templates(1)")
	})

	t.Run("JSON", func(t *testing.T) {
		opts, logger := baseOptions(t, discovery.ModePrint)
		opts.OutputFormat = discovery.OutputFormatJSON
		var out bytes.Buffer
		require.NoError(t, Run(testContext(t), opts, logger, &out))

		var decoded map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
		assert.Equal(t, testutil.TestServerName, decoded["name"])
		assert.Len(t, decoded["tools"], 2)
		assert.Len(t, decoded["resource_templates"], 1)
	})

	t.Run("YAML", func(t *testing.T) {
		opts, logger := baseOptions(t, discovery.ModePrint)
		opts.OutputFormat = discovery.OutputFormatYAML
		var out bytes.Buffer
		require.NoError(t, Run(testContext(t), opts, logger, &out))

		assert.Contains(t, out.String(), "name: fixture-server\n")
		assert.Contains(t, out.String(), "resource_templates:\n")
	})

	t.Run("Template string wins over output format", func(t *testing.T) {
		opts, logger := baseOptions(t, discovery.ModePrint)
		opts.OutputFormat = discovery.OutputFormatJSON
		opts.TemplateString = "{{.Name}} has {{len .Tools}} tools"
		var out bytes.Buffer
		require.NoError(t, Run(testContext(t), opts, logger, &out))
		assert.Equal(t, "fixture-server has 2 tools", out.String())
	})

	t.Run("Built-in template", func(t *testing.T) {
		opts, logger := baseOptions(t, discovery.ModePrint)
		opts.Template = "md"
		var out bytes.Buffer
		require.NoError(t, Run(testContext(t), opts, logger, &out))
		assert.Contains(t, out.String(), "## fixture-server 1.4.2")
	})
}

func TestRun_Create(t *testing.T) {
	opts, logger := baseOptions(t, discovery.ModeCreate)
	opts.Filename = filepath.Join(t.TempDir(), "docs", "SERVER.md")

	var out bytes.Buffer
	require.NoError(t, Run(testContext(t), opts, logger, &out))
	assert.Equal(t, "Created "+opts.Filename+"\n", out.String())
	assert.Contains(t, testutil.ReadFile(t, opts.Filename), "## fixture-server 1.4.2")
}

func TestRun_Update(t *testing.T) {
	target := filepath.Join(t.TempDir(), "README.md")
	testutil.CreateDummyFile(t, target, "# Project\n"+
		"<!-- mcp-discovery-render -->\n"+
		"<!-- mcp-discovery-template -->\n"+
		"Server: {{.Name}}\n"+
		"<!-- mcp-discovery-template-end -->\n"+
		"stale output\n"+
		"<!-- mcp-discovery-render-end -->\n"+
		"tail\n")

	opts, logger := baseOptions(t, discovery.ModeUpdate)
	opts.Filename = target
	var out bytes.Buffer
	require.NoError(t, Run(testContext(t), opts, logger, &out))
	assert.Equal(t, "Updated "+target+" (1 block)\n", out.String())

	updated := testutil.ReadFile(t, target)
	assert.Contains(t, updated, "Server: fixture-server")
	assert.NotContains(t, updated, "stale output")
	assert.Contains(t, updated, "Server: {{.Name}}", "inline template survives the update")
	assert.Contains(t, updated, "tail\n")

	opts, logger = baseOptions(t, discovery.ModeUpdate)
	opts.Filename = target
	out.Reset()
	require.NoError(t, Run(testContext(t), opts, logger, &out))
	assert.Equal(t, target+" is up to date (1 block)\n", out.String())
}

func TestRun_UpdateWithoutBlocks(t *testing.T) {
	target := filepath.Join(t.TempDir(), "notes.txt")
	testutil.CreateDummyFile(t, target, "nothing to see\n")

	opts, logger := baseOptions(t, discovery.ModeUpdate)
	opts.Filename = target
	var out bytes.Buffer
	require.NoError(t, Run(testContext(t), opts, logger, &out))
	assert.Equal(t, "No render blocks found in "+target+"\n", out.String())
}

func TestRun_UpdateMissingTarget(t *testing.T) {
	opts, logger := baseOptions(t, discovery.ModeUpdate)
	opts.Filename = filepath.Join(t.TempDir(), "absent.md")
	err := Run(testContext(t), opts, logger, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrTargetNotFound)
}

func TestRun_SnapshotRoundTrip(t *testing.T) {
	snapshotPath := filepath.Join(t.TempDir(), "server.json")

	opts, logger := baseOptions(t, discovery.ModePrint)
	opts.Snapshot.Save = snapshotPath
	opts.TemplateString = "{{.Name}}/{{len .Prompts}}"
	var live bytes.Buffer
	require.NoError(t, Run(testContext(t), opts, logger, &live))
	require.FileExists(t, snapshotPath)

	offline := opts
	offline.ServerTransport = nil
	offline.Snapshot = discovery.SnapshotConfig{Load: snapshotPath}
	var replay bytes.Buffer
	require.NoError(t, Run(testContext(t), offline, logger, &replay))
	assert.Equal(t, live.String(), replay.String())
	assert.Equal(t, "fixture-server/1", replay.String())
}

func TestRun_SnapshotLoadFailure(t *testing.T) {
	opts, logger := baseOptions(t, discovery.ModePrint)
	opts.Snapshot.Load = filepath.Join(t.TempDir(), "absent.json")
	err := Run(testContext(t), opts, logger, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrSnapshot)
}

func TestRun_ConnectionFailure(t *testing.T) {
	opts, logger := baseOptions(t, discovery.ModePrint)
	opts.ServerTransport = &mcp.CommandTransport{Command: exec.Command("/nonexistent/mcp-server")}
	err := Run(testContext(t), opts, logger, io.Discard)
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrConnection)
}

func TestRun_UsesInjectedHooks(t *testing.T) {
	hooks := new(testutil.MockHooks)
	hooks.On("OnStageUpdate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hooks.On("OnDiscoveryComplete", mock.Anything).Return(nil)

	opts, logger := baseOptions(t, discovery.ModePrint)
	opts.EventHooks = hooks
	opts.TuiEnabled = true
	require.NoError(t, Run(testContext(t), opts, logger, io.Discard))

	hooks.AssertCalled(t, "OnStageUpdate", discovery.StageConnect, discovery.StatusSuccess, "")
	hooks.AssertNumberOfCalls(t, "OnDiscoveryComplete", 1)
}

func TestTargetLabel(t *testing.T) {
	assert.Equal(t, "npx -y server", targetLabel(&discovery.Options{Command: []string{"npx", "-y", "server"}}))
	assert.Equal(t, "https://example.com/mcp", targetLabel(&discovery.Options{
		Transport: discovery.TransportSSE,
		Endpoint:  "https://example.com/mcp",
		Command:   []string{"ignored"},
	}))
}
