package discovery_test

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stackvity/mcp-discovery/internal/testutil"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/marker"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleInfo() *discovery.ServerInfo {
	return &discovery.ServerInfo{
		Name:         "fixture-server",
		Version:      "1.4.2",
		Instructions: "Use responsibly.",
		Capabilities: discovery.Capabilities{Tools: true, Prompts: true},
		Tools: []discovery.ToolMeta{{
			Name:        "get_weather",
			Description: "Get the weather",
			Params: []discovery.ToolParam{
				{Name: "city", Type: discovery.Primitive("string"), Required: true},
			},
		}},
		Prompts: []discovery.Prompt{{Name: "summarize", Description: "Summarize a document"}},
	}
}

func newDocumenter() *discovery.Documenter {
	return discovery.NewDocumenter(discardHandler(), nil, nil)
}

func TestWriteOptions_MatchTemplate(t *testing.T) {
	dir := t.TempDir()
	tplPath := filepath.Join(dir, "custom.tmpl")
	testutil.CreateDummyFile(t, tplPath, "{{.Name}}")

	testCases := []struct {
		name        string
		opts        discovery.WriteOptions
		wantKind    template.Kind
		wantName    template.Name
		wantPath    string
		expectedErr error
	}{
		{name: "Template file next to target", opts: discovery.WriteOptions{Filename: filepath.Join(dir, "README.md"), TemplateFile: "custom.tmpl"}, wantKind: template.KindFile, wantPath: tplPath},
		{name: "Missing template file", opts: discovery.WriteOptions{Filename: filepath.Join(dir, "README.md"), TemplateFile: "absent.tmpl"}, expectedErr: discovery.ErrTemplateFileNotFound},
		{name: "Built-in name wins over extension", opts: discovery.WriteOptions{Filename: "README.md", Template: template.HTML}, wantKind: template.KindBuiltin, wantName: template.HTML},
		{name: "Unknown built-in name", opts: discovery.WriteOptions{Template: "pdf"}, expectedErr: discovery.ErrUnknownTemplate},
		{name: "Template string", opts: discovery.WriteOptions{TemplateString: "{{.Name}}"}, wantKind: template.KindString},
		{name: "Markdown extension", opts: discovery.WriteOptions{Filename: "docs/SERVER.md"}, wantKind: template.KindBuiltin, wantName: template.Markdown},
		{name: "Other extension", opts: discovery.WriteOptions{Filename: "server.txt"}, wantKind: template.KindBuiltin, wantName: template.Text},
		{name: "Nothing selected", opts: discovery.WriteOptions{}, wantKind: template.KindNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tpl, err := tc.opts.MatchTemplate()
			if tc.expectedErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKind, tpl.Kind)
			assert.Equal(t, tc.wantName, tpl.Name)
			assert.Equal(t, tc.wantPath, tpl.Path)
		})
	}
}

func TestDocumenter_RenderWithoutTemplate(t *testing.T) {
	_, err := newDocumenter().Render(discovery.WriteOptions{}, sampleInfo())
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrConfigValidation)
}

func TestDocumenter_CreateBuiltins(t *testing.T) {
	testCases := []struct {
		filename string
		contains []string
	}{
		{filename: "SERVER.md", contains: []string{"## fixture-server 1.4.2", "Use responsibly.", "<code><b>get_weather</b></code>"}},
		{filename: "server.html", contains: []string{"<!DOCTYPE html>", "<h1>fixture-server <small>1.4.2</small></h1>"}},
		{filename: "server.txt", contains: []string{"fixture-server 1.4.2\n" + strings.Repeat("─", len("fixture-server 1.4.2")), "get_weather"}},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "nested", tc.filename)
			err := newDocumenter().Create(discovery.WriteOptions{Filename: target}, sampleInfo())
			require.NoError(t, err)

			content := testutil.ReadFile(t, target)
			for _, want := range tc.contains {
				assert.Contains(t, content, want)
			}
		})
	}
}

func TestDocumenter_CreateRequiresFilename(t *testing.T) {
	err := newDocumenter().Create(discovery.WriteOptions{Template: template.Markdown}, sampleInfo())
	assert.ErrorIs(t, err, discovery.ErrConfigValidation)
}

// TestDocumenter_Update covers a template-file block and an inline block in one
// document and checks a second run leaves the file unchanged.
func TestDocumenter_Update(t *testing.T) {
	dir := t.TempDir()
	testutil.CreateDummyFile(t, filepath.Join(dir, "server.tmpl"), "Server: {{.Name}} {{.Version}}\n")

	original := strings.Join([]string{
		"# Project",
		"<!-- mcp-discovery-render template-file=server.tmpl -->",
		"stale line",
		"<!-- mcp-discovery-render-end -->",
		"",
		"<!-- mcp-discovery-render -->",
		"<!-- mcp-discovery-template",
		"Tools: {{len .Tools}}",
		"mcp-discovery-template-end -->",
		"old count",
		"<!-- mcp-discovery-render-end -->",
		"Footer",
	}, "\n") + "\n"
	expected := strings.Join([]string{
		"# Project",
		"<!-- mcp-discovery-render template-file=server.tmpl -->",
		"Server: fixture-server 1.4.2",
		"<!-- mcp-discovery-render-end -->",
		"",
		"<!-- mcp-discovery-render -->",
		"<!-- mcp-discovery-template",
		"Tools: {{len .Tools}}",
		"mcp-discovery-template-end -->",
		"Tools: 1",
		"<!-- mcp-discovery-render-end -->",
		"Footer",
	}, "\n") + "\n"

	target := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(target, []byte(original), 0o600))
	opts := discovery.WriteOptions{Filename: target}
	doc := newDocumenter()

	result, err := doc.Update(opts, sampleInfo())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Blocks)
	assert.True(t, result.Changed)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, "utf-8", result.Encoding)
	assert.Equal(t, expected, testutil.ReadFile(t, target))

	if runtime.GOOS != "windows" {
		stat, err := os.Stat(target)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), stat.Mode().Perm(), "update keeps the file mode")
	}

	result, err = doc.Update(opts, sampleInfo())
	require.NoError(t, err)
	assert.False(t, result.Changed, "a second update is a no-op")
	assert.Equal(t, expected, testutil.ReadFile(t, target))
}

func TestDocumenter_UpdateUsesExecutor(t *testing.T) {
	target := filepath.Join(t.TempDir(), "README.md")
	testutil.CreateDummyFile(t, target, "<!-- mcp-discovery-render -->\n<!-- mcp-discovery-render-end -->\n")

	info := sampleInfo()
	executor := new(testutil.MockTemplateExecutor)
	executor.On("Execute", "builtin:md", mock.AnythingOfType("string"), info).Return("generated\n", nil).Once()

	doc := discovery.NewDocumenter(discardHandler(), executor, nil)
	_, err := doc.Update(discovery.WriteOptions{Filename: target}, info)
	require.NoError(t, err)

	executor.AssertExpectations(t)
	assert.Equal(t, "<!-- mcp-discovery-render -->\ngenerated\n<!-- mcp-discovery-render-end -->\n", testutil.ReadFile(t, target))
}

// TestDocumenter_UpdateKeepsSourceEncoding verifies the output is re-encoded to the detected charset.
func TestDocumenter_UpdateKeepsSourceEncoding(t *testing.T) {
	target := filepath.Join(t.TempDir(), "notes.txt")
	original := "mcp-discovery-render\nmcp-discovery-render-end\n"
	testutil.CreateDummyFile(t, target, original)

	enc := new(testutil.MockEncodingHandler)
	enc.On("IsBinary", []byte(original)).Return(false)
	enc.On("DetectAndDecode", []byte(original)).Return([]byte(original), "windows-1252", true, nil)
	enc.On("Encode", []byte("mcp-discovery-render\nfixture-server\nmcp-discovery-render-end\n"), "windows-1252").
		Return([]byte("re-encoded"), nil)

	doc := discovery.NewDocumenter(discardHandler(), nil, enc)
	result, err := doc.Update(discovery.WriteOptions{Filename: target, TemplateString: "{{.Name}}"}, sampleInfo())
	require.NoError(t, err)

	enc.AssertExpectations(t)
	assert.Equal(t, "windows-1252", result.Encoding)
	assert.Equal(t, "re-encoded", testutil.ReadFile(t, target))
}

func TestDocumenter_UpdateReportsWarnings(t *testing.T) {
	target := filepath.Join(t.TempDir(), "README.md")
	testutil.CreateDummyFile(t, target, strings.Join([]string{
		"<!-- mcp-discovery-render -->",
		"<!-- mcp-discovery-template -->",
		"first",
		"<!-- mcp-discovery-template-end -->",
		"<!-- mcp-discovery-template -->",
		"second",
		"<!-- mcp-discovery-template-end -->",
		"<!-- mcp-discovery-render-end -->",
	}, "\n")+"\n")

	result, err := newDocumenter().Update(discovery.WriteOptions{Filename: target}, sampleInfo())
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, 2, result.Warnings[0].Line)
	assert.Contains(t, testutil.ReadFile(t, target), "second\n<!-- mcp-discovery-template-end -->")
}

func TestDocumenter_UpdateErrors(t *testing.T) {
	unclosed := "intro\n<!-- mcp-discovery-render -->\nbody\n"

	testCases := []struct {
		name        string
		content     []byte
		opts        func(target string) discovery.WriteOptions
		expectedErr error
	}{
		{
			name:        "Unclosed render section",
			content:     []byte(unclosed),
			opts:        func(target string) discovery.WriteOptions { return discovery.WriteOptions{Filename: target} },
			expectedErr: discovery.ErrMarkerNesting,
		},
		{
			name:    "Template parse error",
			content: []byte("<!-- mcp-discovery-render -->\n<!-- mcp-discovery-render-end -->\n"),
			opts: func(target string) discovery.WriteOptions {
				return discovery.WriteOptions{Filename: target, TemplateString: "{{.Name"}
			},
			expectedErr: discovery.ErrRenderEngine,
		},
		{
			name:    "Unknown command-line template",
			content: []byte("<!-- mcp-discovery-render -->\n<!-- mcp-discovery-render-end -->\n"),
			opts: func(target string) discovery.WriteOptions {
				return discovery.WriteOptions{Filename: target, Template: "pdf"}
			},
			expectedErr: discovery.ErrUnknownTemplate,
		},
		{
			name:        "Binary target",
			content:     append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...),
			opts:        func(target string) discovery.WriteOptions { return discovery.WriteOptions{Filename: target} },
			expectedErr: discovery.ErrBinaryTarget,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "README.md")
			require.NoError(t, os.WriteFile(target, tc.content, 0o644))

			_, err := newDocumenter().Update(tc.opts(target), sampleInfo())
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.expectedErr)

			after, readErr := os.ReadFile(target)
			require.NoError(t, readErr)
			assert.Equal(t, tc.content, after, "a failed update must not touch the file")
		})
	}
}

func TestDocumenter_UpdateNestingErrorCarriesLine(t *testing.T) {
	target := filepath.Join(t.TempDir(), "README.md")
	testutil.CreateDummyFile(t, target, "intro\n<!-- mcp-discovery-render -->\nbody\n")

	_, err := newDocumenter().Update(discovery.WriteOptions{Filename: target}, sampleInfo())
	var markerErr *marker.Error
	require.ErrorAs(t, err, &markerErr)
	assert.Equal(t, 2, markerErr.Line)
	assert.Equal(t, target, markerErr.Path)
}

func TestDocumenter_UpdateMissingTarget(t *testing.T) {
	target := filepath.Join(t.TempDir(), "missing.md")
	_, err := newDocumenter().Update(discovery.WriteOptions{Filename: target}, sampleInfo())
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrTargetNotFound)
	assert.Contains(t, err.Error(), "File '"+target+"' not found")
}
