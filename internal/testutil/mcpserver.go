package testutil

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// TestServerName and TestServerVersion identify the fixture server.
const (
	TestServerName    = "fixture-server"
	TestServerVersion = "1.4.2"
)

// TestServerOptions selects the features registered on the fixture server.
type TestServerOptions struct {
	Tools             bool
	Prompts           bool
	Resources         bool
	ResourceTemplates bool
	Instructions      string
}

// AllFeatures registers every fixture feature.
var AllFeatures = TestServerOptions{Tools: true, Prompts: true, Resources: true, ResourceTemplates: true}

// NewFixtureServer builds an MCP server populated with the fixture tools,
// prompts and resources selected by opts.
func NewFixtureServer(opts TestServerOptions) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: TestServerName, Version: TestServerVersion},
		&mcp.ServerOptions{Instructions: opts.Instructions})

	if opts.Tools {
		addFixtureTools(server)
	}
	if opts.Prompts {
		server.AddPrompt(&mcp.Prompt{
			Name:        "summarize",
			Description: "Summarize a document",
			Arguments: []*mcp.PromptArgument{
				{Name: "text", Description: "Text to summarize", Required: true},
				{Name: "style", Description: "Summary style"},
			},
		}, func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{}, nil
		})
	}
	if opts.Resources || opts.ResourceTemplates {
		server.AddResource(&mcp.Resource{
			URI:         "file:///docs/readme.md",
			Name:        "readme",
			Description: "Project readme",
			MIMEType:    "text/markdown",
		}, readNothing)
	}
	if opts.ResourceTemplates {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: "file:///logs/{name}",
			Name:        "logs",
			Description: "Log files by name",
			MIMEType:    "text/plain",
		}, readNothing)
	}
	return server
}

// NewTestServer connects a fixture server over in-memory transports and
// returns the client side transport. The server session is closed when the
// test ends.
func NewTestServer(t *testing.T, opts TestServerOptions) mcp.Transport {
	t.Helper()

	server := NewFixtureServer(opts)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	session, err := server.Connect(context.Background(), serverTransport, nil)
	require.NoError(t, err, "Failed to connect fixture server")
	t.Cleanup(func() { _ = session.Close() })

	return clientTransport
}

func addFixtureTools(server *mcp.Server) {
	noop := func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return &mcp.CallToolResult{}, nil
	}

	server.AddTool(&mcp.Tool{
		Name:        "get_weather",
		Description: "Get the `weather` for a city",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "City name"},
				"days": map[string]any{"type": "integer"},
				"units": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
			},
			"required": []any{"city"},
		},
	}, noop)

	server.AddTool(&mcp.Tool{
		Name:        "add_note",
		Description: "Store a note",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"note": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"title": map[string]any{"type": "string"},
						"tags":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
					"required": []any{"title"},
				},
			},
		},
	}, noop)
}

func readNothing(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	return &mcp.ReadResourceResult{}, nil
}
