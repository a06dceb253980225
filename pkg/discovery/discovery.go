package discovery

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Discoverer connects to an MCP server and collects its capabilities.
type Discoverer struct {
	logger     *slog.Logger
	hooks      Hooks
	appVersion string
}

// NewDiscoverer creates a Discoverer. A nil hooks value disables progress callbacks.
func NewDiscoverer(handler slog.Handler, hooks Hooks, appVersion string) *Discoverer {
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	if appVersion == "" {
		appVersion = "dev"
	}
	return &Discoverer{
		logger:     slog.New(handler).With(slog.String("component", "discoverer")),
		hooks:      hooks,
		appVersion: appVersion,
	}
}

// Discover connects over transport, reads the initialize result and lists every
// advertised capability. The session is closed before returning. Callers bound
// the whole exchange through ctx.
func (d *Discoverer) Discover(ctx context.Context, transport mcp.Transport) (*ServerInfo, error) {
	d.stage(StageConnect, StatusRunning, "")
	client := mcp.NewClient(&mcp.Implementation{Name: ClientName, Version: d.appVersion}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		d.stage(StageConnect, StatusFailed, err.Error())
		return nil, fmt.Errorf("%w: %w", ErrConnection, err)
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			d.logger.Debug("Error closing MCP session", slog.String("error", closeErr.Error()))
		}
	}()
	d.stage(StageConnect, StatusSuccess, "")

	d.stage(StageInitialize, StatusRunning, "")
	result := session.InitializeResult()
	if result == nil || result.ServerInfo == nil {
		d.stage(StageInitialize, StatusFailed, ErrServerNotInitialized.Error())
		return nil, ErrServerNotInitialized
	}

	info := &ServerInfo{
		Name:            result.ServerInfo.Name,
		Version:         result.ServerInfo.Version,
		Title:           result.ServerInfo.Title,
		Instructions:    result.Instructions,
		ProtocolVersion: result.ProtocolVersion,
		Capabilities:    capabilitiesOf(result.Capabilities),
	}
	d.stage(StageInitialize, StatusSuccess, fmt.Sprintf("%s %s", info.Name, info.Version))
	d.logger.Debug("Server initialized",
		slog.String("server", info.Name),
		slog.String("version", info.Version),
		slog.String("protocol", info.ProtocolVersion),
		slog.String("capabilities", info.Capabilities.String()))

	if err := d.discoverLists(ctx, session, info); err != nil {
		return nil, err
	}

	if hookErr := d.hooks.OnDiscoveryComplete(info); hookErr != nil {
		d.logger.Warn("Error reported by OnDiscoveryComplete hook", slog.String("hookError", hookErr.Error()))
	}
	return info, nil
}

func (d *Discoverer) discoverLists(ctx context.Context, session *mcp.ClientSession, info *ServerInfo) error {
	caps := info.Capabilities

	if err := d.runStage(StageTools, caps.Tools, func() (int, error) {
		tools, err := listTools(ctx, session)
		info.Tools = tools
		return len(tools), err
	}); err != nil {
		return err
	}

	if err := d.runStage(StagePrompts, caps.Prompts, func() (int, error) {
		prompts, err := listPrompts(ctx, session)
		info.Prompts = prompts
		return len(prompts), err
	}); err != nil {
		return err
	}

	if err := d.runStage(StageResources, caps.Resources, func() (int, error) {
		resources, err := listResources(ctx, session)
		info.Resources = resources
		return len(resources), err
	}); err != nil {
		return err
	}

	// Template listing is optional for servers; a failure leaves the list empty.
	templatesErr := d.runStage(StageResourceTemplates, caps.Resources, func() (int, error) {
		templates, err := listResourceTemplates(ctx, session)
		info.ResourceTemplates = templates
		return len(templates), err
	})
	if templatesErr != nil {
		d.logger.Warn("Failed to list resource templates", slog.String("error", templatesErr.Error()))
		info.ResourceTemplates = nil
	}
	return nil
}

// runStage reports a listing stage to the hooks. Stages whose capability is not
// advertised are skipped.
func (d *Discoverer) runStage(stage Stage, advertised bool, list func() (int, error)) error {
	if !advertised {
		d.stage(stage, StatusSkipped, "not advertised")
		return nil
	}
	d.stage(stage, StatusRunning, "")
	n, err := list()
	if err != nil {
		d.stage(stage, StatusFailed, err.Error())
		return fmt.Errorf("%w: %s: %w", ErrNotDiscovered, stage, err)
	}
	d.stage(stage, StatusSuccess, fmt.Sprintf("%d found", n))
	return nil
}

func (d *Discoverer) stage(stage Stage, status Status, message string) {
	d.logger.Debug("Discovery stage", slog.String("stage", string(stage)), slog.String("status", string(status)), slog.String("message", message))
	if err := d.hooks.OnStageUpdate(stage, status, message); err != nil {
		d.logger.Warn("Error reported by OnStageUpdate hook", slog.String("stage", string(stage)), slog.String("hookError", err.Error()))
	}
}

func capabilitiesOf(caps *mcp.ServerCapabilities) Capabilities {
	if caps == nil {
		return Capabilities{}
	}
	return Capabilities{
		Tools:        caps.Tools != nil,
		Prompts:      caps.Prompts != nil,
		Resources:    caps.Resources != nil,
		Logging:      caps.Logging != nil,
		Experimental: len(caps.Experimental) > 0,
		Completions:  caps.Completions != nil,
	}
}

func listTools(ctx context.Context, session *mcp.ClientSession) ([]ToolMeta, error) {
	tools := []ToolMeta{}
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, err
		}
		params, err := ToolParams(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool '%s': %w", tool.Name, err)
		}
		tools = append(tools, ToolMeta{
			Name:        tool.Name,
			Title:       tool.Title,
			Description: tool.Description,
			Params:      params,
		})
	}
	slices.SortFunc(tools, func(a, b ToolMeta) int { return cmp.Compare(a.Name, b.Name) })
	return tools, nil
}

func listPrompts(ctx context.Context, session *mcp.ClientSession) ([]Prompt, error) {
	prompts := []Prompt{}
	for prompt, err := range session.Prompts(ctx, nil) {
		if err != nil {
			return nil, err
		}
		p := Prompt{Name: prompt.Name, Title: prompt.Title, Description: prompt.Description}
		for _, arg := range prompt.Arguments {
			if arg == nil {
				continue
			}
			p.Arguments = append(p.Arguments, PromptArgument{
				Name:        arg.Name,
				Description: arg.Description,
				Required:    arg.Required,
			})
		}
		prompts = append(prompts, p)
	}
	return prompts, nil
}

func listResources(ctx context.Context, session *mcp.ClientSession) ([]Resource, error) {
	resources := []Resource{}
	for r, err := range session.Resources(ctx, nil) {
		if err != nil {
			return nil, err
		}
		resources = append(resources, Resource{
			URI:         r.URI,
			Name:        r.Name,
			Title:       r.Title,
			Description: r.Description,
			MIMEType:    r.MIMEType,
			Size:        r.Size,
		})
	}
	return resources, nil
}

func listResourceTemplates(ctx context.Context, session *mcp.ClientSession) ([]ResourceTemplate, error) {
	templates := []ResourceTemplate{}
	for rt, err := range session.ResourceTemplates(ctx, nil) {
		if err != nil {
			return nil, err
		}
		templates = append(templates, ResourceTemplate{
			URITemplate: rt.URITemplate,
			Name:        rt.Name,
			Title:       rt.Title,
			Description: rt.Description,
			MIMEType:    rt.MIMEType,
		})
	}
	return templates, nil
}
