package discovery

import (
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stackvity/mcp-discovery/pkg/discovery/encoding"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

// SnapshotConfig holds settings for saving and loading discovered server data.
type SnapshotConfig struct {
	Load   string         `mapstructure:"load"`
	Save   string         `mapstructure:"save"`
	Format SnapshotFormat `mapstructure:"format"`
}

// Hooks defines callbacks for progress during discovery.
// Implementations must be safe for use from the goroutine running Discover.
type Hooks interface {
	OnStageUpdate(stage Stage, status Status, message string) error
	OnDiscoveryComplete(info *ServerInfo) error
}

// NoOpHooks provides a default, do-nothing implementation of the Hooks interface.
type NoOpHooks struct{}

// OnStageUpdate implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnStageUpdate(stage Stage, status Status, message string) error { return nil }

// OnDiscoveryComplete implements the Hooks interface. It performs no action.
func (h *NoOpHooks) OnDiscoveryComplete(info *ServerInfo) error { return nil }

// Options holds all configuration for one mcp-discovery run.
type Options struct {
	// --- Mode ---
	Mode Mode `mapstructure:"-"` // Set by the chosen subcommand

	// --- Application Info ---
	AppVersion     string `mapstructure:"-"` // Announced to servers and stamped into snapshots
	ConfigFilePath string `mapstructure:"-"` // Path to the loaded config file (for logging)
	ProfileName    string `mapstructure:"-"` // Name of the profile used (for logging)

	// --- Server Launch ---
	Command              []string          `mapstructure:"command"`   // Server command and arguments (command transport)
	Transport            TransportKind     `mapstructure:"transport"` // ("command", "sse", "streamable")
	Endpoint             string            `mapstructure:"endpoint"`  // Server URL (sse and streamable transports)
	Headers              map[string]string `mapstructure:"-"`         // Static HTTP headers for remote transports (key "headers")
	Env                  map[string]string `mapstructure:"-"`         // Extra environment for the launched server (key "env")
	EnvFile              string            `mapstructure:"envFile"`   // dotenv file merged before Env
	StartupTimeoutString string            `mapstructure:"startupTimeout"`
	StartupTimeout       time.Duration     `mapstructure:"-"` // Derived from StartupTimeoutString

	// --- Output & Templates ---
	Filename        string       `mapstructure:"filename"`       // Target of create and update
	Template        string       `mapstructure:"template"`       // Built-in template name
	TemplateFile    string       `mapstructure:"templateFile"`   // Custom template path
	TemplateString  string       `mapstructure:"templateString"` // Literal template text
	OutputFormat    OutputFormat `mapstructure:"outputFormat"`   // ("text", "json", "yaml") for print without a template
	DefaultEncoding string       `mapstructure:"defaultEncoding"`

	// --- Behavior & Logging ---
	LogLevel   string `mapstructure:"logLevel"`   // ("error", "warn", "info", "debug", "trace")
	Verbose    bool   `mapstructure:"verbose"`    // Forces debug logging
	TuiEnabled bool   `mapstructure:"tuiEnabled"` // Hint for CLI to show the progress display

	// --- Snapshots ---
	Snapshot SnapshotConfig `mapstructure:"snapshot"`

	// --- Injected Dependencies ---
	EventHooks       Hooks                    `mapstructure:"-"` // Optional: progress callbacks
	ServerTransport  mcp.Transport            `mapstructure:"-"` // Optional: connected transport, bypasses launching a server
	Logger           slog.Handler             `mapstructure:"-"` // Required: logging backend
	TemplateExecutor template.Executor        `mapstructure:"-"` // Optional: template engine
	EncodingHandler  encoding.EncodingHandler `mapstructure:"-"` // Optional: update target decoding
}

// WriteOptions derives the document options from the run configuration.
func (o *Options) WriteOptions() WriteOptions {
	return WriteOptions{
		Filename:       o.Filename,
		Template:       template.Name(o.Template),
		TemplateFile:   o.TemplateFile,
		TemplateString: o.TemplateString,
	}
}
