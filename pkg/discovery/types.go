package discovery

// Status defines the state of one discovery stage.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Stage names one step of discovering a server.
type Stage string

const (
	StageConnect           Stage = "connect"
	StageInitialize        Stage = "initialize"
	StageTools             Stage = "tools"
	StagePrompts           Stage = "prompts"
	StageResources         Stage = "resources"
	StageResourceTemplates Stage = "resourceTemplates"
)

// Stages lists every discovery stage in execution order.
var Stages = []Stage{
	StageConnect,
	StageInitialize,
	StageTools,
	StagePrompts,
	StageResources,
	StageResourceTemplates,
}

// Label is the human-readable stage name used by progress displays.
func (s Stage) Label() string {
	switch s {
	case StageConnect:
		return "Connecting"
	case StageInitialize:
		return "Initializing"
	case StageTools:
		return "Tools"
	case StagePrompts:
		return "Prompts"
	case StageResources:
		return "Resources"
	case StageResourceTemplates:
		return "Resource Templates"
	default:
		return string(s)
	}
}

// Mode selects what the command does with the discovered data.
type Mode string

const (
	ModePrint  Mode = "print"
	ModeCreate Mode = "create"
	ModeUpdate Mode = "update"
)

// OutputFormat defines how print mode shows server details when no template is chosen.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// TransportKind selects how the MCP server is reached.
type TransportKind string

const (
	TransportCommand    TransportKind = "command"
	TransportSSE        TransportKind = "sse"
	TransportStreamable TransportKind = "streamable"
)

// SnapshotFormat selects the on-disk encoding of a snapshot.
type SnapshotFormat string

const (
	SnapshotGob  SnapshotFormat = "gob"
	SnapshotJSON SnapshotFormat = "json"
)
