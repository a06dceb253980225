package discovery

import "time"

// Default values used when setting up configuration defaults.
const (
	// DefaultTransport launches the server as a subprocess over stdio.
	DefaultTransport = TransportCommand
	// DefaultStartupTimeoutString bounds connecting to and listing a server.
	DefaultStartupTimeoutString = "30s"
	// DefaultStartupTimeout is the parsed form of DefaultStartupTimeoutString.
	DefaultStartupTimeout = 30 * time.Second
	// DefaultOutputFormat is used by print mode without a template.
	DefaultOutputFormat = OutputFormatText
	// DefaultLogLevel is the level of the stderr logger.
	DefaultLogLevel = "warn"
	// DefaultTuiEnabled is the default state for the terminal progress display.
	DefaultTuiEnabled = true
	// DefaultEncoding is assumed for update targets whose charset cannot be detected.
	DefaultEncoding = "utf-8"
	// DefaultSnapshotFormat is the default snapshot encoding.
	DefaultSnapshotFormat = SnapshotJSON
	// DefaultVerbose is the default state for verbose logging.
	DefaultVerbose = false
)

// ClientName is the implementation name announced to servers.
const ClientName = "mcp-discovery"

// SnapshotSchemaVersion is the version of the snapshot file layout.
// Increment it when ServerInfo changes incompatibly.
const SnapshotSchemaVersion = "1.0"
