package discovery

import (
	"errors"

	"github.com/stackvity/mcp-discovery/pkg/discovery/marker"
)

// Exported errors. Callers check them with errors.Is; every failure returned by
// this package wraps one of them.
var (
	// ErrMarkerNesting indicates markers in an update target that break the block
	// structure. The error is a *marker.Error carrying the line and path.
	ErrMarkerNesting = marker.ErrNesting

	// ErrAmbiguousTemplateSource indicates a render block naming more than one
	// template source. The error is a *marker.Error.
	ErrAmbiguousTemplateSource = marker.ErrAmbiguousTemplateSource

	// ErrTemplateFileNotFound indicates a template file missing at every candidate path.
	// The message lists each path tried.
	ErrTemplateFileNotFound = marker.ErrTemplateFileNotFound

	// ErrUnknownTemplate indicates a template name that is not one of the built-in templates.
	ErrUnknownTemplate = marker.ErrUnknownTemplate

	// ErrTargetNotFound indicates the file passed to an update does not exist.
	// It is checked before any parsing.
	ErrTargetNotFound = errors.New("target file not found")

	// ErrBinaryTarget indicates the update target looks like binary data and was left untouched.
	ErrBinaryTarget = errors.New("target file appears to be binary")

	// ErrRenderEngine indicates the template engine rejected a template, either
	// while parsing it or while executing it against the server data.
	ErrRenderEngine = errors.New("template rendering failed")

	// ErrWriteFailed indicates a failure writing the created or updated document.
	ErrWriteFailed = errors.New("failed to write output file")

	// ErrConnection indicates the MCP server could not be launched or connected to.
	ErrConnection = errors.New("failed to connect to MCP server")

	// ErrServerNotInitialized indicates the session holds no initialize result,
	// so no capability information is available.
	ErrServerNotInitialized = errors.New("server not initialized")

	// ErrNotDiscovered indicates a listing request for a capability failed.
	ErrNotDiscovered = errors.New("failed to list server capability")

	// ErrInvalidSchema indicates a tool input schema that cannot be decoded into parameters.
	ErrInvalidSchema = errors.New("invalid tool input schema")

	// ErrConfigValidation indicates options that failed validation before any work began.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrSnapshot indicates a snapshot file that could not be read, written or is incompatible.
	ErrSnapshot = errors.New("snapshot error")
)
