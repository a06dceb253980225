package hooks

import (
	"context"
	"log/slog"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
)

// StageUpdateMsg signals a change in the status of one discovery stage.
type StageUpdateMsg struct {
	Stage   discovery.Stage
	Status  discovery.Status
	Message string
}

// DiscoveryCompleteMsg signals that every stage has finished successfully.
type DiscoveryCompleteMsg struct{ Info *discovery.ServerInfo }

// CLIHooks implements the discovery.Hooks interface, bridging library events
// to the CLI's progress display or logger.
type CLIHooks struct {
	logger         *slog.Logger
	tuiEnabled     bool
	verboseEnabled bool
	tuiProgram     TUIProgram
	mu             sync.Mutex // Serialises sends so stage messages arrive in order
}

// TUIProgram defines the interface needed to interact with the Bubble Tea program.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// NoOpTUIProgram provides a default null implementation.
type NoOpTUIProgram struct{}

// Send implements TUIProgram.
func (n *NoOpTUIProgram) Send(msg tea.Msg) {}

// NewCLIHooks creates a new CLIHooks instance.
// Pass nil for tuiProgram if no TUI is running; a NoOp version will be used.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verboseEnabled bool, tuiProg TUIProgram) *CLIHooks {
	if tuiProg == nil {
		tuiProg = &NoOpTUIProgram{}
	}
	return &CLIHooks{
		logger:         logger,
		tuiEnabled:     tuiEnabled,
		verboseEnabled: verboseEnabled,
		tuiProgram:     tuiProg,
	}
}

// OnStageUpdate implements discovery.Hooks.
func (h *CLIHooks) OnStageUpdate(stage discovery.Stage, status discovery.Status, message string) error {
	if h.tuiEnabled {
		h.mu.Lock()
		h.tuiProgram.Send(StageUpdateMsg{Stage: stage, Status: status, Message: message})
		h.mu.Unlock()
		return nil
	}

	if h.verboseEnabled {
		level := slog.LevelDebug
		attrs := []any{
			slog.String("stage", string(stage)),
			slog.String("status", string(status)),
		}
		if message != "" {
			key := "message"
			if status == discovery.StatusFailed {
				key = "error"
			}
			attrs = append(attrs, slog.String(key, message))
		}
		logMsg := "Discovery stage updated"
		switch status {
		case discovery.StatusSuccess, discovery.StatusSkipped:
			level = slog.LevelInfo
		case discovery.StatusFailed:
			level = slog.LevelError
			logMsg = "Discovery stage failed"
		}
		h.logger.Log(context.Background(), level, logMsg, attrs...)
		return nil
	}

	if status == discovery.StatusFailed {
		h.logger.Error("Discovery stage failed", "stage", string(stage), "error", message)
	}
	return nil
}

// OnDiscoveryComplete implements discovery.Hooks.
func (h *CLIHooks) OnDiscoveryComplete(info *discovery.ServerInfo) error {
	if h.tuiEnabled {
		h.mu.Lock()
		h.tuiProgram.Send(DiscoveryCompleteMsg{Info: info})
		h.mu.Unlock()
		return nil
	}
	if h.verboseEnabled && info != nil {
		h.logger.Info("Discovery complete",
			slog.String("server", info.Name),
			slog.String("version", info.Version),
			slog.Int("tools", len(info.Tools)),
			slog.Int("prompts", len(info.Prompts)),
			slog.Int("resources", len(info.Resources)),
			slog.Int("resourceTemplates", len(info.ResourceTemplates)))
	}
	return nil
}
