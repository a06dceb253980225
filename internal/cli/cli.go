package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/stackvity/mcp-discovery/internal/cli/hooks"
	"github.com/stackvity/mcp-discovery/internal/cli/runner"
	"github.com/stackvity/mcp-discovery/internal/cli/ui"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/encoding"
	"github.com/stackvity/mcp-discovery/pkg/discovery/snapshot"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

// ErrCancelled is returned when the user quits the progress display before discovery ends.
var ErrCancelled = errors.New("discovery cancelled by user")

// Run orchestrates the main application logic after configuration loading.
// Results go to out; progress and logs go to stderr.
func Run(ctx context.Context, opts discovery.Options, logger *slog.Logger, out io.Writer) error {
	info, err := serverInfo(ctx, &opts, logger)
	if err != nil {
		return err
	}

	if opts.Snapshot.Save != "" {
		store := snapshot.NewStore(opts.Logger, opts.AppVersion, opts.Snapshot.Format)
		if err := store.Save(opts.Snapshot.Save, info); err != nil {
			logger.Error("Failed to save snapshot", slog.String("path", opts.Snapshot.Save), slog.String("error", err.Error()))
			return err
		}
	}

	documenter := newDocumenter(&opts)
	switch opts.Mode {
	case discovery.ModeCreate:
		if err := documenter.Create(opts.WriteOptions(), info); err != nil {
			logger.Error("Failed to create document", slog.String("path", opts.Filename), slog.String("error", err.Error()))
			return err
		}
		_, err := fmt.Fprintf(out, "Created %s\n", opts.Filename)
		return err
	case discovery.ModeUpdate:
		result, err := documenter.Update(opts.WriteOptions(), info)
		if err != nil {
			logger.Error("Failed to update document", slog.String("path", opts.Filename), slog.String("error", err.Error()))
			return err
		}
		return reportUpdate(out, opts.Filename, result)
	default:
		return printInfo(out, documenter, &opts, info)
	}
}

// serverInfo loads a snapshot when one is configured and otherwise discovers
// the live server, showing progress while it runs.
func serverInfo(ctx context.Context, opts *discovery.Options, logger *slog.Logger) (*discovery.ServerInfo, error) {
	if opts.Snapshot.Load != "" {
		store := snapshot.NewStore(opts.Logger, opts.AppVersion, opts.Snapshot.Format)
		info, err := store.Load(opts.Snapshot.Load)
		if err != nil {
			logger.Error("Failed to load snapshot", slog.String("path", opts.Snapshot.Load), slog.String("error", err.Error()))
			return nil, err
		}
		return info, nil
	}

	discoverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if opts.StartupTimeout > 0 {
		discoverCtx, cancel = context.WithTimeout(discoverCtx, opts.StartupTimeout)
		defer cancel()
	}

	transport := opts.ServerTransport
	if transport == nil {
		var err error
		transport, err = runner.NewServerLauncher(opts.Logger).Transport(discoverCtx, opts)
		if err != nil {
			logger.Error("Failed to prepare server transport", slog.String("error", err.Error()))
			return nil, err
		}
	}

	var (
		program  *tea.Program
		tuiDone  chan struct{}
		userQuit bool
	)
	eventHooks := opts.EventHooks
	if eventHooks == nil {
		if opts.TuiEnabled {
			program = tea.NewProgram(ui.NewModel(opts.AppVersion, targetLabel(opts)), tea.WithOutput(os.Stderr))
			tuiDone = make(chan struct{})
			go func() {
				defer close(tuiDone)
				final, err := program.Run()
				if err != nil {
					logger.Warn("Progress display failed", slog.String("error", err.Error()))
					return
				}
				if m, ok := final.(*ui.Model); ok && m.Quitting() {
					userQuit = true
					cancel()
				}
			}()
		}
		var prog hooks.TUIProgram
		if program != nil {
			prog = program
		}
		eventHooks = hooks.NewCLIHooks(logger, program != nil, opts.Verbose, prog)
	}

	info, err := discovery.NewDiscoverer(opts.Logger, eventHooks, opts.AppVersion).Discover(discoverCtx, transport)
	if program != nil {
		if err != nil {
			program.Send(ui.DiscoveryFailedMsg{Err: err})
		}
		<-tuiDone
	}
	if userQuit {
		return nil, ErrCancelled
	}
	if err != nil {
		if errors.Is(discoverCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w (startup timeout %s)", err, opts.StartupTimeout)
		}
		logger.Error("Discovery failed", slog.String("error", err.Error()))
		return nil, err
	}
	return info, nil
}

func newDocumenter(opts *discovery.Options) *discovery.Documenter {
	enc := opts.EncodingHandler
	if enc == nil && opts.DefaultEncoding != "" {
		enc = encoding.NewGoCharsetEncodingHandler(opts.DefaultEncoding)
	}
	return discovery.NewDocumenter(opts.Logger, opts.TemplateExecutor, enc)
}

// printInfo writes the rendered template, or the server details in the
// configured output format when no template applies.
func printInfo(out io.Writer, documenter *discovery.Documenter, opts *discovery.Options, info *discovery.ServerInfo) error {
	writeOpts := opts.WriteOptions()
	tpl, err := writeOpts.MatchTemplate()
	if err != nil {
		return err
	}
	if tpl.Kind != template.KindNone {
		rendered, err := documenter.Render(writeOpts, info)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	}

	switch opts.OutputFormat {
	case discovery.OutputFormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case discovery.OutputFormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	default:
		return ui.PrintServerDetails(out, info)
	}
}

// reportUpdate prints a one-line outcome. Warnings were already logged by the documenter.
func reportUpdate(out io.Writer, path string, result *discovery.UpdateResult) error {
	var err error
	switch {
	case result.Blocks == 0:
		_, err = fmt.Fprintf(out, "No render blocks found in %s\n", path)
	case result.Changed:
		_, err = fmt.Fprintf(out, "Updated %s (%d %s)\n", path, result.Blocks, plural(result.Blocks, "block"))
	default:
		_, err = fmt.Fprintf(out, "%s is up to date (%d %s)\n", path, result.Blocks, plural(result.Blocks, "block"))
	}
	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// targetLabel describes the server for the progress header.
func targetLabel(opts *discovery.Options) string {
	if opts.Transport != "" && opts.Transport != discovery.TransportCommand {
		return opts.Endpoint
	}
	return strings.Join(opts.Command, " ")
}
