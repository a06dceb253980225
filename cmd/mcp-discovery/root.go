package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stackvity/mcp-discovery/internal/cli"
	"github.com/stackvity/mcp-discovery/internal/cli/config"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/template"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const longDescription = `mcp-discovery launches a Model Context Protocol server, lists the tools,
prompts, resources and resource templates it advertises, and renders them
to the terminal or into documents.

The server command follows "--". Remote servers are reached with
--transport sse|streamable and --endpoint instead.

Update mode re-renders only the regions of an existing file enclosed by
mcp-discovery-render / mcp-discovery-render-end markers and leaves every
other byte untouched.`

// newRootCmd builds the command tree. The root command behaves like print.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "mcp-discovery [print|create|update] [flags] -- <server command...>",
		Short:        "Discovers an MCP server's capabilities and documents them.",
		Long:         longDescription,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE:         runMode(discovery.ModePrint),
	}
	rootCmd.SetVersionTemplate(`{{.Name}} version {{.Version}}` + "\n")

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Configuration file path (default is search standard locations like ., $HOME/.config/mcp-discovery/)")
	pf.String("profile", "", "Name of configuration profile to use")
	pf.BoolP("verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")
	pf.StringP("log-level", "l", discovery.DefaultLogLevel, `Log level ("error", "warn", "info", "debug", "trace")`)

	pf.StringP("template", "t", "", fmt.Sprintf("Built-in template %v", template.NameStrings()))
	pf.StringP("template-file", "p", "", "Path to a custom Go template file")
	pf.StringP("template-string", "s", "", "Go template text used directly")
	rootCmd.MarkFlagsMutuallyExclusive("template", "template-file", "template-string")

	pf.String("transport", string(discovery.DefaultTransport), `How to reach the server ("command", "sse", "streamable")`)
	pf.String("endpoint", "", "Server URL for the sse and streamable transports")
	pf.StringArray("header", []string{}, `HTTP header "Key: Value" sent to remote servers (can be specified multiple times)`)
	pf.StringArray("env", []string{}, `Environment variable KEY=VALUE for the launched server (can be specified multiple times)`)
	pf.String("env-file", "", "dotenv file merged into the launched server's environment")
	pf.String("startup-timeout", discovery.DefaultStartupTimeoutString, "Time allowed for connecting to and listing the server")

	pf.String("snapshot", "", "Render from a saved snapshot instead of launching a server")
	pf.String("save-snapshot", "", "Save the discovered server information to this file")
	pf.String("snapshot-format", "", `Snapshot encoding ("json", "gob"; default from the file extension)`)
	pf.Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")

	rootCmd.Flags().StringP("output-format", "o", string(discovery.DefaultOutputFormat), `Format without a template ("text", "json", "yaml")`)

	printCmd := &cobra.Command{
		Use:   "print [flags] -- <server command...>",
		Short: "Prints the server's capabilities (default command).",
		Args:  cobra.ArbitraryArgs,
		RunE:  runMode(discovery.ModePrint),
	}
	printCmd.Flags().StringP("output-format", "o", string(discovery.DefaultOutputFormat), `Format without a template ("text", "json", "yaml")`)

	createCmd := &cobra.Command{
		Use:   "create -f <file> [flags] -- <server command...>",
		Short: "Renders the server's capabilities into a new file.",
		Long: `Renders the server's capabilities into a new file, creating missing
directories. Without a template option the built-in template is chosen by
the file extension (.md, .html, anything else as text).`,
		Args: cobra.ArbitraryArgs,
		RunE: runMode(discovery.ModeCreate),
	}
	createCmd.Flags().StringP("filename", "f", "", "Required. File to create (overwritten if it exists)")
	_ = createCmd.MarkFlagRequired("filename")

	updateCmd := &cobra.Command{
		Use:   "update -f <file> [flags] -- <server command...>",
		Short: "Re-renders the marked regions of an existing file.",
		Long: `Re-renders every region between mcp-discovery-render and
mcp-discovery-render-end markers. A render marker may carry
template=<name> or template-file=<path>, or enclose an inline template
between mcp-discovery-template and mcp-discovery-template-end markers.
Nothing is written when any region fails to render.`,
		Args: cobra.ArbitraryArgs,
		RunE: runMode(discovery.ModeUpdate),
	}
	updateCmd.Flags().StringP("filename", "f", "", "Required. File to update in place")
	_ = updateCmd.MarkFlagRequired("filename")

	rootCmd.AddCommand(printCmd, createCmd, updateCmd)
	return rootCmd
}

// runMode returns the RunE shared by every subcommand.
func runMode(mode discovery.Mode) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		cfgFile, _ := cmd.Flags().GetString("config")
		profileName, _ := cmd.Flags().GetString("profile")
		opts, logger, err := config.LoadAndValidate(cfgFile, profileName, version, mode, args, cmd.Flags())
		if err != nil {
			return err
		}

		// The progress display draws on stderr.
		if opts.TuiEnabled && !term.IsTerminal(int(os.Stderr.Fd())) {
			opts.TuiEnabled = false
		}

		return cli.Run(ctx, opts, logger, cmd.OutOrStdout())
	}
}

// Execute runs the root command and returns its error.
func Execute() error {
	return newRootCmd().Execute()
}
