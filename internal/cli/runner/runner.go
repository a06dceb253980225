// Package runner reaches the MCP server being documented: it launches a local
// server process or prepares an HTTP client for a remote one.
package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stackvity/mcp-discovery/pkg/discovery"
)

const (
	// maxStderrBytes bounds how much server stderr is forwarded to the log.
	maxStderrBytes = 10 * 1024 * 1024 // 10 MiB
	// maxStderrLine flushes a line that grows past this without a newline.
	maxStderrLine = 64 * 1024
)

// ServerLauncher builds the transport for the configured MCP server.
type ServerLauncher struct {
	logger *slog.Logger
}

// NewServerLauncher creates a ServerLauncher. A nil handler discards logs.
func NewServerLauncher(loggerHandler slog.Handler) *ServerLauncher {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	return &ServerLauncher{
		logger: slog.New(loggerHandler).With(slog.String("component", "serverRunner")),
	}
}

// Transport returns an mcp.Transport for opts. The command transport starts the
// server when the client connects; ctx bounds the life of that process.
func (l *ServerLauncher) Transport(ctx context.Context, opts *discovery.Options) (mcp.Transport, error) {
	switch opts.Transport {
	case discovery.TransportCommand, "":
		cmd, err := l.Command(ctx, opts)
		if err != nil {
			return nil, err
		}
		return &mcp.CommandTransport{Command: cmd}, nil
	case discovery.TransportSSE:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("%w: the sse transport requires an endpoint", discovery.ErrConfigValidation)
		}
		l.logger.Debug("Using SSE transport", slog.String("endpoint", opts.Endpoint), slog.Int("headers", len(opts.Headers)))
		return &mcp.SSEClientTransport{Endpoint: opts.Endpoint, HTTPClient: httpClient(opts.Headers)}, nil
	case discovery.TransportStreamable:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("%w: the streamable transport requires an endpoint", discovery.ErrConfigValidation)
		}
		l.logger.Debug("Using streamable HTTP transport", slog.String("endpoint", opts.Endpoint), slog.Int("headers", len(opts.Headers)))
		return &mcp.StreamableClientTransport{Endpoint: opts.Endpoint, HTTPClient: httpClient(opts.Headers)}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported transport '%s'", discovery.ErrConfigValidation, opts.Transport)
	}
}

// Command builds the server process with the merged environment and its
// stderr forwarded line by line to the debug log.
func (l *ServerLauncher) Command(ctx context.Context, opts *discovery.Options) (*exec.Cmd, error) {
	if len(opts.Command) == 0 || strings.TrimSpace(opts.Command[0]) == "" {
		return nil, fmt.Errorf("%w: server command cannot be empty", discovery.ErrConfigValidation)
	}

	env, err := MergeEnv(os.Environ(), opts.EnvFile, opts.Env)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, opts.Command[0], opts.Command[1:]...)
	cmd.Env = env
	cmd.Stderr = newStderrLogger(l.logger, maxStderrBytes)

	l.logger.Debug("Prepared server command",
		slog.String("command", strings.Join(opts.Command, " ")),
		slog.String("envFile", opts.EnvFile),
		slog.Int("extraEnv", len(opts.Env)))
	return cmd, nil
}

// MergeEnv layers environment variables: base (KEY=VALUE entries), then the
// dotenv file at envFile when set, then extra. Later layers win. The result is
// sorted by key.
func MergeEnv(base []string, envFile string, extra map[string]string) ([]string, error) {
	merged := make(map[string]string, len(base)+len(extra))
	for _, kv := range base {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		merged[key] = value
	}

	if envFile != "" {
		fileEnv, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read env file '%s': %w", discovery.ErrConfigValidation, envFile, err)
		}
		maps.Copy(merged, fileEnv)
	}
	maps.Copy(merged, extra)

	out := make([]string, 0, len(merged))
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		out = append(out, key+"="+merged[key])
	}
	return out, nil
}

func httpClient(headers map[string]string) *http.Client {
	client := &http.Client{}
	if len(headers) > 0 {
		client.Transport = &headerRoundTripper{transport: http.DefaultTransport, headers: headers}
	}
	return client
}

// headerRoundTripper adds static headers to every request.
type headerRoundTripper struct {
	transport http.RoundTripper
	headers   map[string]string
}

// RoundTrip implements http.RoundTripper.
func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	newReq := req.Clone(req.Context())
	for key, value := range h.headers {
		newReq.Header.Set(key, value)
	}
	return h.transport.RoundTrip(newReq)
}

// stderrLogger is an io.Writer that logs each complete line at debug level
// until limit bytes have been seen.
type stderrLogger struct {
	logger    *slog.Logger
	limit     int64
	mu        sync.Mutex
	buf       bytes.Buffer
	written   int64
	truncated bool
}

func newStderrLogger(logger *slog.Logger, limit int64) *stderrLogger {
	return &stderrLogger{logger: logger, limit: limit}
}

// Write implements io.Writer. It never fails so the server is not blocked on its stderr.
func (s *stderrLogger) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(p)
	if s.truncated {
		return n, nil
	}
	if remaining := s.limit - s.written; int64(len(p)) > remaining {
		p = p[:remaining]
		s.truncated = true
	}
	s.written += int64(len(p))
	s.buf.Write(p)

	for {
		line, err := s.buf.ReadString('\n')
		if err != nil {
			// Incomplete line: keep it for the next write unless it is too long.
			if len(line) >= maxStderrLine {
				s.logLine(line)
			} else {
				s.buf.Reset()
				s.buf.WriteString(line)
			}
			break
		}
		s.logLine(line)
	}

	if s.truncated {
		if s.buf.Len() > 0 {
			s.logLine(s.buf.String())
			s.buf.Reset()
		}
		s.logger.Warn("Server stderr truncated", slog.Int64("limit_bytes", s.limit))
	}
	return n, nil
}

func (s *stderrLogger) logLine(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	s.logger.Debug("Server stderr", slog.String("line", line))
}
