// Package snapshot persists discovered server information so documents can be
// rendered later without launching the server again.
package snapshot

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/util"
)

// Header is written at the start of every snapshot and checked on Load.
type Header struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonSnapshot struct {
	Header Header                `json:"header"`
	Server *discovery.ServerInfo `json:"server"`
}

// Store saves and loads snapshots in one serialization format.
type Store struct {
	logger        *slog.Logger
	schemaVersion string
	toolVersion   string
	format        discovery.SnapshotFormat
}

// NewStore creates a Store. An empty format is inferred per file from its
// extension: ".gob" selects gob, anything else JSON.
func NewStore(handler slog.Handler, toolVersion string, format discovery.SnapshotFormat) *Store {
	if handler == nil {
		handler = slog.NewTextHandler(io.Discard, nil)
	}
	if toolVersion == "" {
		toolVersion = "dev"
	}
	return &Store{
		logger:        slog.New(handler).With(slog.String("component", "snapshotStore")),
		schemaVersion: discovery.SnapshotSchemaVersion,
		toolVersion:   toolVersion,
		format:        format,
	}
}

func (s *Store) formatFor(path string) discovery.SnapshotFormat {
	if s.format != "" {
		return s.format
	}
	if strings.EqualFold(filepath.Ext(path), ".gob") {
		return discovery.SnapshotGob
	}
	return discovery.DefaultSnapshotFormat
}

// Save writes info to path through a temporary file and rename, creating the
// parent directory when needed.
func (s *Store) Save(path string, info *discovery.ServerInfo) error {
	if info == nil {
		return fmt.Errorf("%w: no server information to save", discovery.ErrSnapshot)
	}
	format := s.formatFor(path)
	header := Header{SchemaVersion: s.schemaVersion, ToolVersion: s.toolVersion}

	var buf bytes.Buffer
	switch format {
	case discovery.SnapshotGob:
		enc := gob.NewEncoder(&buf)
		if err := enc.Encode(header); err != nil {
			return fmt.Errorf("%w: failed to encode header: %w", discovery.ErrSnapshot, err)
		}
		if err := enc.Encode(info); err != nil {
			return fmt.Errorf("%w: failed to encode server information: %w", discovery.ErrSnapshot, err)
		}
	case discovery.SnapshotJSON:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonSnapshot{Header: header, Server: info}); err != nil {
			return fmt.Errorf("%w: failed to encode snapshot: %w", discovery.ErrSnapshot, err)
		}
	default:
		return fmt.Errorf("%w: unsupported format '%s'", discovery.ErrSnapshot, format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: failed to create directory for '%s': %w", discovery.ErrSnapshot, path, err)
	}
	if err := util.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("%w: %w", discovery.ErrSnapshot, err)
	}
	s.logger.Info("Snapshot saved", slog.String("path", path), slog.String("format", string(format)), slog.String("server", info.Name))
	return nil
}

// Load reads a snapshot written by Save. A schema version other than the
// current one is an error; a different tool version only logs a warning.
func (s *Store) Load(path string) (*discovery.ServerInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read '%s': %w", discovery.ErrSnapshot, path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: '%s' is empty", discovery.ErrSnapshot, path)
	}

	format := s.formatFor(path)
	var (
		header Header
		info   *discovery.ServerInfo
	)
	switch format {
	case discovery.SnapshotGob:
		dec := gob.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&header); err != nil {
			return nil, fmt.Errorf("%w: failed to decode header of '%s': %w", discovery.ErrSnapshot, path, err)
		}
		if err := s.checkHeader(path, header); err != nil {
			return nil, err
		}
		info = &discovery.ServerInfo{}
		if err := dec.Decode(info); err != nil {
			return nil, fmt.Errorf("%w: failed to decode server information in '%s': %w", discovery.ErrSnapshot, path, err)
		}
	case discovery.SnapshotJSON:
		var snap jsonSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("%w: failed to decode '%s': %w", discovery.ErrSnapshot, path, err)
		}
		header = snap.Header
		if err := s.checkHeader(path, header); err != nil {
			return nil, err
		}
		info = snap.Server
	default:
		return nil, fmt.Errorf("%w: unsupported format '%s'", discovery.ErrSnapshot, format)
	}

	if info == nil {
		return nil, fmt.Errorf("%w: '%s' holds no server information", discovery.ErrSnapshot, path)
	}
	s.logger.Info("Snapshot loaded", slog.String("path", path), slog.String("server", info.Name), slog.String("savedBy", header.ToolVersion))
	return info, nil
}

var errSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) checkHeader(path string, header Header) error {
	if header.SchemaVersion != s.schemaVersion {
		return fmt.Errorf("%w: %w in '%s': found '%s', expected '%s'",
			discovery.ErrSnapshot, errSchemaMismatch, path, header.SchemaVersion, s.schemaVersion)
	}
	if header.ToolVersion != s.toolVersion && header.ToolVersion != "dev" && s.toolVersion != "dev" {
		s.logger.Warn("Snapshot was written by a different version",
			slog.String("path", path), slog.String("snapshotVersion", header.ToolVersion), slog.String("currentVersion", s.toolVersion))
	}
	return nil
}
