package snapshot_test

import (
	"bytes"
	"encoding/gob"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stackvity/mcp-discovery/pkg/discovery/snapshot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInfo() *discovery.ServerInfo {
	return &discovery.ServerInfo{
		Name:            "fixture-server",
		Version:         "1.4.2",
		ProtocolVersion: "2025-06-18",
		Capabilities:    discovery.Capabilities{Tools: true, Resources: true},
		Tools: []discovery.ToolMeta{{
			Name: "add_note",
			Params: []discovery.ToolParam{{
				Name: "note",
				Type: discovery.Object(
					discovery.ToolParam{Name: "tags", Type: discovery.ArrayOf(discovery.Primitive("string"))},
					discovery.ToolParam{Name: "title", Type: discovery.Primitive("string"), Required: true},
				),
				Required: true,
			}},
		}},
		Resources: []discovery.Resource{{URI: "file:///docs/readme.md", Name: "readme", Size: 42}},
	}
}

func TestStore_RoundTrip(t *testing.T) {
	testCases := []struct {
		name   string
		file   string
		format discovery.SnapshotFormat
	}{
		{name: "JSON", file: "server.json", format: discovery.SnapshotJSON},
		{name: "Gob", file: "server.snapshot", format: discovery.SnapshotGob},
		{name: "Gob inferred from extension", file: "server.gob"},
		{name: "JSON inferred by default", file: "server.snapshot"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "snapshots", tc.file)
			store := snapshot.NewStore(nil, "v1.0.0", tc.format)

			require.NoError(t, store.Save(path, sampleInfo()))
			loaded, err := store.Load(path)
			require.NoError(t, err)
			assert.Equal(t, sampleInfo(), loaded)
		})
	}
}

func TestStore_JSONLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, snapshot.NewStore(nil, "v1.0.0", discovery.SnapshotJSON).Save(path, sampleInfo()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"schemaVersion": "`+discovery.SnapshotSchemaVersion+`"`)
	assert.Contains(t, string(data), `"toolVersion": "v1.0.0"`)
	assert.Contains(t, string(data), `"name": "fixture-server"`)
}

func TestStore_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "old.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"header":{"schemaVersion":"0.1","toolVersion":"v0"},"server":{"name":"x"}}`), 0o644))

	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	require.NoError(t, enc.Encode(snapshot.Header{SchemaVersion: "0.1", ToolVersion: "v0"}))
	require.NoError(t, enc.Encode(sampleInfo()))
	gobPath := filepath.Join(dir, "old.gob")
	require.NoError(t, os.WriteFile(gobPath, buf.Bytes(), 0o644))

	store := snapshot.NewStore(nil, "v1.0.0", "")
	for _, path := range []string{jsonPath, gobPath} {
		_, err := store.Load(path)
		require.Error(t, err, path)
		assert.ErrorIs(t, err, discovery.ErrSnapshot)
		assert.Contains(t, err.Error(), "schema version mismatch")
	}
}

func TestStore_ToolVersionMismatchWarns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.json")
	require.NoError(t, snapshot.NewStore(nil, "v1.0.0", "").Save(path, sampleInfo()))

	var logs bytes.Buffer
	store := snapshot.NewStore(slog.NewTextHandler(&logs, nil), "v2.0.0", "")
	info, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fixture-server", info.Name)
	assert.Contains(t, logs.String(), "Snapshot was written by a different version")
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	noServer := filepath.Join(dir, "noserver.json")
	require.NoError(t, os.WriteFile(noServer, []byte(`{"header":{"schemaVersion":"`+discovery.SnapshotSchemaVersion+`"}}`), 0o644))

	testCases := []struct {
		name    string
		path    string
		message string
	}{
		{name: "Missing file", path: filepath.Join(dir, "missing.json"), message: "failed to read"},
		{name: "Empty file", path: empty, message: "is empty"},
		{name: "Corrupt file", path: corrupt, message: "failed to decode"},
		{name: "No server section", path: noServer, message: "holds no server information"},
	}

	store := snapshot.NewStore(nil, "v1.0.0", "")
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := store.Load(tc.path)
			require.Error(t, err)
			assert.ErrorIs(t, err, discovery.ErrSnapshot)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestStore_SaveNil(t *testing.T) {
	err := snapshot.NewStore(nil, "", "").Save(filepath.Join(t.TempDir(), "x.json"), nil)
	assert.ErrorIs(t, err, discovery.ErrSnapshot)
}
