// Package testutil provides test doubles and fixtures for the mcp-discovery
// packages: testify mocks for the library interfaces and an in-memory MCP
// server to discover against.
package testutil

import (
	"io"

	"github.com/stackvity/mcp-discovery/pkg/discovery"
	"github.com/stretchr/testify/mock"
)

// MockHooks provides a mock implementation of the discovery.Hooks interface.
// Configure expectations using testify/mock methods (e.g., .On("OnStageUpdate", ...).Return(nil)).
type MockHooks struct {
	mock.Mock
}

// OnStageUpdate mocks the OnStageUpdate method.
func (m *MockHooks) OnStageUpdate(stage discovery.Stage, status discovery.Status, message string) error {
	args := m.Called(stage, status, message)
	return args.Error(0)
}

// OnDiscoveryComplete mocks the OnDiscoveryComplete method.
func (m *MockHooks) OnDiscoveryComplete(info *discovery.ServerInfo) error {
	args := m.Called(info)
	return args.Error(0)
}

// MockEncodingHandler provides a mock implementation of the encoding.EncodingHandler interface.
type MockEncodingHandler struct {
	mock.Mock
}

// DetectAndDecode mocks the DetectAndDecode method.
func (m *MockEncodingHandler) DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error) {
	args := m.Called(content)
	utf8Content, _ = args.Get(0).([]byte)
	detectedEncoding, _ = args.Get(1).(string)
	certainty, _ = args.Get(2).(bool)
	err = args.Error(3)
	return
}

// Encode mocks the Encode method.
func (m *MockEncodingHandler) Encode(utf8Content []byte, encodingName string) (encoded []byte, err error) {
	args := m.Called(utf8Content, encodingName)
	encoded, _ = args.Get(0).([]byte)
	err = args.Error(1)
	return
}

// IsBinary mocks the IsBinary method.
func (m *MockEncodingHandler) IsBinary(content []byte) bool {
	args := m.Called(content)
	isBinary, _ := args.Get(0).(bool)
	return isBinary
}

// MockTemplateExecutor provides a mock implementation of the template.Executor interface.
// A string first return value is written to the writer.
type MockTemplateExecutor struct {
	mock.Mock
}

// Execute mocks the Execute method.
func (m *MockTemplateExecutor) Execute(w io.Writer, name string, content string, data any) error {
	args := m.Called(name, content, data)
	if out, ok := args.Get(0).(string); ok {
		if _, err := io.WriteString(w, out); err != nil {
			return err
		}
	}
	return args.Error(1)
}
