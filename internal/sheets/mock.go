package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/tradewinds/internal/analysis"
)

// MockWriter records Write calls for tests.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, sessions []*analysis.Session) (string, error)
	WriteCalls     []WriteCall
	LastSessions   []*analysis.Session
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to Write.
type WriteCall struct {
	Error    error
	Sessions []*analysis.Session
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

// Write records the call and returns the result of WriteFunc, if set.
func (m *MockWriter) Write(ctx context.Context, sessions []*analysis.Session) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastSessions = sessions

	id := "mock-spreadsheet"
	var err error
	if m.WriteFunc != nil {
		id, err = m.WriteFunc(ctx, sessions)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{Sessions: sessions, Error: err})
	return id, err
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError makes every later Write call fail with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, []*analysis.Session) (string, error) {
		return "", err
	}
}
