package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/tradewinds/internal/common"
)

var _ SessionStore = (*MemorySessionStore)(nil)

// MemorySessionStore implements SessionStore using in-memory storage.
// Sessions are lost when the process exits.
type MemorySessionStore struct {
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create stores a new analysis session.
func (s *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("%w: session already exists: %s", common.ErrDuplicateEntry, session.ID)
	}

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Get retrieves an analysis session by ID.
func (s *MemorySessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[sessionID]
	if !exists {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}

	return session.Clone(), nil
}

// Update replaces an existing analysis session.
func (s *MemorySessionStore) Update(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, session.ID)
	}

	s.sessions[session.ID] = session.Clone()
	return nil
}

// Count returns the number of stored sessions.
func (s *MemorySessionStore) Count(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions), nil
}

// Close is a no-op for the in-memory store.
func (s *MemorySessionStore) Close() error {
	return nil
}

func validateSession(ctx context.Context, session *Session) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}
	return nil
}

// validateContext ensures the context is valid.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
