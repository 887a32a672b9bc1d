package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Veraticus/tradewinds/internal/storage"
)

var _ SessionStore = (*SQLiteSessionStore)(nil)

// SQLiteSessionStore persists sessions as JSON payloads in SQLite.
type SQLiteSessionStore struct {
	db *storage.SQLiteStorage
}

// NewSQLiteSessionStore opens and migrates the database at path.
func NewSQLiteSessionStore(ctx context.Context, path string) (*SQLiteSessionStore, error) {
	db, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate session database: %w", err)
	}

	slog.Info("Session database ready", "path", path)
	return &SQLiteSessionStore{db: db}, nil
}

// Create stores a new analysis session.
func (s *SQLiteSessionStore) Create(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	rec, err := toRecord(session)
	if err != nil {
		return err
	}
	return s.db.CreateSession(ctx, rec)
}

// Get retrieves an analysis session by ID.
func (s *SQLiteSessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	rec, err := s.db.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var session Session
	if err := json.Unmarshal(rec.Payload, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	session.ID = rec.ID
	session.CreatedAt = rec.CreatedAt
	session.UpdatedAt = rec.UpdatedAt

	return &session, nil
}

// Update replaces an existing analysis session.
func (s *SQLiteSessionStore) Update(ctx context.Context, session *Session) error {
	if err := validateSession(ctx, session); err != nil {
		return err
	}

	rec, err := toRecord(session)
	if err != nil {
		return err
	}
	return s.db.UpdateSession(ctx, rec)
}

// Count returns the number of stored sessions.
func (s *SQLiteSessionStore) Count(ctx context.Context) (int, error) {
	return s.db.CountSessions(ctx)
}

// Close closes the underlying database.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

func toRecord(session *Session) (*storage.SessionRecord, error) {
	payload, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}

	return &storage.SessionRecord{
		ID:                   session.ID,
		ProductName:          session.ProductName,
		HSCode:               session.HSCode,
		ManufacturingCountry: session.ManufacturingCountry,
		DestinationCountry:   session.DestinationCountry,
		DeclaredValue:        session.DeclaredValue,
		RiskScore:            session.RiskScore,
		Payload:              payload,
		CreatedAt:            session.CreatedAt,
		UpdatedAt:            session.UpdatedAt,
	}, nil
}
