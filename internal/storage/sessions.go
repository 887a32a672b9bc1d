package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/tradewinds/internal/common"
)

// SessionRecord is one stored analysis. The indexed columns duplicate fields
// of the JSON payload so sessions can be queried without decoding it.
type SessionRecord struct {
	CreatedAt            time.Time
	UpdatedAt            time.Time
	ID                   string
	ProductName          string
	HSCode               string
	ManufacturingCountry string
	DestinationCountry   string
	Payload              []byte
	DeclaredValue        float64
	RiskScore            float64
	Revision             int
}

// CreateSession inserts a new session record.
func (s *SQLiteStorage) CreateSession(ctx context.Context, rec *SessionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSessionRecord(rec); err != nil {
		return err
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_sessions WHERE id = ?`, rec.ID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check session: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%w: session already exists: %s", common.ErrDuplicateEntry, rec.ID)
	}

	query := `
		INSERT INTO analysis_sessions (
			id, product_name, hs_code, manufacturing_country, destination_country,
			declared_value, risk_score, payload, created_at, updated_at, revision
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.ProductName,
		rec.HSCode,
		rec.ManufacturingCountry,
		rec.DestinationCountry,
		rec.DeclaredValue,
		rec.RiskScore,
		string(rec.Payload),
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		rec.Revision,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	slog.Debug("Created analysis session in database",
		"session_id", rec.ID,
		"hs_code", rec.HSCode)

	return nil
}

// GetSession loads a session record by ID.
func (s *SQLiteStorage) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT
			product_name, hs_code, manufacturing_country, destination_country,
			declared_value, risk_score, payload, created_at, updated_at, revision
		FROM analysis_sessions
		WHERE id = ?
	`

	rec := &SessionRecord{ID: id}
	var payload, createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ProductName,
		&rec.HSCode,
		&rec.ManufacturingCountry,
		&rec.DestinationCountry,
		&rec.DeclaredValue,
		&rec.RiskScore,
		&payload,
		&createdAt,
		&updatedAt,
		&rec.Revision,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	rec.Payload = []byte(payload)

	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return rec, nil
}

// UpdateSession overwrites an existing record and bumps its revision.
func (s *SQLiteStorage) UpdateSession(ctx context.Context, rec *SessionRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSessionRecord(rec); err != nil {
		return err
	}

	query := `
		UPDATE analysis_sessions SET
			product_name = ?,
			hs_code = ?,
			manufacturing_country = ?,
			destination_country = ?,
			declared_value = ?,
			risk_score = ?,
			payload = ?,
			updated_at = ?,
			revision = revision + 1
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		rec.ProductName,
		rec.HSCode,
		rec.ManufacturingCountry,
		rec.DestinationCountry,
		rec.DeclaredValue,
		rec.RiskScore,
		string(rec.Payload),
		rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: session %s", common.ErrNotFound, rec.ID)
	}

	slog.Debug("Updated analysis session in database",
		"session_id", rec.ID,
		"hs_code", rec.HSCode)

	return nil
}

// CountSessions returns the number of stored sessions.
func (s *SQLiteStorage) CountSessions(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}
