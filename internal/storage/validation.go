// Package storage provides the SQLite persistence layer for analysis sessions.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidSession = errors.New("invalid session record")
)

// validateContext ensures the context is usable.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return ctx.Err()
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateSessionRecord checks the columns that are indexed or filtered on.
func validateSessionRecord(rec *SessionRecord) error {
	if rec == nil {
		return fmt.Errorf("%w: session record", ErrNilParameter)
	}
	if err := validateString(rec.ID, "id"); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if len(rec.Payload) == 0 {
		return fmt.Errorf("%w: payload is required", ErrInvalidSession)
	}
	if math.IsNaN(rec.DeclaredValue) || math.IsInf(rec.DeclaredValue, 0) {
		return fmt.Errorf("%w: declared value must be finite", ErrInvalidSession)
	}
	if math.IsNaN(rec.RiskScore) || math.IsInf(rec.RiskScore, 0) {
		return fmt.Errorf("%w: risk score must be finite", ErrInvalidSession)
	}
	return nil
}
