package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tradewinds/internal/common"
)

// createTestStorage opens a migrated database in a temp dir.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func sampleRecord(id string) *SessionRecord {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	return &SessionRecord{
		ID:                   id,
		ProductName:          "Motor",
		HSCode:               "8501.10",
		ManufacturingCountry: "CN",
		DestinationCountry:   "US",
		DeclaredValue:        1000,
		RiskScore:            39,
		Payload:              []byte(`{"analysis_id":"` + id + `"}`),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Running again is a no-op.
	require.NoError(t, store.Migrate(ctx))

	var indexCount int
	err = store.db.QueryRow(`
		SELECT COUNT(*) FROM sqlite_master
		WHERE type='index' AND name IN ('idx_sessions_hs_code', 'idx_sessions_created_at')
	`).Scan(&indexCount)
	require.NoError(t, err)
	assert.Equal(t, 2, indexCount)
}

func TestMigrate_Versions(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.Version, "migrations must be sequential")
		assert.NotEmpty(t, m.Description)
	}
	assert.Equal(t, ExpectedSchemaVersion, migrations[len(migrations)-1].Version)
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSessions_RoundTrip(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rec := sampleRecord("abc")
	require.NoError(t, store.CreateSession(ctx, rec))

	got, err := store.GetSession(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, rec.ProductName, got.ProductName)
	assert.Equal(t, rec.HSCode, got.HSCode)
	assert.Equal(t, rec.ManufacturingCountry, got.ManufacturingCountry)
	assert.Equal(t, rec.DestinationCountry, got.DestinationCountry)
	assert.InDelta(t, rec.DeclaredValue, got.DeclaredValue, 1e-9)
	assert.InDelta(t, rec.RiskScore, got.RiskScore, 1e-9)
	assert.JSONEq(t, string(rec.Payload), string(got.Payload))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, 0, got.Revision)

	count, err := store.CountSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessions_Errors(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.CreateSession(ctx, sampleRecord("dup")))

	tests := []struct {
		name   string
		run    func() error
		wantIs error
	}{
		{
			name:   "duplicate create",
			run:    func() error { return store.CreateSession(ctx, sampleRecord("dup")) },
			wantIs: common.ErrDuplicateEntry,
		},
		{
			name:   "nil record",
			run:    func() error { return store.CreateSession(ctx, nil) },
			wantIs: ErrNilParameter,
		},
		{
			name: "missing payload",
			run: func() error {
				rec := sampleRecord("p")
				rec.Payload = nil
				return store.CreateSession(ctx, rec)
			},
			wantIs: ErrInvalidSession,
		},
		{
			name: "non-finite value",
			run: func() error {
				rec := sampleRecord("nan")
				rec.DeclaredValue = math.NaN()
				return store.CreateSession(ctx, rec)
			},
			wantIs: ErrInvalidSession,
		},
		{
			name:   "get missing",
			run:    func() error { _, err := store.GetSession(ctx, "nope"); return err },
			wantIs: common.ErrNotFound,
		},
		{
			name:   "update missing",
			run:    func() error { return store.UpdateSession(ctx, sampleRecord("nope")) },
			wantIs: common.ErrNotFound,
		},
		{
			name:   "nil context",
			run:    func() error { return store.CreateSession(nil, sampleRecord("x")) }, //nolint:staticcheck // testing nil context
			wantIs: ErrNilContext,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.run(), tt.wantIs)
		})
	}
}

func TestSessions_Update(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	rec := sampleRecord("upd")
	require.NoError(t, store.CreateSession(ctx, rec))

	rec.HSCode = "8504.40"
	rec.DestinationCountry = "DE"
	rec.Payload = []byte(`{"analysis_id":"upd","hs_code":"8504.40"}`)
	rec.UpdatedAt = rec.UpdatedAt.Add(time.Hour)
	require.NoError(t, store.UpdateSession(ctx, rec))
	require.NoError(t, store.UpdateSession(ctx, rec))

	got, err := store.GetSession(ctx, "upd")
	require.NoError(t, err)
	assert.Equal(t, "8504.40", got.HSCode)
	assert.Equal(t, "DE", got.DestinationCountry)
	assert.Equal(t, 2, got.Revision)
	assert.True(t, rec.UpdatedAt.Equal(got.UpdatedAt))
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt), "created_at is not rewritten")
}

func TestSessions_CanceledContext(t *testing.T) {
	store := createTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.CountSessions(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
