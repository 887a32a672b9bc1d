package analysis

import (
	"context"

	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/intel"
	"github.com/Veraticus/tradewinds/internal/model"
)

// SessionStore manages analysis session persistence.
type SessionStore interface {
	// Create stores a new session. It fails if the ID is taken.
	Create(ctx context.Context, session *Session) error
	// Get retrieves a session by ID. Missing sessions wrap common.ErrNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)
	// Update replaces an existing session.
	Update(ctx context.Context, session *Session) error
	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)
	// Close releases any resources held by the store.
	Close() error
}

// Classifier produces an HS code and material breakdown for a product.
type Classifier interface {
	Classify(ctx context.Context, in classify.Input) (model.ClassificationResult, error)
}

// IntelGenerator produces trade intelligence cards. It never fails.
type IntelGenerator interface {
	Generate(ctx context.Context, in intel.Input) model.TradeIntel
}

// TariffResolver resolves the duty for a shipment.
type TariffResolver interface {
	Resolve(hsCode, origin, destination string, declaredValue float64) model.TariffSummary
}

// RiskScorer scores the compliance risk of a shipment.
type RiskScorer interface {
	Score(origin, destination string, totalDutyPercent float64, materials []model.Material) float64
}

// FlowWriter persists the latest map flow.
type FlowWriter interface {
	Write(flow []model.MapFlowEntry) error
}
