package analysis

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Deps contains all dependencies required by the analysis service.
type Deps struct {
	// Classifier turns a product into an HS code and materials.
	Classifier Classifier
	// Tariffs resolves duty rates.
	Tariffs TariffResolver
	// Risk scores shipments.
	Risk RiskScorer
	// Intel generates trade intelligence cards.
	Intel IntelGenerator
	// Sessions persists completed analyses.
	Sessions SessionStore
	// Globe receives the latest map flow. Optional.
	Globe FlowWriter
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// NewID defaults to random UUIDs.
	NewID func() string
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Classifier == nil {
		return fmt.Errorf("classifier dependency is required")
	}
	if d.Tariffs == nil {
		return fmt.Errorf("tariff resolver dependency is required")
	}
	if d.Risk == nil {
		return fmt.Errorf("risk scorer dependency is required")
	}
	if d.Intel == nil {
		return fmt.Errorf("intel generator dependency is required")
	}
	if d.Sessions == nil {
		return fmt.Errorf("session store dependency is required")
	}
	return nil
}

func (d *Deps) applyDefaults() {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewID == nil {
		d.NewID = func() string { return uuid.New().String() }
	}
}
