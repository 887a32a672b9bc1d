package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/intel"
	"github.com/Veraticus/tradewinds/internal/model"
)

// Service runs analyses and manages their sessions.
type Service struct {
	deps Deps
}

// NewService creates a new analysis service with the provided dependencies.
func NewService(deps Deps) (*Service, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	deps.applyDefaults()
	return &Service{deps: deps}, nil
}

// Analyze classifies a product and runs every downstream stage, then stores
// the result as a new session.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	logger := s.deps.Logger.With("product", req.ProductName)

	classification, err := s.deps.Classifier.Classify(ctx, classify.Input{
		ProductName:   req.ProductName,
		Description:   req.Description,
		ImageBase64:   req.ImageBase64,
		ImageMIMEType: req.ImageMIMEType,
		APIKey:        req.APIKey,
	})
	if err != nil {
		return nil, err
	}

	tariffSummary := s.deps.Tariffs.Resolve(
		classification.HSCode, req.ManufacturingCountry, req.DestinationCountry, req.DeclaredValue)

	riskScore := s.deps.Risk.Score(
		req.ManufacturingCountry, req.DestinationCountry, tariffSummary.TotalDutyPercent, classification.Materials)

	mapFlow := s.mapFlow(classification.HSCode, req.ManufacturingCountry, req.DestinationCountry, classification.Materials)

	tradeIntel := s.deps.Intel.Generate(ctx, intel.Input{
		FallbackInput: intel.FallbackInput{
			ProductName:   req.ProductName,
			HSCode:        classification.HSCode,
			Origin:        req.ManufacturingCountry,
			Destination:   req.DestinationCountry,
			DeclaredValue: req.DeclaredValue,
			Tariff:        tariffSummary,
			RiskScore:     riskScore,
		},
		AIExplanation: classification.Explanation,
		APIKey:        req.APIKey,
	})

	now := s.deps.Now().UTC()
	session := &Session{
		ID:                   s.deps.NewID(),
		CreatedAt:            now,
		UpdatedAt:            now,
		ProductName:          req.ProductName,
		HSCode:               classification.HSCode,
		Confidence:           classification.Confidence,
		Explanation:          classification.Explanation,
		ResolvedDescription:  classification.ResolvedDescription,
		ManufacturingCountry: req.ManufacturingCountry,
		DestinationCountry:   req.DestinationCountry,
		DeclaredValue:        req.DeclaredValue,
		Materials:            classification.Materials,
		TariffSummary:        tariffSummary,
		RiskScore:            riskScore,
		MapFlow:              mapFlow,
		RecentInsights:       tradeIntel.RecentInsights,
		ShippingOptions:      tradeIntel.ShippingOptions,
		ComplianceChecks:     tradeIntel.ComplianceChecks,
	}

	if err := s.deps.Sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store analysis: %w", err)
	}

	logger.Info("Analysis completed",
		"analysis_id", session.ID,
		"hs_code", session.HSCode,
		"total_duty_percent", tariffSummary.TotalDutyPercent,
		"risk_score", riskScore)

	return session, nil
}

// Recalculate re-runs tariff, risk and map flow for a stored session with the
// request's overrides applied, and saves the result. The manufacturing
// country always comes from the stored session.
func (s *Service) Recalculate(ctx context.Context, req RecalculateRequest) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, err := s.load(ctx, req.AnalysisID)
	if err != nil {
		return nil, err
	}

	if req.HSCode != "" {
		session.HSCode = req.HSCode
	}
	if len(req.Materials) > 0 {
		session.Materials = model.CloneMaterials(req.Materials)
	}
	if req.DestinationCountry != "" {
		session.DestinationCountry = req.DestinationCountry
	}
	if req.DeclaredValue > 0 {
		session.DeclaredValue = req.DeclaredValue
	}

	session.TariffSummary = s.deps.Tariffs.Resolve(
		session.HSCode, session.ManufacturingCountry, session.DestinationCountry, session.DeclaredValue)
	session.RiskScore = s.deps.Risk.Score(
		session.ManufacturingCountry, session.DestinationCountry, session.TariffSummary.TotalDutyPercent, session.Materials)
	session.MapFlow = s.mapFlow(session.HSCode, session.ManufacturingCountry, session.DestinationCountry, session.Materials)
	session.UpdatedAt = s.deps.Now().UTC()

	if err := s.deps.Sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to store recalculated analysis: %w", err)
	}

	s.deps.Logger.Info("Analysis recalculated",
		"analysis_id", session.ID,
		"hs_code", session.HSCode,
		"destination", session.DestinationCountry,
		"risk_score", session.RiskScore)

	return session, nil
}

// Report summarizes a stored session.
func (s *Service) Report(ctx context.Context, analysisID string) (*Report, error) {
	session, err := s.load(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	return &Report{
		AnalysisID: session.ID,
		HSCode:     session.HSCode,
		Materials:  session.Materials,
		Summary: fmt.Sprintf("HS %s shipment from %s to %s with declared value $%s.",
			session.HSCode, session.ManufacturingCountry, session.DestinationCountry,
			common.Money(session.DeclaredValue).StringFixed(2)),
	}, nil
}

// Session returns a stored session.
func (s *Service) Session(ctx context.Context, analysisID string) (*Session, error) {
	return s.load(ctx, analysisID)
}

// SessionCount returns the number of stored sessions.
func (s *Service) SessionCount(ctx context.Context) (int, error) {
	return s.deps.Sessions.Count(ctx)
}

func (s *Service) load(ctx context.Context, analysisID string) (*Session, error) {
	if analysisID == "" {
		return nil, ErrAnalysisNotFound
	}
	session, err := s.deps.Sessions.Get(ctx, analysisID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return session, nil
}

// mapFlow builds the flow and hands it to the globe writer. Write failures
// are logged and otherwise ignored.
func (s *Service) mapFlow(hsCode, origin, destination string, materials []model.Material) []model.MapFlowEntry {
	flow := BuildMapFlow(hsCode, origin, destination, materials)
	if s.deps.Globe != nil {
		if err := s.deps.Globe.Write(flow); err != nil {
			s.deps.Logger.Warn("Failed to write globe data", "error", err)
		}
	}
	return flow
}
