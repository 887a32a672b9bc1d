// Package analysis runs the trade compliance pipeline: classification, tariff
// resolution, risk scoring, map flow and trade intelligence, and keeps the
// results as sessions that can be recalculated and reported on.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/risk"
)

// Validation limits for incoming requests.
const (
	MinProductNameLength = 2
	MinDescriptionLength = 5
)

var (
	// ErrAnalysisNotFound is returned when a session ID is unknown.
	ErrAnalysisNotFound = errors.New("Analysis ID not found.") //nolint:revive,staticcheck // user-facing message
	// ErrValidation marks request validation failures.
	ErrValidation = errors.New("validation failed")
)

// ValidationError describes one invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match validation failures with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Session is a completed analysis.
type Session struct {
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
	ID                   string                  `json:"analysis_id"`
	ProductName          string                  `json:"product_name"`
	HSCode               string                  `json:"hs_code"`
	Explanation          string                  `json:"explanation"`
	ResolvedDescription  string                  `json:"resolved_description,omitempty"`
	ManufacturingCountry string                  `json:"manufacturing_country"`
	DestinationCountry   string                  `json:"destination_country"`
	Materials            []model.Material        `json:"materials"`
	MapFlow              []model.MapFlowEntry    `json:"map_flow"`
	RecentInsights       []model.Insight         `json:"recent_insights"`
	ShippingOptions      []model.ShippingOption  `json:"shipping_options"`
	ComplianceChecks     []model.ComplianceCheck `json:"compliance_checks"`
	TariffSummary        model.TariffSummary     `json:"tariff_summary"`
	Confidence           float64                 `json:"confidence"`
	DeclaredValue        float64                 `json:"declared_value"`
	RiskScore            float64                 `json:"risk_score"`
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Materials = model.CloneMaterials(s.Materials)
	c.MapFlow = cloneSlice(s.MapFlow)
	c.RecentInsights = cloneSlice(s.RecentInsights)
	c.ShippingOptions = cloneSlice(s.ShippingOptions)
	c.ComplianceChecks = cloneSlice(s.ComplianceChecks)
	return &c
}

// TradeIntel returns the intelligence cards stored on the session.
func (s *Session) TradeIntel() model.TradeIntel {
	return model.TradeIntel{
		RecentInsights:   s.RecentInsights,
		ShippingOptions:  s.ShippingOptions,
		ComplianceChecks: s.ComplianceChecks,
	}
}

// RiskLevel buckets the session's risk score.
func (s *Session) RiskLevel() string {
	return risk.Level(s.RiskScore)
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Report is the short summary produced for a stored session.
type Report struct {
	AnalysisID string           `json:"analysis_id"`
	HSCode     string           `json:"hs_code"`
	Summary    string           `json:"summary"`
	Materials  []model.Material `json:"materials"`
}

// AnalyzeRequest starts a new analysis.
type AnalyzeRequest struct {
	ProductName          string  `json:"product_name"`
	Description          string  `json:"description,omitempty"`
	ImageBase64          string  `json:"image_base64,omitempty"`
	ImageMIMEType        string  `json:"image_mime_type,omitempty"`
	ManufacturingCountry string  `json:"manufacturing_country"`
	DestinationCountry   string  `json:"destination_country"`
	APIKey               string  `json:"groq_api_key,omitempty"`
	DeclaredValue        float64 `json:"declared_value"`
}

// Normalize trims and canonicalizes the request fields in place.
func (r *AnalyzeRequest) Normalize() {
	r.ProductName = strings.TrimSpace(r.ProductName)
	r.Description = strings.TrimSpace(r.Description)
	r.ImageBase64 = strings.TrimSpace(r.ImageBase64)
	r.ImageMIMEType = strings.ToLower(strings.TrimSpace(r.ImageMIMEType))
	r.ManufacturingCountry = strings.ToUpper(strings.TrimSpace(r.ManufacturingCountry))
	r.DestinationCountry = strings.ToUpper(strings.TrimSpace(r.DestinationCountry))
	r.APIKey = strings.TrimSpace(r.APIKey)
}

// Validate normalizes the request and checks it.
func (r *AnalyzeRequest) Validate() error {
	r.Normalize()

	if len([]rune(r.ProductName)) < MinProductNameLength {
		return invalid("product_name", "must be at least %d characters long", MinProductNameLength)
	}
	if r.Description != "" && len([]rune(r.Description)) < MinDescriptionLength {
		return invalid("description", "Description must be at least %d characters long", MinDescriptionLength)
	}
	if err := validateCountry("manufacturing_country", r.ManufacturingCountry); err != nil {
		return err
	}
	if err := validateCountry("destination_country", r.DestinationCountry); err != nil {
		return err
	}
	if err := validateDeclaredValue(r.DeclaredValue); err != nil {
		return err
	}
	if r.Description == "" && r.ImageBase64 == "" {
		return invalid("description", "Either description or image_base64 is required")
	}
	return nil
}

// RecalculateRequest re-runs the deterministic stages of a stored analysis
// with optional overrides. Zero values mean "keep the stored value".
type RecalculateRequest struct {
	AnalysisID         string           `json:"analysis_id"`
	DestinationCountry string           `json:"destination_country,omitempty"`
	HSCode             string           `json:"hs_code,omitempty"`
	Materials          []model.Material `json:"materials,omitempty"`
	DeclaredValue      float64          `json:"declared_value,omitempty"`
}

// Validate normalizes the request and checks any supplied overrides.
func (r *RecalculateRequest) Validate() error {
	r.AnalysisID = strings.TrimSpace(r.AnalysisID)
	r.DestinationCountry = strings.ToUpper(strings.TrimSpace(r.DestinationCountry))
	r.HSCode = strings.TrimSpace(r.HSCode)

	if r.AnalysisID == "" {
		return invalid("analysis_id", "is required")
	}
	if r.DestinationCountry != "" {
		if err := validateCountry("destination_country", r.DestinationCountry); err != nil {
			return err
		}
	}
	if r.DeclaredValue != 0 {
		if err := validateDeclaredValue(r.DeclaredValue); err != nil {
			return err
		}
	}
	for i := range r.Materials {
		if err := validateMaterial(i, &r.Materials[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateMaterial(i int, m *model.Material) error {
	field := fmt.Sprintf("materials[%d]", i)

	m.ID = strings.TrimSpace(m.ID)
	m.Name = strings.TrimSpace(m.Name)
	m.Stage = strings.TrimSpace(m.Stage)
	m.OriginCountry = strings.ToUpper(strings.TrimSpace(m.OriginCountry))

	if m.ID == "" {
		m.ID = fmt.Sprintf("mat-%d", i+1)
	}
	if m.Name == "" {
		return invalid(field+".name", "is required")
	}
	if math.IsNaN(m.Percentage) || math.IsInf(m.Percentage, 0) || m.Percentage <= 0 {
		return invalid(field+".percentage", "must be greater than 0")
	}
	if m.Stage == "" {
		return invalid(field+".stage", "is required")
	}
	return validateCountry(field+".origin_country", m.OriginCountry)
}

// validateCountry accepts exactly two ASCII letters.
func validateCountry(field, code string) error {
	if len(code) != 2 {
		return invalid(field, "Country must be ISO2 format")
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return invalid(field, "Country must be ISO2 format")
		}
	}
	return nil
}

func validateDeclaredValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return invalid("declared_value", "must be greater than 0")
	}
	return nil
}
