// Package intel produces the trade intelligence cards shown after an
// analysis: market insights, shipping options and a compliance checklist.
package intel

import (
	"fmt"
	"math"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/risk"
)

// Fixed transit estimates for the fallback shipping options, in days.
const (
	seaETADays  = 30
	airETADays  = 8
	railETADays = 18
)

// Thresholds that turn fallback compliance checks into warnings.
const (
	originWarnRiskScore      = 55
	documentationWarnPercent = 15
)

// FallbackInput carries everything the deterministic fallback depends on.
type FallbackInput struct {
	ProductName   string
	HSCode        string
	Origin        string
	Destination   string
	Tariff        model.TariffSummary
	DeclaredValue float64
	RiskScore     float64
}

// BuildFallback returns the deterministic intelligence bundle used whenever
// the model is unavailable or its answer is unusable.
func BuildFallback(in FallbackInput) model.TradeIntel {
	level := risk.Level(in.RiskScore)
	duty := in.Tariff.TotalDutyPercent
	route := fmt.Sprintf("%s -> %s", in.Origin, in.Destination)

	seaRisk := "Low"
	if level == "High" {
		seaRisk = "Medium"
	}

	originStatus := model.CompliancePass
	if in.RiskScore >= originWarnRiskScore {
		originStatus = model.ComplianceWarn
	}
	docsStatus := model.CompliancePass
	if duty >= documentationWarnPercent {
		docsStatus = model.ComplianceWarn
	}

	return model.TradeIntel{
		RecentInsights: []model.Insight{
			{
				Title: "Duty pressure signal",
				Detail: fmt.Sprintf("AI expects tariff pressure near %.2f%% for HS %s on %s->%s.",
					duty, in.HSCode, in.Origin, in.Destination),
			},
			{
				Title:  "Supply concentration",
				Detail: "AI flags concentration risk when sourcing depends on a limited set of origin countries.",
			},
			{
				Title:  "Clearance planning",
				Detail: "AI suggests pre-validating customs documents to avoid delay spikes for medium/high risk lanes.",
			},
		},
		ShippingOptions: []model.ShippingOption{
			{
				Mode:             "SEA",
				Route:            route,
				ETADays:          seaETADays,
				EstimatedCostUSD: freightCost(1200, in.DeclaredValue, 0.06),
				RiskLevel:        seaRisk,
				Notes:            "Best for bulk cargo and lower per-unit freight cost.",
			},
			{
				Mode:             "AIR",
				Route:            route,
				ETADays:          airETADays,
				EstimatedCostUSD: freightCost(3200, in.DeclaredValue, 0.18),
				RiskLevel:        "Medium",
				Notes:            "Best for urgent shipments and high-value goods.",
			},
			{
				Mode:             "RAIL/INTERMODAL",
				Route:            route,
				ETADays:          railETADays,
				EstimatedCostUSD: freightCost(1800, in.DeclaredValue, 0.10),
				RiskLevel:        level,
				Notes:            "Balanced transit time and cost when corridor access exists.",
			},
		},
		ComplianceChecks: []model.ComplianceCheck{
			{
				Item:   "HS code and tariff basis recorded",
				Status: model.CompliancePass,
				Note:   fmt.Sprintf("Classification captured under HS %s.", in.HSCode),
			},
			{
				Item:   "Country of origin declarations",
				Status: originStatus,
				Note:   "Verify supplier-issued origin proof for all material stages.",
			},
			{
				Item:   "Shipment documentation package",
				Status: docsStatus,
				Note:   "Commercial invoice, packing list, and transport bill should be pre-validated.",
			},
		},
	}
}

// freightCost is the larger of a minimum charge and a share of the declared value.
func freightCost(minimum, declaredValue, rate float64) float64 {
	return common.Round2(math.Max(minimum, declaredValue*rate))
}
