package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/model"
)

func TestRenderTariff(t *testing.T) {
	out := RenderTariff("6109.10", "CN", "US", 10000, model.TariffSummary{
		BaseDuty:            16.5,
		AdditionalDuty:      7.5,
		TotalDutyPercent:    24,
		EstimatedDutyAmount: 2400,
		Explanation:         "Base duty 16.5% plus additional duty 7.5%.",
	}, 72.5)

	for _, want := range []string{"6109.10", "CN -> US", "$10000.00", "16.5%", "24%", "$2400.00", "72.5 (High)", "Base duty 16.5%"} {
		assert.Contains(t, out, want)
	}
}

func TestRenderAnalysis(t *testing.T) {
	assert.Empty(t, RenderAnalysis(nil))

	out := RenderAnalysis(&analysis.Session{
		ID:                   "a-1",
		ProductName:          "Cotton T-Shirt",
		HSCode:               "6109.10",
		Explanation:          "Knitted garment",
		ManufacturingCountry: "CN",
		DestinationCountry:   "US",
		Materials: []model.Material{
			{Name: "Cotton", OriginCountry: "IN", Stage: "raw_material", Percentage: 100},
		},
		ShippingOptions: []model.ShippingOption{
			{Mode: "SEA", ETADays: 30, EstimatedCostUSD: 1200, RiskLevel: "Low"},
		},
		ComplianceChecks: []model.ComplianceCheck{
			{Item: "Origin proof", Status: model.ComplianceWarn},
		},
		RecentInsights: []model.Insight{{Title: "Duty pressure signal", Detail: "Tariffs rising."}},
		Confidence:     0.87,
		DeclaredValue:  10000,
		RiskScore:      30,
	})

	for _, want := range []string{
		"a-1", "Cotton T-Shirt", "87%", "Knitted garment", "Cotton", "100.00%",
		"SEA", "30 days", "$1200.00", "Origin proof", "Duty pressure signal", "30 (Low)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderAnalysis_NoMaterials(t *testing.T) {
	out := RenderAnalysis(&analysis.Session{ID: "a-2", HSCode: "8501.10"})
	assert.Contains(t, out, "No materials reported")
	assert.NotContains(t, out, "Shipping options")
}
