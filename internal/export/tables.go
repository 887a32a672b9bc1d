// Package export renders analysis sessions as tables and writes them to
// Excel workbooks.
package export

import (
	"time"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/common"
)

// Sheet names, in the order they are written.
const (
	SheetSummary    = "Summary"
	SheetMaterials  = "Materials"
	SheetShipping   = "Shipping"
	SheetCompliance = "Compliance"
)

// Table is one sheet of exported data. Cells hold strings, float64 or int.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Tables flattens sessions into the Summary, Materials, Shipping and
// Compliance tables.
func Tables(sessions []*analysis.Session) []Table {
	summary := Table{
		Name: SheetSummary,
		Headers: []string{
			"Analysis ID", "Created", "Product", "HS Code", "Confidence",
			"Origin", "Destination", "Declared Value (USD)", "Base Duty %",
			"Additional Duty %", "Agreement Discount %", "Total Duty %",
			"Estimated Duty (USD)", "Risk Score", "Risk Level", "Explanation",
		},
	}
	materials := Table{
		Name:    SheetMaterials,
		Headers: []string{"Analysis ID", "Material ID", "Name", "Origin", "Stage", "Percentage"},
	}
	shipping := Table{
		Name:    SheetShipping,
		Headers: []string{"Analysis ID", "Mode", "Route", "ETA (days)", "Estimated Cost (USD)", "Risk Level", "Notes"},
	}
	compliance := Table{
		Name:    SheetCompliance,
		Headers: []string{"Analysis ID", "Item", "Status", "Note"},
	}

	for _, s := range sessions {
		if s == nil {
			continue
		}
		t := s.TariffSummary
		summary.Rows = append(summary.Rows, []any{
			s.ID,
			s.CreatedAt.UTC().Format(time.RFC3339),
			s.ProductName,
			s.HSCode,
			s.Confidence,
			s.ManufacturingCountry,
			s.DestinationCountry,
			currency(s.DeclaredValue),
			t.BaseDuty,
			t.AdditionalDuty,
			t.TradeAgreementDiscount,
			t.TotalDutyPercent,
			currency(t.EstimatedDutyAmount),
			s.RiskScore,
			s.RiskLevel(),
			s.Explanation,
		})

		for _, m := range s.Materials {
			materials.Rows = append(materials.Rows, []any{
				s.ID, m.ID, m.Name, m.OriginCountry, m.Stage, m.Percentage,
			})
		}
		for _, o := range s.ShippingOptions {
			shipping.Rows = append(shipping.Rows, []any{
				s.ID, o.Mode, o.Route, o.ETADays, currency(o.EstimatedCostUSD), o.RiskLevel, o.Notes,
			})
		}
		for _, c := range s.ComplianceChecks {
			compliance.Rows = append(compliance.Rows, []any{
				s.ID, c.Item, c.Status, c.Note,
			})
		}
	}

	return []Table{summary, materials, shipping, compliance}
}

func currency(v float64) float64 {
	return common.Money(v).InexactFloat64()
}
