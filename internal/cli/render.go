package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/risk"
)

func row(label, value string) string {
	return LabelStyle.Render(label) + value
}

func money(v float64) string {
	return "$" + common.Money(v).StringFixed(2)
}

func percent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "%"
}

// RenderTariff renders a tariff summary and risk score.
func RenderTariff(hsCode, origin, destination string, declaredValue float64, t model.TariffSummary, riskScore float64) string {
	level := risk.Level(riskScore)
	lines := []string{
		row("HS code", BoldStyle.Render(hsCode)),
		row("Lane", fmt.Sprintf("%s -> %s", origin, destination)),
		row("Declared value", money(declaredValue)),
		row("Base duty", percent(t.BaseDuty)),
		row("Additional duty", percent(t.AdditionalDuty)),
		row("Agreement discount", percent(t.TradeAgreementDiscount)),
		row("Total duty", BoldStyle.Render(percent(t.TotalDutyPercent))),
		row("Estimated duty", BoldStyle.Render(money(t.EstimatedDutyAmount))),
		row("Risk", RiskStyle(level).Render(fmt.Sprintf("%s (%s)", strconv.FormatFloat(riskScore, 'f', -1, 64), level))),
	}
	if t.Explanation != "" {
		lines = append(lines, "", SubtleStyle.Render(t.Explanation))
	}
	return RenderBox(ChartIcon+" Tariff", strings.Join(lines, "\n"))
}

// RenderAnalysis renders a completed analysis as a series of boxes.
func RenderAnalysis(s *analysis.Session) string {
	if s == nil {
		return ""
	}

	classification := []string{
		row("Analysis ID", SubtleStyle.Render(s.ID)),
		row("Product", BoldStyle.Render(s.ProductName)),
		row("HS code", BoldStyle.Render(s.HSCode)),
		row("Confidence", fmt.Sprintf("%.0f%%", s.Confidence*100)),
	}
	if s.Explanation != "" {
		classification = append(classification, "", s.Explanation)
	}

	var materials []string
	for _, m := range s.Materials {
		materials = append(materials, fmt.Sprintf("%-24s %6.2f%%  %s  %s",
			m.Name, m.Percentage, m.OriginCountry, SubtleStyle.Render(m.Stage)))
	}
	if len(materials) == 0 {
		materials = append(materials, SubtleStyle.Render("No materials reported"))
	}

	var shipping []string
	for _, o := range s.ShippingOptions {
		shipping = append(shipping, fmt.Sprintf("%-16s %3d days  %12s  %s",
			o.Mode, o.ETADays, money(o.EstimatedCostUSD), RiskStyle(o.RiskLevel).Render(o.RiskLevel)))
	}

	var compliance []string
	for _, c := range s.ComplianceChecks {
		compliance = append(compliance, complianceIcon(c.Status)+" "+c.Item)
	}

	var insights []string
	for _, in := range s.RecentInsights {
		insights = append(insights, BoldStyle.Render(in.Title)+"\n"+SubtleStyle.Render(in.Detail))
	}

	boxes := []string{
		RenderBox(GlobeIcon+" Classification", strings.Join(classification, "\n")),
		RenderBox("Materials", strings.Join(materials, "\n")),
		RenderTariff(s.HSCode, s.ManufacturingCountry, s.DestinationCountry, s.DeclaredValue, s.TariffSummary, s.RiskScore),
	}
	if len(shipping) > 0 {
		boxes = append(boxes, RenderBox(ShipIcon+" Shipping options", strings.Join(shipping, "\n")))
	}
	if len(compliance) > 0 {
		boxes = append(boxes, RenderBox("Compliance", strings.Join(compliance, "\n")))
	}
	if len(insights) > 0 {
		boxes = append(boxes, RenderBox("Insights", strings.Join(insights, "\n\n")))
	}
	return strings.Join(boxes, "\n")
}

func complianceIcon(status string) string {
	switch status {
	case model.CompliancePass:
		return SuccessStyle.Render(SuccessIcon)
	case model.ComplianceActionRequired:
		return ErrorStyle.Render(ErrorIcon)
	default:
		return WarningStyle.Render("!")
	}
}
