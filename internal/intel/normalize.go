package intel

import (
	"math"
	"strings"
	"unicode"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/jsondoc"
	"github.com/Veraticus/tradewinds/internal/model"
)

// Limits on how many model-provided entries are kept per list.
const (
	maxInsights         = 4
	maxShippingOptions  = 4
	maxComplianceChecks = 5
)

var complianceStatuses = map[string]struct{}{
	model.CompliancePass:           {},
	model.ComplianceWarn:           {},
	model.ComplianceActionRequired: {},
}

// NormalizeTradeIntel repairs arbitrary model output into an intelligence
// bundle. Each list that ends up empty is replaced by the corresponding list
// from fallback. It never fails.
func NormalizeTradeIntel(parsed jsondoc.Value, fallback model.TradeIntel) model.TradeIntel {
	out := model.TradeIntel{
		RecentInsights:   normalizeInsights(objects(parsed.Get("recent_insights"), maxInsights)),
		ShippingOptions:  normalizeShipping(objects(parsed.Get("shipping_options"), maxShippingOptions)),
		ComplianceChecks: normalizeCompliance(objects(parsed.Get("compliance_checks"), maxComplianceChecks)),
	}

	if len(out.RecentInsights) == 0 {
		out.RecentInsights = fallback.RecentInsights
	}
	if len(out.ShippingOptions) == 0 {
		out.ShippingOptions = fallback.ShippingOptions
	}
	if len(out.ComplianceChecks) == 0 {
		out.ComplianceChecks = fallback.ComplianceChecks
	}
	return out
}

// objects keeps the object elements of a list, then truncates to limit.
func objects(raw jsondoc.Value, limit int) []jsondoc.Value {
	items, ok := raw.Array()
	if !ok {
		return nil
	}

	var out []jsondoc.Value
	for _, item := range items {
		if item.Kind() == jsondoc.Object {
			out = append(out, item)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func normalizeInsights(items []jsondoc.Value) []model.Insight {
	var insights []model.Insight
	for _, item := range items {
		detail := text(item.Get("detail"), "")
		if detail == "" {
			continue
		}
		insights = append(insights, model.Insight{
			Title:  text(item.Get("title"), "Insight"),
			Detail: detail,
		})
	}
	return insights
}

func normalizeShipping(items []jsondoc.Value) []model.ShippingOption {
	var options []model.ShippingOption
	for _, item := range items {
		options = append(options, model.ShippingOption{
			Mode:             strings.ToUpper(text(item.Get("mode"), "UNKNOWN")),
			Route:            text(item.Get("route"), ""),
			ETADays:          etaDays(item.Get("eta_days")),
			EstimatedCostUSD: math.Max(0, common.Round2(item.Get("estimated_cost_usd").FloatOr(0))),
			RiskLevel:        titleCase(text(item.Get("risk_level"), "Medium")),
			Notes:            text(item.Get("notes"), ""),
		})
	}
	return options
}

func normalizeCompliance(items []jsondoc.Value) []model.ComplianceCheck {
	var checks []model.ComplianceCheck
	for _, item := range items {
		status := strings.ToLower(text(item.Get("status"), model.ComplianceWarn))
		if _, ok := complianceStatuses[status]; !ok {
			status = model.ComplianceWarn
		}
		checks = append(checks, model.ComplianceCheck{
			Item:   text(item.Get("item"), "Compliance item"),
			Status: status,
			Note:   text(item.Get("note"), ""),
		})
	}
	return checks
}

// etaDays truncates the value to whole days, with a floor of one.
func etaDays(raw jsondoc.Value) int {
	days := math.Trunc(raw.FloatOr(0))
	if days < 1 {
		return 1
	}
	if days > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(days)
}

// text returns the trimmed text of a truthy value, or def. A value that is
// present but blank trims to the empty string.
func text(v jsondoc.Value, def string) string {
	return strings.TrimSpace(jsondoc.FirstText(def, v))
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToTitle(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
