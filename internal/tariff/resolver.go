package tariff

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/reference"
)

// Fallback rates applied when no tariff data matches a code.
const (
	DefaultBaseDuty       = 10.0
	DefaultAdditionalDuty = 0.0
)

// Match describes which lookup tier produced the rates.
type Match string

// Lookup tiers, most specific first.
const (
	MatchExact   Match = "exact"
	MatchHeading Match = "heading"
	MatchChapter Match = "chapter"
	MatchDefault Match = "default"
)

// Resolver computes tariff summaries against a fixed set of reference tables.
// It is safe for concurrent use.
type Resolver struct {
	tariffs    *reference.TariffTable
	agreements reference.TradeAgreementTable
	logger     *slog.Logger
}

// NewResolver creates a resolver over the given tables.
func NewResolver(tariffs *reference.TariffTable, agreements reference.TradeAgreementTable, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tariffs:    tariffs,
		agreements: agreements,
		logger:     logger,
	}
}

// Resolve returns the duty owed on declaredValue for a shipment of hsCode from
// origin to destination. It never fails: unknown codes fall back through the
// heading, chapter and default tiers.
func (r *Resolver) Resolve(hsCode, origin, destination string, declaredValue float64) model.TariffSummary {
	code := NormalizeHS(hsCode)
	entry, _ := r.Rates(code)

	discount := r.agreements.Discount(origin, destination)

	total := math.Max(0, entry.BaseDuty+entry.AdditionalDuty-discount)
	amount := common.Round2(total / 100 * declaredValue)

	return model.TariffSummary{
		BaseDuty:               entry.BaseDuty,
		AdditionalDuty:         entry.AdditionalDuty,
		TradeAgreementDiscount: 0 - discount, // never -0 in JSON
		TotalDutyPercent:       total,
		EstimatedDutyAmount:    amount,
		Explanation: fmt.Sprintf(
			"Base duty %s%% + additional duty %s%% - trade agreement discount %s%% = total %s%% applied on declared value.",
			formatPercent(entry.BaseDuty),
			formatPercent(entry.AdditionalDuty),
			formatPercent(discount),
			formatPercent(total),
		),
	}
}

// Rates looks up the duty rates for an already-normalized code.
func (r *Resolver) Rates(code string) (model.TariffEntry, Match) {
	if entry, ok := r.tariffs.Lookup(code); ok {
		return entry, MatchExact
	}

	if heading, ok := prefix(code, 4); ok {
		if entry, ok := r.tariffs.FirstWithPrefix(heading); ok {
			return entry, MatchHeading
		}
	}

	if chapter, ok := prefix(code, 2); ok {
		if matches := r.tariffs.WithPrefix(chapter); len(matches) > 0 {
			var base, additional float64
			for _, m := range matches {
				base += m.BaseDuty
				additional += m.AdditionalDuty
			}
			n := float64(len(matches))
			return model.TariffEntry{
				BaseDuty:       common.Round2(base / n),
				AdditionalDuty: common.Round2(additional / n),
			}, MatchChapter
		}
	}

	r.logger.Warn("No tariff found, applying default duty",
		"hs_code", code,
		"base_duty", DefaultBaseDuty)

	return model.TariffEntry{BaseDuty: DefaultBaseDuty, AdditionalDuty: DefaultAdditionalDuty}, MatchDefault
}

// prefix returns the first n characters of s, or false when s is shorter.
func prefix(s string, n int) (string, bool) {
	runes := []rune(s)
	if len(runes) < n {
		return "", false
	}
	return string(runes[:n]), true
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
