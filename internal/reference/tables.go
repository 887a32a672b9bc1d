// Package reference holds the static lookup tables used for tariff and risk
// calculations: tariffs by HS code, bilateral trade agreements and country risk.
// Tables are loaded once at startup and are read-only afterwards, so they can
// be shared across goroutines without locking.
package reference

import (
	"sort"
	"strings"

	"github.com/Veraticus/tradewinds/internal/model"
)

// DefaultCountryRisk is used for countries missing from the risk table.
const DefaultCountryRisk = 50.0

// TariffTable maps canonical HS codes to duty rates and remembers the order
// in which codes were added.
type TariffTable struct {
	entries map[string]model.TariffEntry
	codes   []string
}

// NewTariffTable returns an empty table.
func NewTariffTable() *TariffTable {
	return &TariffTable{entries: make(map[string]model.TariffEntry)}
}

// Add stores entry under code. Re-adding a code replaces the rates in place.
func (t *TariffTable) Add(code string, entry model.TariffEntry) {
	if _, exists := t.entries[code]; !exists {
		t.codes = append(t.codes, code)
	}
	t.entries[code] = entry
}

// Lookup returns the entry stored under code.
func (t *TariffTable) Lookup(code string) (model.TariffEntry, bool) {
	if t == nil {
		return model.TariffEntry{}, false
	}
	entry, ok := t.entries[code]
	return entry, ok
}

// FirstWithPrefix returns the earliest-added entry whose code starts with prefix.
func (t *TariffTable) FirstWithPrefix(prefix string) (model.TariffEntry, bool) {
	if t == nil {
		return model.TariffEntry{}, false
	}
	for _, code := range t.codes {
		if strings.HasPrefix(code, prefix) {
			return t.entries[code], true
		}
	}
	return model.TariffEntry{}, false
}

// WithPrefix returns every entry whose code starts with prefix, in table order.
func (t *TariffTable) WithPrefix(prefix string) []model.TariffEntry {
	if t == nil {
		return nil
	}
	var matches []model.TariffEntry
	for _, code := range t.codes {
		if strings.HasPrefix(code, prefix) {
			matches = append(matches, t.entries[code])
		}
	}
	return matches
}

// Codes returns the codes in insertion order.
func (t *TariffTable) Codes() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.codes))
	copy(out, t.codes)
	return out
}

// SortedCodes returns the codes in lexicographic order.
func (t *TariffTable) SortedCodes() []string {
	out := t.Codes()
	sort.Strings(out)
	return out
}

// Len returns the number of codes.
func (t *TariffTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.codes)
}

// Agreement is a bilateral trade agreement between an origin and a destination.
type Agreement struct {
	Name            string  `json:"name,omitempty"`
	DiscountPercent float64 `json:"discount_percent"`
}

// TradeAgreementTable maps "{origin}-{destination}" to an agreement.
type TradeAgreementTable map[string]Agreement

// AgreementKey builds the lookup key for a lane.
func AgreementKey(origin, destination string) string {
	return origin + "-" + destination
}

// Discount returns the duty discount in percent for the lane, zero when no
// agreement exists.
func (t TradeAgreementTable) Discount(origin, destination string) float64 {
	agreement, ok := t[AgreementKey(origin, destination)]
	if !ok {
		return 0
	}
	return agreement.DiscountPercent
}

// CountryRiskTable maps ISO2 country codes to a risk value between 0 and 100.
type CountryRiskTable map[string]float64

// Risk returns the risk for country, or DefaultCountryRisk when unknown.
func (t CountryRiskTable) Risk(country string) float64 {
	if risk, ok := t[country]; ok {
		return risk
	}
	return DefaultCountryRisk
}

// Tables groups the reference data used by one process.
type Tables struct {
	Tariffs     *TariffTable
	Agreements  TradeAgreementTable
	CountryRisk CountryRiskTable
}
