// Package risk scores the compliance risk of a trade lane.
package risk

import (
	"math"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/reference"
)

// Score weights.
const (
	OriginWeight      = 0.35
	DestinationWeight = 0.25
	TariffWeight      = 0.25
	ComplexityWeight  = 0.15

	tariffFactor       = 1.5
	perSourcingCountry = 5.0
	minScore           = 0.0
	maxScore           = 100.0
)

// Scorer combines country risk, duty burden and sourcing spread into one score.
type Scorer struct {
	countryRisk reference.CountryRiskTable
}

// NewScorer creates a scorer backed by the given country risk table.
func NewScorer(countryRisk reference.CountryRiskTable) *Scorer {
	return &Scorer{countryRisk: countryRisk}
}

// Score returns a risk value between 0 and 100, rounded to two decimals.
func (s *Scorer) Score(origin, destination string, totalDutyPercent float64, materials []model.Material) float64 {
	originRisk := s.countryRisk.Risk(origin)
	destinationRisk := s.countryRisk.Risk(destination)
	tariffRisk := totalDutyPercent * tariffFactor
	complexityRisk := float64(SourcingCountries(materials)) * perSourcingCountry

	score := originRisk*OriginWeight +
		destinationRisk*DestinationWeight +
		tariffRisk*TariffWeight +
		complexityRisk*ComplexityWeight

	if math.IsNaN(score) {
		score = minScore
	}
	score = math.Max(minScore, math.Min(maxScore, score))
	return common.Round2(score)
}

// SourcingCountries counts the distinct non-empty origin countries.
func SourcingCountries(materials []model.Material) int {
	seen := make(map[string]struct{}, len(materials))
	for _, m := range materials {
		if m.OriginCountry == "" {
			continue
		}
		seen[m.OriginCountry] = struct{}{}
	}
	return len(seen)
}

// Level buckets a score into Low, Medium or High.
func Level(score float64) string {
	switch {
	case score >= 70:
		return "High"
	case score >= 40:
		return "Medium"
	default:
		return "Low"
	}
}
