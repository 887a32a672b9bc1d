package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/reference"
)

func materialsFrom(countries ...string) []model.Material {
	out := make([]model.Material, 0, len(countries))
	for _, c := range countries {
		out = append(out, model.Material{Name: "part", OriginCountry: c, Percentage: 10})
	}
	return out
}

func TestScorer_Score(t *testing.T) {
	scorer := NewScorer(reference.CountryRiskTable{"CN": 80, "US": 20, "RU": 100})

	tests := []struct {
		name        string
		origin      string
		destination string
		duty        float64
		materials   []model.Material
		want        float64
	}{
		{
			name:   "weighted example",
			origin: "CN", destination: "US", duty: 10,
			materials: materialsFrom("CN", "VN", "MY"),
			want:      39.0,
		},
		{
			name:   "unknown countries default to fifty",
			origin: "XX", destination: "YY", duty: 0,
			want: 30.0,
		},
		{
			name:   "duplicate and empty origins count once",
			origin: "US", destination: "US", duty: 0,
			materials: materialsFrom("CN", "CN", "", "US"),
			want:      13.5,
		},
		{
			name:   "clamped at one hundred",
			origin: "RU", destination: "RU", duty: 500,
			want: 100,
		},
		{
			name:   "negative duty clamps at zero",
			origin: "US", destination: "US", duty: -1000,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, scorer.Score(tt.origin, tt.destination, tt.duty, tt.materials), 1e-9)
		})
	}
}

func TestScorer_AlwaysInRange(t *testing.T) {
	scorer := NewScorer(reference.CountryRiskTable{"AA": 0, "BB": 100})
	duties := []float64{-1e9, -50, 0, 12.5, 66.6, 400, 1e9, math.Inf(1), math.NaN()}

	for _, duty := range duties {
		for _, lane := range [][2]string{{"AA", "BB"}, {"BB", "AA"}, {"ZZ", "AA"}} {
			got := scorer.Score(lane[0], lane[1], duty, materialsFrom("CN", "DE", "JP", "US", "MX"))
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
		}
	}
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "High", Level(70))
	assert.Equal(t, "Medium", Level(69.99))
	assert.Equal(t, "Medium", Level(40))
	assert.Equal(t, "Low", Level(39.99))
}
