// Package model defines the core domain models used throughout the application.
package model

// Default material values used when model output omits them.
const (
	DefaultOriginCountry = "US"
	DefaultStage         = "raw_material"
)

// Material is one component of a product's bill of materials.
type Material struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	OriginCountry string  `json:"origin_country"`
	Stage         string  `json:"stage"`
	Percentage    float64 `json:"percentage"`
}

// ClassificationResult is the normalized outcome of an AI classification.
type ClassificationResult struct {
	HSCode              string     `json:"hs_code"`
	Explanation         string     `json:"explanation"`
	ResolvedDescription string     `json:"resolved_description,omitempty"`
	Materials           []Material `json:"materials"`
	Confidence          float64    `json:"confidence"`
}

// PercentageTotal sums the material percentages.
func PercentageTotal(materials []Material) float64 {
	var total float64
	for _, m := range materials {
		total += m.Percentage
	}
	return total
}

// CloneMaterials returns a copy of materials that shares no backing array.
func CloneMaterials(materials []Material) []Material {
	if materials == nil {
		return nil
	}
	out := make([]Material, len(materials))
	copy(out, materials)
	return out
}
