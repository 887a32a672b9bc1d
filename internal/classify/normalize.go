package classify

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/jsondoc"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/tariff"
)

// Defaults applied to incomplete model output.
const (
	DefaultConfidence  = 0.75
	DefaultExplanation = "AI classification generated."
	FallbackHSCode     = "0000.00"
)

// NormalizeClassification repairs arbitrary model output into a valid
// classification. It accepts any document shape and never fails: confidence is
// forced into [0,1], the HS code is canonicalized, and the materials always
// contain at least one entry whose percentages add up to 100.
//
// supportedHS must be sorted; its first element is used when the model
// returns no HS code at all.
func NormalizeClassification(parsed jsondoc.Value, productName string, supportedHS []string) model.ClassificationResult {
	return model.ClassificationResult{
		HSCode:      normalizeHSCode(parsed.Get("hs_code"), supportedHS),
		Confidence:  normalizeConfidence(parsed.Get("confidence")),
		Explanation: textOr(DefaultExplanation, parsed.Get("explanation")),
		Materials:   NormalizeMaterials(parsed.Get("materials"), productName),
	}
}

func normalizeConfidence(raw jsondoc.Value) float64 {
	confidence := raw.FloatOr(DefaultConfidence)

	if confidence > 1 {
		if confidence <= 100 {
			confidence /= 100
		} else {
			confidence = 1
		}
	}
	return math.Max(0, math.Min(1, confidence))
}

func normalizeHSCode(raw jsondoc.Value, supportedHS []string) string {
	text := ""
	if raw.Truthy() {
		text = strings.TrimSpace(raw.Text())
	}

	if text != "" {
		return tariff.NormalizeHS(text)
	}
	if len(supportedHS) > 0 {
		return supportedHS[0]
	}
	return FallbackHSCode
}

// NormalizeMaterials turns the model's materials field into a repaired
// material list. The field may be a list, a single material object or an
// object keyed by material name.
func NormalizeMaterials(raw jsondoc.Value, productName string) []model.Material {
	defaultName := productName + " material"

	var materials []model.Material
	for idx, item := range materialCandidates(raw) {
		if item.Kind() != jsondoc.Object {
			continue
		}

		percentage := item.Get("percentage").FloatOr(0)

		materials = append(materials, model.Material{
			ID:            jsondoc.FirstText(fmt.Sprintf("mat-%d", idx+1), item.Get("id")),
			Name:          textOr(defaultName, item.Get("name"), item.Get("material")),
			Percentage:    math.Max(0, percentage),
			OriginCountry: normalizeCountry(jsondoc.FirstText("", item.Get("origin_country"), item.Get("country"))),
			Stage:         normalizeStage(jsondoc.FirstText(model.DefaultStage, item.Get("stage"))),
		})
	}

	if len(materials) == 0 {
		return []model.Material{{
			ID:            "mat-1",
			Name:          defaultName,
			Percentage:    100,
			OriginCountry: model.DefaultOriginCountry,
			Stage:         model.DefaultStage,
		}}
	}

	RebalancePercentages(materials)
	return materials
}

func materialCandidates(raw jsondoc.Value) []jsondoc.Value {
	if items, ok := raw.Array(); ok {
		return items
	}

	m, ok := raw.Object()
	if !ok {
		return nil
	}

	if raw.Has("name") || raw.Has("material") || raw.Has("percentage") {
		return []jsondoc.Value{raw}
	}

	var nested []jsondoc.Value
	for _, v := range m.Values() {
		if v.Kind() == jsondoc.Object {
			nested = append(nested, v)
		}
	}
	return nested
}

// RebalancePercentages rewrites the percentages in place so they add up to
// exactly 100. Materials are processed in order and the last one absorbs any
// rounding remainder. When every percentage is zero the total is split evenly.
func RebalancePercentages(materials []model.Material) {
	if len(materials) == 0 {
		return
	}

	total := model.PercentageTotal(materials)
	if total <= 0 {
		equal := common.Round2(100 / float64(len(materials)))
		for i := range materials {
			materials[i].Percentage = equal
		}
		return
	}

	var running float64
	last := len(materials) - 1
	for i := range materials {
		if i == last {
			materials[i].Percentage = common.Round2(math.Max(0, 100-running))
			continue
		}
		scaled := common.Round2(materials[i].Percentage / total * 100)
		materials[i].Percentage = scaled
		running += scaled
	}
}

// normalizeCountry uppercases code and falls back to the default origin when
// the result is not a two-letter code.
func normalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 {
		return model.DefaultOriginCountry
	}
	for _, r := range code {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return model.DefaultOriginCountry
		}
	}
	return code
}

// textOr returns the first non-blank text among values, trimmed, or def.
func textOr(def string, values ...jsondoc.Value) string {
	for _, v := range values {
		if text := strings.TrimSpace(jsondoc.FirstText("", v)); text != "" {
			return text
		}
	}
	return def
}

func normalizeStage(stage string) string {
	stage = strings.TrimSpace(stage)
	if stage == "" {
		return model.DefaultStage
	}
	return stage
}
