package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tradewinds/internal/model"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(*AnalyzeRequest)
		wantField string
	}{
		{name: "valid", modify: func(*AnalyzeRequest) {}},
		{name: "image only", modify: func(r *AnalyzeRequest) { r.Description = "  "; r.ImageBase64 = "aGk=" }},
		{name: "short product name", modify: func(r *AnalyzeRequest) { r.ProductName = " a " }, wantField: "product_name"},
		{name: "short description", modify: func(r *AnalyzeRequest) { r.Description = "abcd" }, wantField: "description"},
		{name: "no description or image", modify: func(r *AnalyzeRequest) { r.Description = "" }, wantField: "description"},
		{name: "three letter origin", modify: func(r *AnalyzeRequest) { r.ManufacturingCountry = "CHN" }, wantField: "manufacturing_country"},
		{name: "digit in destination", modify: func(r *AnalyzeRequest) { r.DestinationCountry = "U1" }, wantField: "destination_country"},
		{name: "zero value", modify: func(r *AnalyzeRequest) { r.DeclaredValue = 0 }, wantField: "declared_value"},
		{name: "negative value", modify: func(r *AnalyzeRequest) { r.DeclaredValue = -5 }, wantField: "declared_value"},
		{name: "infinite value", modify: func(r *AnalyzeRequest) { r.DeclaredValue = math.Inf(1) }, wantField: "declared_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.modify(&req)

			err := req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestAnalyzeRequest_Normalize(t *testing.T) {
	req := AnalyzeRequest{
		ProductName:          "  Lamp ",
		Description:          "  Desk lamp  ",
		ImageMIMEType:        " IMAGE/PNG ",
		ManufacturingCountry: " de",
		DestinationCountry:   "fr ",
		APIKey:               " k ",
	}
	req.Normalize()

	assert.Equal(t, "Lamp", req.ProductName)
	assert.Equal(t, "Desk lamp", req.Description)
	assert.Equal(t, "image/png", req.ImageMIMEType)
	assert.Equal(t, "DE", req.ManufacturingCountry)
	assert.Equal(t, "FR", req.DestinationCountry)
	assert.Equal(t, "k", req.APIKey)
}

func TestRecalculateRequest_Validate(t *testing.T) {
	material := func() model.Material {
		return model.Material{Name: "Copper", Percentage: 50, OriginCountry: "cl", Stage: "raw_material"}
	}

	tests := []struct {
		name      string
		req       RecalculateRequest
		wantField string
	}{
		{name: "id only", req: RecalculateRequest{AnalysisID: "a"}},
		{name: "missing id", req: RecalculateRequest{AnalysisID: "  "}, wantField: "analysis_id"},
		{name: "bad destination", req: RecalculateRequest{AnalysisID: "a", DestinationCountry: "USA"}, wantField: "destination_country"},
		{name: "negative value", req: RecalculateRequest{AnalysisID: "a", DeclaredValue: -1}, wantField: "declared_value"},
		{name: "valid material", req: RecalculateRequest{AnalysisID: "a", Materials: []model.Material{material()}}},
		{
			name: "material without name",
			req: RecalculateRequest{AnalysisID: "a", Materials: []model.Material{func() model.Material {
				m := material()
				m.Name = " "
				return m
			}()}},
			wantField: "materials[0].name",
		},
		{
			name: "material with zero percentage",
			req: RecalculateRequest{AnalysisID: "a", Materials: []model.Material{material(), func() model.Material {
				m := material()
				m.Percentage = 0
				return m
			}()}},
			wantField: "materials[1].percentage",
		},
		{
			name: "material with bad origin",
			req: RecalculateRequest{AnalysisID: "a", Materials: []model.Material{func() model.Material {
				m := material()
				m.OriginCountry = "Chile"
				return m
			}()}},
			wantField: "materials[0].origin_country",
		},
		{
			name: "material without stage",
			req: RecalculateRequest{AnalysisID: "a", Materials: []model.Material{func() model.Material {
				m := material()
				m.Stage = ""
				return m
			}()}},
			wantField: "materials[0].stage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestRecalculateRequest_NormalizesMaterials(t *testing.T) {
	req := RecalculateRequest{
		AnalysisID: " a ",
		Materials: []model.Material{
			{Name: " Copper ", Percentage: 50, OriginCountry: " cl ", Stage: " refined "},
		},
	}
	require.NoError(t, req.Validate())

	assert.Equal(t, "a", req.AnalysisID)
	assert.Equal(t, model.Material{
		ID: "mat-1", Name: "Copper", Percentage: 50, OriginCountry: "CL", Stage: "refined",
	}, req.Materials[0])
}

func TestSession_Clone(t *testing.T) {
	original := sampleSession("c")
	clone := original.Clone()

	require.Equal(t, original, clone)
	clone.Materials[0].Name = "changed"
	clone.MapFlow[0].Country = "changed"
	assert.Equal(t, "Copper", original.Materials[0].Name)
	assert.Equal(t, "China", original.MapFlow[0].Country)

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}

func TestSession_RiskLevel(t *testing.T) {
	assert.Equal(t, "Low", (&Session{RiskScore: 39.99}).RiskLevel())
	assert.Equal(t, "Medium", (&Session{RiskScore: 40}).RiskLevel())
	assert.Equal(t, "High", (&Session{RiskScore: 70}).RiskLevel())
}
