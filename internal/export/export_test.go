package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/model"
)

func testSession() *analysis.Session {
	return &analysis.Session{
		CreatedAt:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ID:                   "a-1",
		ProductName:          "Cotton T-Shirt",
		HSCode:               "6109.10",
		Explanation:          "Knitted cotton garment",
		ManufacturingCountry: "CN",
		DestinationCountry:   "US",
		Materials: []model.Material{
			{ID: "mat-1", Name: "Cotton", OriginCountry: "IN", Stage: "raw_material", Percentage: 95},
			{ID: "mat-2", Name: "Elastane", OriginCountry: "CN", Stage: "raw_material", Percentage: 5},
		},
		ShippingOptions: []model.ShippingOption{
			{Mode: "SEA", Route: "CN -> US", ETADays: 30, EstimatedCostUSD: 1200.125, RiskLevel: "Low"},
		},
		ComplianceChecks: []model.ComplianceCheck{
			{Item: "HS code recorded", Status: model.CompliancePass, Note: "ok"},
		},
		TariffSummary: model.TariffSummary{
			BaseDuty:            16.5,
			AdditionalDuty:      7.5,
			TotalDutyPercent:    24,
			EstimatedDutyAmount: 2400.004,
		},
		Confidence:    0.92,
		DeclaredValue: 10000,
		RiskScore:     62,
	}
}

func TestTables(t *testing.T) {
	tables := Tables([]*analysis.Session{testSession(), nil})
	require.Len(t, tables, 4)

	names := make([]string, len(tables))
	for i, tbl := range tables {
		names[i] = tbl.Name
		for _, row := range tbl.Rows {
			assert.Len(t, row, len(tbl.Headers), "row width in %s", tbl.Name)
		}
	}
	assert.Equal(t, []string{SheetSummary, SheetMaterials, SheetShipping, SheetCompliance}, names)

	summary := tables[0]
	require.Len(t, summary.Rows, 1)
	assert.Equal(t, "a-1", summary.Rows[0][0])
	assert.Equal(t, "2026-03-01T12:00:00Z", summary.Rows[0][1])
	assert.InDelta(t, 2400.0, summary.Rows[0][12], 1e-9)
	assert.Equal(t, "Medium", summary.Rows[0][14])

	assert.Len(t, tables[1].Rows, 2)
	require.Len(t, tables[2].Rows, 1)
	assert.InDelta(t, 1200.12, tables[2].Rows[0][4], 1e-9)
	assert.Len(t, tables[3].Rows, 1)
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, []*analysis.Session{testSession()}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetMaterials, SheetShipping, SheetCompliance}, f.GetSheetList())

	header, err := f.GetCellValue(SheetSummary, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Analysis ID", header)

	product, err := f.GetCellValue(SheetSummary, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Cotton T-Shirt", product)

	rows, err := f.GetRows(SheetMaterials)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Elastane", rows[2][2])
}

func TestWriteWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetShipping)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
