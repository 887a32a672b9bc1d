package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/tradewinds/internal/analysis"
)

const (
	defaultSheet  = "Sheet1"
	minColWidth   = 12
	maxColWidth   = 60
	headerColor   = "#4472C4"
	headerFgColor = "#FFFFFF"
)

// WorkbookContentType is the MIME type of the files written by WriteWorkbook.
const WorkbookContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WriteWorkbook writes sessions to w as an xlsx workbook.
func WriteWorkbook(w io.Writer, sessions []*analysis.Session) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: headerFgColor},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerColor}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, table := range Tables(sessions) {
		if err := writeSheet(f, table, headerStyle); err != nil {
			return err
		}
		if i == 0 {
			idx, err := f.GetSheetIndex(table.Name)
			if err != nil {
				return fmt.Errorf("failed to find sheet %s: %w", table.Name, err)
			}
			f.SetActiveSheet(idx)
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, table Table, headerStyle int) error {
	if _, err := f.NewSheet(table.Name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", table.Name, err)
	}

	widths := make([]int, len(table.Headers))
	for i, header := range table.Headers {
		widths[i] = len(header)
	}

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(table.Name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", table.Name, err)
	}

	lastCol, err := excelize.CoordinatesToCellName(len(table.Headers), 1)
	if err != nil {
		return fmt.Errorf("failed to compute header range: %w", err)
	}
	if err := f.SetCellStyle(table.Name, "A1", lastCol, headerStyle); err != nil {
		return fmt.Errorf("failed to style %s header: %w", table.Name, err)
	}

	for r, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell: %w", err)
		}
		values := row
		if err := f.SetSheetRow(table.Name, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", table.Name, r+1, err)
		}
		for i, v := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], len(fmt.Sprint(v)))
			}
		}
	}

	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to compute column name: %w", err)
		}
		if err := f.SetColWidth(table.Name, col, col, float64(min(max(width+2, minColWidth), maxColWidth))); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}

	if err := f.SetPanes(table.Name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze %s header: %w", table.Name, err)
	}

	return nil
}
