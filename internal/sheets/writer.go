package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/export"
)

const maxRetryDelay = 30 * time.Second

// Writer exports analysis sessions to a Google spreadsheet, one tab per table.
type Writer struct {
	api    spreadsheetAPI
	logger *slog.Logger
	config Config
}

// NewWriter creates a new Google Sheets writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(&googleAPI{srv: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultConfig().BatchSize
	}
	return &Writer{api: api, config: config, logger: logger}
}

// Write replaces the contents of every tab with sessions and returns the
// spreadsheet ID.
func (w *Writer) Write(ctx context.Context, sessions []*analysis.Session) (string, error) {
	tables := export.Tables(sessions)

	w.logger.Info("Starting spreadsheet export", "sessions", len(sessions))

	retryOpts := common.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     maxRetryDelay,
		Multiplier:   2.0,
	}

	var (
		spreadsheetID string
		sheetIDs      map[string]int64
	)
	err := common.WithRetry(ctx, func() error {
		var err error
		spreadsheetID, sheetIDs, err = w.ensureSpreadsheet(ctx, tables)
		return err
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	rows := 0
	for _, table := range tables {
		values := tableValues(table)

		err := common.WithRetry(ctx, func() error {
			return w.api.Clear(ctx, spreadsheetID, tabRange(table.Name, "A:Z"))
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to clear %s: %w", table.Name, err)
		}

		err = common.WithRetry(ctx, func() error {
			return w.writeValues(ctx, spreadsheetID, table.Name, values)
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", table.Name, err)
		}
		rows += len(table.Rows)
	}

	if w.config.EnableFormatting {
		err := common.WithRetry(ctx, func() error {
			return w.api.BatchUpdate(ctx, spreadsheetID, formatRequests(tables, sheetIDs))
		}, retryOpts)
		if err != nil {
			// Data is already written.
			w.logger.Warn("Failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("Spreadsheet export completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", rows)

	return spreadsheetID, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		tokenSource = oauthConfig(config.ClientID, config.ClientSecret, "").TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// ensureSpreadsheet returns the configured spreadsheet, or a new one, with a
// tab for every table. The map holds the numeric ID of each tab by title.
func (w *Writer) ensureSpreadsheet(ctx context.Context, tables []export.Table) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		return w.createSpreadsheet(ctx, tables)
	}

	spreadsheet, err := w.api.Get(ctx, w.config.SpreadsheetID)
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIDsByTitle(spreadsheet)

	var missing []*sheets.Request
	for _, table := range tables {
		if _, ok := ids[table.Name]; !ok {
			missing = append(missing, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: table.Name},
				},
			})
		}
	}
	if len(missing) == 0 {
		return w.config.SpreadsheetID, ids, nil
	}

	if err := w.api.BatchUpdate(ctx, w.config.SpreadsheetID, missing); err != nil {
		return "", nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	w.logger.Info("Added missing tabs", "count", len(missing))

	spreadsheet, err = w.api.Get(ctx, w.config.SpreadsheetID)
	if err != nil {
		return "", nil, fmt.Errorf("unable to reload spreadsheet: %w", err)
	}
	return w.config.SpreadsheetID, sheetIDsByTitle(spreadsheet), nil
}

func (w *Writer) createSpreadsheet(ctx context.Context, tables []export.Table) (string, map[string]int64, error) {
	name := w.config.SpreadsheetName
	if name == "" {
		name = DefaultSpreadsheetName
	}

	spreadsheet := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    name,
			TimeZone: w.config.TimeZone,
		},
	}
	for _, table := range tables {
		spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
			Properties: &sheets.SheetProperties{Title: table.Name},
		})
	}

	created, err := w.api.Create(ctx, spreadsheet)
	if err != nil {
		return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	// Later writes go to the same spreadsheet.
	w.config.SpreadsheetID = created.SpreadsheetId
	return created.SpreadsheetId, sheetIDsByTitle(created), nil
}

func sheetIDsByTitle(spreadsheet *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(spreadsheet.Sheets))
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil {
			ids[sheet.Properties.Title] = sheet.Properties.SheetId
		}
	}
	return ids
}

// writeValues writes values in batches to avoid API limits.
func (w *Writer) writeValues(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		if err := w.api.Update(ctx, spreadsheetID, tabRange(tab, fmt.Sprintf("A%d", i+1)), batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("Wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func tableValues(table export.Table) [][]any {
	values := make([][]any, 0, len(table.Rows)+1)

	header := make([]any, len(table.Headers))
	for i, h := range table.Headers {
		header[i] = h
	}
	values = append(values, header)
	return append(values, table.Rows...)
}

func tabRange(tab, cells string) string {
	return fmt.Sprintf("'%s'!%s", tab, cells)
}

// formatRequests bolds and freezes each header row and sizes the columns.
func formatRequests(tables []export.Table, sheetIDs map[string]int64) []*sheets.Request {
	var requests []*sheets.Request
	for _, table := range tables {
		id, ok := sheetIDs[table.Name]
		if !ok {
			continue
		}
		columns := int64(len(table.Headers))

		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          id,
						StartRowIndex:    0,
						EndRowIndex:      1,
						StartColumnIndex: 0,
						EndColumnIndex:   columns,
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat.bold",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: id,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   columns,
					},
				},
			},
		)
	}
	return requests
}
