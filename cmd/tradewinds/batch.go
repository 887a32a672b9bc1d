package main

import (
	"cmp"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/cli"
	"github.com/Veraticus/tradewinds/internal/config"
	"github.com/Veraticus/tradewinds/internal/export"
	"github.com/Veraticus/tradewinds/internal/sheets"
)

const defaultBatchConcurrency = 4

var batchColumns = []string{"name", "description", "from", "to", "value"}

// sessionWriter publishes finished analyses somewhere outside the process.
type sessionWriter interface {
	Write(ctx context.Context, sessions []*analysis.Session) (string, error)
}

type analyzeFunc func(ctx context.Context, req analysis.AnalyzeRequest) (*analysis.Session, error)

// batchRow is one CSV line with its 1-based line number.
type batchRow struct {
	Request analysis.AnalyzeRequest
	Line    int
}

// batchFailure records a row that could not be analyzed.
type batchFailure struct {
	Err  error
	Name string
	Line int
}

type batchResult struct {
	Sessions []*analysis.Session
	Failures []batchFailure
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file.csv>",
		Short: "Analyze every product in a CSV file",
		Long: `Analyze products listed in a CSV file and export the results.

The CSV needs the columns name, description, from, to and value, in that
order. A header row is detected and skipped. Rows that fail are reported
and left out of the export.`,
		Example: `  tradewinds batch products.csv --xlsx report.xlsx
  tradewinds batch products.csv --concurrency 8 --sheets`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().String("xlsx", "tradewinds-report.xlsx", "Excel workbook to write (empty to skip)")
	cmd.Flags().Bool("sheets", false, "also export to Google Sheets")
	cmd.Flags().Int("concurrency", defaultBatchConcurrency, "number of analyses to run in parallel")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	toSheets, _ := cmd.Flags().GetBool("sheets")
	concurrency, _ := cmd.Flags().GetInt("concurrency")

	f, err := os.Open(args[0]) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer func() { _ = f.Close() }()

	rows, err := parseBatchCSV(f)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s has no rows to analyze", args[0])
	}

	var writer sessionWriter
	if toSheets {
		sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
		if err != nil {
			return fmt.Errorf("google sheets is not configured: %w", err)
		}
		writer, err = sheets.NewWriter(cmd.Context(), *sheetsConfig, logger)
		if err != nil {
			return err
		}
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Finished analyses will still be exported.")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	app, err := newApplication(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	bar := cli.NewProgressBar(cmd.ErrOrStderr(), len(rows), "Analyzing products...")
	result := analyzeRows(ctx, rows, concurrency, app.service.Analyze, func() {
		if err := bar.Add(1); err != nil {
			logger.Warn("Failed to update progress bar", "error", err)
		}
	})

	out := cmd.OutOrStdout()
	for _, failure := range result.Failures {
		_, _ = fmt.Fprintln(out, cli.FormatError(fmt.Sprintf("line %d (%s): %s", failure.Line, failure.Name, failure.Err)))
	}
	_, _ = fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%d of %d products analyzed", len(result.Sessions), len(rows))))

	if len(result.Sessions) == 0 {
		return errors.New("no analyses succeeded")
	}

	// Exports run even after an interrupt.
	if err := exportSessions(context.WithoutCancel(ctx), out, result.Sessions, xlsxPath, writer); err != nil {
		return err
	}

	if handler.WasInterrupted() {
		return ctx.Err()
	}
	return nil
}

// exportSessions writes the workbook when xlsxPath is set and publishes to
// writer when it is not nil.
func exportSessions(ctx context.Context, out io.Writer, sessions []*analysis.Session, xlsxPath string, writer sessionWriter) error {
	if xlsxPath != "" {
		if err := writeWorkbookFile(xlsxPath, sessions); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Wrote "+xlsxPath))
	}

	if writer != nil {
		id, err := writer.Write(ctx, sessions)
		if err != nil {
			return fmt.Errorf("failed to export to google sheets: %w", err)
		}
		_, _ = fmt.Fprintln(out, cli.FormatSuccess("Exported to https://docs.google.com/spreadsheets/d/"+id))
	}
	return nil
}

// analyzeRows runs the analyses with at most concurrency in flight. Failed
// rows are collected rather than stopping the batch. Sessions keep CSV order.
func analyzeRows(ctx context.Context, rows []batchRow, concurrency int, analyze analyzeFunc, progress func()) batchResult {
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}

	sessions := make([]*analysis.Session, len(rows))
	var (
		mu       sync.Mutex
		failures []batchFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	for i, row := range rows {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer progress()

			session, err := analyze(ctx, row.Request)
			if err != nil {
				mu.Lock()
				failures = append(failures, batchFailure{Line: row.Line, Name: row.Request.ProductName, Err: err})
				mu.Unlock()
				return nil
			}
			sessions[i] = session
			return nil
		})
	}
	_ = g.Wait()

	result := batchResult{Failures: failures}
	for _, s := range sessions {
		if s != nil {
			result.Sessions = append(result.Sessions, s)
		}
	}
	slices.SortFunc(result.Failures, func(a, b batchFailure) int { return cmp.Compare(a.Line, b.Line) })
	return result
}

// parseBatchCSV reads name, description, from, to and value columns.
func parseBatchCSV(r io.Reader) ([]batchRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []batchRow
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line++

		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) < len(batchColumns) {
			return nil, fmt.Errorf("line %d: expected %d columns (%s), got %d",
				line, len(batchColumns), strings.Join(batchColumns, ", "), len(record))
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid value %q: %w", line, record[4], err)
		}

		rows = append(rows, batchRow{
			Line: line,
			Request: analysis.AnalyzeRequest{
				ProductName:          record[0],
				Description:          record[1],
				ManufacturingCountry: record[2],
				DestinationCountry:   record[3],
				DeclaredValue:        value,
			},
		})
	}
	return rows, nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), batchColumns[0])
}

func writeWorkbookFile(path string, sessions []*analysis.Session) (err error) {
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if err := export.WriteWorkbook(f, sessions); err != nil {
		return err
	}
	return nil
}
