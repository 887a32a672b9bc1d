package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tradewinds/internal/analysis"
	"github.com/Veraticus/tradewinds/internal/cli"
)

// maxImageBytes bounds the size of --image files.
const maxImageBytes = 10 << 20

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a single product",
		Long: `Classify a product with the configured model, then estimate duty, risk and
trade intelligence for the lane.

Either --description or --image is required. With only an image, a vision
model describes the product first.`,
		Example: `  tradewinds analyze --name "Cotton T-Shirt" --description "Knitted cotton tee" --from CN --to US --value 12000
  tradewinds analyze --name Motor --image motor.jpg --from DE --to US --value 5000 --json`,
		RunE: runAnalyze,
	}

	cmd.Flags().String("name", "", "product name")
	cmd.Flags().String("description", "", "product description")
	cmd.Flags().String("image", "", "path to a product photo")
	cmd.Flags().String("from", "", "manufacturing country (ISO2)")
	cmd.Flags().String("to", "", "destination country (ISO2)")
	cmd.Flags().Float64("value", 0, "declared value in USD")
	cmd.Flags().String("api-key", "", "model API key for this request (overrides llm.api_key)")
	cmd.Flags().Bool("json", false, "print the raw analysis as JSON")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.Default()

	req := analysis.AnalyzeRequest{}
	req.ProductName, _ = cmd.Flags().GetString("name")
	req.Description, _ = cmd.Flags().GetString("description")
	req.ManufacturingCountry, _ = cmd.Flags().GetString("from")
	req.DestinationCountry, _ = cmd.Flags().GetString("to")
	req.DeclaredValue, _ = cmd.Flags().GetFloat64("value")
	req.APIKey, _ = cmd.Flags().GetString("api-key")
	asJSON, _ := cmd.Flags().GetBool("json")

	if imagePath, _ := cmd.Flags().GetString("image"); imagePath != "" {
		data, mimeType, err := readImage(imagePath)
		if err != nil {
			return err
		}
		req.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		req.ImageMIMEType = mimeType
	}

	app, err := newApplication(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()

	session, err := app.service.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	return printSession(cmd.OutOrStdout(), session, asJSON)
}

func printSession(w io.Writer, session *analysis.Session, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(session)
	}
	_, err := fmt.Fprintln(w, cli.RenderAnalysis(session))
	return err
}

// readImage loads an image file and works out its MIME type from the
// extension, falling back to content sniffing.
func readImage(path string) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if info.Size() > maxImageBytes {
		return nil, "", fmt.Errorf("image %s is larger than %d bytes", path, maxImageBytes)
	}

	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return data, mimeType, nil
}
