package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/tradewinds/internal/cli"
	"github.com/Veraticus/tradewinds/internal/model"
	"github.com/Veraticus/tradewinds/internal/risk"
	"github.com/Veraticus/tradewinds/internal/tariff"
)

type tariffResult struct {
	HSCode        string              `json:"hs_code"`
	Match         tariff.Match        `json:"match"`
	Origin        string              `json:"manufacturing_country"`
	Destination   string              `json:"destination_country"`
	RiskLevel     string              `json:"risk_level"`
	Tariff        model.TariffSummary `json:"tariff_summary"`
	DeclaredValue float64             `json:"declared_value"`
	RiskScore     float64             `json:"risk_score"`
}

func tariffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tariff",
		Short: "Estimate duty and risk for a known HS code",
		Long: `Resolve the duty for an HS code on a trade lane and score its risk.

Only the reference tables are used; no model is called.`,
		Example: `  tradewinds tariff --hs 6109.10 --from CN --to US --value 12000`,
		RunE:    runTariff,
	}

	cmd.Flags().String("hs", "", "HS code (any punctuation)")
	cmd.Flags().String("from", "", "manufacturing country (ISO2)")
	cmd.Flags().String("to", "", "destination country (ISO2)")
	cmd.Flags().Float64("value", 0, "declared value in USD")
	cmd.Flags().Bool("json", false, "print JSON instead of a summary box")
	_ = cmd.MarkFlagRequired("hs")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runTariff(cmd *cobra.Command, _ []string) error {
	hs, _ := cmd.Flags().GetString("hs")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	value, _ := cmd.Flags().GetFloat64("value")
	asJSON, _ := cmd.Flags().GetBool("json")

	if value < 0 {
		return fmt.Errorf("--value must not be negative")
	}

	eng, err := newEngine(appConfig, slog.Default())
	if err != nil {
		return err
	}

	result := estimateTariff(eng, hs, strings.ToUpper(strings.TrimSpace(from)), strings.ToUpper(strings.TrimSpace(to)), value)

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if _, err := fmt.Fprintln(out, cli.RenderTariff(result.HSCode, result.Origin, result.Destination, result.DeclaredValue, result.Tariff, result.RiskScore)); err != nil {
		return err
	}
	if result.Match != tariff.MatchExact {
		_, err = fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("No exact tariff for %s; used %s rates.", result.HSCode, result.Match)))
	}
	return err
}

func estimateTariff(eng *engine, hs, origin, destination string, value float64) tariffResult {
	code := tariff.NormalizeHS(hs)
	_, match := eng.resolver.Rates(code)
	summary := eng.resolver.Resolve(code, origin, destination, value)
	score := eng.scorer.Score(origin, destination, summary.TotalDutyPercent, nil)

	return tariffResult{
		HSCode:        code,
		Match:         match,
		Origin:        origin,
		Destination:   destination,
		RiskLevel:     risk.Level(score),
		Tariff:        summary,
		DeclaredValue: value,
		RiskScore:     score,
	}
}
