package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/tradewinds/internal/jsondoc"
	"github.com/Veraticus/tradewinds/internal/llm"
	"github.com/Veraticus/tradewinds/internal/model"
)

const intelTemperature = 0.2

// Config configures a Generator.
type Config struct {
	LLM       llm.Config
	MaxTokens int
	Enabled   bool
}

// Input is the analysis context the intelligence cards are generated for.
type Input struct {
	FallbackInput
	AIExplanation string
	APIKey        string
}

// Generator asks a language model for trade intelligence and falls back to a
// deterministic bundle whenever that is not possible.
type Generator struct {
	defaultClient llm.Client
	newClient     llm.Factory
	logger        *slog.Logger
	cfg           Config
}

// NewGenerator creates a generator. A nil factory uses a pool built from cfg.LLM.
func NewGenerator(cfg Config, factory llm.Factory, logger *slog.Logger) *Generator {
	if factory == nil {
		factory = llm.NewPool(cfg.LLM).NewClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := &Generator{cfg: cfg, newClient: factory, logger: logger}
	if cfg.Enabled && strings.TrimSpace(cfg.LLM.APIKey) != "" {
		client, err := factory(cfg.LLM)
		if err != nil {
			logger.Warn("Default LLM client unavailable for trade intel", "error", err)
		} else {
			g.defaultClient = client
		}
	}
	return g
}

func (g *Generator) resolveClient(apiKey string) llm.Client {
	if !g.cfg.Enabled {
		return nil
	}
	if key := strings.TrimSpace(apiKey); key != "" {
		client, err := g.newClient(g.cfg.LLM.WithAPIKey(key))
		if err != nil {
			g.logger.Warn("Could not build LLM client from request key", "error", err)
			return nil
		}
		return client
	}
	return g.defaultClient
}

// Generate returns model-written intelligence, or the deterministic fallback
// when no client is available or anything about the call goes wrong.
func (g *Generator) Generate(ctx context.Context, in Input) model.TradeIntel {
	fallback := BuildFallback(in.FallbackInput)

	client := g.resolveClient(in.APIKey)
	if client == nil {
		return fallback
	}

	prompt, err := buildPrompt(in)
	if err != nil {
		g.logger.Warn("Could not build trade intel prompt", "error", err)
		return fallback
	}

	resp, err := client.Complete(ctx, llm.Request{
		Model:       g.cfg.LLM.Model,
		Prompt:      prompt,
		Temperature: intelTemperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		g.logger.Warn("Trade intel request failed, using fallback",
			"hs_code", in.HSCode,
			"error", err)
		return fallback
	}

	parsed, err := jsondoc.Parse([]byte(llm.StripCodeFences(resp.Content)))
	if err != nil {
		g.logger.Warn("Trade intel response was not JSON, using fallback",
			"hs_code", in.HSCode,
			"error", err)
		return fallback
	}
	if parsed.Kind() != jsondoc.Object {
		g.logger.Warn("Trade intel response was not an object, using fallback",
			"hs_code", in.HSCode,
			"kind", parsed.Kind().String())
		return fallback
	}

	return NormalizeTradeIntel(parsed, fallback)
}

func buildPrompt(in Input) (string, error) {
	tariffJSON, err := json.Marshal(in.Tariff)
	if err != nil {
		return "", fmt.Errorf("failed to encode tariff summary: %w", err)
	}

	return fmt.Sprintf(`You are a trade operations analyst.
Generate JSON only for UI cards.

Product: %s
HS code: %s
Lane: %s -> %s
Declared value USD: %s
Risk score: %s
Tariff summary: %s
Existing AI classification note: %s

Return strict JSON:
{
  "recent_insights": [
    {"title": "string", "detail": "1-2 sentence market/compliance signal"}
  ],
  "shipping_options": [
    {
      "mode": "SEA|AIR|RAIL|ROAD|INTERMODAL",
      "route": "string",
      "eta_days": number,
      "estimated_cost_usd": number,
      "risk_level": "Low|Medium|High",
      "notes": "short practical note"
    }
  ],
  "compliance_checks": [
    {
      "item": "string",
      "status": "pass|warn|action_required",
      "note": "short actionable note"
    }
  ]
}

Rules:
- Return only valid JSON.
- Provide exactly 3 recent_insights.
- Provide exactly 3 shipping_options with realistic ETA and costs.
- Provide exactly 3 compliance_checks.
- Keep language concise and factual.
`,
		in.ProductName,
		in.HSCode,
		in.Origin, in.Destination,
		strconv.FormatFloat(in.DeclaredValue, 'f', -1, 64),
		strconv.FormatFloat(in.RiskScore, 'f', -1, 64),
		tariffJSON,
		in.AIExplanation,
	), nil
}
