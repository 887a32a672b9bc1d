// Package classify turns a product description or photo into an HS code and
// material breakdown using a language model, and repairs whatever the model
// returns into a well-formed result.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/jsondoc"
	"github.com/Veraticus/tradewinds/internal/llm"
	"github.com/Veraticus/tradewinds/internal/model"
)

var (
	// ErrInvalidAIOutput is returned when the classification response is not valid JSON.
	ErrInvalidAIOutput = errors.New("AI returned invalid JSON format.") //nolint:revive,staticcheck // user-facing message
	// ErrAIDisabled is returned when AI calls are switched off in configuration.
	ErrAIDisabled = errors.New("AI client is not configured")
	// ErrNoInput is returned when neither a description nor an image was supplied.
	ErrNoInput = errors.New("either description or image is required for classification")
	// ErrNoVisionModel is returned when every configured vision model is unavailable.
	ErrNoVisionModel = errors.New("no working vision model available")
)

const describePrompt = "Describe this product for customs classification. " +
	"Return one concise paragraph including visible materials, intended use, " +
	"construction details, and notable components."

// Config configures a Classifier.
type Config struct {
	LLM                 llm.Config
	VisionModel         string
	VisionFallbackModel string
	MaxTokens           int
	Enabled             bool
}

// Classifier classifies products through a language model.
type Classifier struct {
	defaultClient llm.Client
	newClient     llm.Factory
	logger        *slog.Logger
	cfg           Config
	supportedHS   []string
}

// Input describes one product to classify.
type Input struct {
	ProductName   string
	Description   string
	ImageBase64   string
	ImageMIMEType string
	APIKey        string
}

// New creates a classifier. supportedHS is the sorted list of HS codes known to
// the tariff tables and is offered to the model as guidance. A nil factory
// uses a pool built from cfg.LLM, so per-request keys share its limiter.
func New(cfg Config, supportedHS []string, factory llm.Factory, logger *slog.Logger) *Classifier {
	if factory == nil {
		factory = llm.NewPool(cfg.LLM).NewClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Classifier{
		cfg:         cfg,
		newClient:   factory,
		logger:      logger,
		supportedHS: supportedHS,
	}

	if cfg.Enabled && strings.TrimSpace(cfg.LLM.APIKey) != "" {
		client, err := factory(cfg.LLM)
		if err != nil {
			logger.Warn("Default LLM client unavailable", "error", err)
		} else {
			c.defaultClient = client
		}
	}

	return c
}

// SupportedHSCodes returns the HS codes offered to the model.
func (c *Classifier) SupportedHSCodes() []string {
	out := make([]string, len(c.supportedHS))
	copy(out, c.supportedHS)
	return out
}

// resolveClient prefers a per-request key, then the configured client.
func (c *Classifier) resolveClient(apiKey string) (llm.Client, error) {
	if !c.cfg.Enabled {
		return nil, ErrAIDisabled
	}

	if key := strings.TrimSpace(apiKey); key != "" {
		return c.newClient(c.cfg.LLM.WithAPIKey(key))
	}

	if c.defaultClient != nil {
		return c.defaultClient, nil
	}

	return nil, common.NewUserError(
		"API key missing. Provide an API key in the request or set GROQ_API_KEY in the environment.",
		common.ErrMissingConfig,
	)
}

// Classify resolves a description, asks the model for a classification and
// normalizes the answer. When no description is given the image is described
// first with a vision model.
func (c *Classifier) Classify(ctx context.Context, in Input) (model.ClassificationResult, error) {
	client, err := c.resolveClient(in.APIKey)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		if in.ImageBase64 == "" {
			return model.ClassificationResult{}, ErrNoInput
		}
		description, err = c.describe(ctx, client, in.ProductName, in.ImageBase64, in.ImageMIMEType)
		if err != nil {
			return model.ClassificationResult{}, err
		}
	}

	resp, err := client.Complete(ctx, llm.Request{
		Model:       c.cfg.LLM.Model,
		Prompt:      c.classificationPrompt(in.ProductName, description),
		Temperature: 0,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("classification request failed: %w", err)
	}

	parsed, err := jsondoc.Parse([]byte(llm.StripCodeFences(resp.Content)))
	if err != nil {
		c.logger.Warn("Classification response was not JSON",
			"product", in.ProductName,
			"error", err)
		return model.ClassificationResult{}, ErrInvalidAIOutput
	}

	result := NormalizeClassification(parsed, in.ProductName, c.supportedHS)
	result.ResolvedDescription = description

	c.logger.Debug("Product classified",
		"product", in.ProductName,
		"hs_code", result.HSCode,
		"confidence", result.Confidence,
		"materials", len(result.Materials))

	return result, nil
}

// DescribeImage asks a vision model for a customs-oriented product description.
func (c *Classifier) DescribeImage(ctx context.Context, productName, imageBase64, mimeType, apiKey string) (string, error) {
	client, err := c.resolveClient(apiKey)
	if err != nil {
		return "", err
	}
	return c.describe(ctx, client, productName, imageBase64, mimeType)
}

func (c *Classifier) describe(ctx context.Context, client llm.Client, productName, imageBase64, mimeType string) (string, error) {
	if imageBase64 == "" {
		return "", fmt.Errorf("image data is required for image description")
	}

	models := c.visionModels()
	image := llm.Image{MIMEType: llm.NormalizeImageMIME(mimeType), Data: imageBase64}

	var lastErr error
	for _, visionModel := range models {
		resp, err := client.Complete(ctx, llm.Request{
			Model:       visionModel,
			Prompt:      fmt.Sprintf("Product name hint: %s\n%s", productName, describePrompt),
			Images:      []llm.Image{image},
			Temperature: 0,
			MaxTokens:   c.cfg.MaxTokens,
		})
		if err != nil {
			if llm.IsModelUnavailable(err) {
				c.logger.Warn("Vision model unavailable, trying next",
					"model", visionModel,
					"error", err)
				lastErr = err
				continue
			}
			return "", fmt.Errorf("image description failed: %w", err)
		}

		description := strings.TrimSpace(resp.Content)
		if description == "" {
			return "", fmt.Errorf("vision model %s did not return a usable description", visionModel)
		}
		return description, nil
	}

	return "", fmt.Errorf("%w. Tried: %v. Last error: %v", ErrNoVisionModel, models, lastErr)
}

func (c *Classifier) visionModels() []string {
	var models []string
	for _, m := range []string{c.cfg.VisionModel, c.cfg.VisionFallbackModel} {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	return models
}

func (c *Classifier) classificationPrompt(productName, description string) string {
	guidance := "Any valid HS code"
	if len(c.supportedHS) > 0 {
		guidance = strings.Join(c.supportedHS, ", ")
	}

	return fmt.Sprintf(`You are a global trade classification expert.

Classify the product below and return STRICTLY valid JSON.

Product Name: %s
Description: %s
Supported HS codes for this system: %s

Return format:
{
    "hs_code": "string",
    "confidence": float,
    "explanation": "short reasoning",
    "materials": [
        {
            "id": "unique-id",
            "name": "material name",
            "percentage": float,
            "origin_country": "ISO2 country code",
            "stage": "raw_material"
        }
    ]
}

Important:
- Return ONLY JSON.
- No markdown.
- No backticks.
- No extra commentary.
- Ensure percentages sum to 100.
- Choose an hs_code from the supported list when possible.
`, productName, description, guidance)
}
