package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/time/rate"
)

const defaultClaudeMaxTokens = 2048

// anthropicClient implements Client on top of the Anthropic Messages API.
type anthropicClient struct {
	client    anthropic.Client
	limiter   *rate.Limiter
	model     string
	maxTokens int
}

func newAnthropicClient(cfg Config, httpClient *http.Client, limiter *rate.Limiter) *anthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultClaudeMaxTokens
	}

	return &anthropicClient{
		client:    anthropic.NewClient(opts...),
		limiter:   limiter,
		model:     cfg.Model,
		maxTokens: maxTokens,
	}
}

// Complete sends req to the Messages API and joins the returned text blocks.
func (c *anthropicClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := waitForSlot(ctx, c.limiter); err != nil {
		return Response{}, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Prompt)}
	for _, img := range req.Images {
		blocks = append(blocks, anthropic.NewImageBlockBase64(NormalizeImageMIME(img.MIMEType), img.Data))
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return Response{}, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, model, err)
		}
		return Response{}, fmt.Errorf("anthropic API error: %w", err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return Response{}, fmt.Errorf("no text content in Anthropic response")
	}

	return Response{
		Content:      strings.TrimSpace(text.String()),
		Model:        string(message.Model),
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}, nil
}
