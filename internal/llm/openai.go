package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// openAIClient talks to any OpenAI-compatible chat completions endpoint.
type openAIClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	model      string
	maxTokens  int
}

func newOpenAIClient(cfg Config, httpClient *http.Client, limiter *rate.Limiter) *openAIClient {
	return &openAIClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		limiter:    limiter,
		httpClient: httpClient,
	}
}

type openAIMessage struct {
	Content any    `json:"content"`
	Role    string `json:"role"`
}

type openAIContentPart struct {
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

// openAIResponse represents the chat completions response structure.
type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Complete sends req as a single user turn, with an optional system message.
func (c *openAIClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := waitForSlot(ctx, c.limiter); err != nil {
		return Response{}, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	body := openAIRequest{
		Model:       model,
		Messages:    buildOpenAIMessages(req),
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Response{}, classifyOpenAIError(model, resp.StatusCode, respBody)
	}

	var parsed openAIResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Response{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("no completion choices returned")
	}

	return Response{
		Content:      strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model:        parsed.Model,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	}, nil
}

func buildOpenAIMessages(req Request) []openAIMessage {
	var messages []openAIMessage
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}

	if len(req.Images) == 0 {
		return append(messages, openAIMessage{Role: "user", Content: req.Prompt})
	}

	parts := []openAIContentPart{{Type: "text", Text: req.Prompt}}
	for _, img := range req.Images {
		parts = append(parts, openAIContentPart{
			Type: "image_url",
			ImageURL: &openAIImageURL{
				URL: "data:" + NormalizeImageMIME(img.MIMEType) + ";base64," + img.Data,
			},
		})
	}
	return append(messages, openAIMessage{Role: "user", Content: parts})
}

func classifyOpenAIError(model string, status int, body []byte) error {
	var parsed openAIErrorBody
	_ = json.Unmarshal(body, &parsed)

	switch {
	case parsed.Error.Code == "model_decommissioned",
		parsed.Error.Code == "model_not_found",
		strings.Contains(strings.ToLower(parsed.Error.Message), "decommissioned"):
		return fmt.Errorf("%w: %s: %s", ErrModelUnavailable, model, parsed.Error.Message)
	}

	return fmt.Errorf("API error (status %d): %s", status, string(body))
}
