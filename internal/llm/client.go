package llm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Provider names accepted by NewClient.
const (
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default endpoints and models.
const (
	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultClaudeModel   = "claude-sonnet-4-5"
)

// ErrModelUnavailable marks failures caused by a model that was retired or
// does not exist. Callers may try another model when they see it.
var ErrModelUnavailable = errors.New("model unavailable")

// IsModelUnavailable reports whether err was caused by an unavailable model.
func IsModelUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable)
}

// Client is implemented by every provider.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Image is an inline, base64-encoded image attachment.
type Image struct {
	MIMEType string
	Data     string
}

// Request is a single-turn chat completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Images      []Image
	Temperature float64
	MaxTokens   int
}

// Response is the text produced by the model.
type Response struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
	RateLimit int
}

// WithAPIKey returns a copy of c using key.
func (c Config) WithAPIKey(key string) Config {
	c.APIKey = key
	return c
}

var allowedImageMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

// NormalizeImageMIME lowercases mimeType and falls back to image/jpeg for
// anything other than jpeg, png, webp or gif.
func NormalizeImageMIME(mimeType string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if _, ok := allowedImageMIMETypes[normalized]; ok {
		return normalized
	}
	return "image/jpeg"
}

// StripCodeFences removes a markdown code fence wrapper from model output.
func StripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.ReplaceAll(content, "```json", "")
	content = strings.ReplaceAll(content, "```", "")
	return strings.TrimSpace(content)
}
