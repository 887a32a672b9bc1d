package llm

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/Veraticus/tradewinds/internal/common"
)

const defaultTimeout = 60 * time.Second

// Factory builds a client from a configuration. Pool.NewClient is the
// production factory; tests substitute their own.
type Factory func(Config) (Client, error)

// Pool hands out clients that share one HTTP client and one rate limiter.
// Clients built for different API keys therefore reuse connections and
// count against the same llm.rate_limit budget. It is safe for concurrent use.
type Pool struct {
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewPool sizes the shared HTTP client from cfg.Timeout and the shared limiter
// from cfg.RateLimit.
func NewPool(cfg Config) *Pool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Pool{
		limiter: newRateLimiter(cfg.RateLimit),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// NewClient creates a client for cfg on the pool's shared transport and
// limiter. cfg.Timeout and cfg.RateLimit are ignored in favour of the pool's.
func (p *Pool) NewClient(cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: %s API key is required", common.ErrMissingConfig, providerName(cfg.Provider))
	}

	switch providerName(cfg.Provider) {
	case ProviderGroq:
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultGroqBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = DefaultGroqModel
		}
		return newOpenAIClient(cfg, p.httpClient, p.limiter), nil
	case ProviderOpenAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultOpenAIBaseURL
		}
		if cfg.Model == "" {
			cfg.Model = DefaultOpenAIModel
		}
		return newOpenAIClient(cfg, p.httpClient, p.limiter), nil
	case ProviderAnthropic:
		if cfg.Model == "" {
			cfg.Model = DefaultClaudeModel
		}
		return newAnthropicClient(cfg, p.httpClient, p.limiter), nil
	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}

// NewClient creates a standalone client with its own pool.
func NewClient(cfg Config) (Client, error) {
	return NewPool(cfg).NewClient(cfg)
}

func providerName(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return ProviderGroq
	}
	return p
}
