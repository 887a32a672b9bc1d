package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/tradewinds/internal/classify"
	"github.com/Veraticus/tradewinds/internal/common"
	"github.com/Veraticus/tradewinds/internal/intel"
	"github.com/Veraticus/tradewinds/internal/llm"
	"github.com/Veraticus/tradewinds/internal/reference"
	"github.com/Veraticus/tradewinds/internal/server"
)

// EnvPrefix is prepended to every environment override, e.g. TRADEWINDS_SERVER_PORT.
const EnvPrefix = "TRADEWINDS"

// Session store backends.
const (
	SessionBackendMemory = "memory"
	SessionBackendSQLite = "sqlite"
)

// Vision model defaults.
const (
	DefaultVisionModel         = "meta-llama/llama-4-scout-17b-16e-instruct"
	DefaultVisionFallbackModel = "meta-llama/llama-4-maverick-17b-128e-instruct"
)

// Retired vision models and their replacements.
var deprecatedVisionModels = map[string]string{
	"llama-3.2-11b-vision-preview": DefaultVisionModel,
	"llama-3.2-90b-vision-preview": DefaultVisionModel,
}

// Environment names predating the TRADEWINDS_ prefix.
var legacyEnv = map[string]string{
	"llm.api_key":                 "GROQ_API_KEY",
	"llm.base_url":                "GROQ_BASE_URL",
	"llm.model":                   "AI_MODEL",
	"llm.vision_model":            "VISION_MODEL",
	"llm.vision_fallback_model":   "VISION_FALLBACK_MODEL",
	"sheets.client_id":            "GOOGLE_SHEETS_CLIENT_ID",
	"sheets.client_secret":        "GOOGLE_SHEETS_CLIENT_SECRET",
	"sheets.refresh_token":        "GOOGLE_SHEETS_REFRESH_TOKEN",
	"sheets.service_account_path": "GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH",
	"sheets.spreadsheet_id":       "GOOGLE_SHEETS_SPREADSHEET_ID",
	"sheets.spreadsheet_name":     "GOOGLE_SHEETS_SPREADSHEET_NAME",
}

// Config is the complete application configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Sessions SessionsConfig `mapstructure:"sessions"`
	Data     DataConfig     `mapstructure:"data"`
	Globe    GlobeConfig    `mapstructure:"globe"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Server   ServerConfig   `mapstructure:"server"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LLMConfig configures the language model provider.
type LLMConfig struct {
	Provider            string        `mapstructure:"provider"`
	APIKey              string        `mapstructure:"api_key"`
	BaseURL             string        `mapstructure:"base_url"`
	Model               string        `mapstructure:"model"`
	VisionModel         string        `mapstructure:"vision_model"`
	VisionFallbackModel string        `mapstructure:"vision_fallback_model"`
	MaxTokens           int           `mapstructure:"max_tokens"`
	Timeout             time.Duration `mapstructure:"timeout"`
	RateLimit           int           `mapstructure:"rate_limit"`
	Enabled             bool          `mapstructure:"enabled"`
}

// DataConfig points at reference data files. Empty paths use the embedded defaults.
type DataConfig struct {
	Tariffs     string `mapstructure:"tariffs"`
	Agreements  string `mapstructure:"agreements"`
	CountryRisk string `mapstructure:"country_risk"`
}

// SessionsConfig selects the session store.
type SessionsConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// GlobeConfig controls the map flow file. An empty path disables it.
type GlobeConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", server.DefaultReadTimeout)
	v.SetDefault("server.write_timeout", server.DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", server.DefaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.enabled", true)
	v.SetDefault("llm.provider", llm.ProviderGroq)
	v.SetDefault("llm.base_url", llm.DefaultGroqBaseURL)
	v.SetDefault("llm.model", llm.DefaultGroqModel)
	v.SetDefault("llm.vision_model", DefaultVisionModel)
	v.SetDefault("llm.vision_fallback_model", DefaultVisionFallbackModel)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.rate_limit", 30)
	v.SetDefault("llm.api_key", "")

	v.SetDefault("data.tariffs", "")
	v.SetDefault("data.agreements", "")
	v.SetDefault("data.country_risk", "")

	v.SetDefault("sessions.backend", SessionBackendMemory)
	v.SetDefault("sessions.path", "~/.local/share/tradewinds/sessions.db")

	v.SetDefault("globe.path", "")
}

// BindEnv enables TRADEWINDS_* overrides and the legacy variable names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return fmt.Errorf("failed to bind %s: %w", legacy, err)
		}
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(ExpandPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load decodes v into a Config and normalizes it.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.LLM.VisionModel = ReplaceDeprecatedVisionModel(strings.TrimSpace(cfg.LLM.VisionModel))
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	cfg.LLM.APIKey = strings.TrimSpace(cfg.LLM.APIKey)
	cfg.Sessions.Backend = strings.ToLower(strings.TrimSpace(cfg.Sessions.Backend))
	cfg.Sessions.Path = ExpandPath(cfg.Sessions.Path)
	cfg.Globe.Path = ExpandPath(cfg.Globe.Path)
	cfg.Data.Tariffs = ExpandPath(cfg.Data.Tariffs)
	cfg.Data.Agreements = ExpandPath(cfg.Data.Agreements)
	cfg.Data.CountryRisk = ExpandPath(cfg.Data.CountryRisk)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReplaceDeprecatedVisionModel maps retired vision models to their successor.
func ReplaceDeprecatedVisionModel(model string) string {
	if replacement, ok := deprecatedVisionModels[model]; ok {
		return replacement
	}
	return model
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", common.ErrInvalidConfig, c.Server.Port)
	}
	switch c.Sessions.Backend {
	case   SessionBackendMemory:
	case   SessionBackendSQLite:
		if c.Sessions.Path == "" {
			return fmt.Errorf("%w: sessions.path is required for the sqlite backend", common.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown sessions.backend %q", common.ErrInvalidConfig, c.Sessions.Backend)
	}
	switch c.LLM.Provider {
	case   llm.ProviderGroq, llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", common.ErrInvalidConfig, c.LLM.Provider)
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("%w: llm.max_tokens must be positive", common.ErrInvalidConfig)
	}
	return nil
}

// ReferencePaths returns the reference data locations.
func (c *Config) ReferencePaths() reference.Paths {
	return reference.Paths{
		Tariffs:     c.Data.Tariffs,
		Agreements:  c.Data.Agreements,
		CountryRisk: c.Data.CountryRisk,
	}
}

// LLMClientConfig returns the settings for the text model client.
func (c *Config) LLMClientConfig() llm.Config {
	return llm.Config{
		Provider:  c.LLM.Provider,
		APIKey:    c.LLM.APIKey,
		BaseURL:   c.LLM.BaseURL,
		Model:     c.LLM.Model,
		Timeout:   c.LLM.Timeout,
		MaxTokens: c.LLM.MaxTokens,
		RateLimit: c.LLM.RateLimit,
	}
}

// ClassifierConfig returns the settings for the product classifier.
func (c *Config) ClassifierConfig() classify.Config {
	return classify.Config{
		LLM:                 c.LLMClientConfig(),
		VisionModel:         c.LLM.VisionModel,
		VisionFallbackModel: c.LLM.VisionFallbackModel,
		MaxTokens:           c.LLM.MaxTokens,
		Enabled:             c.LLM.Enabled,
	}
}

// IntelConfig returns the settings for the trade intel generator.
func (c *Config) IntelConfig() intel.Config {
	return intel.Config{
		LLM:       c.LLMClientConfig(),
		MaxTokens: c.LLM.MaxTokens,
		Enabled:   c.LLM.Enabled,
	}
}

// ServerConfig returns the HTTP server settings.
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Host:            c.Server.Host,
		CORSOrigins:     c.Server.CORSOrigins,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}
