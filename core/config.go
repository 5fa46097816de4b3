package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Supported completion providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModelCandidates are tried in order when MODEL_CANDIDATES is unset.
// The first entry is the preferred model; the others are smaller fallbacks.
var DefaultModelCandidates = []string{
	"phi-3-mini-4k-instruct",
	"tinyllama-1.1b-chat",
	"redpajama-incite-chat-3b",
}

// Config holds all configuration values
type Config struct {
	// Server Configuration
	Host string
	Port int

	// Completion provider
	Provider        string   // "openai" (any OpenAI-compatible server) or "anthropic"
	BaseLLMURL      string   // Default API endpoint for OpenAI-compatible servers
	TextLLMURL      string   // Optional override for text generation
	OpenAIAPIKey    string   // Optional for local servers
	AnthropicAPIKey string   // Required when Provider is "anthropic"
	ModelCandidates []string // Tried in order during initialization
	BreakerEnabled  bool

	// Summarization
	SafeTextLength      int      // Inputs longer than this (in characters) are chunked
	ChunkSize           int      // Maximum chunk length; 0 means SafeTextLength
	ChunkMaxTokens      int      // Token budget for each chunk summary
	FinalMaxTokens      int      // Upper bound for the final summary token budget
	Temperature         float64  // Sampling temperature for every completion
	DefaultMaxLength    int      // Target summary length when the caller gives none
	ContextLimitMarkers []string // Engine error substrings meaning the prompt was too long
	PolicyFile          string

	// Processing Configuration
	AITimeout            time.Duration
	MaxUploadSize        int64
	RateLimitRPS         float64
	RateLimitBurst       int
	AllowSelfSignedCerts bool

	// History
	HistoryEnabled       bool
	HistoryDBPath        string // SQLite file for run history
	HistoryRetentionDays int    // 0 keeps history forever

	// Logging
	LogFile string
	DevMode bool
}

// DefaultContextLimitMarkers are substrings of engine error messages that
// mean the prompt exceeded the model's context window.
var DefaultContextLimitMarkers = []string{
	"ContextWindowSizeExceededError",
	"context_length_exceeded",
	"maximum context length",
	"prompt is too long",
}

// LoadConfig loads configuration from environment variables with sensible
// defaults for a local OpenAI-compatible inference server. Nothing is
// required unless a hosted provider is selected.
func LoadConfig() (*Config, error) {
	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		openAIKey = os.Getenv("OPENAI_KEY") // Legacy support
	}

	provider := strings.ToLower(GetEnvOrDefault("LLM_PROVIDER", ProviderOpenAI))

	candidates := ParseListEnv("MODEL_CANDIDATES")
	if len(candidates) == 0 {
		candidates = append([]string(nil), DefaultModelCandidates...)
	}

	markers := ParseListEnv("CONTEXT_LIMIT_MARKERS")
	if len(markers) == 0 {
		markers = append([]string(nil), DefaultContextLimitMarkers...)
	}

	cfg := &Config{
		Host: GetEnvOrDefault("HOST", "localhost"),
		Port: ParseIntEnv("PORT", 3000),

		Provider:        provider,
		BaseLLMURL:      GetEnvOrDefault("BASE_LLM_URL", "http://127.0.0.1:1234/v1"),
		TextLLMURL:      os.Getenv("TEXT_LLM_URL"),
		OpenAIAPIKey:    openAIKey,
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		ModelCandidates: candidates,
		BreakerEnabled:  ParseBoolEnv("BREAKER_ENABLED", true),

		// 2500 characters keeps one prompt inside a 4k-token context window
		SafeTextLength:      ParseIntEnv("SAFE_TEXT_LENGTH", 2500),
		ChunkSize:           ParseIntEnv("CHUNK_SIZE", 0),
		ChunkMaxTokens:      ParseIntEnv("CHUNK_MAX_TOKENS", 400),
		FinalMaxTokens:      ParseIntEnv("FINAL_MAX_TOKENS", 600),
		Temperature:         ParseFloat64Env("SUMMARY_TEMPERATURE", 0.7),
		DefaultMaxLength:    ParseIntEnv("DEFAULT_MAX_LENGTH", 300),
		ContextLimitMarkers: markers,
		PolicyFile:          os.Getenv("SUMMARY_POLICY_FILE"),

		// 120s accommodates slow local models on long chunks
		AITimeout: ParseDurationEnv("AI_TIMEOUT", 120),
		// 10MB matches the upload form limit
		MaxUploadSize:        ParseInt64Env("MAX_UPLOAD_SIZE", 10*1024*1024),
		RateLimitRPS:         ParseFloat64Env("RATE_LIMIT_RPS", 5),
		RateLimitBurst:       ParseIntEnv("RATE_LIMIT_BURST", 10),
		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),

		HistoryEnabled:       ParseBoolEnv("HISTORY_ENABLED", true),
		HistoryDBPath:        GetEnvOrDefault("HISTORY_DB_PATH", "data/history.db"),
		HistoryRetentionDays: ParseIntEnv("HISTORY_RETENTION_DAYS", 30),

		LogFile: GetEnvOrDefault("LOG_FILE", "app.log"),
		DevMode: ParseBoolEnv("DEV_MODE", false),
	}

	if cfg.PolicyFile != "" {
		policy, err := LoadSummaryPolicy(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy.ApplyTo(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and provider credentials.
func (c *Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
		if c.TextURL() == "" {
			return ErrMissingConfig("BASE_LLM_URL")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			return ErrMissingAuth(ProviderAnthropic)
		}
	default:
		return ErrInvalidProvider(c.Provider)
	}

	if len(c.ModelCandidates) == 0 {
		return ErrMissingConfig("MODEL_CANDIDATES")
	}
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidValue("PORT", fmt.Sprintf("%d", c.Port), "must be between 1 and 65535")
	}
	if c.SafeTextLength < 1 {
		return ErrInvalidValue("SAFE_TEXT_LENGTH", fmt.Sprintf("%d", c.SafeTextLength), "must be positive")
	}
	if c.ChunkSize < 0 {
		return ErrInvalidValue("CHUNK_SIZE", fmt.Sprintf("%d", c.ChunkSize), "must be zero or positive")
	}
	if c.ChunkMaxTokens < 1 || c.FinalMaxTokens < 1 {
		return ErrInvalidValue("CHUNK_MAX_TOKENS/FINAL_MAX_TOKENS", fmt.Sprintf("%d/%d", c.ChunkMaxTokens, c.FinalMaxTokens), "must be positive")
	}
	// go-openai omits a zero temperature from the request, so the server
	// default would apply instead.
	if c.Temperature <= 0 || c.Temperature > 2 {
		return ErrInvalidValue("SUMMARY_TEMPERATURE", fmt.Sprintf("%.2f", c.Temperature), "must be greater than 0 and at most 2")
	}
	if c.DefaultMaxLength < 1 {
		return ErrInvalidValue("DEFAULT_MAX_LENGTH", fmt.Sprintf("%d", c.DefaultMaxLength), "must be positive")
	}
	if c.MaxUploadSize < 1 {
		return ErrInvalidValue("MAX_UPLOAD_SIZE", fmt.Sprintf("%d", c.MaxUploadSize), "must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst < 1 {
		return ErrInvalidValue("RATE_LIMIT_RPS/RATE_LIMIT_BURST", fmt.Sprintf("%.2f/%d", c.RateLimitRPS, c.RateLimitBurst), "must be positive")
	}
	if c.HistoryRetentionDays < 0 {
		return ErrInvalidValue("HISTORY_RETENTION_DAYS", fmt.Sprintf("%d", c.HistoryRetentionDays), "must be zero or positive")
	}
	return nil
}

// TextURL returns the endpoint used for text generation: TEXT_LLM_URL when
// set, otherwise BASE_LLM_URL.
func (c *Config) TextURL() string {
	if c.TextLLMURL != "" {
		return c.TextLLMURL
	}
	return c.BaseLLMURL
}

// HistoryRetention returns the history retention window, zero for forever.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryRetentionDays) * 24 * time.Hour
}

// EffectiveChunkSize returns ChunkSize, or SafeTextLength when unset.
func (c *Config) EffectiveChunkSize() int {
	if c.ChunkSize > 0 {
		return c.ChunkSize
	}
	return c.SafeTextLength
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on AllowSelfSignedCerts.
// Both completion adapters use it so the TLS setting is respected everywhere.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}
