package llm

import (
	"pdf_summarizer/core"
	"pdf_summarizer/logging"

	"go.uber.org/zap"
)

// NewEngineFactory returns a factory building the engine selected by
// cfg.Provider, wrapped in a circuit breaker when cfg.BreakerEnabled.
//
// Example:
//
//	factory := llm.NewEngineFactory(cfg, logger)
//	processor := pdfprocessor.NewProcessor(factory, procCfg, logger, recorder)
func NewEngineFactory(cfg *core.Config, logger *logging.Logger) EngineFactory {
	if logger == nil {
		logger = logging.NewNop()
	}

	return func() (Engine, error) {
		httpClient := core.GetHTTPClient(cfg, cfg.AITimeout)

		var engine Engine
		switch cfg.Provider {
		case core.ProviderAnthropic:
			if cfg.AnthropicAPIKey == "" {
				return nil, core.ErrMissingAuth(core.ProviderAnthropic)
			}
			engine = NewAnthropicEngine(AnthropicConfig{
				APIKey:     cfg.AnthropicAPIKey,
				HTTPClient: httpClient,
			}, logger)
		case core.ProviderOpenAI, "":
			engine = NewOpenAIEngine(OpenAIConfig{
				APIKey:      cfg.OpenAIAPIKey,
				BaseURL:     cfg.TextLLMURL,
				FallbackURL: cfg.BaseLLMURL,
				HTTPClient:  httpClient,
			}, logger)
		default:
			return nil, core.ErrInvalidProvider(cfg.Provider)
		}

		logger.Info("completion engine created",
			zap.String("provider", cfg.Provider),
			zap.Bool("breaker", cfg.BreakerEnabled))

		if cfg.BreakerEnabled {
			return NewBreakerEngine(engine, DefaultBreakerConfig(cfg.Provider+"-completions"), logger), nil
		}
		return engine, nil
	}
}
