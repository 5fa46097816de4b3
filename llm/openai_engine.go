package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"pdf_summarizer/logging"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConfig holds configuration for an OpenAI-compatible engine.
type OpenAIConfig struct {
	// APIKey is optional for local servers.
	APIKey string

	// BaseURL is the primary endpoint, usually TEXT_LLM_URL.
	BaseURL string

	// FallbackURL is used when BaseURL is empty, usually BASE_LLM_URL.
	FallbackURL string

	// HTTPClient should carry TLS settings and the AI timeout.
	HTTPClient *http.Client
}

// OpenAIEngine talks to any server implementing the OpenAI chat API
// (LM Studio, llama.cpp server, vLLM, Ollama, or OpenAI itself).
//
// Example:
//
//	engine := llm.NewOpenAIEngine(llm.OpenAIConfig{
//	    BaseURL:    cfg.TextLLMURL,
//	    FallbackURL: cfg.BaseLLMURL,
//	    HTTPClient: core.GetHTTPClient(cfg, cfg.AITimeout),
//	}, logger)
//	if err := engine.Reload(ctx, "phi-3-mini-4k-instruct"); err != nil { ... }
type OpenAIEngine struct {
	client *openai.Client
	logger *logging.Logger

	mu         sync.Mutex
	model      string
	onProgress func(InitProgress)
}

// NewOpenAIEngine creates an unloaded engine.
func NewOpenAIEngine(cfg OpenAIConfig, logger *logging.Logger) *OpenAIEngine {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if baseURL := ResolveBaseURL(cfg.BaseURL, cfg.FallbackURL); baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &OpenAIEngine{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger.Named("openai"),
	}
}

// SetInitProgressCallback implements InitProgressReporter.
func (e *OpenAIEngine) SetInitProgressCallback(fn func(InitProgress)) {
	e.mu.Lock()
	e.onProgress = fn
	e.mu.Unlock()
}

// Model returns the active model id.
func (e *OpenAIEngine) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// Reload verifies that the server serves modelID and makes it active.
func (e *OpenAIEngine) Reload(ctx context.Context, modelID string) error {
	e.report(InitProgress{Text: "Fetching model " + modelID, Progress: 0})

	if _, err := e.client.GetModel(ctx, modelID); err != nil {
		e.logger.Debug("model lookup failed", zap.String("model", modelID), zap.Error(err))
		return newLoadError(modelID, err)
	}

	e.mu.Lock()
	e.model = modelID
	e.mu.Unlock()

	e.report(InitProgress{Text: "Model " + modelID + " ready", Progress: 1})
	return nil
}

// Complete runs a chat completion against the active model.
func (e *OpenAIEngine) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := e.Model()
	if model == "" {
		return nil, newCompleteError("", ErrModelNotLoaded)
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, newCompleteError(model, err)
	}

	out := &CompletionResponse{Model: resp.Model, Choices: make([]Choice, 0, len(resp.Choices))}
	for _, c := range resp.Choices {
		out.Choices = append(out.Choices, Choice{Text: c.Message.Content})
	}
	e.logger.Debug("completion finished",
		zap.String("model", model),
		zap.Int("choices", len(out.Choices)),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return out, nil
}

func (e *OpenAIEngine) report(p InitProgress) {
	e.mu.Lock()
	fn := e.onProgress
	e.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// backendMessage extracts the server's own error text where the client
// library exposes it.
func backendMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
