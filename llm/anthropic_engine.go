package llm

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"pdf_summarizer/logging"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

// AnthropicConfig holds configuration for the Claude engine.
type AnthropicConfig struct {
	APIKey string

	// BaseURL overrides the API endpoint. Empty uses the SDK default.
	BaseURL string

	HTTPClient *http.Client
}

// AnthropicEngine runs completions through the Claude Messages API.
type AnthropicEngine struct {
	client anthropic.Client
	logger *logging.Logger

	mu    sync.Mutex
	model string
}

// NewAnthropicEngine creates an unloaded engine. SDK retries are disabled;
// a failed call surfaces immediately.
func NewAnthropicEngine(cfg AnthropicConfig, logger *logging.Logger) *AnthropicEngine {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &AnthropicEngine{
		client: anthropic.NewClient(opts...),
		logger: logger.Named("anthropic"),
	}
}

// Model returns the active model id.
func (e *AnthropicEngine) Model() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.model
}

// Reload probes modelID with a one-token request and makes it active.
func (e *AnthropicEngine) Reload(ctx context.Context, modelID string) error {
	_, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		e.logger.Debug("model probe failed", zap.String("model", modelID), zap.Error(err))
		return newLoadError(modelID, err)
	}

	e.mu.Lock()
	e.model = modelID
	e.mu.Unlock()
	return nil
}

// Complete sends the request as a single Messages call. Text blocks of the
// reply are concatenated into one choice.
func (e *AnthropicEngine) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := e.Model()
	if model == "" {
		return nil, newCompleteError("", ErrModelNotLoaded)
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		Messages:    toAnthropicMessages(req.Messages),
	}
	if system := systemPrompt(req.Messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return nil, newCompleteError(model, err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}

	out := &CompletionResponse{Model: string(message.Model)}
	if len(message.Content) > 0 {
		out.Choices = []Choice{{Text: text.String()}}
	}
	e.logger.Debug("completion finished",
		zap.String("model", model),
		zap.String("stop_reason", string(message.StopReason)),
		zap.Int64("output_tokens", message.Usage.OutputTokens),
	)
	return out, nil
}

func toAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleAssistant:
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(out) == 0 {
		out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(systemPrompt(messages))))
	}
	return out
}

func systemPrompt(messages []Message) string {
	var parts []string
	for _, m := range messages {
		if m.Role == RoleSystem {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}
