// Package llm adapts completion backends to the single Engine contract the
// summarizer depends on.
//
// Two adapters are provided: OpenAIEngine for any OpenAI-compatible server
// (the default is a local inference server) and AnthropicEngine for the
// hosted Claude API. BreakerEngine decorates either with a circuit breaker.
package llm

import (
	"context"
	"fmt"
	"math"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message in a completion request.
type Message struct {
	Role    string
	Content string
}

// UserMessage is shorthand for a single user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// CompletionRequest is a chat-style completion request.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Choice is one generated alternative.
type Choice struct {
	Text string
}

// CompletionResponse holds the generated choices.
type CompletionResponse struct {
	Model   string
	Choices []Choice
}

// FirstText returns the text of the first choice, or "" when the response
// has no choices.
func (r *CompletionResponse) FirstText() string {
	if r == nil || len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Text
}

// Engine is a loadable text-completion engine.
//
// Reload loads (or verifies) a model by id and makes it the active model.
// Complete runs one request against the active model. Implementations are
// not required to be safe for concurrent use.
type Engine interface {
	Reload(ctx context.Context, modelID string) error
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// EngineFactory constructs a fresh, unloaded Engine.
type EngineFactory func() (Engine, error)

// InitProgress is a model-loading progress report.
type InitProgress struct {
	Text     string
	Progress float64 // 0.0 to 1.0
}

// String renders the report as "text (NN%)".
func (p InitProgress) String() string {
	pct := math.Round(p.Progress * 100)
	return fmt.Sprintf("%s (%d%%)", p.Text, int(pct))
}

// InitProgressReporter is implemented by engines that report loading progress.
type InitProgressReporter interface {
	SetInitProgressCallback(func(InitProgress))
}

// ResolveBaseURL returns the primary URL if non-empty, otherwise the fallback.
//
// Example:
//
//	url := llm.ResolveBaseURL("", "http://127.0.0.1:1234/v1")
//	// url == "http://127.0.0.1:1234/v1"
func ResolveBaseURL(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}
