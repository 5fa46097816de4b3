package pdfprocessor

import (
	"context"
	"strings"

	"pdf_summarizer/llm"
)

// PartialSeparator joins partial summaries in the merge prompt.
const PartialSeparator = "\n\n"

// ReducerConfig holds sampling settings for the final merge.
type ReducerConfig struct {
	Temperature float32

	// MaxTokensCap bounds the output budget, which is otherwise twice the
	// requested summary length.
	MaxTokensCap int
}

// DefaultReducerConfig returns the defaults: temperature 0.7, cap 600.
func DefaultReducerConfig() ReducerConfig {
	return ReducerConfig{
		Temperature:  0.7,
		MaxTokensCap: 600,
	}
}

// SummaryTokenBudget returns min(maxLength*2, limit) without overflowing
// for very large maxLength.
func SummaryTokenBudget(maxLength, limit int) int {
	if maxLength > limit/2 {
		return limit
	}
	return maxLength * 2
}

// Reducer merges partial summaries into the final summary with one completion.
type Reducer struct {
	config ReducerConfig
}

// NewReducer creates a Reducer.
func NewReducer(config ReducerConfig) *Reducer {
	return &Reducer{config: config}
}

// Reduce joins partials with PartialSeparator and asks the engine for an
// integrated summary of about opts.MaxLength units. An empty reply is an
// *EmptySummaryError with Final set.
func (r *Reducer) Reduce(ctx context.Context, engine llm.Engine, partials []string, opts SummarizeOptions) (string, error) {
	combined := strings.Join(partials, PartialSeparator)

	resp, err := engine.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{llm.UserMessage(FinalPrompt(opts.Language, combined, opts.MaxLength))},
		Temperature: r.config.Temperature,
		MaxTokens:   SummaryTokenBudget(opts.MaxLength, r.config.MaxTokensCap),
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.FirstText())
	if summary == "" {
		return "", &EmptySummaryError{Final: true}
	}
	return summary, nil
}
