package pdfprocessor

import (
	"context"
	"strings"

	"pdf_summarizer/llm"
	"pdf_summarizer/logging"

	"go.uber.org/zap"
)

// SummarizerConfig holds sampling settings for chunk summaries.
type SummarizerConfig struct {
	// Temperature is the sampling temperature for every chunk call
	Temperature float32

	// MaxTokens is the output budget for each chunk summary
	MaxTokens int
}

// DefaultSummarizerConfig returns the defaults: temperature 0.7, 400 tokens.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{
		Temperature: 0.7,
		MaxTokens:   400,
	}
}

// ChunkProgressFunc is called before chunk index (0-based) of total is sent.
type ChunkProgressFunc func(index, total int)

// ChunkSummarizer extracts key points from each chunk with one completion
// per chunk, strictly in order.
type ChunkSummarizer struct {
	config SummarizerConfig
	logger *logging.Logger
}

// NewChunkSummarizer creates a ChunkSummarizer.
func NewChunkSummarizer(config SummarizerConfig, logger *logging.Logger) *ChunkSummarizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ChunkSummarizer{config: config, logger: logger}
}

// SummarizeChunks returns the trimmed, non-empty partial summaries in chunk
// order. Chunks whose summary is empty are skipped. The first engine
// failure aborts the run and is returned.
//
// Example:
//
//	partials, err := summarizer.SummarizeChunks(ctx, engine, result.Chunks, "ja", func(i, n int) {
//	    fmt.Printf("chunk %d/%d\n", i+1, n)
//	})
func (s *ChunkSummarizer) SummarizeChunks(ctx context.Context, engine llm.Engine, chunks []ChunkResult, language string, progress ChunkProgressFunc) ([]string, error) {
	partials := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		if progress != nil {
			progress(i, len(chunks))
		}

		resp, err := engine.Complete(ctx, llm.CompletionRequest{
			Messages:    []llm.Message{llm.UserMessage(ChunkPrompt(language, chunk.Text))},
			Temperature: s.config.Temperature,
			MaxTokens:   s.config.MaxTokens,
		})
		if err != nil {
			s.logger.Warn("chunk summary failed",
				zap.Int("chunk", i+1),
				zap.Int("total", len(chunks)),
				zap.Error(err))
			return nil, err
		}

		text := strings.TrimSpace(resp.FirstText())
		if text == "" {
			s.logger.Warn("empty chunk summary skipped",
				zap.Int("chunk", i+1),
				zap.Int("total", len(chunks)),
				zap.Int("chunk_length", chunk.Length))
			continue
		}
		partials = append(partials, text)
	}

	return partials, nil
}
