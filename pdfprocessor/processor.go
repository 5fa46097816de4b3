package pdfprocessor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"pdf_summarizer/llm"
	"pdf_summarizer/logging"

	"go.uber.org/zap"
)

// Progress messages shown while the Processor works.
const (
	ProgressInitializing = "モデルを初期化しています..."
	ProgressInitDone     = "初期化完了"
	ProgressSplitting    = "長いテキストを分割して処理中..."
	ProgressFinal        = "最終要約を生成中..."
)

func progressTrying(model string) string { return fmt.Sprintf("モデル %s を試行中...", model) }
func progressLoaded(model string) string { return fmt.Sprintf("モデル %s をロード完了", model) }
func progressChunk(i, n int) string      { return fmt.Sprintf("パート %d/%d を要約中...", i+1, n) }

// Summarization modes reported to the Recorder.
const (
	ModeSingle  = "single"
	ModeChunked = "chunked"
)

// State is a snapshot of the Processor lifecycle.
// Initializing and Initialized are never both true. Error is non-nil only
// while the most recent operation's failure has not been superseded.
type State struct {
	Initializing bool    `json:"initializing"`
	Initialized  bool    `json:"initialized"`
	Summarizing  bool    `json:"summarizing"`
	Error        *string `json:"error"`
	Progress     string  `json:"progress"`
	Model        string  `json:"model"`
}

// SummarizeOptions selects the summary language and target length.
type SummarizeOptions struct {
	// Language is "ja" (default) or "en"; anything else is treated as English
	Language string `json:"language"`

	// MaxLength is the approximate summary length in characters (ja) or words (en)
	MaxLength int `json:"maxLength"`
}

func (o SummarizeOptions) withDefaults(defaultMaxLength int) SummarizeOptions {
	if o.Language == "" {
		o.Language = LanguageJapanese
	}
	if o.MaxLength <= 0 {
		o.MaxLength = defaultMaxLength
	}
	return o
}

// Recorder receives pipeline measurements. metrics.SummaryRecorder
// implements it with Prometheus collectors.
type Recorder interface {
	RecordInit(model string, duration time.Duration, err error)
	RecordSummary(mode, language string, duration time.Duration, err error)
	RecordChunks(total, oversized, partials int)
}

type nopRecorder struct{}

func (nopRecorder) RecordInit(string, time.Duration, error)            {}
func (nopRecorder) RecordSummary(string, string, time.Duration, error) {}
func (nopRecorder) RecordChunks(int, int, int)                         {}

// ProcessorConfig holds configuration for the Processor.
type ProcessorConfig struct {
	// ModelCandidates are tried in order by InitializeEngine
	ModelCandidates []string

	// SafeTextLength is the longest text summarized in one call
	SafeTextLength int

	// ChunkerConfig controls splitting of longer text
	ChunkerConfig ChunkerConfig

	// SummarizerConfig controls per-chunk calls
	SummarizerConfig SummarizerConfig

	// ReducerConfig controls the final merge and the single-pass budget
	ReducerConfig ReducerConfig

	// DefaultMaxLength is used when SummarizeOptions.MaxLength is unset
	DefaultMaxLength int

	// ContextLimitMarkers are error substrings meaning the prompt was too long
	ContextLimitMarkers []string
}

// DefaultProcessorConfig returns the default configuration. Chunks are cut
// at the same 2500-character limit that triggers chunking.
func DefaultProcessorConfig() ProcessorConfig {
	chunker := DefaultChunkerConfig()
	chunker.MaxChunkLength = 2500

	return ProcessorConfig{
		ModelCandidates: []string{
			"phi-3-mini-4k-instruct",
			"tinyllama-1.1b-chat",
			"redpajama-incite-chat-3b",
		},
		SafeTextLength:   2500,
		ChunkerConfig:    chunker,
		SummarizerConfig: DefaultSummarizerConfig(),
		ReducerConfig:    DefaultReducerConfig(),
		DefaultMaxLength: 300,
		ContextLimitMarkers: []string{
			"ContextWindowSizeExceededError",
			"context_length_exceeded",
			"maximum context length",
			"prompt is too long",
		},
	}
}

// Processor owns the completion engine and runs the summarization pipeline.
//
// It composes:
//   - chunker.go: Chunker for sentence-aligned splitting
//   - summarizer.go: ChunkSummarizer for per-chunk key points
//   - reducer.go: Reducer for the final merge
//
// Thread-Safety:
//   - State is guarded by a mutex; State() returns a copy
//   - SummarizeText calls are serialized so the engine is never used concurrently
//   - A second InitializeEngine while one is running is a no-op
type Processor struct {
	config     ProcessorConfig
	factory    llm.EngineFactory
	chunker    *Chunker
	summarizer *ChunkSummarizer
	reducer    *Reducer
	logger     *logging.Logger
	recorder   Recorder

	opMu sync.Mutex

	mu         sync.Mutex
	engine     llm.Engine
	generation uint64
	state      State
	observers  map[int]func(State)
	nextObsID  int
}

// NewProcessor creates a Processor. recorder may be nil.
//
// Example:
//
//	processor := NewProcessor(llm.NewEngineFactory(cfg, logger), DefaultProcessorConfig(), logger, nil)
//	processor.InitializeEngine(ctx)
//	summary, err := processor.SummarizeText(ctx, text, SummarizeOptions{Language: "ja"})
func NewProcessor(factory llm.EngineFactory, config ProcessorConfig, logger *logging.Logger, recorder Recorder) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	defaults := DefaultProcessorConfig()
	if config.SafeTextLength <= 0 {
		config.SafeTextLength = defaults.SafeTextLength
	}
	if config.DefaultMaxLength <= 0 {
		config.DefaultMaxLength = defaults.DefaultMaxLength
	}
	if config.ChunkerConfig.MaxChunkLength <= 0 {
		config.ChunkerConfig.MaxChunkLength = config.SafeTextLength
	}
	if config.SummarizerConfig.MaxTokens <= 0 {
		config.SummarizerConfig = defaults.SummarizerConfig
	}
	if config.ReducerConfig.MaxTokensCap <= 0 {
		config.ReducerConfig = defaults.ReducerConfig
	}

	logger = logger.Named("processor")
	return &Processor{
		config:     config,
		factory:    factory,
		chunker:    NewChunker(config.ChunkerConfig),
		summarizer: NewChunkSummarizer(config.SummarizerConfig, logger),
		reducer:    NewReducer(config.ReducerConfig),
		logger:     logger,
		recorder:   recorder,
		observers:  make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyState(p.state)
}

// Subscribe registers fn to receive a snapshot after every state change.
// The returned function removes the subscription.
func (p *Processor) Subscribe(fn func(State)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextObsID
	p.nextObsID++
	p.observers[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.observers, id)
		p.mu.Unlock()
	}
}

// InitializeEngine creates an engine and loads the first model candidate
// that succeeds. It does nothing when an engine exists or initialization is
// already underway. Failure is recorded in State.Error, never returned.
func (p *Processor) InitializeEngine(ctx context.Context) {
	p.mu.Lock()
	if p.engine != nil || p.state.Initializing || p.state.Initialized {
		p.mu.Unlock()
		return
	}
	gen := p.generation
	p.state.Initializing = true
	p.state.Error = nil
	p.state.Progress = ProgressInitializing
	p.mu.Unlock()
	p.notify()

	start := time.Now()
	engine, model, err := p.loadEngine(ctx, gen)
	p.recorder.RecordInit(model, time.Since(start), err)

	if err != nil {
		p.logger.Error("engine initialization failed", zap.Error(err))
		msg := MsgInitFailed
		p.update(gen, func(s *State) {
			s.Initializing = false
			s.Initialized = false
			s.Error = &msg
			s.Progress = ""
		})
		return
	}

	p.mu.Lock()
	if p.generation != gen {
		// Reset while loading; the new engine is stale.
		p.mu.Unlock()
		closeEngine(engine)
		return
	}
	p.engine = engine
	p.state.Model = model
	p.state.Progress = progressLoaded(model)
	p.mu.Unlock()
	p.notify()

	p.update(gen, func(s *State) {
		s.Initializing = false
		s.Initialized = true
		s.Progress = ProgressInitDone
	})
	p.logger.Info("engine initialized", zap.String("model", model), zap.Duration("duration", time.Since(start)))
}

// loadEngine constructs an engine and tries each candidate in order.
func (p *Processor) loadEngine(ctx context.Context, gen uint64) (llm.Engine, string, error) {
	candidates := p.config.ModelCandidates

	engine, err := p.factory()
	if err != nil {
		return nil, "", &ModelLoadError{Candidates: candidates, Err: fmt.Errorf("%w: %w", llm.ErrModelLoadFailed, err)}
	}

	if reporter, ok := engine.(llm.InitProgressReporter); ok {
		reporter.SetInitProgressCallback(func(report llm.InitProgress) {
			p.update(gen, func(s *State) { s.Progress = report.String() })
		})
	}

	lastErr := fmt.Errorf("%w: no model candidates configured", llm.ErrModelLoadFailed)
	for _, model := range candidates {
		if ctx.Err() != nil {
			lastErr = fmt.Errorf("%w: %w", llm.ErrModelLoadFailed, ctx.Err())
			break
		}

		p.update(gen, func(s *State) { s.Progress = progressTrying(model) })

		if err := engine.Reload(ctx, model); err != nil {
			p.logger.Warn("model candidate failed", zap.String("model", model), zap.Error(err))
			lastErr = err
			continue
		}
		return engine, model, nil
	}

	closeEngine(engine)
	return nil, "", &ModelLoadError{Candidates: candidates, Err: lastErr}
}

// SummarizeText summarizes text and returns the summary.
//
// Text up to SafeTextLength characters is summarized with one completion.
// Longer text is chunked, each chunk summarized, and the partials merged.
// ErrNotInitialized takes precedence over ErrEmptyInput; neither changes
// State. Any later failure is recorded in State.Error and returned as a
// *SummarizationError.
func (p *Processor) SummarizeText(ctx context.Context, text string, opts SummarizeOptions) (string, error) {
	if !p.hasEngine() {
		return "", ErrNotInitialized
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	opts = opts.withDefaults(p.config.DefaultMaxLength)

	p.opMu.Lock()
	defer p.opMu.Unlock()

	// A reset may have happened while waiting for opMu.
	p.mu.Lock()
	engine, gen := p.engine, p.generation
	p.mu.Unlock()
	if engine == nil {
		return "", ErrNotInitialized
	}

	p.update(gen, func(s *State) {
		s.Summarizing = true
		s.Error = nil
	})

	start := time.Now()
	length := TextLength(text)
	mode := ModeSingle
	var (
		summary string
		err     error
	)
	if length > p.config.SafeTextLength {
		mode = ModeChunked
		summary, err = p.summarizeChunked(ctx, engine, gen, text, opts)
	} else {
		summary, err = p.summarizeSingle(ctx, engine, text, opts)
	}
	p.recorder.RecordSummary(mode, opts.Language, time.Since(start), err)

	if err != nil {
		msg := resolveErrorMessage(err, p.config.ContextLimitMarkers)
		p.logger.Error("summarization failed",
			zap.String("mode", mode),
			zap.Int("text_length", length),
			zap.String("message", msg),
			zap.Error(err))
		p.update(gen, func(s *State) {
			s.Error = &msg
			s.Summarizing = false
			s.Progress = ""
		})
		return "", &SummarizationError{Message: msg, Err: err}
	}

	p.update(gen, func(s *State) {
		s.Summarizing = false
		if mode == ModeChunked {
			s.Progress = ""
		}
	})
	p.logger.Info("summary generated",
		zap.String("mode", mode),
		zap.String("language", opts.Language),
		zap.Int("text_length", length),
		zap.Int("summary_length", TextLength(summary)),
		zap.Duration("duration", time.Since(start)))
	return summary, nil
}

func (p *Processor) summarizeSingle(ctx context.Context, engine llm.Engine, text string, opts SummarizeOptions) (string, error) {
	resp, err := engine.Complete(ctx, llm.CompletionRequest{
		Messages:    []llm.Message{llm.UserMessage(SinglePrompt(opts.Language, text, opts.MaxLength))},
		Temperature: p.config.ReducerConfig.Temperature,
		MaxTokens:   SummaryTokenBudget(opts.MaxLength, p.config.ReducerConfig.MaxTokensCap),
	})
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(resp.FirstText())
	if summary == "" {
		return "", &EmptySummaryError{}
	}
	return summary, nil
}

func (p *Processor) summarizeChunked(ctx context.Context, engine llm.Engine, gen uint64, text string, opts SummarizeOptions) (string, error) {
	p.update(gen, func(s *State) { s.Progress = ProgressSplitting })

	chunks := p.chunker.SplitIntoChunks(text)
	p.logger.Debug("text chunked",
		zap.Int("chunks", chunks.TotalChunks),
		zap.Int("oversized", chunks.OversizedChunks),
		zap.Int("estimated_tokens", EstimateTokenCount(text)))

	partials, err := p.summarizer.SummarizeChunks(ctx, engine, chunks.Chunks, opts.Language, func(i, n int) {
		p.update(gen, func(s *State) { s.Progress = progressChunk(i, n) })
	})
	if err != nil {
		return "", err
	}
	p.recorder.RecordChunks(chunks.TotalChunks, chunks.OversizedChunks, len(partials))

	if len(partials) == 0 {
		return "", ErrAllChunksEmpty
	}

	p.update(gen, func(s *State) { s.Progress = ProgressFinal })
	return p.reducer.Reduce(ctx, engine, partials, opts)
}

func (p *Processor) hasEngine() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine != nil
}

// ResetEngine discards the engine and returns to the idle state.
// It is idempotent and cannot fail. An initialization still in flight
// discards its result.
func (p *Processor) ResetEngine() {
	p.mu.Lock()
	engine := p.engine
	p.engine = nil
	p.generation++
	p.state = State{}
	p.mu.Unlock()

	closeEngine(engine)
	p.notify()
	if engine != nil {
		p.logger.Info("engine reset")
	}
}

// update applies fn to the state unless a reset happened since gen was read.
func (p *Processor) update(gen uint64, fn func(*State)) {
	p.mu.Lock()
	if p.generation != gen {
		p.mu.Unlock()
		return
	}
	fn(&p.state)
	p.mu.Unlock()
	p.notify()
}

func (p *Processor) notify() {
	p.mu.Lock()
	snapshot := copyState(p.state)
	observers := make([]func(State), 0, len(p.observers))
	for _, fn := range p.observers {
		observers = append(observers, fn)
	}
	p.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}

func copyState(s State) State {
	if s.Error != nil {
		msg := *s.Error
		s.Error = &msg
	}
	return s
}

func closeEngine(engine llm.Engine) {
	if c, ok := engine.(io.Closer); ok {
		_ = c.Close()
	}
}
