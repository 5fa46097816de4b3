package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"pdf_summarizer/core"
	"pdf_summarizer/core/validation"
	"pdf_summarizer/db"
	"pdf_summarizer/llm"
	"pdf_summarizer/logging"
	"pdf_summarizer/metrics"
	"pdf_summarizer/pdfprocessor"
	"pdf_summarizer/shutdown"
	"pdf_summarizer/webui"
)

// cliOptions are the command line flags. With PDFPath set the program
// summarizes one file and exits instead of serving the web UI.
type cliOptions struct {
	PDFPath       string
	Language      string
	MaxLength     int
	SkipPreflight bool
	ShowVersion   bool
}

func parseFlags(args []string) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("pdf_summarizer", flag.ContinueOnError)
	fs.StringVar(&opts.PDFPath, "pdf", "", "summarize this PDF and exit")
	fs.StringVar(&opts.Language, "lang", "ja", `summary language, "ja" or "en"`)
	fs.IntVar(&opts.MaxLength, "max-length", 0, "target summary length (0 uses DEFAULT_MAX_LENGTH)")
	fs.BoolVar(&opts.SkipPreflight, "skip-preflight", false, "skip startup checks")
	fs.BoolVar(&opts.ShowVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.Language != "ja" && opts.Language != "en" {
		return opts, fmt.Errorf("invalid -lang %q: want \"ja\" or \"en\"", opts.Language)
	}
	if opts.MaxLength < 0 {
		return opts, fmt.Errorf("invalid -max-length %d: must not be negative", opts.MaxLength)
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(core.ExitCodeSuccess)
	}
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(core.ExitCodeError)
	}
	if opts.ShowVersion {
		fmt.Println(core.VersionInfo())
		return
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(core.ExitCodeFor(err))
	}

	logger, err := logging.NewLogger(cfg.DevMode, cfg.LogFile)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(core.ExitCodeError)
	}

	code := run(cfg, opts, logger)

	if syncErr := logger.Sync(); syncErr != nil && cfg.DevMode {
		fmt.Printf("Failed to sync logger: %v\n", syncErr)
	}
	os.Exit(code)
}

func run(cfg *core.Config, opts cliOptions, logger *logging.Logger) int {
	logger.Info("Configuration loaded",
		zap.String("version", core.Version),
		zap.String("provider", cfg.Provider),
		zap.String("llm_url", cfg.TextURL()),
		zap.Strings("model_candidates", cfg.ModelCandidates),
		zap.Int("safe_text_length", cfg.SafeTextLength),
		zap.Int("chunk_size", cfg.EffectiveChunkSize()),
		zap.Duration("ai_timeout", cfg.AITimeout),
		zap.Bool("breaker_enabled", cfg.BreakerEnabled),
		zap.Bool("allow_self_signed_certs", cfg.AllowSelfSignedCerts),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	mgr := shutdown.NewManager(shutdown.Config{Timeout: cfg.AITimeout + webui.DefaultServerConfig().ShutdownTimeout}, logger)
	mgr.Start()

	if !opts.SkipPreflight {
		var out io.Writer = os.Stdout
		if opts.PDFPath != "" {
			out = os.Stderr
		}
		result := validation.NewSuite("PDF Summarizer Preflight", out).
			Add(validation.StartupChecks(cfg)...).
			Run(mgr.Context())
		if !result.Success() {
			logger.Error("Preflight failed", zap.Error(result.Err()))
			return core.ExitCodeConfig
		}
	}

	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
	recorder := metrics.NewSummaryRecorder(prometheus.DefaultRegisterer, store)

	history, err := openHistory(mgr, cfg, logger)
	if err != nil {
		// History is optional; summaries still work without it.
		logger.Warn("History disabled", zap.Error(err))
	}
	if history != nil {
		recorder.AddSink(history)
	}
	processor := pdfprocessor.NewProcessor(
		llm.NewEngineFactory(cfg, logger),
		processorConfigFrom(cfg),
		logger.Named("processor"),
		recorder,
	)
	mgr.Register("engine", shutdown.PriorityEngine, func(ctx context.Context) error {
		processor.ResetEngine()
		return nil
	})

	if opts.PDFPath != "" {
		err = summarizeFile(mgr, processor, pdfprocessor.NewDefaultExtractor(), opts, os.Stdout, logger)
		if shutdownErr := mgr.Shutdown(); shutdownErr != nil {
			logger.Warn("Shutdown completed with errors", zap.Error(shutdownErr))
		}
	} else {
		err = serve(mgr, cfg, processor, store, history, logger)
	}

	if err != nil {
		logger.Error("Exiting with error", zap.Error(err))
		return core.ExitCodeFor(err)
	}
	logger.Info("Goodbye!")
	return core.ExitCodeSuccess
}

// openHistory opens the run history database and registers its cleanup.
// It returns nil, nil when history is disabled.
func openHistory(mgr *shutdown.Manager, cfg *core.Config, logger *logging.Logger) (*db.HistoryWriter, error) {
	if !cfg.HistoryEnabled || cfg.HistoryDBPath == "" {
		return nil, nil
	}

	hc := db.DefaultHistoryConfig(cfg.HistoryDBPath)
	hc.Retention = cfg.HistoryRetention()
	history, err := db.OpenHistory(hc, logger)
	if err != nil {
		return nil, err
	}

	mgr.Register("history", shutdown.PriorityHistory, history.Close)
	history.StartRetention(mgr.Context())
	return history, nil
}

// serve runs the web UI until a signal arrives, then shuts down.
func serve(mgr *shutdown.Manager, cfg *core.Config, processor *pdfprocessor.Processor, store *metrics.Store, history *db.HistoryWriter, logger *logging.Logger) error {
	deps := webui.Dependencies{
		Processor: processor,
		Extractor: pdfprocessor.NewDefaultExtractor(),
		Stats:     store,
		Gatherer:  prometheus.DefaultGatherer,
	}
	if history != nil {
		deps.History = history
	}

	server, err := webui.NewServer(serverConfigFrom(cfg), deps, logger.Named("webui"))
	if err != nil {
		return err
	}
	mgr.Register("http-server", shutdown.PriorityHTTPServer, server.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start(mgr.Context())
	}()

	color.New(color.FgGreen, color.Bold).Printf("PDF要約アプリ: http://%s\n", server.Addr())

	select {
	case <-mgr.Context().Done():
		err = nil
	case err = <-serveErr:
		// Listener failed; still release the engine.
	}

	if shutdownErr := mgr.Shutdown(); shutdownErr != nil {
		logger.Warn("Shutdown completed with errors", zap.Error(shutdownErr))
	}
	return err
}

// fileExtractor reads a PDF from disk. *pdfprocessor.Extractor implements it.
type fileExtractor interface {
	Extract(path string) (*pdfprocessor.ExtractionResult, error)
}

// summarizeFile extracts, initializes the engine and prints one summary.
func summarizeFile(mgr *shutdown.Manager, processor webui.Summarizer, extractor fileExtractor, opts cliOptions, out io.Writer, logger *logging.Logger) error {
	result, err := extractor.Extract(opts.PDFPath)
	if err != nil {
		return fmt.Errorf("extract %s: %w", opts.PDFPath, err)
	}
	logger.Info("PDF extracted",
		zap.String("path", opts.PDFPath),
		zap.Int("pages", result.TotalPages),
		zap.Int("extracted_pages", result.ExtractedPages),
		zap.Int("characters", pdfprocessor.TextLength(result.Text)),
	)

	var summary string
	err = mgr.Do(mgr.Context(), "summarize", func(ctx context.Context) error {
		processor.InitializeEngine(ctx)
		if state := processor.State(); state.Error != nil {
			return errors.New(*state.Error)
		}

		var err error
		summary, err = processor.SummarizeText(ctx, result.Text, pdfprocessor.SummarizeOptions{
			Language:  opts.Language,
			MaxLength: opts.MaxLength,
		})
		return err
	})
	if err != nil {
		return err
	}

	color.New(color.FgCyan, color.Bold).Fprintf(out, "━━━ %s ━━━\n", opts.PDFPath)
	fmt.Fprintln(out, summary)
	return nil
}

func processorConfigFrom(cfg *core.Config) pdfprocessor.ProcessorConfig {
	pc := pdfprocessor.DefaultProcessorConfig()
	pc.ModelCandidates = append([]string(nil), cfg.ModelCandidates...)
	pc.SafeTextLength = cfg.SafeTextLength
	pc.ChunkerConfig.MaxChunkLength = cfg.EffectiveChunkSize()
	pc.SummarizerConfig.Temperature = float32(cfg.Temperature)
	pc.SummarizerConfig.MaxTokens = cfg.ChunkMaxTokens
	pc.ReducerConfig.Temperature = float32(cfg.Temperature)
	pc.ReducerConfig.MaxTokensCap = cfg.FinalMaxTokens
	pc.DefaultMaxLength = cfg.DefaultMaxLength
	pc.ContextLimitMarkers = append([]string(nil), cfg.ContextLimitMarkers...)
	return pc
}

func serverConfigFrom(cfg *core.Config) webui.ServerConfig {
	sc := webui.DefaultServerConfig()
	sc.Host = cfg.Host
	sc.Port = cfg.Port
	sc.RateLimitRPS = cfg.RateLimitRPS
	sc.RateLimitBurst = cfg.RateLimitBurst
	sc.API.MaxUploadSize = cfg.MaxUploadSize
	return sc
}
