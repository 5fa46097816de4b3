// Package webui serves the browser UI, the JSON API that drives the
// summarization pipeline, state updates over WebSocket, and Prometheus
// metrics.
package webui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"pdf_summarizer/core"
	"pdf_summarizer/logging"
	"pdf_summarizer/pdfprocessor"
)

// Processor is a Summarizer that also publishes state changes.
// *pdfprocessor.Processor implements it.
type Processor interface {
	Summarizer
	Subscribe(fn func(pdfprocessor.State)) (unsubscribe func())
}

// Dependencies are the components the server exposes over HTTP.
type Dependencies struct {
	Processor Processor
	Extractor TextExtractor

	// Stats is optional; without it /api/stats answers 404
	Stats StatsProvider

	// History is optional; without it /api/history answers 404
	History HistoryProvider

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer
}

// Server is the HTTP server. It wires:
//   - StaticAssetHandler for the embedded UI
//   - LoggingMiddleware for request ids and access logs
//   - RateLimiter for /api/*
//   - SummaryAPI for the JSON endpoints
//   - WebSocketBroadcaster for state pushes
type Server struct {
	httpServer    *http.Server
	mux           *http.ServeMux
	config        ServerConfig
	logger        *logging.Logger
	processor     Processor
	api           *SummaryAPI
	loggingMw     *LoggingMiddleware
	rateLimiter   *RateLimiter
	wsBroadcaster *WebSocketBroadcaster
	staticHandler *StaticAssetHandler

	workersOnce sync.Once
	unsubscribe func()
}

// ServerConfig configures the Server.
type ServerConfig struct {
	// Port to listen on (default: 3000)
	Port int

	// Host to bind to (default: "localhost")
	Host string

	// ReadTimeout for HTTP requests (default: 30s)
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses. A chunked summary makes one engine
	// call per chunk, so the default is none (0); set it above
	// API.SummarizeTimeout when capping
	WriteTimeout time.Duration

	// IdleTimeout for keep-alive connections (default: 120s)
	IdleTimeout time.Duration

	// ShutdownTimeout for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration

	// RateLimitRPS and RateLimitBurst limit /api/* per client IP
	RateLimitRPS   float64
	RateLimitBurst int

	API         SummaryAPIConfig
	Static      StaticAssetConfig
	Broadcaster BroadcasterConfig

	// LogSkipPaths are paths to skip access logging
	LogSkipPaths []string
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            3000,
		Host:            "localhost",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    0,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
		API:             DefaultSummaryAPIConfig(),
		Static:          DefaultStaticAssetConfig(),
		Broadcaster:     DefaultBroadcasterConfig(),
		LogSkipPaths:    []string{"/health", "/metrics", "/api/state"},
	}
}

// NewServer creates a Server. Processor and Extractor are required.
func NewServer(config ServerConfig, deps Dependencies, logger *logging.Logger) (*Server, error) {
	if deps.Processor == nil {
		return nil, errors.New("webui: processor is required")
	}
	if deps.Extractor == nil {
		return nil, errors.New("webui: extractor is required")
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	bcConfig := config.Broadcaster
	bcConfig.Snapshot = func() WSMessage {
		return NewStateMessage(deps.Processor.State())
	}

	s := &Server{
		mux:           http.NewServeMux(),
		config:        config,
		logger:        logger.Named("webui"),
		processor:     deps.Processor,
		api:           NewSummaryAPI(deps.Processor, deps.Extractor, deps.Stats, config.API, logger).WithHistory(deps.History),
		loggingMw:     NewLoggingMiddleware(LoggingMiddlewareConfig{SkipPaths: config.LogSkipPaths}, logger),
		rateLimiter:   NewRateLimiter(config.RateLimitRPS, config.RateLimitBurst),
		wsBroadcaster: NewWebSocketBroadcaster(bcConfig, logger),
		staticHandler: NewStaticAssetHandler(config.Static),
	}

	s.setupRoutes(deps.Gatherer)

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	s.logger.Info("server created", zap.String("addr", addr))
	return s, nil
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.mux.HandleFunc("/ws", s.wsBroadcaster.HandleConnection)
	s.api.RegisterRoutes(s.mux, s.rateLimiter.Middleware)
	s.staticHandler.RegisterRoutes(s.mux)
}

// Handler returns the mux wrapped with middleware.
func (s *Server) Handler() http.Handler {
	return s.loggingMw.Handler(s.mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": core.Version})
}

// startWorkers launches the broadcaster, the state subscription and the
// rate limiter cleanup. All stop when ctx is cancelled.
func (s *Server) startWorkers(ctx context.Context) {
	s.workersOnce.Do(func() {
		s.api.bgCtx = ctx
		go s.wsBroadcaster.Start(ctx)
		s.unsubscribe = s.processor.Subscribe(func(state pdfprocessor.State) {
			s.wsBroadcaster.BroadcastMessage(NewStateMessage(state))
		})
		s.rateLimiter.StartCleanupTicker(ctx, 5*time.Minute)
	})
}

// Start serves HTTP until Shutdown is called. ctx bounds the background
// workers and any engine initialization started through the API.
func (s *Server) Start(ctx context.Context) error {
	s.startWorkers(ctx)

	s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))

	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones and for
// background initialization to finish, bounded by ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultServerConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown error: %w", err)
	}

	done := make(chan struct{})
	go func() {
		s.api.bgWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		return fmt.Errorf("waiting for engine initialization: %w", shutdownCtx.Err())
	}

	s.logger.Info("server stopped")
	return nil
}

// Addr returns the server's address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Broadcaster returns the WebSocket broadcaster.
func (s *Server) Broadcaster() *WebSocketBroadcaster {
	return s.wsBroadcaster
}
