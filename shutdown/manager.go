// Package shutdown coordinates graceful process termination: the first
// SIGINT or SIGTERM cancels the manager's context, in-flight operations are
// drained, and registered cleanup functions run in priority order. A second
// signal exits immediately.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pdf_summarizer/core"
	"pdf_summarizer/logging"
)

// Priorities for the components wired in main. Lower runs first.
const (
	PriorityHTTPServer = 10
	PriorityEngine     = 20
	PriorityHistory    = 30
)

// Config controls shutdown behavior.
type Config struct {
	// Timeout bounds draining plus cleanup.
	Timeout time.Duration
	// ForceAfter is the signal count that triggers an immediate exit.
	ForceAfter int
}

// DefaultConfig returns a 30 second budget with force exit on the second
// signal.
func DefaultConfig() Config {
	return Config{
		Timeout:    30 * time.Second,
		ForceAfter: 2,
	}
}

// Manager owns the process lifetime context.
type Manager struct {
	config   Config
	logger   *logging.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	registry *Registry
	tracker  OperationTracker
	sigChan  chan os.Signal

	mu       sync.Mutex
	signals  int
	started  bool
	finished bool

	// exit is os.Exit outside tests.
	exit func(code int)
}

// NewManager creates a Manager. Zero config fields take defaults.
func NewManager(config Config, logger *logging.Logger) *Manager {
	defaults := DefaultConfig()
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.ForceAfter <= 0 {
		config.ForceAfter = defaults.ForceAfter
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		config:   config,
		logger:   logger.Named("shutdown"),
		ctx:      ctx,
		cancel:   cancel,
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
		exit:     os.Exit,
	}
}

// Context is cancelled when shutdown begins.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function.
func (m *Manager) Register(name string, priority int, fn Func) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start listens for SIGINT and SIGTERM. Calling it twice is a no-op.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for sig := range m.sigChan {
			m.handleSignal(sig)
		}
	}()
}

func (m *Manager) handleSignal(sig os.Signal) {
	m.mu.Lock()
	m.signals++
	count := m.signals
	m.mu.Unlock()

	if count == 1 {
		m.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		m.cancel()
	}
	if count >= m.config.ForceAfter {
		m.logger.Warn("Received repeated signal, forcing exit", zap.Int("count", count))
		m.logger.Sync()
		m.exit(exitCodeForSignal(sig))
	}
}

func exitCodeForSignal(sig os.Signal) int {
	if sig == syscall.SIGTERM {
		return core.ExitCodeSIGTERM
	}
	return core.ExitCodeSIGINT
}

// Trigger begins shutdown without a signal.
func (m *Manager) Trigger() {
	m.cancel()
}

// Do runs fn as a tracked operation so Shutdown waits for it. It returns
// ErrClosed once shutdown has started.
func (m *Manager) Do(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Begin() {
		m.logger.Debug("Rejected operation during shutdown", zap.String("operation", name))
		return ErrClosed
	}
	defer m.tracker.End()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// Shutdown drains tracked operations then runs cleanup functions within the
// configured timeout. Only the first call does any work.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.finished {
		m.mu.Unlock()
		return nil
	}
	m.finished = true
	started := m.started
	m.mu.Unlock()

	m.cancel()
	begin := time.Now()
	m.tracker.Close()

	if active := m.tracker.Active(); active > 0 {
		m.logger.Info("Waiting for in-flight operations", zap.Int("active", active))
	}
	var errs []error
	if err := m.tracker.Wait(m.config.Timeout); err != nil {
		m.logger.Warn("In-flight operations did not finish", zap.Int("remaining", m.tracker.Active()))
		errs = append(errs, err)
	}

	remaining := m.config.Timeout - time.Since(begin)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	m.logger.Info("Running shutdown handlers", zap.Strings("handlers", m.registry.Names()))
	for _, err := range m.registry.Run(ctx) {
		m.logger.Error("Shutdown handler failed", zap.Error(err))
		errs = append(errs, err)
	}

	if started {
		signal.Stop(m.sigChan)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	m.logger.Info("Shutdown complete", zap.Duration("duration", time.Since(begin)))
	return nil
}
