package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"pdf_summarizer/logging"
	"pdf_summarizer/metrics"
)

// HistoryConfig configures the persisted run history.
type HistoryConfig struct {
	// Path is the SQLite file; parent directories are created
	Path string

	// Retention is how long records are kept. Zero keeps them forever.
	Retention time.Duration

	// PruneInterval is how often expired records are deleted (default: 1h)
	PruneInterval time.Duration

	// InsertTimeout bounds one background insert (default: 5s)
	InsertTimeout time.Duration

	Writer AsyncWriterConfig
}

// DefaultHistoryConfig returns a 30 day retention pruned hourly.
func DefaultHistoryConfig(path string) HistoryConfig {
	return HistoryConfig{
		Path:          path,
		Retention:     30 * 24 * time.Hour,
		PruneInterval: time.Hour,
		InsertTimeout: 5 * time.Second,
		Writer:        DefaultAsyncWriterConfig(),
	}
}

// HistoryWriter is a metrics.RecordSink backed by SQLite. Records are
// queued and inserted in the background.
type HistoryWriter struct {
	conn   *sql.DB
	repo   *HistoryRepository
	writer *AsyncWriter[metrics.SummaryRecord]
	config HistoryConfig
	logger *logging.Logger
	now    func() time.Time

	closeOnce sync.Once
	closeErr  error
}

// OpenHistory migrates the database at config.Path and starts the writer.
func OpenHistory(config HistoryConfig, logger *logging.Logger) (*HistoryWriter, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	defaults := DefaultHistoryConfig(config.Path)
	if config.PruneInterval <= 0 {
		config.PruneInterval = defaults.PruneInterval
	}
	if config.InsertTimeout <= 0 {
		config.InsertTimeout = defaults.InsertTimeout
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if dir := filepath.Dir(config.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}
	if err := MigrateUp(config.Path); err != nil {
		return nil, err
	}

	conn, err := NewSQLiteConnection(DefaultConnectionConfig(config.Path))
	if err != nil {
		return nil, err
	}

	h := &HistoryWriter{
		conn:   conn,
		repo:   NewHistoryRepository(conn),
		config: config,
		logger: logger.Named("history"),
		now:    time.Now,
	}
	h.writer = NewAsyncWriter(h.insert, config.Writer)
	h.writer.Start()

	h.logger.Info("history database opened",
		zap.String("path", config.Path),
		zap.Duration("retention", config.Retention),
	)
	return h, nil
}

func (h *HistoryWriter) insert(rec metrics.SummaryRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.InsertTimeout)
	defer cancel()

	if _, err := h.repo.Insert(ctx, rec); err != nil {
		h.logger.Warn("failed to persist summary record", zap.String("kind", rec.Kind), zap.Error(err))
		return err
	}
	return nil
}

// Record queues rec for insertion. A full queue drops the record.
func (h *HistoryWriter) Record(rec metrics.SummaryRecord) {
	if !h.writer.Write(rec) {
		h.logger.Warn("history queue full, dropping record",
			zap.String("kind", rec.Kind),
			zap.Int64("dropped_total", h.writer.Dropped()),
		)
	}
}

// Recent returns up to limit persisted records, newest first.
func (h *HistoryWriter) Recent(ctx context.Context, limit int) ([]metrics.SummaryRecord, error) {
	return h.repo.Recent(ctx, limit)
}

// Prune deletes records older than the retention window.
func (h *HistoryWriter) Prune(ctx context.Context) (int64, error) {
	if h.config.Retention <= 0 {
		return 0, nil
	}
	return h.repo.DeleteBefore(ctx, h.now().Add(-h.config.Retention))
}

// StartRetention prunes once, then every PruneInterval until ctx is done.
func (h *HistoryWriter) StartRetention(ctx context.Context) {
	if h.config.Retention <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(h.config.PruneInterval)
		defer ticker.Stop()

		for {
			if n, err := h.Prune(ctx); err != nil {
				h.logger.Warn("history prune failed", zap.Error(err))
			} else if n > 0 {
				h.logger.Info("pruned summary history", zap.Int64("deleted", n))
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Close drains queued records, bounded by the writer's DrainTimeout, and
// closes the database. ctx is unused.
func (h *HistoryWriter) Close(ctx context.Context) error {
	h.closeOnce.Do(func() {
		if !h.writer.Stop() {
			h.logger.Warn("history writer did not drain in time", zap.Int("pending", h.writer.Pending()))
		}
		h.closeErr = h.conn.Close()
	})
	return h.closeErr
}
