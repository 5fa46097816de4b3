package metrics

import (
	"sync"
	"time"
)

// Store is an in-memory history of recent pipeline runs with running
// totals. It is safe for concurrent use.
//
// Usage:
//
//	store := NewStore(DefaultStoreConfig(), time.Now())
//	store.Record(rec)
//	stats := store.Snapshot()
type Store struct {
	mu sync.RWMutex

	// Ring buffer of recent records
	history []SummaryRecord
	cap     int
	head    int
	size    int

	inits         int64
	initErrors    int64
	summaries     int64
	summaryErrors int64
	byMode        map[string]*modeAccumulator
	chunks        ChunkStats

	startTime time.Time
	now       func() time.Time
}

type modeAccumulator struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures the Store.
type StoreConfig struct {
	// HistoryCapacity is the max number of records to retain
	HistoryCapacity int
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 50,
	}
}

// NewStore creates a Store. startTime is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	capacity := config.HistoryCapacity
	if capacity < 1 {
		capacity = DefaultStoreConfig().HistoryCapacity
	}

	return &Store{
		history:   make([]SummaryRecord, capacity),
		cap:       capacity,
		byMode:    make(map[string]*modeAccumulator),
		startTime: startTime,
		now:       time.Now,
	}
}

// Record adds a run to the history and updates the totals.
func (s *Store) Record(rec SummaryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.EndTime.IsZero() {
		rec.EndTime = s.now()
	}

	s.history[s.head] = rec
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	failed := rec.Status == StatusError
	switch rec.Kind {
	case KindInit:
		s.inits++
		if failed {
			s.initErrors++
		}
	case KindSummarize:
		s.summaries++
		if failed {
			s.summaryErrors++
		}
		acc, ok := s.byMode[rec.Mode]
		if !ok {
			acc = &modeAccumulator{}
			s.byMode[rec.Mode] = acc
		}
		acc.count++
		if !failed {
			acc.successCount++
		}
		acc.totalDuration += rec.Duration
	}
}

// RecordChunks adds one chunked run's chunk counts to the totals.
func (s *Store) RecordChunks(total, oversized, partials int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks.Runs++
	s.chunks.TotalChunks += int64(total)
	s.chunks.Oversized += int64(oversized)
	s.chunks.TotalPartials += int64(partials)
}

// Recent returns up to limit records, newest first. A limit <= 0
// returns the whole history.
func (s *Store) Recent(limit int) []SummaryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recentLocked(limit)
}

func (s *Store) recentLocked(limit int) []SummaryRecord {
	n := s.size
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]SummaryRecord, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.head - i + s.cap) % s.cap
		out = append(out, s.history[idx])
	}
	return out
}

// Snapshot returns a copy of the current totals and history.
func (s *Store) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byMode := make(map[string]*ModeStats, len(s.byMode))
	for mode, acc := range s.byMode {
		ms := &ModeStats{Count: acc.count}
		if acc.count > 0 {
			ms.SuccessRate = float64(acc.successCount) / float64(acc.count) * 100
			ms.AvgDuration = acc.totalDuration / time.Duration(acc.count)
		}
		byMode[mode] = ms
	}

	return Stats{
		Uptime:        s.now().Sub(s.startTime),
		Inits:         s.inits,
		InitErrors:    s.initErrors,
		Summaries:     s.summaries,
		SummaryErrors: s.summaryErrors,
		ByMode:        byMode,
		Chunks:        s.chunks,
		Recent:        s.recentLocked(0),
	}
}
