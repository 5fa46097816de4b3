package db

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// AsyncWriterConfig holds configuration for the async writer.
type AsyncWriterConfig struct {
	// ChannelCapacity is the buffer size for pending writes
	ChannelCapacity int
	// DrainTimeout bounds Stop
	DrainTimeout time.Duration
}

// DefaultAsyncWriterConfig returns a 100-entry buffer and a 10 second drain.
func DefaultAsyncWriterConfig() AsyncWriterConfig {
	return AsyncWriterConfig{
		ChannelCapacity: 100,
		DrainTimeout:    10 * time.Second,
	}
}

// AsyncWriter hands items to handler on one background goroutine. Write
// never blocks: when the buffer is full the item is dropped and counted.
type AsyncWriter[T any] struct {
	items   chan T
	handler func(T) error
	config  AsyncWriterConfig

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool

	dropped atomic.Int64
	failed  atomic.Int64
}

// NewAsyncWriter creates a writer. Call Start before writing.
func NewAsyncWriter[T any](handler func(T) error, config AsyncWriterConfig) *AsyncWriter[T] {
	defaults := DefaultAsyncWriterConfig()
	if config.ChannelCapacity <= 0 {
		config.ChannelCapacity = defaults.ChannelCapacity
	}
	if config.DrainTimeout <= 0 {
		config.DrainTimeout = defaults.DrainTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter[T]{
		items:   make(chan T, config.ChannelCapacity),
		handler: handler,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the background goroutine. Calling it twice is a no-op.
func (w *AsyncWriter[T]) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.run()
}

func (w *AsyncWriter[T]) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case item := <-w.items:
			w.handle(item)
		}
	}
}

func (w *AsyncWriter[T]) drain() {
	for {
		select {
		case item := <-w.items:
			w.handle(item)
		default:
			return
		}
	}
}

func (w *AsyncWriter[T]) handle(item T) {
	if err := w.handler(item); err != nil {
		w.failed.Add(1)
	}
}

// Write queues item and reports whether it was accepted.
func (w *AsyncWriter[T]) Write(item T) bool {
	if w.ctx.Err() != nil {
		w.dropped.Add(1)
		return false
	}
	select {
	case w.items <- item:
		return true
	default:
		w.dropped.Add(1)
		return false
	}
}

// Pending returns the number of queued items.
func (w *AsyncWriter[T]) Pending() int {
	return len(w.items)
}

// Dropped returns how many items were rejected by Write.
func (w *AsyncWriter[T]) Dropped() int64 {
	return w.dropped.Load()
}

// Failed returns how many items the handler rejected.
func (w *AsyncWriter[T]) Failed() int64 {
	return w.failed.Load()
}

// Stop flushes queued items and waits for the goroutine, up to the drain
// timeout. It reports whether the drain finished in time.
func (w *AsyncWriter[T]) Stop() bool {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(w.config.DrainTimeout)
	defer timer.Stop()

	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
