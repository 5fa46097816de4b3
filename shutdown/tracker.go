package shutdown

import (
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned when work is submitted after shutdown began.
var ErrClosed = errors.New("shutdown in progress")

// ErrWaitTimeout is returned when in-flight work outlives the wait.
var ErrWaitTimeout = errors.New("timed out waiting for in-flight operations")

// OperationTracker counts in-flight operations and refuses new ones once
// closed.
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active int
	closed bool
}

// Begin registers an operation. It returns false after Close.
func (t *OperationTracker) Begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.active++
	t.wg.Add(1)
	return true
}

// End marks one operation finished.
func (t *OperationTracker) End() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
	t.wg.Done()
}

// Close stops Begin from accepting work.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Active returns the number of running operations.
func (t *OperationTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Wait blocks until every operation ends or timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrWaitTimeout
	}
}
