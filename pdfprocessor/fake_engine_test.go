package pdfprocessor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"pdf_summarizer/llm"
)

// fakeEngine is an in-memory llm.Engine. reply decides the answer for
// each request; failing lists model ids whose Reload fails.
type fakeEngine struct {
	mu       sync.Mutex
	reply    func(req llm.CompletionRequest) (string, error)
	failing  map[string]bool
	reloads  []string
	requests []llm.CompletionRequest
	closed   bool
	delay    time.Duration

	// reloadStarted, if set, receives once per Reload; Reload then waits
	// for reloadGate to close
	reloadStarted chan struct{}
	reloadGate    chan struct{}

	active    atomic.Int32
	maxActive atomic.Int32
}

func newFakeEngine(reply func(req llm.CompletionRequest) (string, error)) *fakeEngine {
	return &fakeEngine{reply: reply, failing: map[string]bool{}}
}

// echoReply answers every request with a fixed string.
func echoReply(text string) func(llm.CompletionRequest) (string, error) {
	return func(llm.CompletionRequest) (string, error) { return text, nil }
}

func (f *fakeEngine) Reload(ctx context.Context, modelID string) error {
	if f.reloadStarted != nil {
		select {
		case f.reloadStarted <- struct{}{}:
		default:
		}
	}
	if f.reloadGate != nil {
		<-f.reloadGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.reloads = append(f.reloads, modelID)
	if f.failing[modelID] {
		return &llm.CompletionError{Op: "reload", Model: modelID, Message: "model not found", Err: llm.ErrModelLoadFailed}
	}
	return nil
}

func (f *fakeEngine) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxActive.Load()
		if n <= cur || f.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()

	text, err := reply(req)
	if err != nil {
		return nil, err
	}
	return &llm.CompletionResponse{Choices: []llm.Choice{{Text: text}}}, nil
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeEngine) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeEngine) Requests() []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.CompletionRequest(nil), f.requests...)
}

func (f *fakeEngine) prompt(i int) string {
	reqs := f.Requests()
	if i < 0 {
		i = len(reqs) + i
	}
	return reqs[i].Messages[0].Content
}

// isChunkPrompt reports whether req is a per-chunk key-point request.
func isChunkPrompt(req llm.CompletionRequest) bool {
	content := req.Messages[0].Content
	return strings.HasSuffix(content, "要点:") || strings.HasSuffix(content, "Key points:")
}

func factoryFor(engine llm.Engine) llm.EngineFactory {
	return func() (llm.Engine, error) { return engine, nil }
}

var errFactory = errors.New("inference runtime unavailable")
