package webui

import (
	"context"
	"sync"

	"pdf_summarizer/metrics"
	"pdf_summarizer/pdfprocessor"
)

// stubProcessor implements Processor for handler tests.
type stubProcessor struct {
	mu          sync.Mutex
	state       pdfprocessor.State
	summary     string
	err         error
	initCalls   int
	resetCalls  int
	lastText    string
	lastOptions pdfprocessor.SummarizeOptions
	subscribers map[int]func(pdfprocessor.State)
	nextID      int
	initDone    chan struct{}
}

func newStubProcessor() *stubProcessor {
	return &stubProcessor{
		subscribers: make(map[int]func(pdfprocessor.State)),
		initDone:    make(chan struct{}, 8),
	}
}

func (p *stubProcessor) State() pdfprocessor.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *stubProcessor) setState(s pdfprocessor.State) {
	p.mu.Lock()
	p.state = s
	subs := make([]func(pdfprocessor.State), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func (p *stubProcessor) Subscribe(fn func(pdfprocessor.State)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.subscribers, id)
	}
}

func (p *stubProcessor) subscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subscribers)
}

func (p *stubProcessor) InitializeEngine(ctx context.Context) {
	p.mu.Lock()
	p.initCalls++
	p.mu.Unlock()
	p.setState(pdfprocessor.State{Initialized: true, Progress: pdfprocessor.ProgressInitDone, Model: "stub-model"})
	p.initDone <- struct{}{}
}

func (p *stubProcessor) SummarizeText(ctx context.Context, text string, opts pdfprocessor.SummarizeOptions) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastText = text
	p.lastOptions = opts
	if p.err != nil {
		return "", p.err
	}
	return p.summary, nil
}

func (p *stubProcessor) ResetEngine() {
	p.mu.Lock()
	p.resetCalls++
	p.state = pdfprocessor.State{}
	p.mu.Unlock()
}

// stubExtractor implements TextExtractor.
type stubExtractor struct {
	result   *pdfprocessor.ExtractionResult
	err      error
	received []byte
}

func (e *stubExtractor) ExtractBytes(data []byte) (*pdfprocessor.ExtractionResult, error) {
	e.received = data
	return e.result, e.err
}

// stubStats implements StatsProvider.
type stubStats struct {
	stats metrics.Stats
}

func (s stubStats) Snapshot() metrics.Stats {
	return s.stats
}

// stubHistory implements HistoryProvider.
type stubHistory struct {
	records  []metrics.SummaryRecord
	err      error
	gotLimit int
}

func (h *stubHistory) Recent(ctx context.Context, limit int) ([]metrics.SummaryRecord, error) {
	h.gotLimit = limit
	if h.err != nil {
		return nil, h.err
	}
	if len(h.records) > limit {
		return h.records[:limit], nil
	}
	return h.records, nil
}
