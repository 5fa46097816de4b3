package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zaptest"

	"pdf_summarizer/core"
	"pdf_summarizer/logging"
	"pdf_summarizer/pdfprocessor"
	"pdf_summarizer/shutdown"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    cliOptions
		wantErr bool
	}{
		{"defaults", nil, cliOptions{Language: "ja"}, false},
		{"one shot", []string{"-pdf", "report.pdf", "-lang", "en", "-max-length", "500"}, cliOptions{PDFPath: "report.pdf", Language: "en", MaxLength: 500}, false},
		{"flags", []string{"-skip-preflight", "-version"}, cliOptions{Language: "ja", SkipPreflight: true, ShowVersion: true}, false},
		{"bad language", []string{"-lang", "fr"}, cliOptions{}, true},
		{"negative length", []string{"-max-length", "-1"}, cliOptions{}, true},
		{"unknown flag", []string{"-nope"}, cliOptions{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFlags(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseFlags(%v) error = nil, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags(%v) error = %v", tt.args, err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseFlags mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFlags_Help(t *testing.T) {
	if _, err := parseFlags([]string{"-h"}); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want flag.ErrHelp", err)
	}
}

func testConfig() *core.Config {
	return &core.Config{
		Host:                "0.0.0.0",
		Port:                8080,
		ModelCandidates:     []string{"a", "b"},
		SafeTextLength:      2000,
		ChunkSize:           1500,
		ChunkMaxTokens:      256,
		FinalMaxTokens:      512,
		Temperature:         0.3,
		DefaultMaxLength:    400,
		ContextLimitMarkers: []string{"too long"},
		AITimeout:           200 * time.Second,
		MaxUploadSize:       1 << 20,
		RateLimitRPS:        2,
		RateLimitBurst:      4,
	}
}

func TestProcessorConfigFrom(t *testing.T) {
	cfg := testConfig()
	pc := processorConfigFrom(cfg)

	if diff := cmp.Diff([]string{"a", "b"}, pc.ModelCandidates); diff != "" {
		t.Errorf("ModelCandidates mismatch (-want +got):\n%s", diff)
	}
	if pc.SafeTextLength != 2000 || pc.ChunkerConfig.MaxChunkLength != 1500 {
		t.Errorf("lengths = %d/%d, want 2000/1500", pc.SafeTextLength, pc.ChunkerConfig.MaxChunkLength)
	}
	if pc.SummarizerConfig.MaxTokens != 256 || pc.ReducerConfig.MaxTokensCap != 512 {
		t.Errorf("token budgets = %d/%d, want 256/512", pc.SummarizerConfig.MaxTokens, pc.ReducerConfig.MaxTokensCap)
	}
	if pc.SummarizerConfig.Temperature != 0.3 || pc.ReducerConfig.Temperature != 0.3 {
		t.Errorf("temperatures = %v/%v, want 0.3", pc.SummarizerConfig.Temperature, pc.ReducerConfig.Temperature)
	}
	if pc.DefaultMaxLength != 400 {
		t.Errorf("DefaultMaxLength = %d, want 400", pc.DefaultMaxLength)
	}

	// The processor config owns its slices.
	cfg.ModelCandidates[0] = "changed"
	if pc.ModelCandidates[0] != "a" {
		t.Error("ModelCandidates shares backing array with config")
	}
}

func TestServerConfigFrom(t *testing.T) {
	sc := serverConfigFrom(testConfig())

	if sc.Host != "0.0.0.0" || sc.Port != 8080 {
		t.Errorf("addr = %s:%d, want 0.0.0.0:8080", sc.Host, sc.Port)
	}
	if sc.RateLimitRPS != 2 || sc.RateLimitBurst != 4 {
		t.Errorf("rate limit = %v/%d, want 2/4", sc.RateLimitRPS, sc.RateLimitBurst)
	}
	if sc.API.MaxUploadSize != 1<<20 {
		t.Errorf("MaxUploadSize = %d, want 1MiB", sc.API.MaxUploadSize)
	}
	// AI_TIMEOUT bounds each engine call, not the whole chunked request.
	if sc.API.SummarizeTimeout != 0 || sc.WriteTimeout != 0 {
		t.Errorf("SummarizeTimeout = %v, WriteTimeout = %v, want none", sc.API.SummarizeTimeout, sc.WriteTimeout)
	}
}

type fakeExtractor struct {
	result *pdfprocessor.ExtractionResult
	err    error
}

func (f fakeExtractor) Extract(path string) (*pdfprocessor.ExtractionResult, error) {
	return f.result, f.err
}

type fakeSummarizer struct {
	initErr  *string
	summary  string
	err      error
	gotText  string
	gotOpts  pdfprocessor.SummarizeOptions
	initDone bool
}

func (f *fakeSummarizer) State() pdfprocessor.State {
	return pdfprocessor.State{Initialized: f.initDone && f.initErr == nil, Error: f.initErr}
}

func (f *fakeSummarizer) InitializeEngine(ctx context.Context) { f.initDone = true }

func (f *fakeSummarizer) SummarizeText(ctx context.Context, text string, opts pdfprocessor.SummarizeOptions) (string, error) {
	f.gotText, f.gotOpts = text, opts
	return f.summary, f.err
}

func (f *fakeSummarizer) ResetEngine() {}

func newTestManager(t *testing.T) (*shutdown.Manager, *logging.Logger) {
	logger := logging.FromZap(zaptest.NewLogger(t))
	return shutdown.NewManager(shutdown.DefaultConfig(), logger), logger
}

func TestSummarizeFile(t *testing.T) {
	mgr, logger := newTestManager(t)
	proc := &fakeSummarizer{summary: "要約です"}
	ext := fakeExtractor{result: &pdfprocessor.ExtractionResult{Text: "本文", TotalPages: 1, ExtractedPages: 1}}
	opts := cliOptions{PDFPath: "doc.pdf", Language: "ja", MaxLength: 120}

	var out bytes.Buffer
	if err := summarizeFile(mgr, proc, ext, opts, &out, logger); err != nil {
		t.Fatalf("summarizeFile() error = %v", err)
	}

	if !proc.initDone {
		t.Error("engine was not initialized")
	}
	if proc.gotText != "本文" {
		t.Errorf("text = %q, want 本文", proc.gotText)
	}
	if diff := cmp.Diff(pdfprocessor.SummarizeOptions{Language: "ja", MaxLength: 120}, proc.gotOpts); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
	if text := out.String(); !strings.Contains(text, "doc.pdf") || !strings.Contains(text, "要約です") {
		t.Errorf("output = %q", text)
	}
}

func TestSummarizeFile_Errors(t *testing.T) {
	initFailed := "no model could be loaded"
	tests := []struct {
		name string
		proc *fakeSummarizer
		ext  fakeExtractor
		want string
	}{
		{
			name: "extract",
			proc: &fakeSummarizer{},
			ext:  fakeExtractor{err: errors.New("not a pdf")},
			want: "not a pdf",
		},
		{
			name: "init",
			proc: &fakeSummarizer{initErr: &initFailed},
			ext:  fakeExtractor{result: &pdfprocessor.ExtractionResult{Text: "x"}},
			want: initFailed,
		},
		{
			name: "summarize",
			proc: &fakeSummarizer{err: errors.New("engine timeout")},
			ext:  fakeExtractor{result: &pdfprocessor.ExtractionResult{Text: "x"}},
			want: "engine timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, logger := newTestManager(t)
			var out bytes.Buffer
			err := summarizeFile(mgr, tt.proc, tt.ext, cliOptions{PDFPath: "doc.pdf", Language: "en"}, &out, logger)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
			if out.Len() != 0 {
				t.Errorf("output on error = %q", out.String())
			}
		})
	}
}

func TestSummarizeFile_AfterShutdown(t *testing.T) {
	mgr, logger := newTestManager(t)
	mgr.Shutdown()

	proc := &fakeSummarizer{summary: "s"}
	ext := fakeExtractor{result: &pdfprocessor.ExtractionResult{Text: "x"}}
	err := summarizeFile(mgr, proc, ext, cliOptions{PDFPath: "doc.pdf", Language: "ja"}, &bytes.Buffer{}, logger)
	if !errors.Is(err, shutdown.ErrClosed) {
		t.Errorf("error = %v, want shutdown.ErrClosed", err)
	}
}
