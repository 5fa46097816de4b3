package webui

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"pdf_summarizer/logging"
	"pdf_summarizer/metrics"
	"pdf_summarizer/pdfprocessor"
)

// Error messages returned to the browser.
const (
	MsgPDFNotFound      = "PDFファイルが見つかりません"
	MsgSelectPDF        = "PDFファイルを選択してください"
	MsgFileTooLarge     = "ファイルサイズが大きすぎます (最大10MB)"
	MsgParseFailed      = "PDFの解析中にエラーが発生しました"
	MsgInvalidRequest   = "リクエストの形式が正しくありません"
	MsgInvalidLanguage  = "言語は ja または en を指定してください"
	MsgTooManyRequests  = "リクエストが多すぎます。しばらくしてから再試行してください"
	MsgMethodNotAllowed = "許可されていないメソッドです"

	MsgHistoryUnavailable = "履歴を取得できませんでした"
)

const pdfContentType = "application/pdf"

// Summarizer is the orchestrator driven by the API.
// *pdfprocessor.Processor implements it.
type Summarizer interface {
	State() pdfprocessor.State
	InitializeEngine(ctx context.Context)
	SummarizeText(ctx context.Context, text string, opts pdfprocessor.SummarizeOptions) (string, error)
	ResetEngine()
}

// TextExtractor turns uploaded PDF bytes into text.
// *pdfprocessor.Extractor implements it.
type TextExtractor interface {
	ExtractBytes(data []byte) (*pdfprocessor.ExtractionResult, error)
}

// StatsProvider supplies the /api/stats payload. *metrics.Store implements it.
type StatsProvider interface {
	Snapshot() metrics.Stats
}

// HistoryProvider supplies persisted runs for /api/history.
// *db.HistoryWriter implements it.
type HistoryProvider interface {
	Recent(ctx context.Context, limit int) ([]metrics.SummaryRecord, error)
}

// History page sizes for /api/history.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 200
)

// SummaryAPI serves the JSON endpoints under /api.
//
// Endpoints:
//   - POST /api/parse-pdf      - extract text from an uploaded PDF
//   - POST /api/engine/init    - start engine initialization in the background
//   - POST /api/summarize      - summarize text
//   - POST /api/engine/reset   - drop the engine
//   - GET  /api/state          - current state snapshot
//   - GET  /api/stats          - recent runs and totals
//   - GET  /api/history        - persisted runs, newest first
type SummaryAPI struct {
	summarizer       Summarizer
	extractor        TextExtractor
	stats            StatsProvider
	history          HistoryProvider
	maxUploadSize    int64
	summarizeTimeout time.Duration
	logger           *logging.Logger

	// bgCtx bounds background initialization; replaced by Server.Start
	bgCtx context.Context
	bgWG  sync.WaitGroup
}

// SummaryAPIConfig configures the SummaryAPI behavior.
type SummaryAPIConfig struct {
	// MaxUploadSize is the largest accepted PDF in bytes (default: 10MB)
	MaxUploadSize int64

	// SummarizeTimeout bounds one whole summarize request, all chunk calls
	// included. Zero (the default) leaves each engine call to its own
	// client timeout and ends only when the client disconnects.
	SummarizeTimeout time.Duration
}

// DefaultSummaryAPIConfig returns a default configuration.
func DefaultSummaryAPIConfig() SummaryAPIConfig {
	return SummaryAPIConfig{
		MaxUploadSize: 10 * 1024 * 1024,
	}
}

// NewSummaryAPI creates the API. stats may be nil, in which case
// /api/stats answers 404.
func NewSummaryAPI(summarizer Summarizer, extractor TextExtractor, stats StatsProvider, config SummaryAPIConfig, logger *logging.Logger) *SummaryAPI {
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = DefaultSummaryAPIConfig().MaxUploadSize
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &SummaryAPI{
		summarizer:       summarizer,
		extractor:        extractor,
		stats:            stats,
		maxUploadSize:    config.MaxUploadSize,
		summarizeTimeout: config.SummarizeTimeout,
		logger:           logger.Named("api"),
		bgCtx:            context.Background(),
	}
}

// WithHistory enables /api/history.
func (api *SummaryAPI) WithHistory(history HistoryProvider) *SummaryAPI {
	api.history = history
	return api
}

// RegisterRoutes registers all API routes on the given mux.
func (api *SummaryAPI) RegisterRoutes(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(h http.Handler) http.Handler { return h }
	}
	mux.Handle("/api/parse-pdf", wrap(http.HandlerFunc(api.HandleParsePDF)))
	mux.Handle("/api/engine/init", wrap(http.HandlerFunc(api.HandleEngineInit)))
	mux.Handle("/api/summarize", wrap(http.HandlerFunc(api.HandleSummarize)))
	mux.Handle("/api/engine/reset", wrap(http.HandlerFunc(api.HandleEngineReset)))
	mux.Handle("/api/state", wrap(http.HandlerFunc(api.HandleState)))
	mux.Handle("/api/stats", wrap(http.HandlerFunc(api.HandleStats)))
	mux.Handle("/api/history", wrap(http.HandlerFunc(api.HandleHistory)))
}

// ParsePDFMetadata describes the uploaded file and the extraction.
type ParsePDFMetadata struct {
	Filename       string `json:"filename"`
	Size           int64  `json:"size"`
	Type           string `json:"type"`
	Title          string `json:"title,omitempty"`
	Pages          int    `json:"pages"`
	ExtractedPages int    `json:"extractedPages"`
	RequestID      string `json:"requestId"`
}

// ParsePDFResponse is the 200 body of /api/parse-pdf.
type ParsePDFResponse struct {
	Text     string           `json:"text"`
	Metadata ParsePDFMetadata `json:"metadata"`
}

// HandleParsePDF handles POST /api/parse-pdf. The file is read from the
// multipart field "pdf".
func (api *SummaryAPI) HandleParsePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	// Leave room for multipart framing around a maximum-size file.
	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadSize+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, MsgFileTooLarge)
			return
		}
		api.logger.Warn("failed to parse multipart form", zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgParseFailed)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, MsgPDFNotFound)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != pdfContentType {
		writeError(w, http.StatusBadRequest, MsgSelectPDF)
		return
	}
	if header.Size > api.maxUploadSize {
		writeError(w, http.StatusBadRequest, MsgFileTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		api.logger.Error("failed to read upload", zap.String("filename", header.Filename), zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgParseFailed)
		return
	}

	requestID := RequestIDFromContext(r.Context())
	result, err := api.extractor.ExtractBytes(data)
	if err != nil && !errors.Is(err, pdfprocessor.ErrNoPDFContent) {
		api.logger.Error("PDF extraction failed",
			zap.String("request_id", requestID),
			zap.String("filename", header.Filename),
			zap.Int64("size", header.Size),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgParseFailed)
		return
	}

	api.logger.Info("PDF parsed",
		zap.String("request_id", requestID),
		zap.String("filename", header.Filename),
		zap.Int("pages", result.TotalPages),
		zap.Int("extracted_pages", result.ExtractedPages),
		zap.Int("text_length", result.Length))

	writeJSON(w, http.StatusOK, ParsePDFResponse{
		Text: result.Text,
		Metadata: ParsePDFMetadata{
			Filename:       header.Filename,
			Size:           header.Size,
			Type:           contentType,
			Title:          result.Title,
			Pages:          result.TotalPages,
			ExtractedPages: result.ExtractedPages,
			RequestID:      requestID,
		},
	})
}

// HandleEngineInit handles POST /api/engine/init. Initialization runs in
// the background; progress is visible through /api/state and /ws.
func (api *SummaryAPI) HandleEngineInit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	state := api.summarizer.State()
	if !state.Initialized && !state.Initializing {
		api.bgWG.Add(1)
		go func() {
			defer api.bgWG.Done()
			api.summarizer.InitializeEngine(api.bgCtx)
		}()
	}

	writeJSON(w, http.StatusAccepted, api.summarizer.State())
}

// SummarizeRequest is the body of /api/summarize.
type SummarizeRequest struct {
	Text      string `json:"text"`
	Language  string `json:"language"`
	MaxLength int    `json:"maxLength"`
}

// SummarizeResponse is the 200 body of /api/summarize.
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// HandleSummarize handles POST /api/summarize.
func (api *SummaryAPI) HandleSummarize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}

	var req SummarizeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, api.maxUploadSize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, MsgInvalidRequest)
		return
	}
	switch req.Language {
	case "", pdfprocessor.LanguageJapanese, pdfprocessor.LanguageEnglish:
	default:
		writeError(w, http.StatusBadRequest, MsgInvalidLanguage)
		return
	}

	ctx := r.Context()
	if api.summarizeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, api.summarizeTimeout)
		defer cancel()
	}

	summary, err := api.summarizer.SummarizeText(ctx, req.Text, pdfprocessor.SummarizeOptions{
		Language:  req.Language,
		MaxLength: req.MaxLength,
	})
	if err != nil {
		status, msg := summarizeErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	writeJSON(w, http.StatusOK, SummarizeResponse{Summary: summary})
}

func summarizeErrorStatus(err error) (int, string) {
	var sumErr *pdfprocessor.SummarizationError
	switch {
	case errors.Is(err, pdfprocessor.ErrNotInitialized):
		return http.StatusConflict, err.Error()
	case errors.Is(err, pdfprocessor.ErrEmptyInput):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &sumErr):
		return http.StatusInternalServerError, sumErr.Message
	default:
		return http.StatusInternalServerError, pdfprocessor.MsgSummaryFailed
	}
}

// HandleEngineReset handles POST /api/engine/reset.
func (api *SummaryAPI) HandleEngineReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}
	api.summarizer.ResetEngine()
	writeJSON(w, http.StatusOK, api.summarizer.State())
}

// HandleState handles GET /api/state.
func (api *SummaryAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, api.summarizer.State())
}

// HandleStats handles GET /api/stats.
func (api *SummaryAPI) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}
	if api.stats == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, api.stats.Snapshot())
}

// HistoryResponse is the body of /api/history.
type HistoryResponse struct {
	Records []metrics.SummaryRecord `json:"records"`
}

// HandleHistory handles GET /api/history?limit=N.
func (api *SummaryAPI) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
		return
	}
	if api.history == nil {
		http.NotFound(w, r)
		return
	}

	limit := DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, MsgInvalidRequest)
			return
		}
		limit = min(n, MaxHistoryLimit)
	}

	records, err := api.history.Recent(r.Context(), limit)
	if err != nil {
		api.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgHistoryUnavailable)
		return
	}
	if records == nil {
		records = []metrics.SummaryRecord{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Records: records})
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// Headers are already written; nothing useful to do on failure.
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}
