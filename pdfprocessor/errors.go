package pdfprocessor

import (
	"errors"
	"fmt"
	"strings"

	"pdf_summarizer/llm"
)

// User-facing messages recorded in State.Error.
const (
	MsgInitFailed      = "AI モデルの初期化に失敗しました。実行環境が推論エンジンをサポートしていない可能性があります。"
	MsgTextTooLong     = "テキストが長すぎます。より短いテキストで試してください。"
	MsgSummaryFailed   = "要約の生成中にエラーが発生しました"
	MsgEmptySummary    = "要約の生成に失敗しました"
	MsgEmptyFinal      = "最終要約の生成に失敗しました"
	MsgAllChunksFailed = "テキストの各部分から要点を抽出できませんでした"
)

// Sentinel errors for precondition failures. They do not change State.
var (
	// ErrNotInitialized is returned by SummarizeText before a model is loaded.
	ErrNotInitialized = errors.New("AI モデルが初期化されていません")

	// ErrEmptyInput is returned for blank input text.
	ErrEmptyInput = errors.New("要約するテキストが空です")

	// ErrAllChunksEmpty is returned when every chunk summary came back empty,
	// before the final merge is attempted.
	ErrAllChunksEmpty = errors.New(MsgAllChunksFailed)
)

// EmptySummaryError is returned when the engine produced no usable text.
// Final distinguishes the merge step from single-pass summarization.
type EmptySummaryError struct {
	Final bool
}

func (e *EmptySummaryError) Error() string {
	if e.Final {
		return MsgEmptyFinal
	}
	return MsgEmptySummary
}

// ModelLoadError is returned when no model candidate could be loaded.
type ModelLoadError struct {
	Candidates []string // Model ids tried, in order
	Err        error    // Last failure, wrapping llm.ErrModelLoadFailed
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("no model could be loaded (tried %s): %v", strings.Join(e.Candidates, ", "), e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// SummarizationError is returned by SummarizeText after a failure inside
// the pipeline. Message is the text recorded in State.Error.
type SummarizationError struct {
	Message string
	Err     error
}

func (e *SummarizationError) Error() string {
	return e.Message
}

func (e *SummarizationError) Unwrap() error {
	return e.Err
}

// resolveErrorMessage picks the user-facing message for a pipeline failure.
// Context-window violations get a fixed hint; engine failures keep the
// backend's own message.
func resolveErrorMessage(err error, contextMarkers []string) string {
	if err == nil {
		return MsgSummaryFailed
	}

	var empty *EmptySummaryError
	if errors.As(err, &empty) {
		return empty.Error()
	}
	if errors.Is(err, ErrAllChunksEmpty) {
		return MsgAllChunksFailed
	}

	message := err.Error()
	var ce *llm.CompletionError
	if errors.As(err, &ce) && ce.Message != "" {
		message = ce.Message
	}

	full := err.Error()
	for _, marker := range contextMarkers {
		if marker == "" {
			continue
		}
		if strings.Contains(message, marker) || strings.Contains(full, marker) {
			return MsgTextTooLong
		}
	}

	if strings.TrimSpace(message) == "" {
		return MsgSummaryFailed
	}
	return message
}
