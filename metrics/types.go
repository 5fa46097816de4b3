// Package metrics records summarization pipeline measurements.
// Prometheus collectors back the /metrics endpoint and an in-memory
// Store backs the JSON stats endpoint.
package metrics

import "time"

// Status constants for SummaryRecord
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation kinds stored in SummaryRecord.Kind
const (
	KindInit      = "init"
	KindSummarize = "summarize"
)

// SummaryRecord is a single engine initialization or summarization run.
type SummaryRecord struct {
	// Kind is KindInit or KindSummarize
	Kind string `json:"kind"`

	// Model is the loaded model for init records
	Model string `json:"model,omitempty"`

	// Mode is "single" or "chunked" for summarize records
	Mode string `json:"mode,omitempty"`

	// Language is the requested output language
	Language string `json:"language,omitempty"`

	Status   string        `json:"status"`
	Duration time.Duration `json:"duration"`
	EndTime  time.Time     `json:"end_time"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// ModeStats aggregates summarize runs for one mode.
type ModeStats struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// ChunkStats aggregates chunked runs.
type ChunkStats struct {
	Runs          int64 `json:"runs"`
	TotalChunks   int64 `json:"total_chunks"`
	Oversized     int64 `json:"oversized"`
	TotalPartials int64 `json:"total_partials"`
}

// Stats is the snapshot returned by Store.Snapshot.
type Stats struct {
	Uptime        time.Duration         `json:"uptime"`
	Inits         int64                 `json:"inits"`
	InitErrors    int64                 `json:"init_errors"`
	Summaries     int64                 `json:"summaries"`
	SummaryErrors int64                 `json:"summary_errors"`
	ByMode        map[string]*ModeStats `json:"by_mode"`
	Chunks        ChunkStats            `json:"chunks"`
	Recent        []SummaryRecord       `json:"recent"`
}
