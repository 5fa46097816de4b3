package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "pdf_summarizer"

// RecordSink receives every SummaryRecord. *Store implements it, as does
// the SQLite history writer.
type RecordSink interface {
	Record(rec SummaryRecord)
}

// SummaryRecorder records pipeline measurements to Prometheus and,
// when a Store is attached, to the in-memory history.
type SummaryRecorder struct {
	initDuration    *prometheus.HistogramVec
	initTotal       *prometheus.CounterVec
	summaryDuration *prometheus.HistogramVec
	summaryTotal    *prometheus.CounterVec
	chunksPerRun    prometheus.Histogram
	oversizedTotal  prometheus.Counter
	partialsTotal   prometheus.Counter

	store *Store
	sinks []RecordSink
}

// NewSummaryRecorder registers the collectors on reg. A nil reg uses
// prometheus.DefaultRegisterer. Collectors already registered on reg are
// reused, so repeated construction against the same registry is safe.
func NewSummaryRecorder(reg prometheus.Registerer, store *Store) *SummaryRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &SummaryRecorder{
		initDuration: registerOrExisting(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_init_duration_seconds",
			Help:      "Time taken to load an LLM engine",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"result"})),
		initTotal: registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_init_total",
			Help:      "Engine initializations by model and result",
		}, []string{"model", "result"})),
		summaryDuration: registerOrExisting(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summarization_duration_seconds",
			Help:      "Time taken to summarize a document",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"mode", "result"})),
		summaryTotal: registerOrExisting(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summarizations_total",
			Help:      "Summarizations by mode, language and result",
		}, []string{"mode", "language", "result"})),
		chunksPerRun: registerOrExisting(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunks_per_document",
			Help:      "Number of chunks a long document was split into",
			Buckets:   []float64{2, 3, 5, 8, 13, 21, 34, 55},
		})),
		oversizedTotal: registerOrExisting(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oversized_chunks_total",
			Help:      "Chunks exceeding the maximum chunk length",
		})),
		partialsTotal: registerOrExisting(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "partial_summaries_total",
			Help:      "Non-empty partial summaries produced from chunks",
		})),
		store: store,
	}
}

func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}

// RecordInit records one engine initialization attempt.
func (r *SummaryRecorder) RecordInit(model string, duration time.Duration, err error) {
	result := resultLabel(err)
	r.initDuration.WithLabelValues(result).Observe(duration.Seconds())
	r.initTotal.WithLabelValues(model, result).Inc()

	r.emit(SummaryRecord{
		Kind:     KindInit,
		Model:    model,
		Status:   result,
		Duration: duration,
		ErrorMsg: errorMessage(err),
	})
}

// RecordSummary records one summarization run.
func (r *SummaryRecorder) RecordSummary(mode, language string, duration time.Duration, err error) {
	result := resultLabel(err)
	r.summaryDuration.WithLabelValues(mode, result).Observe(duration.Seconds())
	r.summaryTotal.WithLabelValues(mode, language, result).Inc()

	r.emit(SummaryRecord{
		Kind:     KindSummarize,
		Mode:     mode,
		Language: language,
		Status:   result,
		Duration: duration,
		ErrorMsg: errorMessage(err),
	})
}

// RecordChunks records the chunk counts of one chunked run.
func (r *SummaryRecorder) RecordChunks(total, oversized, partials int) {
	r.chunksPerRun.Observe(float64(total))
	r.oversizedTotal.Add(float64(oversized))
	r.partialsTotal.Add(float64(partials))

	if r.store != nil {
		r.store.RecordChunks(total, oversized, partials)
	}
}

// AddSink forwards every later record to sink. Call it during setup,
// before the recorder is shared.
func (r *SummaryRecorder) AddSink(sink RecordSink) {
	r.sinks = append(r.sinks, sink)
}

func (r *SummaryRecorder) emit(rec SummaryRecord) {
	rec.EndTime = time.Now()
	if r.store != nil {
		r.store.Record(rec)
	}
	for _, sink := range r.sinks {
		sink.Record(rec)
	}
}

// Store returns the attached store, or nil.
func (r *SummaryRecorder) Store() *Store {
	return r.store
}

func resultLabel(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
