package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the index and its IPC surface.
type Metrics struct {
	// IPC command metrics
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
	CommandErrors   *prometheus.CounterVec

	// Vector operation metrics
	VectorsInserted prometheus.Counter
	VectorsSearched prometheus.Counter

	// Graph metrics
	GraphSize       prometheus.Gauge
	GraphDegreeMean prometheus.Gauge
	EntryPromotions prometheus.Counter

	// Search metrics
	SearchLatency    prometheus.Histogram
	SearchResultSize prometheus.Histogram

	// PQ metrics
	PQTrainingDuration   prometheus.Histogram
	PQCompressionRatio   prometheus.Gauge
	PQRerankCount        prometheus.Counter

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vamana_commands_total",
				Help: "Total number of IPC commands by verb and status",
			},
			[]string{"command", "status"},
		),
		CommandDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vamana_command_duration_seconds",
				Help:    "IPC command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"command"},
		),
		CommandErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vamana_command_errors_total",
				Help: "Total number of IPC command errors by verb and error kind",
			},
			[]string{"command", "error_kind"},
		),

		VectorsInserted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vamana_vectors_inserted_total",
				Help: "Total number of vectors inserted",
			},
		),
		VectorsSearched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vamana_vectors_searched_total",
				Help: "Total number of search operations",
			},
		),

		GraphSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vamana_graph_size",
				Help: "Number of published nodes in the graph",
			},
		),
		GraphDegreeMean: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vamana_graph_degree_mean",
				Help: "Mean neighbor-list length across published nodes",
			},
		),
		EntryPromotions: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vamana_entry_promotions_total",
				Help: "Total number of entry-point promotions",
			},
		),

		SearchLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vamana_search_latency_seconds",
				Help:    "Search latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),
		SearchResultSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vamana_search_result_size",
				Help:    "Number of results returned by search",
				Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
		),

		PQTrainingDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vamana_pq_training_duration_seconds",
				Help:    "Product quantization codebook training duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300},
			},
		),
		PQCompressionRatio: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vamana_pq_compression_ratio",
				Help: "Raw-to-quantized storage ratio for the installed PQ codec",
			},
		),
		PQRerankCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vamana_pq_rerank_total",
				Help: "Total number of PQ shortlist rerank passes run",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vamana_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "vamana_memory_bytes",
				Help: "Process memory usage in bytes",
			},
		),
	}
}

// RecordCommand records an IPC command with duration and status.
func (m *Metrics) RecordCommand(command, status string, duration time.Duration) {
	m.CommandsTotal.WithLabelValues(command, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordCommandError records a command-level error by kind.
func (m *Metrics) RecordCommandError(command, errorKind string) {
	m.CommandErrors.WithLabelValues(command, errorKind).Inc()
}

// RecordInsert records a vector insertion.
func (m *Metrics) RecordInsert(count int) {
	m.VectorsInserted.Add(float64(count))
}

// RecordSearch records a search operation.
func (m *Metrics) RecordSearch(duration time.Duration, resultSize int) {
	m.VectorsSearched.Inc()
	m.SearchLatency.Observe(duration.Seconds())
	m.SearchResultSize.Observe(float64(resultSize))
}

// RecordEntryPromotion records an entry-point promotion.
func (m *Metrics) RecordEntryPromotion() {
	m.EntryPromotions.Inc()
}

// UpdateGraphSize updates the published-node count gauge.
func (m *Metrics) UpdateGraphSize(size int64) {
	m.GraphSize.Set(float64(size))
}

// UpdateGraphDegreeMean updates the mean-degree gauge.
func (m *Metrics) UpdateGraphDegreeMean(mean float64) {
	m.GraphDegreeMean.Set(mean)
}

// RecordPQTraining records a PQ codebook training pass.
func (m *Metrics) RecordPQTraining(duration time.Duration, compressionRatio float32) {
	m.PQTrainingDuration.Observe(duration.Seconds())
	m.PQCompressionRatio.Set(float64(compressionRatio))
}

// RecordPQRerank records a PQ shortlist rerank pass.
func (m *Metrics) RecordPQRerank() {
	m.PQRerankCount.Inc()
}

// UpdateGoroutineCount updates the goroutine gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
