package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape flow.
type Metrics struct {
	Registry          *prometheus.Registry
	RowsScrapedTotal  prometheus.Counter
	ScrollsTotal      prometheus.Counter
	BatchesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	PageCycleDuration prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	rows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_rows_total",
			Help: "Total listing rows extracted.",
		},
	)
	scrolls := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_scroll_attempts_total",
			Help: "Total scroll attempts against the listing grid.",
		},
	)
	batches := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_checkpoint_batches_total",
			Help: "Total batches flushed to the checkpoint file.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total scraper errors by type.",
		},
		[]string{"error_type"},
	)
	pageCycle := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_page_cycle_duration_seconds",
			Help:    "Duration of one extract-and-scroll cycle.",
			Buckets: prometheus.DefBuckets,
		},
	)

	registry.MustRegister(rows, scrolls, batches, errorsTotal, pageCycle)

	return &Metrics{
		Registry:          registry,
		RowsScrapedTotal:  rows,
		ScrollsTotal:      scrolls,
		BatchesTotal:      batches,
		ErrorsTotal:       errorsTotal,
		PageCycleDuration: pageCycle,
	}
}

// IncRows increments the extracted-rows counter by n.
func (m *Metrics) IncRows(n int) {
	if m == nil {
		return
	}
	m.RowsScrapedTotal.Add(float64(n))
}

// IncScrolls increments the scroll-attempts counter.
func (m *Metrics) IncScrolls() {
	if m == nil {
		return
	}
	m.ScrollsTotal.Inc()
}

// IncBatches increments the checkpoint-batches counter.
func (m *Metrics) IncBatches() {
	if m == nil {
		return
	}
	m.BatchesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// ObservePageCycle records the duration of one extract-and-scroll cycle.
func (m *Metrics) ObservePageCycle(d time.Duration) {
	if m == nil {
		return
	}
	m.PageCycleDuration.Observe(d.Seconds())
}
