package observability

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for a crawl. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Registry        *prometheus.Registry
	FetchesTotal    *prometheus.CounterVec
	FetchDuration   *prometheus.HistogramVec
	PacingWait      prometheus.Histogram
	ProxyChosen     prometheus.Counter
	ProxyEmpty      prometheus.Counter
	BooksTotal      *prometheus.CounterVec
	CategoriesTotal *prometheus.CounterVec
	FieldWarnings   *prometheus.CounterVec

	logger *slog.Logger
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics(logger *slog.Logger) *Metrics {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosario_fetches_total",
			Help: "Page fetches by page kind and outcome.",
		},
		[]string{"page", "outcome"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rosario_fetch_duration_seconds",
			Help:    "Network time of page fetches, excluding pacing.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"page"},
	)
	pacingWait := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rosario_pacing_wait_seconds",
			Help:    "Time spent sleeping before a fetch to honor request spacing.",
			Buckets: []float64{0, 0.5, 1, 2, 3, 4, 5, 6},
		},
	)
	proxyChosen := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rosario_proxy_chosen_total",
			Help: "Relays handed out by the proxy pool.",
		},
	)
	proxyEmpty := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rosario_proxy_empty_total",
			Help: "Fetches refused because the proxy pool was empty.",
		},
	)
	books := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosario_books_total",
			Help: "Book pages by outcome (stored, skipped, failed).",
		},
		[]string{"outcome"},
	)
	categories := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosario_categories_total",
			Help: "Categories by outcome (crawled, skipped).",
		},
		[]string{"outcome"},
	)
	fieldWarnings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rosario_field_warnings_total",
			Help: "Absent or unparseable fields by extraction pass.",
		},
		[]string{"pass"},
	)

	registry.MustRegister(fetches, fetchDuration, pacingWait, proxyChosen, proxyEmpty, books, categories, fieldWarnings)

	return &Metrics{
		Registry:        registry,
		FetchesTotal:    fetches,
		FetchDuration:   fetchDuration,
		PacingWait:      pacingWait,
		ProxyChosen:     proxyChosen,
		ProxyEmpty:      proxyEmpty,
		BooksTotal:      books,
		CategoriesTotal: categories,
		FieldWarnings:   fieldWarnings,
		logger:          logger.With("component", "metrics"),
	}
}

// ObserveFetch records one fetch attempt.
func (m *Metrics) ObserveFetch(page, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(page, outcome).Inc()
	if d > 0 {
		m.FetchDuration.WithLabelValues(page).Observe(d.Seconds())
	}
}

// ObservePacing records a pacing sleep.
func (m *Metrics) ObservePacing(d time.Duration) {
	if m == nil {
		return
	}
	m.PacingWait.Observe(d.Seconds())
}

// IncProxyChosen counts a relay selection.
func (m *Metrics) IncProxyChosen() {
	if m == nil {
		return
	}
	m.ProxyChosen.Inc()
}

// IncProxyEmpty counts a fetch refused for lack of relays.
func (m *Metrics) IncProxyEmpty() {
	if m == nil {
		return
	}
	m.ProxyEmpty.Inc()
}

// IncBook counts a book outcome.
func (m *Metrics) IncBook(outcome string) {
	if m == nil {
		return
	}
	m.BooksTotal.WithLabelValues(outcome).Inc()
}

// IncCategory counts a category outcome.
func (m *Metrics) IncCategory(outcome string) {
	if m == nil {
		return
	}
	m.CategoriesTotal.WithLabelValues(outcome).Inc()
}

// IncFieldWarning counts a tolerated extraction gap.
func (m *Metrics) IncFieldWarning(pass string) {
	if m == nil {
		return
	}
	m.FieldWarnings.WithLabelValues(pass).Inc()
}

// Handler serves the registry in Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server in the background.
func (m *Metrics) StartServer(port int, path string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	m.logger.Info("metrics server starting", "addr", srv.Addr, "path", path)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return srv
}
