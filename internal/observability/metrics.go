package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	postingsTotal   *prometheus.CounterVec
	postingDuration *prometheus.HistogramVec
	importsTotal    *prometheus.CounterVec
	importedLines   prometheus.Counter
	skippedLines    prometheus.Counter
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	postings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_ledger_postings_total",
		Help: "Jumlah posting jurnal berdasarkan hasil.",
	}, []string{"outcome"})
	postingDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_ledger_posting_duration_seconds",
		Help:    "Durasi transaksi posting jurnal.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})
	imports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_bank_statement_imports_total",
		Help: "Jumlah impor mutasi MT940 berdasarkan mode parser.",
	}, []string{"mode"})
	lines := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_bank_statement_transactions_total",
		Help: "Jumlah baris transaksi yang diimpor.",
	})
	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odyssey_bank_statement_skipped_lines_total",
		Help: "Jumlah baris :61: yang dilewati parser cadangan.",
	})
	registry.MustRegister(requests, duration, postings, postingDuration, imports, lines, skipped)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		postingsTotal:   postings,
		postingDuration: postingDuration,
		importsTotal:    imports,
		importedLines:   lines,
		skippedLines:    skipped,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveJournalPosting mencatat hasil dan durasi satu posting jurnal.
func (m *Metrics) ObserveJournalPosting(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.postingsTotal.WithLabelValues(outcome).Inc()
	m.postingDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// ObserveStatementImport mencatat satu impor mutasi bank.
func (m *Metrics) ObserveStatementImport(mode string, transactions, skipped int) {
	if m == nil {
		return
	}
	m.importsTotal.WithLabelValues(mode).Inc()
	m.importedLines.Add(float64(transactions))
	m.skippedLines.Add(float64(skipped))
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
