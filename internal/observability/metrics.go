package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	purchaseEvents  *prometheus.CounterVec
	purchaseLines   prometheus.Histogram
	sessions        prometheus.Gauge
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchasedesk_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "purchasedesk_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchasedesk_purchase_events_total",
		Help: "Purchases saved, updated, deleted or paid, partitioned by event.",
	}, []string{"event"})
	lines := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "purchasedesk_purchase_lines",
		Help:    "Line items per saved purchase.",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "purchasedesk_workspace_sessions",
		Help: "Open purchase entry sessions.",
	})
	registry.MustRegister(requests, duration, events, lines, sessions)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		purchaseEvents:  events,
		purchaseLines:   lines,
		sessions:        sessions,
	}
}

// PurchaseSaved counts a saved purchase and its line count.
func (m *Metrics) PurchaseSaved(lines int) {
	if m == nil {
		return
	}
	m.purchaseEvents.WithLabelValues("saved").Inc()
	m.purchaseLines.Observe(float64(lines))
}

// PurchaseDeleted counts a deleted purchase.
func (m *Metrics) PurchaseDeleted() {
	if m == nil {
		return
	}
	m.purchaseEvents.WithLabelValues("deleted").Inc()
}

// PurchaseUpdated counts an edited purchase and its new line count.
func (m *Metrics) PurchaseUpdated(lines int) {
	if m == nil {
		return
	}
	m.purchaseEvents.WithLabelValues("updated").Inc()
	m.purchaseLines.Observe(float64(lines))
}

// PaymentRecorded counts a payment recorded against a purchase.
func (m *Metrics) PaymentRecorded() {
	if m == nil {
		return
	}
	m.purchaseEvents.WithLabelValues("paid").Inc()
}

// SetSessions records the number of open workspace sessions.
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
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
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
