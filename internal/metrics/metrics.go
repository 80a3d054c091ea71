// Package metrics exposes Prometheus collectors for the ledger and its HTTP
// surface.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fintrack"

// Recorder owns its own registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	entriesAppended *prometheus.CounterVec
	entriesRejected *prometheus.CounterVec
	saveDuration    *prometheus.HistogramVec
	ledgerEntries   prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	mirrored        *prometheus.CounterVec
}

func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		entriesAppended: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_appended_total",
				Help:      "Total number of entries appended to the ledger",
			},
			[]string{"kind"},
		),
		entriesRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "entries_rejected_total",
				Help:      "Total number of entries rejected as invalid",
			},
			[]string{"reason"},
		),
		saveDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_save_duration_seconds",
				Help:      "Time spent persisting the ledger",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"backend"},
		),
		ledgerEntries: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_entries",
				Help:      "Number of entries in the current ledger",
			},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		mirrored: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mirror_rows_total",
				Help:      "Entries copied to the spreadsheet mirror",
			},
			[]string{"status"},
		),
	}
}

// EntryAppended counts an accepted entry and updates the ledger size.
func (r *Recorder) EntryAppended(kind core.Kind, ledgerLen int) {
	r.entriesAppended.WithLabelValues(kind.String()).Inc()
	r.ledgerEntries.Set(float64(ledgerLen))
}

// EntryRejected counts an entry refused by validation.
func (r *Recorder) EntryRejected(err error) {
	r.entriesRejected.WithLabelValues(RejectReason(err)).Inc()
}

// LedgerLoaded sets the ledger size after a load.
func (r *Recorder) LedgerLoaded(ledgerLen int) {
	r.ledgerEntries.Set(float64(ledgerLen))
}

// ObserveSave records how long a store save took.
func (r *Recorder) ObserveSave(backend string, d time.Duration) {
	r.saveDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveHTTP records one served request.
func (r *Recorder) ObserveHTTP(method, route string, status int, d time.Duration) {
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Mirrored counts a mirror attempt by outcome ("ok" or "error").
func (r *Recorder) Mirrored(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	r.mirrored.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RejectReason maps a validation error to a low-cardinality label.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, core.ErrEmptyCategory):
		return "category"
	case errors.Is(err, core.ErrInvalidKind):
		return "kind"
	case errors.Is(err, core.ErrInvalidDate):
		return "date"
	case errors.Is(err, core.ErrInvalidText):
		return "text"
	default:
		return "other"
	}
}
