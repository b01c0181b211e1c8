// Package metrics exposes Prometheus collectors for HTTP traffic and the
// stock movements committed by invoices.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"scrapdesk/internal/domain"
	"scrapdesk/internal/domain/invoice"
)

const namespace = "scrapdesk"

// Metrics owns a private registry so tests and multiple servers in one
// process do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	invoiceMutations *prometheus.CounterVec
	stockMovedKg     *prometheus.CounterVec
	appErrors        *prometheus.CounterVec
}

// New creates the collectors and registers them with runtime collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		invoiceMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_mutations_total",
			Help:      "Committed invoice creates and updates.",
		}, []string{"kind", "action"}),
		stockMovedKg: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_moved_kg_total",
			Help:      "Absolute kilograms moved by committed stock increments.",
		}, []string{"kind", "direction"}),
		appErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors returned to clients by error code.",
		}, []string{"code"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.invoiceMutations,
		m.stockMovedKg,
		m.appErrors,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTP records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ErrorReturned counts an error response by its code.
func (m *Metrics) ErrorReturned(code string) {
	m.appErrors.WithLabelValues(code).Inc()
}

// InvoiceCommitted counts a committed mutation and the stock it moved.
func (m *Metrics) InvoiceCommitted(kind invoice.Kind, action string, deltas invoice.Deltas) {
	m.invoiceMutations.WithLabelValues(string(kind), action).Inc()
	for _, q := range deltas {
		direction := "in"
		if q.IsNegative() {
			direction = "out"
		}
		m.stockMovedKg.WithLabelValues(string(kind), direction).Add(q.Abs().Float64())
	}
}

// RegisterInvoiceHooks feeds committed invoice mutations into the counters.
func (m *Metrics) RegisterInvoiceHooks(hooks *domain.HookRegistry[*invoice.Invoice]) {
	hooks.OnAfterCreate(func(_ context.Context, inv *invoice.Invoice) error {
		m.InvoiceCommitted(inv.Kind, "create", inv.AppliedDeltas)
		return nil
	})
	hooks.OnAfterUpdate(func(_ context.Context, inv *invoice.Invoice) error {
		m.InvoiceCommitted(inv.Kind, "update", inv.AppliedDeltas)
		return nil
	})
}
