// Package metrics exposes Prometheus collectors for the ledger, the overdue
// sweep and the HTTP surface. All methods are safe on a nil *Metrics, which
// disables collection.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Byiringiro215/lms/internal/apperr"
)

const namespace = "lms"

type Metrics struct {
	registry *prometheus.Registry

	borrowings    *prometheus.CounterVec
	returns       *prometheus.CounterVec
	overdueMarked prometheus.Counter
	ledgerTx      *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
}

// New registers all collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		borrowings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "borrowings_total",
			Help:      "Borrow attempts by result.",
		}, []string{"result"}),
		returns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "returns_total",
			Help:      "Return attempts by result.",
		}, []string{"result"}),
		overdueMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "overdue_marked_total",
			Help:      "Borrowings moved to overdue by the sweeper.",
		}),
		ledgerTx: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_tx_seconds",
			Help:      "Duration of ledger transactions.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.borrowings,
		m.returns,
		m.overdueMarked,
		m.ledgerTx,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ResultLabel turns an operation error into a low-cardinality label.
func ResultLabel(err error) string {
	if err == nil {
		return "success"
	}
	if kind := apperr.KindOf(err); kind != "" {
		return string(kind)
	}
	return "error"
}

func (m *Metrics) ObserveBorrow(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.borrowings.WithLabelValues(ResultLabel(err)).Inc()
	m.ledgerTx.WithLabelValues("borrow").Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReturn(err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.returns.WithLabelValues(ResultLabel(err)).Inc()
	m.ledgerTx.WithLabelValues("return").Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSweep(marked int64, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.overdueMarked.Add(float64(marked))
	m.ledgerTx.WithLabelValues("sweep").Observe(elapsed.Seconds())
}

// GinMiddleware counts requests by matched route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
