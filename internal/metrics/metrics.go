package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "payment_service"

// Recorder holds the service collectors. Its counter methods are no-ops on a
// nil receiver.
type Recorder struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	initiateTotal       *prometheus.CounterVec
	reconcileTotal      *prometheus.CounterVec
	captureTotal        *prometheus.CounterVec
	expiredTotal        prometheus.Counter
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests by method, route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		initiateTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "initiate_total",
				Help:      "Payment initiations by method and result.",
			},
			[]string{"method", "result"},
		),
		reconcileTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_total",
				Help:      "Gateway callbacks by reconciliation outcome.",
			},
			[]string{"outcome"},
		),
		captureTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "capture_total",
				Help:      "Synchronous captures by outcome.",
			},
			[]string{"outcome"},
		),
		expiredTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "expired_pending_total",
				Help:      "Pending transactions cancelled by the expiry sweep.",
			},
		),
	}
}

func (m *Recorder) Initiate(method, result string) {
	if m == nil {
		return
	}
	m.initiateTotal.WithLabelValues(method, result).Inc()
}

func (m *Recorder) Reconcile(outcome string) {
	if m == nil {
		return
	}
	m.reconcileTotal.WithLabelValues(outcome).Inc()
}

func (m *Recorder) Capture(outcome string) {
	if m == nil {
		return
	}
	m.captureTotal.WithLabelValues(outcome).Inc()
}

func (m *Recorder) Expired(n int) {
	if m == nil {
		return
	}
	m.expiredTotal.Add(float64(n))
}

// unmatchedRoute labels requests no route matched.
const unmatchedRoute = "unmatched"

func (m *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := unmatchedRoute
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestDuration.
			WithLabelValues(r.Method, route).
			Observe(time.Since(start).Seconds())

		m.httpRequestsTotal.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Inc()
	})
}
