package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the shop's collectors and the registry they live in. All
// recording methods are no-ops on a nil *Metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	catalogMutations *prometheus.CounterVec
	ordersPlaced     prometheus.Counter
	orderItems       prometheus.Counter
	adminLogins      *prometheus.CounterVec
	blobsPruned      prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the shop collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tienda_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		catalogMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_catalog_mutations_total",
			Help: "Successful catalog writes by operation and product class.",
		}, []string{"op", "class"}),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_orders_placed_total",
			Help: "Orders committed to the ledger.",
		}),
		orderItems: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_order_items_total",
			Help: "Line items committed to the ledger.",
		}),
		adminLogins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tienda_admin_logins_total",
			Help: "Admin login attempts by result.",
		}, []string{"result"}),
		blobsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tienda_blobs_pruned_total",
			Help: "Orphaned image files removed.",
		}),
	}

	reg.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.catalogMutations,
		m.ordersPlaced,
		m.orderItems,
		m.adminLogins,
		m.blobsPruned,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ProductCreated(class string)  { m.catalog("create", class) }
func (m *Metrics) ProductReplaced(class string) { m.catalog("replace", class) }

// ProductDeleted takes "any" when the delete was not scoped to a class.
func (m *Metrics) ProductDeleted(class string) { m.catalog("delete", class) }

func (m *Metrics) catalog(op, class string) {
	if m == nil {
		return
	}
	m.catalogMutations.WithLabelValues(op, class).Inc()
}

func (m *Metrics) OrderPlaced(items int) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderItems.Add(float64(items))
}

func (m *Metrics) LoginAttempt(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.adminLogins.WithLabelValues(result).Inc()
}

func (m *Metrics) BlobsPruned(n int) {
	if m == nil {
		return
	}
	m.blobsPruned.Add(float64(n))
}

// Middleware records count and latency per chi route pattern, so ids in the
// path do not blow up label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := StartTimer()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(timer.Duration().Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
