package metricsvc

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trezcool/tutoring/core"
	"github.com/trezcool/tutoring/core/cart"
)

// Metrics exports HTTP & cart resolution metrics to prometheus.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests    *prometheus.CounterVec
	latencyMS   *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
	tokens      *prometheus.CounterVec
	merges      prometheus.Counter
	mergedItems *prometheus.CounterVec
}

var _ cart.Recorder = (*Metrics)(nil)

// NewMetrics registers the collectors on their own registry.
func NewMetrics(conf *core.Config) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return newMetrics(conf.Metrics.Namespace, reg, reg)
}

func newMetrics(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	m := &Metrics{
		gatherer: gatherer,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "resolutions_total",
			Help:      "Current cart resolutions by strategy.",
		}, []string{"strategy", "created"}),
		tokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "tokens_issued_total",
			Help:      "Cart tokens minted during resolution.",
		}, []string{"strategy"}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "merges_total",
			Help:      "Guest carts merged into user carts.",
		}),
		mergedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "merged_items_total",
			Help:      "Guest cart items moved or combined during merges.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.latencyMS, m.resolutions, m.tokens, m.merges, m.mergedItems)
	return m
}

func (m *Metrics) ObserveRequest(handler string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.latencyMS.WithLabelValues(handler).Observe(float64(elapsed) / float64(time.Millisecond))
}

func (m *Metrics) CartResolved(strategy cart.StrategyKind, created bool) {
	m.resolutions.WithLabelValues(string(strategy), strconv.FormatBool(created)).Inc()
}

func (m *Metrics) TokenIssued(strategy cart.StrategyKind) {
	m.tokens.WithLabelValues(string(strategy)).Inc()
}

func (m *Metrics) CartMerged(moved, combined int) {
	m.merges.Inc()
	m.mergedItems.WithLabelValues("moved").Add(float64(moved))
	m.mergedItems.WithLabelValues("combined").Add(float64(combined))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
