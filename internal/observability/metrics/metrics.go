package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics instruments the HTTP surface.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP instruments on the default registry.
func NewHTTPMetrics() (*HTTPMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotient_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status_code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quotient_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	for _, collector := range []prometheus.Collector{requests, duration} {
		if err := prometheus.Register(collector); err != nil {
			if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch existing := are.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					requests = existing
				case *prometheus.HistogramVec:
					duration = existing
				}
				continue
			}
			return nil, err
		}
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// GinMiddleware records request counts and latency per route.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.requests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// Metrics exposes domain-level instruments.
type Metrics struct {
	optimizations     *prometheus.CounterVec
	invoices          prometheus.Counter
	shippingEstimates *prometheus.CounterVec
	analyzerRefreshes *prometheus.CounterVec
}

// New registers the domain instruments on the default registry.
func New() (*Metrics, error) {
	optimizations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotient_price_optimizations_total",
		Help: "Price optimizations by target metric.",
	}, []string{"target_metric"})

	invoices := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quotient_invoices_generated_total",
		Help: "Invoices generated.",
	})

	shippingEstimates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotient_shipping_estimates_total",
		Help: "Shipping estimates by zone.",
	}, []string{"zone"})

	analyzerRefreshes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quotient_analyzer_refreshes_total",
		Help: "Analyzer snapshot refreshes by outcome.",
	}, []string{"outcome"})

	m := &Metrics{
		optimizations:     optimizations,
		invoices:          invoices,
		shippingEstimates: shippingEstimates,
		analyzerRefreshes: analyzerRefreshes,
	}

	for _, collector := range []prometheus.Collector{optimizations, invoices, shippingEstimates, analyzerRefreshes} {
		if err := prometheus.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordOptimization(targetMetric string) {
	if m == nil {
		return
	}
	m.optimizations.WithLabelValues(targetMetric).Inc()
}

func (m *Metrics) RecordInvoice() {
	if m == nil {
		return
	}
	m.invoices.Inc()
}

func (m *Metrics) RecordShippingEstimate(zone string) {
	if m == nil {
		return
	}
	m.shippingEstimates.WithLabelValues(zone).Inc()
}

func (m *Metrics) RecordAnalyzerRefresh(outcome string) {
	if m == nil {
		return
	}
	m.analyzerRefreshes.WithLabelValues(outcome).Inc()
}
