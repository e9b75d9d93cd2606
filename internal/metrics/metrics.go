package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "naxovate",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naxovate",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "naxovate",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naxovate",
			Subsystem: "images",
			Name:      "generations_total",
			Help:      "Total number of image generation attempts.",
		},
		[]string{"provider", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "naxovate",
			Subsystem: "images",
			Name:      "generation_duration_seconds",
			Help:      "Duration of provider image generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
		[]string{"provider"},
	)

	quotaRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naxovate",
			Subsystem: "quota",
			Name:      "rejections_total",
			Help:      "Requests rejected by plan, credit or storage limits.",
		},
		[]string{"reason"},
	)

	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naxovate",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Stripe webhook events received.",
		},
		[]string{"type", "success"},
	)

	rollovers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "naxovate",
			Subsystem: "billing",
			Name:      "period_rollovers_total",
			Help:      "Subscriptions changed by the period rollover job.",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		generations,
		generationDuration,
		quotaRejections,
		webhookEvents,
		rollovers,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request count, latency and in-flight requests. The
// route template is used as the path label so ids do not explode cardinality.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := strings.ToUpper(c.Request.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordGeneration(provider string, duration time.Duration, success bool) {
	if provider == "" {
		provider = "unknown"
	}
	status := "success"
	if !success {
		status = "failure"
	}
	generations.WithLabelValues(provider, status).Inc()
	if duration > 0 {
		generationDuration.WithLabelValues(provider).Observe(duration.Seconds())
	}
}

func RecordQuotaRejection(reason string) {
	quotaRejections.WithLabelValues(reason).Inc()
}

func RecordWebhookEvent(eventType string, success bool) {
	if eventType == "" {
		eventType = "unknown"
	}
	webhookEvents.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

func RecordRollover(downgraded, pastDue int64) {
	rollovers.WithLabelValues("downgraded").Add(float64(downgraded))
	rollovers.WithLabelValues("past_due").Add(float64(pastDue))
}
