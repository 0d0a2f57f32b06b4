package middleware

import (
	"log"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
)

var (
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

// InitHTTPMetrics registers the collector's self-observation metrics.
// Call once before Observe is used.
func InitHTTPMetrics() {
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitepulse",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served by the collector.",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitepulse",
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of collector request durations in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"path", "method"},
	)
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration)
}

// Observe logs every request and feeds the self-observation metrics.
// The /healthz probe is skipped to keep the series clean.
func Observe(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		duration := time.Since(start)

		path := string(ctx.Path())
		if path == "/healthz" {
			return
		}

		method := string(ctx.Method())
		status := ctx.Response.StatusCode()
		log.Printf("%s %s -> %d (%s) ip=%s", method, path, status, duration, ctx.RemoteAddr())

		if httpRequestsTotal != nil {
			httpRequestsTotal.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
		}
	}
}
