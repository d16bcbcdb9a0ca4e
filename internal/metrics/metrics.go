package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: replies served from the response cache.
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reply_cache_hits_total",
			Help: "Total number of replies served from the response cache.",
		},
	)

	// Counter: token gate outcomes, labeled by decision.
	GateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "token_gate_decisions_total",
			Help: "Token gate outcomes (allowed, denied, error).",
		},
		[]string{"decision"},
	)

	// Counter: image generation jobs, labeled by outcome.
	ImageJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_jobs_total",
			Help: "Image generation jobs by outcome (started, completed, failed).",
		},
		[]string{"outcome"},
	)

	// Counter: inbound updates dropped by the per-user throttle.
	ThrottledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "throttled_updates_total",
			Help: "Inbound updates dropped by the per-user command throttle.",
		},
	)

	// Histogram: webhook HTTP latency in seconds.
	WebhookLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webhook_latency_seconds",
			Help:    "HTTP request latency for the webhook in seconds.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"route", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		CacheHitsTotal,
		GateDecisionsTotal,
		ImageJobsTotal,
		ThrottledTotal,
		WebhookLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware measures HTTP latency for each request. Requests are
// labeled by the matched route pattern, never the raw path: the webhook
// path embeds the bot token, and raw paths from scanners would grow the
// label set without bound.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		// The pattern is only known after routing has run.
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		WebhookLatencySeconds.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
