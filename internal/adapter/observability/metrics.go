package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of remote AI calls by provider and operation",
		},
		[]string{"provider", "operation"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Remote AI call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AIAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_attempts_total",
			Help: "Credential/model attempts by operation and classified outcome",
		},
		[]string{"operation", "outcome"},
	)
	AIFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallbacks_total",
			Help: "Logical requests answered by the lexical fallback, by reason",
		},
		[]string{"operation", "reason"},
	)
	AICredentialsExhausted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ai_credentials_exhausted",
			Help: "Number of credentials permanently retired in this process",
		},
	)

	FeedbackSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submitted_total",
			Help: "Total number of stored feedback entries by department",
		},
		[]string{"department"},
	)
)

var initOnce sync.Once

// InitMetrics registers all collectors with the default registry. Safe to call more than once.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(HTTPRequestsTotal)
		prometheus.MustRegister(HTTPRequestDuration)
		prometheus.MustRegister(AIRequestsTotal)
		prometheus.MustRegister(AIRequestDuration)
		prometheus.MustRegister(AIAttemptsTotal)
		prometheus.MustRegister(AIFallbacksTotal)
		prometheus.MustRegister(AICredentialsExhausted)
		prometheus.MustRegister(FeedbackSubmittedTotal)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		route := RoutePattern(r)
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RoutePattern returns the chi route pattern, falling back to the raw path
// outside a chi router.
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ObserveAIAttempt records one remote call and its classified outcome.
func ObserveAIAttempt(provider, operation, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
	AIAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveAIFallback records a logical request answered locally.
func ObserveAIFallback(operation, reason string) {
	AIFallbacksTotal.WithLabelValues(operation, reason).Inc()
}

// SetCredentialsExhausted publishes the size of the exhausted-credential set.
func SetCredentialsExhausted(n int) {
	AICredentialsExhausted.Set(float64(n))
}

// ObserveFeedbackSubmitted counts stored feedback entries.
func ObserveFeedbackSubmitted(department string, n int) {
	FeedbackSubmittedTotal.WithLabelValues(department).Add(float64(n))
}
