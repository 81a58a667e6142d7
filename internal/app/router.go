// Package app wires the HTTP router, middleware stack and readiness checks.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/feedback-insights/internal/adapter/httpserver"
	"github.com/fairyhunter13/feedback-insights/internal/adapter/observability"
	"github.com/fairyhunter13/feedback-insights/internal/config"
)

const defaultRouteTimeout = 30 * time.Second

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// insightsRouteTimeout leaves room for the analyzer's own deadline plus
// the dashboard queries around it.
func insightsRouteTimeout(cfg config.Config) time.Duration {
	_, _, insights := cfg.GetAITimeouts()
	if insights <= 0 {
		return defaultRouteTimeout
	}
	return insights + 15*time.Second
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", httpserver.AccessCodeHeader, "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(httpserver.AcceptJSON)

		v1.Group(func(sr chi.Router) {
			sr.Use(httpserver.TimeoutMiddleware(defaultRouteTimeout))
			sr.Get("/subjects", srv.SubjectsHandler())
			sr.Get("/feedback/exists", srv.FeedbackExistsHandler())
			sr.Get("/ai/status", srv.AIStatusHandler())
		})

		// Submissions and ad-hoc sentiment calls reach the AI provider, so they are rate limited.
		v1.Group(func(wr chi.Router) {
			if cfg.RateLimitPerMin > 0 {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
			}
			wr.Use(httpserver.TimeoutMiddleware(insightsRouteTimeout(cfg)))
			wr.Post("/feedback", srv.SubmitFeedbackHandler())
			wr.Post("/sentiment", srv.SentimentHandler())
		})

		v1.Group(func(ar chi.Router) {
			ar.Use(httpserver.RequireAccessCode)
			ar.Group(func(dr chi.Router) {
				dr.Use(httpserver.TimeoutMiddleware(defaultRouteTimeout))
				dr.Get("/admin/dashboard", srv.AdminDashboardHandler())
				dr.Post("/admin/subjects", srv.AddSubjectHandler())
				dr.Delete("/admin/subjects/{id}", srv.DeleteSubjectHandler())
				dr.Get("/hod/dashboard", srv.HODDashboardHandler())
			})
			ar.Group(func(ir chi.Router) {
				ir.Use(httpserver.TimeoutMiddleware(insightsRouteTimeout(cfg)))
				ir.Get("/admin/subjects/{id}/insights", srv.SubjectInsightsHandler())
				ir.Get("/admin/staff/{name}/insights", srv.AdminStaffInsightsHandler())
				ir.Get("/hod/staff/{name}/insights", srv.HODStaffInsightsHandler())
			})
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", srv.ReadyzHandler())
	r.Handle("/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
