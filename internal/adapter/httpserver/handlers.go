package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai"
	"github.com/fairyhunter13/feedback-insights/internal/config"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
	"github.com/fairyhunter13/feedback-insights/internal/usecase"
)

// StatusProvider reports the state of the AI credential pool.
type StatusProvider interface {
	Status() ai.Status
}

// Server aggregates handlers dependencies.
type Server struct {
	Cfg        config.Config
	Feedback   usecase.FeedbackService
	Analytics  usecase.AnalyticsService
	AI         StatusProvider
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
// Nil checks are skipped by /readyz.
func NewServer(cfg config.Config, feedback usecase.FeedbackService, analytics usecase.AnalyticsService, status StatusProvider, dbCheck func(context.Context) error, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Feedback: feedback, Analytics: analytics, AI: status, DBCheck: dbCheck, RedisCheck: redisCheck}
}

// SubjectsHandler lists the subjects of one cohort.
func (s *Server) SubjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dept, err := queryDepartment(r)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "department"})
			return
		}
		year, err := queryInt(r, "year", 1, 4)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "year"})
			return
		}
		sem, err := queryInt(r, "semester", 1, 8)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "semester"})
			return
		}
		subjects, err := s.Feedback.CohortSubjects(r.Context(), dept, year, sem)
		if err != nil {
			writeError(w, r, fmt.Errorf("list subjects: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
	}
}

// FeedbackExistsHandler tells a student whether they already submitted this semester.
func (s *Server) FeedbackExistsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dept, err := queryDepartment(r)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "department"})
			return
		}
		sem, err := queryInt(r, "semester", 1, 8)
		if err != nil {
			writeError(w, r, err, map[string]string{"field": "semester"})
			return
		}
		exists, err := s.Feedback.Exists(r.Context(), r.URL.Query().Get("register_number"), sem, dept)
		if err != nil {
			writeError(w, r, fmt.Errorf("feedback exists: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
	}
}

// SubmitFeedbackHandler stores a student's feedback for the whole cohort.
func (s *Server) SubmitFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.Submission
		if !decodeAndValidate(w, r, &req) {
			return
		}
		req.Department = domain.Department(strings.ToUpper(strings.TrimSpace(string(req.Department))))
		stored, err := s.Feedback.Submit(r.Context(), req)
		if err != nil {
			writeError(w, r, fmt.Errorf("submit feedback: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"submitted": len(stored), "feedback": stored})
	}
}

// SentimentHandler labels a single text.
func (s *Server) SentimentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text" validate:"required,max=5000"`
		}
		if !decodeAndValidate(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"sentiment": string(s.Feedback.AnalyzeText(r.Context(), req.Text))})
	}
}

func (s *Server) access(w http.ResponseWriter, r *http.Request) (domain.AccessContext, bool) {
	ac, ok := AccessFrom(r.Context())
	if !ok {
		writeError(w, r, fmt.Errorf("%w: access code required", domain.ErrUnauthorized), nil)
	}
	return ac, ok
}

// AdminDashboardHandler returns the cohort dashboard for an admin code.
func (s *Server) AdminDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		dash, err := s.Analytics.AdminDashboard(r.Context(), ac)
		if err != nil {
			writeError(w, r, fmt.Errorf("admin dashboard: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

// AddSubjectHandler adds a subject to the admin's cohort.
func (s *Server) AddSubjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		var req usecase.NewSubject
		if !decodeAndValidate(w, r, &req) {
			return
		}
		subj, err := s.Analytics.AddSubject(r.Context(), ac, req)
		if err != nil {
			writeError(w, r, fmt.Errorf("add subject: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusCreated, subj)
	}
}

// DeleteSubjectHandler removes a subject from the admin's cohort.
func (s *Server) DeleteSubjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		id, err := pathParam(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if err := s.Analytics.DeleteSubject(r.Context(), ac, id); err != nil {
			writeError(w, r, fmt.Errorf("delete subject: %w", err), nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SubjectInsightsHandler summarizes the cohort's texts for one subject.
func (s *Server) SubjectInsightsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		id, err := pathParam(r, "id")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		start := time.Now()
		ins, err := s.Analytics.SubjectInsights(r.Context(), ac, id)
		if err != nil {
			writeError(w, r, fmt.Errorf("subject insights: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subject_id": id, "insights": ins, "elapsed_ms": time.Since(start).Milliseconds()})
	}
}

// AdminStaffInsightsHandler summarizes the cohort's texts for one staff member.
func (s *Server) AdminStaffInsightsHandler() http.HandlerFunc {
	return s.staffInsights(s.Analytics.CohortStaffInsights)
}

// HODDashboardHandler returns per-staff analytics for a HOD code.
func (s *Server) HODDashboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		dash, err := s.Analytics.HODDashboard(r.Context(), ac)
		if err != nil {
			writeError(w, r, fmt.Errorf("hod dashboard: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, dash)
	}
}

// HODStaffInsightsHandler summarizes a department's texts for one staff member.
func (s *Server) HODStaffInsightsHandler() http.HandlerFunc {
	return s.staffInsights(s.Analytics.DepartmentStaffInsights)
}

type staffInsightsFunc func(ctx domain.Context, ac domain.AccessContext, staff string) (domain.Insights, error)

func (s *Server) staffInsights(fn staffInsightsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ac, ok := s.access(w, r)
		if !ok {
			return
		}
		name, err := pathParam(r, "name")
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		ins, err := fn(r.Context(), ac, name)
		if err != nil {
			writeError(w, r, fmt.Errorf("staff insights: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"staff_name": name, "insights": ins})
	}
}

// AIStatusHandler reports credential availability without revealing any credential.
func (s *Server) AIStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if s.AI == nil {
			writeJSON(w, http.StatusOK, ai.Status{Models: []string{}})
			return
		}
		writeJSON(w, http.StatusOK, s.AI.Status())
	}
}

// ReadyzHandler returns a readiness handler that probes the database and Redis.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{{"db", s.DBCheck}, {"redis", s.RedisCheck}}
		checks := make([]check, 0, len(probes))
		st := http.StatusOK
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
				st = http.StatusServiceUnavailable
				continue
			}
			checks = append(checks, check{Name: p.name, OK: true})
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
