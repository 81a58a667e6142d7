package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

// SubjectStats aggregates one subject's ratings.
type SubjectStats struct {
	SubjectID             string                       `json:"subject_id"`
	SubjectName           string                       `json:"subject_name"`
	StaffName             string                       `json:"staff_name"`
	AvgFacultyRating      float64                      `json:"avg_faculty_rating"`
	AvgDifficultyRating   float64                      `json:"avg_difficulty_rating"`
	SentimentDistribution domain.SentimentDistribution `json:"sentiment_distribution"`
	TotalFeedback         int                          `json:"total_feedback"`
}

// AdminDashboard is the cohort view behind an admin access code.
type AdminDashboard struct {
	Scope                 domain.AccessContext         `json:"scope"`
	Subjects              []domain.Subject             `json:"subjects"`
	SubjectStats          []SubjectStats               `json:"subject_stats"`
	SentimentDistribution domain.SentimentDistribution `json:"sentiment_distribution"`
	AvgFacultyRating      float64                      `json:"avg_faculty_rating"`
	AvgDifficultyRating   float64                      `json:"avg_difficulty_rating"`
	PositivePercent       float64                      `json:"positive_percent"`
	Staff                 []string                     `json:"staff"`
	TotalFeedback         int                          `json:"total_feedback"`
	Feedback              []domain.Feedback            `json:"feedback"`
}

// StaffAnalytics aggregates one staff member's feedback across a department.
type StaffAnalytics struct {
	StaffName             string                       `json:"staff_name"`
	Subjects              []string                     `json:"subjects"`
	OverallRating         float64                      `json:"overall_rating"`
	YearBreakdown         map[int]float64              `json:"year_breakdown"`
	SentimentDistribution domain.SentimentDistribution `json:"sentiment_distribution"`
	TotalFeedback         int                          `json:"total_feedback"`
}

// HODDashboard is the department view behind a HOD access code.
type HODDashboard struct {
	Scope         domain.AccessContext `json:"scope"`
	Staff         []StaffAnalytics     `json:"staff"`
	TotalFeedback int                  `json:"total_feedback"`
}

// NewSubject is the admin input for adding a subject to the cohort.
type NewSubject struct {
	Name      string `json:"name" validate:"required,max=200"`
	StaffName string `json:"staff_name" validate:"required,max=200"`
	IsLab     bool   `json:"is_lab"`
}

// AnalyticsService powers the admin and HOD dashboards.
type AnalyticsService struct {
	Subjects domain.SubjectRepository
	Feedback domain.FeedbackRepository
	Analyzer domain.Analyzer
	// InsightsTimeout bounds one insights request including every remote attempt.
	InsightsTimeout time.Duration
}

// NewAnalyticsService constructs an AnalyticsService with its dependencies.
func NewAnalyticsService(s domain.SubjectRepository, f domain.FeedbackRepository, a domain.Analyzer, insightsTimeout time.Duration) AnalyticsService {
	return AnalyticsService{Subjects: s, Feedback: f, Analyzer: a, InsightsTimeout: insightsTimeout}
}

func requireRole(ac domain.AccessContext, role domain.Role) error {
	if ac.Role != role {
		return fmt.Errorf("%w: %s access required", domain.ErrForbidden, strings.ToLower(string(role)))
	}
	return nil
}

// AdminDashboard aggregates the cohort's subjects and feedback.
func (s AnalyticsService) AdminDashboard(ctx domain.Context, ac domain.AccessContext) (AdminDashboard, error) {
	if err := requireRole(ac, domain.RoleAdmin); err != nil {
		return AdminDashboard{}, err
	}
	subjects, err := s.Subjects.List(ctx, ac.Department, ac.Year, ac.Semester)
	if err != nil {
		return AdminDashboard{}, err
	}
	feedback, err := s.Feedback.ListByCohort(ctx, ac.Department, ac.Year, ac.Semester)
	if err != nil {
		return AdminDashboard{}, err
	}

	out := AdminDashboard{
		Scope:         ac,
		Subjects:      subjects,
		SubjectStats:  subjectStats(subjects, feedback),
		Staff:         uniqueStaff(subjects),
		TotalFeedback: len(feedback),
		Feedback:      feedback,
	}
	var fac, diff int
	for _, f := range feedback {
		out.SentimentDistribution.Add(f.Sentiment)
		fac += f.FacultyRating
		diff += f.DifficultyRating
	}
	if n := len(feedback); n > 0 {
		out.AvgFacultyRating = float64(fac) / float64(n)
		out.AvgDifficultyRating = float64(diff) / float64(n)
		out.PositivePercent = float64(out.SentimentDistribution.Positive) * 100 / float64(n)
	}
	return out, nil
}

// subjectStats keeps only subjects that have feedback, in subject order.
func subjectStats(subjects []domain.Subject, feedback []domain.Feedback) []SubjectStats {
	bySubject := make(map[string][]domain.Feedback)
	for _, f := range feedback {
		bySubject[f.SubjectID] = append(bySubject[f.SubjectID], f)
	}
	out := make([]SubjectStats, 0, len(subjects))
	for _, sub := range subjects {
		fbs := bySubject[sub.ID]
		if len(fbs) == 0 {
			continue
		}
		st := SubjectStats{SubjectID: sub.ID, SubjectName: sub.Name, StaffName: sub.StaffName, TotalFeedback: len(fbs)}
		var fac, diff int
		for _, f := range fbs {
			fac += f.FacultyRating
			diff += f.DifficultyRating
			st.SentimentDistribution.Add(f.Sentiment)
		}
		st.AvgFacultyRating = float64(fac) / float64(len(fbs))
		st.AvgDifficultyRating = float64(diff) / float64(len(fbs))
		out = append(out, st)
	}
	return out
}

func uniqueStaff(subjects []domain.Subject) []string {
	seen := make(map[string]struct{}, len(subjects))
	out := make([]string, 0, len(subjects))
	for _, sub := range subjects {
		if _, ok := seen[sub.StaffName]; ok {
			continue
		}
		seen[sub.StaffName] = struct{}{}
		out = append(out, sub.StaffName)
	}
	return out
}

// AddSubject creates a subject in the admin's cohort.
func (s AnalyticsService) AddSubject(ctx domain.Context, ac domain.AccessContext, in NewSubject) (domain.Subject, error) {
	if err := requireRole(ac, domain.RoleAdmin); err != nil {
		return domain.Subject{}, err
	}
	name, staff := strings.TrimSpace(in.Name), strings.TrimSpace(in.StaffName)
	if name == "" || staff == "" {
		return domain.Subject{}, fmt.Errorf("%w: subject name and staff name required", domain.ErrInvalidArgument)
	}
	sub := domain.Subject{
		Name:       name,
		Department: ac.Department,
		Year:       ac.Year,
		Semester:   ac.Semester,
		IsLab:      in.IsLab,
		StaffName:  staff,
	}
	id, err := s.Subjects.Create(ctx, sub)
	if err != nil {
		return domain.Subject{}, err
	}
	sub.ID = id
	return sub, nil
}

// DeleteSubject removes a subject of the admin's cohort.
func (s AnalyticsService) DeleteSubject(ctx domain.Context, ac domain.AccessContext, id string) error {
	if _, err := s.cohortSubject(ctx, ac, id); err != nil {
		return err
	}
	return s.Subjects.Delete(ctx, id)
}

func (s AnalyticsService) cohortSubject(ctx domain.Context, ac domain.AccessContext, id string) (domain.Subject, error) {
	if err := requireRole(ac, domain.RoleAdmin); err != nil {
		return domain.Subject{}, err
	}
	sub, err := s.Subjects.Get(ctx, id)
	if err != nil {
		return domain.Subject{}, err
	}
	if sub.Department != ac.Department || sub.Year != ac.Year || sub.Semester != ac.Semester {
		return domain.Subject{}, fmt.Errorf("%w: subject %s is outside this cohort", domain.ErrForbidden, id)
	}
	return sub, nil
}

// SubjectInsights analyzes the cohort's texts about one subject.
func (s AnalyticsService) SubjectInsights(ctx domain.Context, ac domain.AccessContext, subjectID string) (domain.Insights, error) {
	sub, err := s.cohortSubject(ctx, ac, subjectID)
	if err != nil {
		return domain.Insights{}, err
	}
	feedback, err := s.Feedback.ListByCohort(ctx, ac.Department, ac.Year, ac.Semester)
	if err != nil {
		return domain.Insights{}, err
	}
	texts := textsWhere(feedback, func(f domain.Feedback) bool { return f.SubjectID == sub.ID })
	ctx, cancel := s.insightsContext(ctx)
	defer cancel()
	return s.Analyzer.GenerateSubjectInsights(ctx, sub.Name, texts), nil
}

// CohortStaffInsights analyzes the cohort's texts about one staff member.
func (s AnalyticsService) CohortStaffInsights(ctx domain.Context, ac domain.AccessContext, staff string) (domain.Insights, error) {
	if err := requireRole(ac, domain.RoleAdmin); err != nil {
		return domain.Insights{}, err
	}
	feedback, err := s.Feedback.ListByCohort(ctx, ac.Department, ac.Year, ac.Semester)
	if err != nil {
		return domain.Insights{}, err
	}
	return s.staffInsights(ctx, staff, feedback), nil
}

// HODDashboard builds per-staff analytics for the department. Staff are
// taken from the department's subjects so those without feedback still show.
func (s AnalyticsService) HODDashboard(ctx domain.Context, ac domain.AccessContext) (HODDashboard, error) {
	if err := requireRole(ac, domain.RoleHOD); err != nil {
		return HODDashboard{}, err
	}
	var (
		subjects []domain.Subject
		err      error
	)
	if ac.Department == domain.DeptSH {
		subjects, err = s.Subjects.ListFirstYear(ctx)
	} else {
		subjects, err = s.Subjects.ListByDepartment(ctx, ac.Department)
	}
	if err != nil {
		return HODDashboard{}, err
	}
	feedback, err := s.Feedback.ListForHOD(ctx, ac.Department)
	if err != nil {
		return HODDashboard{}, err
	}
	return HODDashboard{Scope: ac, Staff: staffAnalytics(subjects, feedback), TotalFeedback: len(feedback)}, nil
}

func staffAnalytics(subjects []domain.Subject, feedback []domain.Feedback) []StaffAnalytics {
	index := make(map[string]int)
	out := make([]StaffAnalytics, 0)
	for _, sub := range subjects {
		i, ok := index[sub.StaffName]
		if !ok {
			i = len(out)
			index[sub.StaffName] = i
			out = append(out, StaffAnalytics{
				StaffName:     sub.StaffName,
				Subjects:      []string{},
				YearBreakdown: map[int]float64{2: 0, 3: 0, 4: 0},
			})
		}
		if !contains(out[i].Subjects, sub.Name) {
			out[i].Subjects = append(out[i].Subjects, sub.Name)
		}
	}

	type sums struct{ total, count int }
	overall := make([]sums, len(out))
	byYear := make([]map[int]*sums, len(out))
	for _, f := range feedback {
		i, ok := index[f.StaffName]
		if !ok {
			continue
		}
		out[i].TotalFeedback++
		out[i].SentimentDistribution.Add(f.Sentiment)
		overall[i].total += f.FacultyRating
		overall[i].count++
		if _, tracked := out[i].YearBreakdown[f.Year]; tracked {
			if byYear[i] == nil {
				byYear[i] = map[int]*sums{}
			}
			if byYear[i][f.Year] == nil {
				byYear[i][f.Year] = &sums{}
			}
			byYear[i][f.Year].total += f.FacultyRating
			byYear[i][f.Year].count++
		}
	}
	for i := range out {
		if overall[i].count > 0 {
			out[i].OverallRating = float64(overall[i].total) / float64(overall[i].count)
		}
		for year, s := range byYear[i] {
			out[i].YearBreakdown[year] = float64(s.total) / float64(s.count)
		}
	}
	return out
}

// DepartmentStaffInsights analyzes the department's texts about one staff member.
func (s AnalyticsService) DepartmentStaffInsights(ctx domain.Context, ac domain.AccessContext, staff string) (domain.Insights, error) {
	if err := requireRole(ac, domain.RoleHOD); err != nil {
		return domain.Insights{}, err
	}
	feedback, err := s.Feedback.ListForHOD(ctx, ac.Department)
	if err != nil {
		return domain.Insights{}, err
	}
	return s.staffInsights(ctx, staff, feedback), nil
}

func (s AnalyticsService) staffInsights(ctx domain.Context, staff string, feedback []domain.Feedback) domain.Insights {
	texts := textsWhere(feedback, func(f domain.Feedback) bool { return f.StaffName == staff })
	ctx, cancel := s.insightsContext(ctx)
	defer cancel()
	return s.Analyzer.GenerateStaffInsights(ctx, staff, texts)
}

func (s AnalyticsService) insightsContext(ctx domain.Context) (context.Context, context.CancelFunc) {
	if s.InsightsTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.InsightsTimeout)
}

func textsWhere(feedback []domain.Feedback, keep func(domain.Feedback) bool) []string {
	out := make([]string, 0)
	for _, f := range feedback {
		if keep(f) {
			out = append(out, f.TextFeedback)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
