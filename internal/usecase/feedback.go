// Package usecase contains application business logic services.
package usecase

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/observability"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

const minTextFeedbackLen = 5

// SubmissionEntry is a student's answer for one subject.
type SubmissionEntry struct {
	SubjectID            string `json:"subject_id" validate:"required"`
	FacultyRating        int    `json:"faculty_rating" validate:"min=1,max=5"`
	DifficultyRating     int    `json:"difficulty_rating" validate:"min=1,max=5"`
	TextFeedback         string `json:"text_feedback" validate:"required"`
	ChaptersCompleted    int    `json:"chapters_completed" validate:"min=1"`
	ExperimentsCompleted *int   `json:"experiments_completed,omitempty" validate:"omitempty,min=0"`
	BeyondSyllabusTopic  string `json:"beyond_syllabus_topic,omitempty" validate:"max=500"`
}

// Submission is one student's feedback for every subject of their cohort.
type Submission struct {
	RegisterNumber string            `json:"register_number" validate:"required"`
	Department     domain.Department `json:"department_code" validate:"required"`
	Year           int               `json:"year" validate:"min=1,max=4"`
	Semester       int               `json:"semester" validate:"min=1,max=8"`
	Entries        []SubmissionEntry `json:"entries" validate:"required,min=1,dive"`
}

// FeedbackService handles the student side: lookups, duplicate checks and
// batch submission.
type FeedbackService struct {
	Subjects domain.SubjectRepository
	Feedback domain.FeedbackRepository
	Analyzer domain.Analyzer
	// Events is optional.
	Events domain.EventPublisher
	Pepper string
}

// NewFeedbackService constructs a FeedbackService with its dependencies.
func NewFeedbackService(s domain.SubjectRepository, f domain.FeedbackRepository, a domain.Analyzer, e domain.EventPublisher, pepper string) FeedbackService {
	return FeedbackService{Subjects: s, Feedback: f, Analyzer: a, Events: e, Pepper: pepper}
}

// CohortSubjects returns the subjects of one cohort.
func (s FeedbackService) CohortSubjects(ctx domain.Context, dept domain.Department, year, semester int) ([]domain.Subject, error) {
	if !dept.Valid() {
		return nil, fmt.Errorf("%w: unknown department %q", domain.ErrInvalidArgument, dept)
	}
	return s.Subjects.List(ctx, dept, year, semester)
}

// Exists reports whether reg already submitted feedback for the semester.
func (s FeedbackService) Exists(ctx domain.Context, reg string, semester int, dept domain.Department) (bool, error) {
	reg = NormalizeRegisterNumber(reg)
	if reg == "" || !dept.Valid() {
		return false, fmt.Errorf("%w: register number and department required", domain.ErrInvalidArgument)
	}
	return s.Feedback.Exists(ctx, hashRegisterNumber(reg, s.Pepper), semester, dept)
}

// AnalyzeText labels a free-form text; it never fails.
func (s FeedbackService) AnalyzeText(ctx domain.Context, text string) domain.Sentiment {
	return s.Analyzer.AnalyzeSentiment(ctx, text)
}

// Submit validates a whole submission, labels each text, stores the batch
// and announces it. Nothing is stored unless every subject is answered. The
// store rejects a batch that races past the duplicate check with ErrConflict.
func (s FeedbackService) Submit(ctx domain.Context, sub Submission) ([]domain.Feedback, error) {
	reg := NormalizeRegisterNumber(sub.RegisterNumber)
	if !sub.Department.Valid() {
		return nil, fmt.Errorf("%w: unknown department %q", domain.ErrInvalidArgument, sub.Department)
	}
	if err := ValidateRegisterNumber(reg, sub.Year); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	regKey := hashRegisterNumber(reg, s.Pepper)
	exists, err := s.Feedback.Exists(ctx, regKey, sub.Semester, sub.Department)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: feedback already submitted for this semester", domain.ErrConflict)
	}

	subjects, err := s.Subjects.List(ctx, sub.Department, sub.Year, sub.Semester)
	if err != nil {
		return nil, err
	}
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects for this cohort", domain.ErrNotFound)
	}

	byID := make(map[string]SubmissionEntry, len(sub.Entries))
	for _, e := range sub.Entries {
		if _, dup := byID[e.SubjectID]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for subject %s", domain.ErrInvalidArgument, e.SubjectID)
		}
		byID[e.SubjectID] = e
	}
	if len(byID) != len(subjects) {
		known := make(map[string]struct{}, len(subjects))
		for _, subj := range subjects {
			known[subj.ID] = struct{}{}
		}
		for id := range byID {
			if _, ok := known[id]; !ok {
				return nil, fmt.Errorf("%w: subject %s is not part of this cohort", domain.ErrInvalidArgument, id)
			}
		}
	}
	for _, subj := range subjects {
		e, ok := byID[subj.ID]
		if !ok {
			return nil, fmt.Errorf("%w: please complete feedback for %s", domain.ErrInvalidArgument, subj.Name)
		}
		if err := validateEntry(subj, e); err != nil {
			return nil, err
		}
	}

	batch := make([]domain.Feedback, 0, len(subjects))
	for _, subj := range subjects {
		e := byID[subj.ID]
		f := domain.Feedback{
			SubjectID:           subj.ID,
			StaffName:           subj.StaffName,
			RegisterNumber:      regKey,
			FacultyRating:       e.FacultyRating,
			DifficultyRating:    e.DifficultyRating,
			Sentiment:           s.Analyzer.AnalyzeSentiment(ctx, e.TextFeedback),
			TextFeedback:        strings.TrimSpace(e.TextFeedback),
			ChaptersCompleted:   e.ChaptersCompleted,
			BeyondSyllabusTopic: strings.TrimSpace(e.BeyondSyllabusTopic),
			Department:          sub.Department,
			Year:                sub.Year,
			Semester:            sub.Semester,
		}
		if subj.IsLab {
			n := 0
			if e.ExperimentsCompleted != nil {
				n = *e.ExperimentsCompleted
			}
			f.ExperimentsCompleted = &n
		}
		batch = append(batch, f)
	}

	stored, err := s.Feedback.AppendBatch(ctx, batch)
	if err != nil {
		return nil, err
	}
	observability.ObserveFeedbackSubmitted(string(sub.Department), len(stored))

	if s.Events != nil {
		if err := s.Events.PublishFeedbackSubmitted(ctx, stored); err != nil {
			observability.LoggerFromContext(ctx).Error("publish feedback events failed",
				slog.String("department", string(sub.Department)),
				slog.Int("entries", len(stored)),
				slog.Any("error", err))
		}
	}
	return stored, nil
}

func validateEntry(subj domain.Subject, e SubmissionEntry) error {
	switch {
	case e.FacultyRating < 1 || e.FacultyRating > 5, e.DifficultyRating < 1 || e.DifficultyRating > 5:
		return fmt.Errorf("%w: ratings for %s must be between 1 and 5", domain.ErrInvalidArgument, subj.Name)
	case e.ChaptersCompleted <= 0:
		return fmt.Errorf("%w: chapters completed for %s must be positive", domain.ErrInvalidArgument, subj.Name)
	case utf8.RuneCountInString(strings.TrimSpace(e.TextFeedback)) < minTextFeedbackLen:
		return fmt.Errorf("%w: text feedback for %s needs at least %d characters", domain.ErrInvalidArgument, subj.Name, minTextFeedbackLen)
	case e.ExperimentsCompleted != nil && *e.ExperimentsCompleted < 0:
		return fmt.Errorf("%w: experiments completed for %s cannot be negative", domain.ErrInvalidArgument, subj.Name)
	}
	return nil
}
