package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternal        = errors.New("internal error")
)

// Department is an academic department code.
type Department string

const (
	DeptCSE   Department = "CSE"
	DeptECE   Department = "ECE"
	DeptMECH  Department = "MECH"
	DeptCIVIL Department = "CIVIL"
	DeptEEE   Department = "EEE"
	DeptIT    Department = "IT"
	// DeptSH is Science & Humanities, which owns the first year.
	DeptSH Department = "SH"
)

// Departments lists every accepted department code.
var Departments = []Department{DeptCSE, DeptECE, DeptMECH, DeptCIVIL, DeptEEE, DeptIT, DeptSH}

// Valid reports whether d is a known department code.
func (d Department) Valid() bool {
	for _, known := range Departments {
		if d == known {
			return true
		}
	}
	return false
}

// Subject is a course taught to one cohort (department, year, semester).
type Subject struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Department Department `json:"department_code" yaml:"department"`
	Year       int        `json:"year" yaml:"year"`
	Semester   int        `json:"semester" yaml:"semester"`
	IsLab      bool       `json:"is_lab" yaml:"is_lab"`
	StaffName  string     `json:"staff_name" yaml:"staff_name"`
}

// Feedback is one student's rating of one subject.
// Invariants: ratings in [1,5]; Department/Year/Semester copy the subject's cohort.
type Feedback struct {
	ID                   string     `json:"id"`
	SubjectID            string     `json:"subject_id"`
	StaffName            string     `json:"staff_name"`
	RegisterNumber       string     `json:"-"`
	FacultyRating        int        `json:"faculty_rating"`
	DifficultyRating     int        `json:"difficulty_rating"`
	Sentiment            Sentiment  `json:"sentiment"`
	TextFeedback         string     `json:"text_feedback"`
	ChaptersCompleted    int        `json:"chapters_completed"`
	ExperimentsCompleted *int       `json:"experiments_completed,omitempty"`
	BeyondSyllabusTopic  string     `json:"beyond_syllabus_topic,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	Department           Department `json:"department_code"`
	Year                 int        `json:"year"`
	Semester             int        `json:"semester"`
}

// Repositories (ports)

type SubjectRepository interface {
	// List returns subjects matching the cohort exactly.
	List(ctx Context, dept Department, year, semester int) ([]Subject, error)
	ListAll(ctx Context) ([]Subject, error)
	ListByDepartment(ctx Context, dept Department) ([]Subject, error)
	// ListFirstYear returns subjects owned by SH or taught in year 1.
	ListFirstYear(ctx Context) ([]Subject, error)
	Get(ctx Context, id string) (Subject, error)
	Create(ctx Context, s Subject) (string, error)
	Delete(ctx Context, id string) error
}

type FeedbackRepository interface {
	Exists(ctx Context, registerNumber string, semester int, dept Department) (bool, error)
	// AppendBatch assigns ids and timestamps and stores all entries or none.
	AppendBatch(ctx Context, entries []Feedback) ([]Feedback, error)
	ListByCohort(ctx Context, dept Department, year, semester int) ([]Feedback, error)
	// ListForHOD returns all year-1 feedback for SH, otherwise the department's feedback for years above 1.
	ListForHOD(ctx Context, dept Department) ([]Feedback, error)
}

// Analyzer (port). Implementations never fail; they degrade to a local heuristic.
type Analyzer interface {
	AnalyzeSentiment(ctx Context, text string) Sentiment
	GenerateSubjectInsights(ctx Context, subject string, texts []string) Insights
	GenerateStaffInsights(ctx Context, staff string, texts []string) Insights
}

// EventPublisher (port) announces stored feedback to downstream consumers.
type EventPublisher interface {
	PublishFeedbackSubmitted(ctx Context, entries []Feedback) error
}

// Context is an alias so ports can be declared without importing context at every call site.
type Context = context.Context
