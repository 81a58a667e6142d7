package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

const feedbackColumns = `id, subject_id, staff_name, register_number, faculty_rating, difficulty_rating, sentiment,
	text_feedback, chapters_completed, experiments_completed, beyond_syllabus_topic, created_at, department, year, semester`

// FeedbackRepo persists feedback entries.
type FeedbackRepo struct{ Pool PgxPool }

var _ domain.FeedbackRepository = (*FeedbackRepo)(nil)

// NewFeedbackRepo constructs a FeedbackRepo with the given pool.
func NewFeedbackRepo(p PgxPool) *FeedbackRepo { return &FeedbackRepo{Pool: p} }

// Exists reports whether the register number already submitted for the semester.
func (r *FeedbackRepo) Exists(ctx domain.Context, registerNumber string, semester int, dept domain.Department) (bool, error) {
	ctx, span := otel.Tracer("repo.feedback").Start(ctx, "feedback.Exists")
	defer span.End()
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM feedback WHERE register_number=$1 AND semester=$2 AND department=$3)`
	if err := r.Pool.QueryRow(ctx, q, registerNumber, semester, string(dept)).Scan(&exists); err != nil {
		return false, fmt.Errorf("op=feedback.exists: %w", err)
	}
	return exists, nil
}

// AppendBatch inserts all entries in one transaction. A unique violation
// means the student's submission landed first elsewhere and maps to ErrConflict.
func (r *FeedbackRepo) AppendBatch(ctx domain.Context, entries []domain.Feedback) ([]domain.Feedback, error) {
	ctx, span := otel.Tracer("repo.feedback").Start(ctx, "feedback.AppendBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.Int("feedback.count", len(entries)),
	)
	if len(entries) == 0 {
		return []domain.Feedback{}, nil
	}

	tx, err := r.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("op=feedback.append_batch: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	q := `INSERT INTO feedback (` + feedbackColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`
	out := make([]domain.Feedback, len(entries))
	for i, f := range entries {
		f.ID = uuid.New().String()
		f.CreatedAt = now
		if _, err := tx.Exec(ctx, q,
			f.ID, f.SubjectID, f.StaffName, f.RegisterNumber, f.FacultyRating, f.DifficultyRating, string(f.Sentiment),
			f.TextFeedback, f.ChaptersCompleted, f.ExperimentsCompleted, f.BeyondSyllabusTopic, f.CreatedAt,
			string(f.Department), f.Year, f.Semester,
		); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, fmt.Errorf("op=feedback.append_batch: %w", domain.ErrConflict)
			}
			return nil, fmt.Errorf("op=feedback.append_batch: insert: %w", err)
		}
		out[i] = f
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("op=feedback.append_batch: commit: %w", err)
	}
	return out, nil
}

// ListByCohort returns the cohort's feedback, oldest first.
func (r *FeedbackRepo) ListByCohort(ctx domain.Context, dept domain.Department, year, semester int) ([]domain.Feedback, error) {
	return r.query(ctx, "feedback.ListByCohort", "feedback.list_by_cohort",
		`WHERE department=$1 AND year=$2 AND semester=$3`, string(dept), year, semester)
}

// ListForHOD returns year-1 feedback for SH and the department's senior years otherwise.
func (r *FeedbackRepo) ListForHOD(ctx domain.Context, dept domain.Department) ([]domain.Feedback, error) {
	if dept == domain.DeptSH {
		return r.query(ctx, "feedback.ListForHOD", "feedback.list_for_hod", `WHERE year=1`)
	}
	return r.query(ctx, "feedback.ListForHOD", "feedback.list_for_hod", `WHERE department=$1 AND year>1`, string(dept))
}

func (r *FeedbackRepo) query(ctx domain.Context, span, op, where string, args ...any) ([]domain.Feedback, error) {
	ctx, s := otel.Tracer("repo.feedback").Start(ctx, span)
	defer s.End()
	rows, err := r.Pool.Query(ctx, `SELECT `+feedbackColumns+` FROM feedback `+where+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()
	out := make([]domain.Feedback, 0)
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.SubjectID, &f.StaffName, &f.RegisterNumber, &f.FacultyRating, &f.DifficultyRating,
			&f.Sentiment, &f.TextFeedback, &f.ChaptersCompleted, &f.ExperimentsCompleted, &f.BeyondSyllabusTopic,
			&f.CreatedAt, &f.Department, &f.Year, &f.Semester); err != nil {
			return nil, fmt.Errorf("op=%s: %w", op, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	return out, nil
}
