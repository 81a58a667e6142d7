package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

const subjectColumns = `id, name, department, year, semester, is_lab, staff_name`

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// SubjectRepo persists subjects.
type SubjectRepo struct{ Pool PgxPool }

var _ domain.SubjectRepository = (*SubjectRepo)(nil)

// NewSubjectRepo constructs a SubjectRepo with the given pool.
func NewSubjectRepo(p PgxPool) *SubjectRepo { return &SubjectRepo{Pool: p} }

func (r *SubjectRepo) query(ctx domain.Context, span, op, where string, args ...any) ([]domain.Subject, error) {
	ctx, s := otel.Tracer("repo.subjects").Start(ctx, span)
	defer s.End()
	s.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "subjects"),
	)
	rows, err := r.Pool.Query(ctx, `SELECT `+subjectColumns+` FROM subjects `+where+` ORDER BY year, semester, name`, args...)
	if err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	defer rows.Close()
	out := make([]domain.Subject, 0)
	for rows.Next() {
		var sub domain.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Department, &sub.Year, &sub.Semester, &sub.IsLab, &sub.StaffName); err != nil {
			return nil, fmt.Errorf("op=%s: %w", op, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("op=%s: %w", op, err)
	}
	return out, nil
}

// List returns the subjects of one cohort.
func (r *SubjectRepo) List(ctx domain.Context, dept domain.Department, year, semester int) ([]domain.Subject, error) {
	return r.query(ctx, "subjects.List", "subject.list", `WHERE department=$1 AND year=$2 AND semester=$3`, string(dept), year, semester)
}

// ListAll returns every subject.
func (r *SubjectRepo) ListAll(ctx domain.Context) ([]domain.Subject, error) {
	return r.query(ctx, "subjects.ListAll", "subject.list_all", ``)
}

// ListByDepartment returns the department's subjects across all years.
func (r *SubjectRepo) ListByDepartment(ctx domain.Context, dept domain.Department) ([]domain.Subject, error) {
	return r.query(ctx, "subjects.ListByDepartment", "subject.list_by_department", `WHERE department=$1`, string(dept))
}

// ListFirstYear returns SH subjects and anything taught in year 1.
func (r *SubjectRepo) ListFirstYear(ctx domain.Context) ([]domain.Subject, error) {
	return r.query(ctx, "subjects.ListFirstYear", "subject.list_first_year", `WHERE department=$1 OR year=1`, string(domain.DeptSH))
}

// Get loads a subject by id.
func (r *SubjectRepo) Get(ctx domain.Context, id string) (domain.Subject, error) {
	ctx, span := otel.Tracer("repo.subjects").Start(ctx, "subjects.Get")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id=$1`, id)
	var sub domain.Subject
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Department, &sub.Year, &sub.Semester, &sub.IsLab, &sub.StaffName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subject{}, fmt.Errorf("op=subject.get: %w", domain.ErrNotFound)
		}
		return domain.Subject{}, fmt.Errorf("op=subject.get: %w", err)
	}
	return sub, nil
}

// Create inserts a subject and returns its id (generates one if empty).
func (r *SubjectRepo) Create(ctx domain.Context, sub domain.Subject) (string, error) {
	ctx, span := otel.Tracer("repo.subjects").Start(ctx, "subjects.Create")
	defer span.End()
	id := sub.ID
	if id == "" {
		id = uuid.New().String()
	}
	q := `INSERT INTO subjects (` + subjectColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.Pool.Exec(ctx, q, id, sub.Name, string(sub.Department), sub.Year, sub.Semester, sub.IsLab, sub.StaffName)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", fmt.Errorf("op=subject.create: %w", domain.ErrConflict)
		}
		return "", fmt.Errorf("op=subject.create: %w", err)
	}
	return id, nil
}

// Delete removes a subject. Its feedback is kept for historical dashboards.
func (r *SubjectRepo) Delete(ctx domain.Context, id string) error {
	ctx, span := otel.Tracer("repo.subjects").Start(ctx, "subjects.Delete")
	defer span.End()
	tag, err := r.Pool.Exec(ctx, `DELETE FROM subjects WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("op=subject.delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("op=subject.delete: %w", domain.ErrNotFound)
	}
	return nil
}
