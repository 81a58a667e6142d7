package postgres

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS subjects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		department  TEXT NOT NULL,
		year        INT  NOT NULL,
		semester    INT  NOT NULL,
		is_lab      BOOLEAN NOT NULL DEFAULT FALSE,
		staff_name  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS subjects_cohort_idx ON subjects (department, year, semester)`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id                    TEXT PRIMARY KEY,
		subject_id            TEXT NOT NULL,
		staff_name            TEXT NOT NULL DEFAULT '',
		register_number       TEXT NOT NULL,
		faculty_rating        INT  NOT NULL CHECK (faculty_rating BETWEEN 1 AND 5),
		difficulty_rating     INT  NOT NULL CHECK (difficulty_rating BETWEEN 1 AND 5),
		sentiment             TEXT NOT NULL,
		text_feedback         TEXT NOT NULL DEFAULT '',
		chapters_completed    INT  NOT NULL DEFAULT 0,
		experiments_completed INT,
		beyond_syllabus_topic TEXT NOT NULL DEFAULT '',
		created_at            TIMESTAMPTZ NOT NULL,
		department            TEXT NOT NULL,
		year                  INT  NOT NULL,
		semester              INT  NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS feedback_cohort_idx ON feedback (department, year, semester)`,
	// one row per student, semester and subject; a racing second submission fails with 23505
	`CREATE UNIQUE INDEX IF NOT EXISTS feedback_submission_uniq ON feedback (register_number, semester, department, subject_id)`,
}

// EnsureSchema creates the tables and indexes when they are missing.
func EnsureSchema(ctx context.Context, pool PgxPool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("op=postgres.ensure_schema: %w", err)
		}
	}
	return nil
}
