package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/repo/postgres"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

func TestFeedbackRepo_Exists(t *testing.T) {
	ctx := context.Background()

	pool := &poolStub{row: rowStub{values: []any{true}}}
	ok, err := postgres.NewFeedbackRepo(pool).Exists(ctx, "21052312345", 5, domain.DeptCSE)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []any{"21052312345", 5, "CSE"}, pool.queryArgs)

	_, err = postgres.NewFeedbackRepo(&poolStub{row: rowStub{err: assert.AnError}}).Exists(ctx, "r", 1, domain.DeptSH)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFeedbackRepo_AppendBatch(t *testing.T) {
	ctx := context.Background()
	exp := 4

	pool := &poolStub{}
	stored, err := postgres.NewFeedbackRepo(pool).AppendBatch(ctx, []domain.Feedback{
		{SubjectID: "cs301", FacultyRating: 5, DifficultyRating: 2, Sentiment: domain.SentimentPositive, Department: domain.DeptCSE, Year: 3, Semester: 5},
		{SubjectID: "cs3l1", FacultyRating: 4, DifficultyRating: 3, Sentiment: domain.SentimentNeutral, ExperimentsCompleted: &exp, Department: domain.DeptCSE, Year: 3, Semester: 5},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.NotEmpty(t, stored[0].ID)
	assert.NotEqual(t, stored[0].ID, stored[1].ID)
	assert.False(t, stored[0].CreatedAt.IsZero())
	assert.Equal(t, stored[0].CreatedAt, stored[1].CreatedAt)
	assert.Len(t, pool.tx.execs, 2)
	assert.Equal(t, "Positive", pool.tx.args[0][6])
	assert.True(t, pool.tx.committed)
	assert.False(t, pool.tx.rolledBack)
}

func TestFeedbackRepo_AppendBatchFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	pool := &poolStub{tx: &txStub{execErr: assert.AnError, execErrAt: 2}}
	_, err := postgres.NewFeedbackRepo(pool).AppendBatch(ctx, []domain.Feedback{{SubjectID: "a"}, {SubjectID: "b"}, {SubjectID: "c"}})
	require.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "op=feedback.append_batch")
	assert.Len(t, pool.tx.execs, 2)
	assert.False(t, pool.tx.committed)
	assert.True(t, pool.tx.rolledBack)

	_, err = postgres.NewFeedbackRepo(&poolStub{beginErr: assert.AnError}).AppendBatch(ctx, []domain.Feedback{{}})
	assert.ErrorIs(t, err, assert.AnError)

	commitFail := &poolStub{tx: &txStub{commitErr: assert.AnError}}
	_, err = postgres.NewFeedbackRepo(commitFail).AppendBatch(ctx, []domain.Feedback{{}})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestFeedbackRepo_AppendBatchDuplicateIsConflict(t *testing.T) {
	pool := &poolStub{tx: &txStub{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "feedback_submission_uniq"}, execErrAt: 1}}
	_, err := postgres.NewFeedbackRepo(pool).AppendBatch(context.Background(), []domain.Feedback{
		{SubjectID: "cs301", RegisterNumber: "21052312345", Department: domain.DeptCSE, Year: 3, Semester: 5},
		{SubjectID: "cs302", RegisterNumber: "21052312345", Department: domain.DeptCSE, Year: 3, Semester: 5},
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, pool.tx.execs, 1)
	assert.False(t, pool.tx.committed)
	assert.True(t, pool.tx.rolledBack)
}

func TestFeedbackRepo_AppendBatchEmpty(t *testing.T) {
	pool := &poolStub{}
	stored, err := postgres.NewFeedbackRepo(pool).AppendBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Nil(t, pool.tx, "no transaction for an empty batch")
}

func TestFeedbackRepo_Lists(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	row := []any{"f1", "cs301", "Dr. Rao", "hash", 5, 2, "Positive", "great", 4, nil, "", created, "CSE", 3, 5}
	labRow := []any{"f2", "cs3l1", "Dr. Rao", "hash", 4, 3, "Neutral", "ok lab", 3, 6, "compilers", created, "CSE", 3, 5}

	pool := &poolStub{rows: &rowsStub{data: [][]any{row, labRow}}}
	got, err := postgres.NewFeedbackRepo(pool).ListByCohort(ctx, domain.DeptCSE, 3, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SentimentPositive, got[0].Sentiment)
	assert.Nil(t, got[0].ExperimentsCompleted)
	require.NotNil(t, got[1].ExperimentsCompleted)
	assert.Equal(t, 6, *got[1].ExperimentsCompleted)
	assert.Equal(t, created, got[0].CreatedAt)
	assert.Equal(t, []any{"CSE", 3, 5}, pool.queryArgs)

	sh := &poolStub{}
	_, err = postgres.NewFeedbackRepo(sh).ListForHOD(ctx, domain.DeptSH)
	require.NoError(t, err)
	assert.Contains(t, sh.querySQL, "WHERE year=1")
	assert.Empty(t, sh.queryArgs)

	cse := &poolStub{}
	_, err = postgres.NewFeedbackRepo(cse).ListForHOD(ctx, domain.DeptCSE)
	require.NoError(t, err)
	assert.Contains(t, cse.querySQL, "department=$1 AND year>1")
	assert.Equal(t, []any{"CSE"}, cse.queryArgs)

	_, err = postgres.NewFeedbackRepo(&poolStub{queryErr: assert.AnError}).ListForHOD(ctx, domain.DeptIT)
	assert.ErrorIs(t, err, assert.AnError)
}
