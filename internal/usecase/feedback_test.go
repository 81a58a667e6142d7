package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/repo/memory"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
	"github.com/fairyhunter13/feedback-insights/internal/usecase"
)

func cohortStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	for _, sub := range []domain.Subject{
		{ID: "cs301", Name: "Compilers", Department: domain.DeptCSE, Year: 3, Semester: 5, StaffName: "Dr. Rao"},
		{ID: "cs3l1", Name: "Compiler Lab", Department: domain.DeptCSE, Year: 3, Semester: 5, IsLab: true, StaffName: "Dr. Rao"},
		{ID: "cs302", Name: "Networks", Department: domain.DeptCSE, Year: 3, Semester: 5, StaffName: "Dr. Nair"},
	} {
		_, err := store.Create(context.Background(), sub)
		require.NoError(t, err)
	}
	return store
}

func validSubmission() usecase.Submission {
	exp := 7
	return usecase.Submission{
		RegisterNumber: " 21052312345 ",
		Department:     domain.DeptCSE,
		Year:           3,
		Semester:       5,
		Entries: []usecase.SubmissionEntry{
			{SubjectID: "cs301", FacultyRating: 5, DifficultyRating: 3, TextFeedback: "great lectures", ChaptersCompleted: 4},
			{SubjectID: "cs3l1", FacultyRating: 4, DifficultyRating: 2, TextFeedback: "lab was okay", ChaptersCompleted: 3, ExperimentsCompleted: &exp},
			{SubjectID: "cs302", FacultyRating: 2, DifficultyRating: 5, TextFeedback: "too fast and confusing", ChaptersCompleted: 2, ExperimentsCompleted: &exp},
		},
	}
}

func TestSubmit_StoresLabelsAndPublishes(t *testing.T) {
	ctx := context.Background()
	store := cohortStore(t)
	analyzer := &mockAnalyzer{}
	analyzer.On("AnalyzeSentiment", mock.Anything, "great lectures").Return(domain.SentimentPositive).Once()
	analyzer.On("AnalyzeSentiment", mock.Anything, "lab was okay").Return(domain.SentimentNeutral).Once()
	analyzer.On("AnalyzeSentiment", mock.Anything, "too fast and confusing").Return(domain.SentimentNegative).Once()
	events := &mockPublisher{}
	events.On("PublishFeedbackSubmitted", mock.Anything, mock.MatchedBy(func(fs []domain.Feedback) bool { return len(fs) == 3 })).Return(nil).Once()

	svc := usecase.NewFeedbackService(store, store, analyzer, events, "")
	stored, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	require.Len(t, stored, 3)

	assert.Equal(t, domain.SentimentPositive, stored[0].Sentiment)
	assert.Equal(t, "Dr. Rao", stored[0].StaffName)
	assert.Equal(t, "21052312345", stored[0].RegisterNumber)
	assert.Nil(t, stored[0].ExperimentsCompleted, "experiments only apply to labs")
	require.NotNil(t, stored[1].ExperimentsCompleted)
	assert.Equal(t, 7, *stored[1].ExperimentsCompleted)
	assert.Nil(t, stored[2].ExperimentsCompleted)
	assert.Equal(t, domain.SentimentNegative, stored[2].Sentiment)

	analyzer.AssertExpectations(t)
	events.AssertExpectations(t)

	exists, err := svc.Exists(ctx, "21052312345", 5, domain.DeptCSE)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = svc.Submit(ctx, validSubmission())
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSubmit_PublishFailureIsNotFatal(t *testing.T) {
	store := cohortStore(t)
	analyzer := &mockAnalyzer{}
	analyzer.On("AnalyzeSentiment", mock.Anything, mock.Anything).Return(domain.SentimentNeutral)
	events := &mockPublisher{}
	events.On("PublishFeedbackSubmitted", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	stored, err := usecase.NewFeedbackService(store, store, analyzer, events, "").Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Len(t, stored, 3)
}

func TestSubmit_HashesRegisterNumberWithPepper(t *testing.T) {
	ctx := context.Background()
	store := cohortStore(t)
	analyzer := &mockAnalyzer{}
	analyzer.On("AnalyzeSentiment", mock.Anything, mock.Anything).Return(domain.SentimentNeutral)

	svc := usecase.NewFeedbackService(store, store, analyzer, nil, "pepper")
	stored, err := svc.Submit(ctx, validSubmission())
	require.NoError(t, err)
	assert.NotEqual(t, "21052312345", stored[0].RegisterNumber)

	exists, err := svc.Exists(ctx, "21052312345", 5, domain.DeptCSE)
	require.NoError(t, err)
	assert.True(t, exists)

	raw, err := store.Exists(ctx, "21052312345", 5, domain.DeptCSE)
	require.NoError(t, err)
	assert.False(t, raw, "plain register numbers are never stored")
}

func TestSubmit_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*usecase.Submission)
		wantErr error
	}{
		{"bad register for year", func(s *usecase.Submission) { s.RegisterNumber = "21052512345" }, domain.ErrInvalidArgument},
		{"unknown department", func(s *usecase.Submission) { s.Department = "XYZ" }, domain.ErrInvalidArgument},
		{"missing subject", func(s *usecase.Submission) { s.Entries = s.Entries[:2] }, domain.ErrInvalidArgument},
		{"foreign subject", func(s *usecase.Submission) { s.Entries[2].SubjectID = "ee101" }, domain.ErrInvalidArgument},
		{"duplicate subject", func(s *usecase.Submission) { s.Entries[2].SubjectID = "cs301" }, domain.ErrInvalidArgument},
		{"rating too high", func(s *usecase.Submission) { s.Entries[0].FacultyRating = 6 }, domain.ErrInvalidArgument},
		{"rating zero", func(s *usecase.Submission) { s.Entries[1].DifficultyRating = 0 }, domain.ErrInvalidArgument},
		{"no chapters", func(s *usecase.Submission) { s.Entries[0].ChaptersCompleted = 0 }, domain.ErrInvalidArgument},
		{"short text", func(s *usecase.Submission) { s.Entries[0].TextFeedback = " ok  " }, domain.ErrInvalidArgument},
		{"empty cohort", func(s *usecase.Submission) { s.Semester = 6 }, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cohortStore(t)
			analyzer := &mockAnalyzer{}
			sub := validSubmission()
			tt.mutate(&sub)

			_, err := usecase.NewFeedbackService(store, store, analyzer, nil, "").Submit(context.Background(), sub)
			assert.ErrorIs(t, err, tt.wantErr)
			analyzer.AssertNotCalled(t, "AnalyzeSentiment", mock.Anything, mock.Anything)

			all, _ := store.ListByCohort(context.Background(), domain.DeptCSE, 3, 5)
			assert.Empty(t, all)
		})
	}
}

func TestFeedbackService_Lookups(t *testing.T) {
	ctx := context.Background()
	store := cohortStore(t)
	analyzer := &mockAnalyzer{}
	analyzer.On("AnalyzeSentiment", mock.Anything, "brilliant").Return(domain.SentimentPositive)
	svc := usecase.NewFeedbackService(store, store, analyzer, nil, "")

	subs, err := svc.CohortSubjects(ctx, domain.DeptCSE, 3, 5)
	require.NoError(t, err)
	assert.Len(t, subs, 3)

	_, err = svc.CohortSubjects(ctx, "NOPE", 3, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.Exists(ctx, " ", 5, domain.DeptCSE)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	assert.Equal(t, domain.SentimentPositive, svc.AnalyzeText(ctx, "brilliant"))
}

// gatedAnalyzer holds every sentiment call until two calls have arrived, so
// two submissions are both past the duplicate check before either stores.
type gatedAnalyzer struct {
	mockAnalyzer
	mu      sync.Mutex
	calls   int
	release chan struct{}
}

func (g *gatedAnalyzer) AnalyzeSentiment(context.Context, string) domain.Sentiment {
	g.mu.Lock()
	g.calls++
	if g.calls == 2 {
		close(g.release)
	}
	g.mu.Unlock()
	<-g.release
	return domain.SentimentNeutral
}

func TestSubmit_ConcurrentDuplicateStoresOnce(t *testing.T) {
	ctx := context.Background()
	store := cohortStore(t)
	svc := usecase.NewFeedbackService(store, store, &gatedAnalyzer{release: make(chan struct{})}, nil, "")

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Submit(ctx, validSubmission())
		}(i)
	}
	wg.Wait()

	var stored, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			stored++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, stored)
	assert.Equal(t, 1, conflicts)

	cohort, err := store.ListByCohort(ctx, domain.DeptCSE, 3, 5)
	require.NoError(t, err)
	assert.Len(t, cohort, 3)
}
