package usecase_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

type mockAnalyzer struct{ mock.Mock }

func (m *mockAnalyzer) AnalyzeSentiment(ctx context.Context, text string) domain.Sentiment {
	return m.Called(ctx, text).Get(0).(domain.Sentiment)
}

func (m *mockAnalyzer) GenerateSubjectInsights(ctx context.Context, subject string, texts []string) domain.Insights {
	return m.Called(ctx, subject, texts).Get(0).(domain.Insights)
}

func (m *mockAnalyzer) GenerateStaffInsights(ctx context.Context, staff string, texts []string) domain.Insights {
	return m.Called(ctx, staff, texts).Get(0).(domain.Insights)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishFeedbackSubmitted(ctx context.Context, entries []domain.Feedback) error {
	return m.Called(ctx, entries).Error(0)
}
