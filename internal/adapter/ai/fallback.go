package ai

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/feedback-insights/internal/domain"
)

var (
	positiveWords = []string{"good", "great", "excellent", "amazing", "wonderful", "helpful", "best", "love", "fantastic", "awesome", "clear", "understand", "well", "nice", "thank"}
	// "fast" is negative here: students use it for pacing complaints.
	negativeWords = []string{"bad", "poor", "terrible", "horrible", "worst", "hate", "boring", "confusing", "difficult", "slow", "hard", "unclear", "problem", "issue", "fast"}
)

const (
	noSubjectFeedback = "No textual feedback available for analysis."
	noStaffFeedback   = "No textual feedback available."
)

// ClassifySentiment labels text by counting how many listed words appear in
// it as substrings. Each word counts once regardless of repetitions.
func ClassifySentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)
	pos, neg := countPresent(lower, positiveWords), countPresent(lower, negativeWords)
	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func countPresent(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func tally(texts []string) domain.SentimentDistribution {
	var d domain.SentimentDistribution
	for _, t := range texts {
		d.Add(ClassifySentiment(t))
	}
	return d
}

// SummarizeSubject builds subject insights from local sentiment counts.
func SummarizeSubject(texts []string) domain.Insights {
	if len(texts) == 0 {
		return domain.Insights{Suggestions: []string{noSubjectFeedback}}.Normalize()
	}
	n := len(texts)
	d := tally(texts)
	var out domain.Insights

	switch {
	case 2*d.Positive > n:
		out.Strengths = append(out.Strengths,
			"Majority of students expressed positive feedback about this subject",
			"Students appear satisfied with the course content and delivery")
	case d.Positive > 0:
		out.Strengths = append(out.Strengths, "Some students expressed positive feedback")
	}
	if d.Negative > 0 {
		out.Improvements = append(out.Improvements, "Some students reported concerns that should be addressed")
		out.Suggestions = append(out.Suggestions, "Review individual feedback entries for specific improvement areas")
	}
	if d.Positive == 0 && d.Negative == 0 {
		out.Suggestions = append(out.Suggestions, "Encourage more detailed feedback from students")
	}
	out.Suggestions = append(out.Suggestions, fmt.Sprintf("Analysis based on %d feedback entries", n))
	return out.Normalize()
}

// SummarizeStaff builds staff insights from local sentiment counts.
func SummarizeStaff(texts []string) domain.Insights {
	if len(texts) == 0 {
		return domain.Insights{ActionableSuggestions: []string{noStaffFeedback}}.Normalize()
	}
	n := len(texts)
	d := tally(texts)
	var out domain.Insights

	switch {
	case 2*d.Positive > n:
		out.Strengths = append(out.Strengths,
			"Majority of student feedback is positive",
			"Students appreciate the teaching approach")
	case d.Positive > 0:
		out.Strengths = append(out.Strengths, "Some students expressed satisfaction with the teaching")
	}
	switch {
	case 3*d.Negative > n:
		out.AreasOfConcern = append(out.AreasOfConcern, "Notable portion of students expressed concerns")
		out.ActionableSuggestions = append(out.ActionableSuggestions, "Review specific feedback entries for detailed improvement areas")
	case d.Negative > 0:
		out.AreasOfConcern = append(out.AreasOfConcern, "A few students mentioned areas for improvement")
	}
	if 2*d.Neutral > n {
		out.ActionableSuggestions = append(out.ActionableSuggestions, "Encourage more engaging interactions to generate stronger student responses")
	}
	out.ActionableSuggestions = append(out.ActionableSuggestions, fmt.Sprintf("Analysis based on %d feedback entries", n))
	return out.Normalize()
}
