package domain

// Sentiment is the three-way label attached to a piece of feedback.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// ParseSentiment accepts only the exact label spelling.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(s) {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return Sentiment(s), true
	}
	return "", false
}

// SentimentDistribution counts feedback per label.
type SentimentDistribution struct {
	Positive int `json:"Positive"`
	Neutral  int `json:"Neutral"`
	Negative int `json:"Negative"`
}

// Add increments the bucket for s; unknown labels count as Neutral.
func (d *SentimentDistribution) Add(s Sentiment) {
	switch s {
	case SentimentPositive:
		d.Positive++
	case SentimentNegative:
		d.Negative++
	default:
		d.Neutral++
	}
}

// Insights is the structured summary of a set of feedback texts.
// Subject insights fill the first three lists, staff insights fill
// Strengths, AreasOfConcern and ActionableSuggestions. All five are always
// present in JSON as arrays.
type Insights struct {
	Strengths             []string `json:"strengths"`
	Improvements          []string `json:"improvements"`
	Suggestions           []string `json:"suggestions"`
	AreasOfConcern        []string `json:"areas_of_concern"`
	ActionableSuggestions []string `json:"actionable_suggestions"`
}

// Normalize replaces nil lists with empty ones.
func (i Insights) Normalize() Insights {
	return Insights{
		Strengths:             nonNil(i.Strengths),
		Improvements:          nonNil(i.Improvements),
		Suggestions:           nonNil(i.Suggestions),
		AreasOfConcern:        nonNil(i.AreasOfConcern),
		ActionableSuggestions: nonNil(i.ActionableSuggestions),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
