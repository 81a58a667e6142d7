// Package ai turns free-text feedback into sentiment labels and structured
// insights using a remote generative model, degrading to a deterministic
// lexical analysis whenever the remote service cannot answer.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fairyhunter13/feedback-insights/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/feedback-insights/internal/domain"
	"github.com/fairyhunter13/feedback-insights/pkg/textx"
)

const (
	// maxPromptTexts caps how many feedback entries go into one insights prompt.
	maxPromptTexts  = 50
	minSentimentLen = 3
)

// Options configures an Analyzer. Zero values disable the optional parts.
type Options struct {
	Provider          string
	Models            []string
	AttemptTimeout    time.Duration
	Pacer             Pacer
	PaceMaxWait       time.Duration
	Counter           tokencount.TextCounter
	PromptTokenBudget int
}

// Analyzer implements domain.Analyzer on top of the Orchestrator.
type Analyzer struct {
	orch        *Orchestrator
	counter     tokencount.TextCounter
	tokenBudget int
}

var _ domain.Analyzer = (*Analyzer)(nil)

// NewAnalyzer wires a credential pool and a Generator into an Analyzer.
func NewAnalyzer(pool *CredentialPool, gen Generator, opts Options) *Analyzer {
	provider := opts.Provider
	if provider == "" {
		provider = "gemini"
	}
	return &Analyzer{
		orch: &Orchestrator{
			provider:       provider,
			pool:           pool,
			models:         append([]string(nil), opts.Models...),
			gen:            gen,
			pacer:          opts.Pacer,
			attemptTimeout: opts.AttemptTimeout,
			paceMaxWait:    opts.PaceMaxWait,
		},
		counter:     opts.Counter,
		tokenBudget: opts.PromptTokenBudget,
	}
}

// AnalyzeSentiment labels one piece of feedback. Texts shorter than three
// characters after trimming are Neutral without a remote call, and a reply
// that is empty or not exactly one label is read as Neutral.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, text string) domain.Sentiment {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < minSentimentLen {
		return domain.SentimentNeutral
	}
	label := domain.SentimentNeutral
	ok := a.orch.Call(ctx, "sentiment", sentimentPrompt(text), func(reply string) error {
		if s, valid := domain.ParseSentiment(strings.TrimSpace(reply)); valid {
			label = s
		}
		return nil
	})
	if !ok {
		return ClassifySentiment(text)
	}
	return label
}

// GenerateSubjectInsights summarizes feedback about one subject.
func (a *Analyzer) GenerateSubjectInsights(ctx context.Context, subject string, texts []string) domain.Insights {
	if len(texts) == 0 {
		return SummarizeSubject(nil)
	}
	texts = cleanTexts(texts)
	var out domain.Insights
	ok := a.orch.Call(ctx, "subject_insights", subjectPrompt(subject, a.sample(texts)), func(reply string) error {
		lists, err := decodeLists(reply, "strengths", "improvements", "suggestions")
		if err != nil {
			return err
		}
		out = domain.Insights{
			Strengths:    lists["strengths"],
			Improvements: lists["improvements"],
			Suggestions:  lists["suggestions"],
		}.Normalize()
		return nil
	})
	if !ok {
		return SummarizeSubject(texts)
	}
	return out
}

// GenerateStaffInsights summarizes feedback about one staff member.
func (a *Analyzer) GenerateStaffInsights(ctx context.Context, staff string, texts []string) domain.Insights {
	if len(texts) == 0 {
		return SummarizeStaff(nil)
	}
	texts = cleanTexts(texts)
	var out domain.Insights
	ok := a.orch.Call(ctx, "staff_insights", staffPrompt(staff, a.sample(texts)), func(reply string) error {
		lists, err := decodeLists(reply, "strengths", "areas_of_concern", "actionable_suggestions")
		if err != nil {
			return err
		}
		out = domain.Insights{
			Strengths:             lists["strengths"],
			AreasOfConcern:        lists["areas_of_concern"],
			ActionableSuggestions: lists["actionable_suggestions"],
		}.Normalize()
		return nil
	})
	if !ok {
		return SummarizeStaff(texts)
	}
	return out
}

// Status describes the client without exposing credentials.
type Status struct {
	HasKey       bool     `json:"has_key"`
	CurrentModel string   `json:"current_model"`
	Models       []string `json:"models"`
	PoolStats
}

// Status reports credential availability and the preferred model.
func (a *Analyzer) Status() Status {
	st := a.orch.pool.Stats()
	out := Status{
		HasKey:    st.Total > st.Exhausted,
		Models:    append([]string{}, a.orch.models...),
		PoolStats: st,
	}
	if len(a.orch.models) > 0 {
		out.CurrentModel = a.orch.models[0]
	}
	return out
}

// sample keeps the first maxPromptTexts non-blank entries, then trims to the
// token budget.
func (a *Analyzer) sample(texts []string) []string {
	picked := make([]string, 0, min(len(texts), maxPromptTexts))
	for _, t := range texts {
		if len(picked) == maxPromptTexts {
			break
		}
		if t != "" {
			picked = append(picked, t)
		}
	}
	texts = picked
	model := ""
	if len(a.orch.models) > 0 {
		model = a.orch.models[0]
	}
	return tokencount.FitTexts(a.counter, texts, a.tokenBudget, model)
}

// cleanTexts sanitizes every entry. Blank entries stay so the lexical
// summary counts them as Neutral.
func cleanTexts(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = textx.SanitizeText(t)
	}
	return out
}

func sentimentPrompt(text string) string {
	return fmt.Sprintf("Analyze the sentiment of this student feedback regarding a course: %q.\n"+
		"Respond with exactly one word: Positive, Neutral, or Negative.", text)
}

func subjectPrompt(subject string, texts []string) string {
	return fmt.Sprintf(`Analyze the following student feedback for the subject %q.
Provide a structured analysis in JSON format with three arrays: "strengths", "improvements", and "suggestions".
Each array should contain 2-4 brief, actionable items.

Feedback data:
- %s

Respond ONLY with valid JSON in this exact format:
{"strengths": ["..."], "improvements": ["..."], "suggestions": ["..."]}`, subject, strings.Join(texts, "\n- "))
}

func staffPrompt(staff string, texts []string) string {
	return fmt.Sprintf(`Analyze the following aggregated student feedback for Professor %q.
Identify teaching strengths, areas of concern, and actionable suggestions.

Feedback data:
- %s

Respond ONLY with valid JSON in this exact format:
{"strengths": ["..."], "areas_of_concern": ["..."], "actionable_suggestions": ["..."]}`, staff, strings.Join(texts, "\n- "))
}
