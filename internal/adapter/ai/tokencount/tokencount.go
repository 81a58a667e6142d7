// Package tokencount estimates prompt sizes so aggregated feedback stays
// within a model's input budget.
//
// Gemini does not publish a local tokenizer; cl100k_base from tiktoken-go is
// used as a close, slightly pessimistic approximation.
package tokencount

import (
	"log/slog"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter provides thread-safe token counting. The encoding is loaded lazily
// on first use; when it cannot be loaded every count falls back to a
// four-characters-per-token estimate.
type Counter struct {
	once    sync.Once
	enc     *tiktoken.Tiktoken
	loadErr error
}

// NewCounter creates a new token counter instance.
func NewCounter() *Counter { return &Counter{} }

func (c *Counter) encoding() (*tiktoken.Tiktoken, error) {
	c.once.Do(func() {
		c.enc, c.loadErr = tiktoken.GetEncoding(defaultEncoding)
		if c.loadErr != nil {
			slog.Warn("token encoding unavailable, using length estimate", slog.String("encoding", defaultEncoding), slog.Any("error", c.loadErr))
		}
	})
	return c.enc, c.loadErr
}

// CountTokens returns the token count of text. The model name is accepted
// for interface compatibility; all Gemini models share one estimate.
func (c *Counter) CountTokens(text, _ string) (int, error) {
	enc, err := c.encoding()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// TextCounter is the subset of Counter used by FitTexts.
type TextCounter interface {
	CountTokens(text, model string) (int, error)
}

// Estimate is the fallback count used when no tokenizer is available.
func Estimate(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		return 1
	}
	return n
}

// FitTexts returns the longest prefix of texts whose combined token count
// stays within budget. A budget <= 0 disables trimming. The first text is
// always kept so a single oversized entry still reaches the model.
func FitTexts(counter TextCounter, texts []string, budget int, model string) []string {
	if budget <= 0 || len(texts) == 0 {
		return texts
	}
	used := 0
	for i, t := range texts {
		n := Estimate(t)
		if counter != nil {
			if counted, err := counter.CountTokens(t, model); err == nil {
				n = counted
			}
		}
		// one extra token for the "\n- " separator
		used += n + 1
		if used > budget && i > 0 {
			return texts[:i]
		}
	}
	return texts
}
