// Package topics suggests podcast episode ideas for a broad interest.
package topics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apresai/researchcast/internal/jsonx"
	"github.com/apresai/researchcast/internal/llm"
)

const (
	DefaultCount = 5

	suggestTemperature = 0.8
)

var ErrEmptyInterest = errors.New("interest must not be empty")

type Topic struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// ParseError is returned when the model response is not a topic array.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse topic suggestions: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

type Suggester struct {
	llm    llm.Completer
	count  int
	logger *slog.Logger
}

func NewSuggester(c llm.Completer, logger *slog.Logger) *Suggester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Suggester{llm: c, count: DefaultCount, logger: logger}
}

// Suggest asks for DefaultCount episode ideas related to interest.
func (s *Suggester) Suggest(ctx context.Context, interest string) ([]Topic, error) {
	interest = strings.TrimSpace(interest)
	if interest == "" {
		return nil, ErrEmptyInterest
	}

	raw, err := s.llm.Complete(ctx, buildPrompt(interest, s.count), llm.Options{
		Temperature: llm.Float(suggestTemperature),
	})
	if err != nil {
		return nil, fmt.Errorf("suggest topics: %w", err)
	}

	var topics []Topic
	arr, err := jsonx.ExtractArray(raw)
	if err == nil {
		err = json.Unmarshal([]byte(arr), &topics)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Unparseable topic suggestions", "error", err, "response_chars", len(raw))
		return nil, &ParseError{Raw: raw, Cause: err}
	}

	out := topics[:0]
	for _, t := range topics {
		if strings.TrimSpace(t.Title) == "" {
			continue
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, &ParseError{Raw: raw, Cause: errors.New("no topics with a title")}
	}
	return out, nil
}

func buildPrompt(interest string, n int) string {
	return fmt.Sprintf(`Based on the listener's interest in %q, suggest %d specific, engaging podcast episode ideas.

Respond with ONLY a JSON array of objects in this shape:
[
  {
    "title": "A catchy title for the episode",
    "description": "What the episode would cover, in 2-3 sentences",
    "tags": ["relevant", "keywords"]
  }
]

Make the ideas specific and diverse within the theme. Avoid generic suggestions.`, interest, n)
}
