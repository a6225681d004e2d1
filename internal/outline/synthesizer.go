package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/apresai/researchcast/internal/jsonx"
	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/research"
)

const (
	outlineTemperature = 0.4
	outlineMaxTokens   = 2048
)

// Synthesizer produces an Outline from a research bundle.
type Synthesizer struct {
	llm llm.Completer
	log *slog.Logger
}

func NewSynthesizer(c llm.Completer, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{llm: c, log: logger}
}

// Synthesize issues one generation call and parses its response. It returns
// the raw response text alongside the outline, and a *ParseError carrying
// that text when parsing fails.
func (s *Synthesizer) Synthesize(ctx context.Context, b *research.Bundle, userPrompt string) (*Outline, string, error) {
	raw, err := s.llm.Complete(ctx, buildPrompt(b, userPrompt), llm.Options{
		System:      systemPrompt,
		Temperature: llm.Float(outlineTemperature),
		MaxTokens:   outlineMaxTokens,
	})
	if err != nil {
		return nil, "", fmt.Errorf("generate outline: %w", err)
	}

	o, err := Parse(raw)
	if err != nil {
		return nil, raw, err
	}
	if len(o.Subtopics) < MinSubtopics {
		s.log.WarnContext(ctx, "Outline has fewer subtopics than requested",
			"subtopics", len(o.Subtopics), "min", MinSubtopics)
	}
	return o, raw, nil
}

// Parse extracts, validates and decodes an outline from model output.
// Subtopics beyond MaxSubtopics are dropped.
func Parse(raw string) (*Outline, error) {
	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	if err := validate(obj); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	var o Outline
	if err := json.Unmarshal([]byte(obj), &o); err != nil {
		return nil, &ParseError{Raw: raw, Cause: err}
	}
	if len(o.Subtopics) > MaxSubtopics {
		o.Subtopics = o.Subtopics[:MaxSubtopics]
	}
	return &o, nil
}
