package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/outline"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxIterations = 20

	expandTemperature = 0.3
	tokensPerWord     = 4
	maxExpandTokens   = 3000
	minExpandTokens   = 256
)

// ExpanderOptions tunes an Expander. Zero values take defaults.
type ExpanderOptions struct {
	Targets       Targets
	MaxIterations int
	Parallelism   int
}

// Expander grows each outline unit to its word target with repeated
// generation calls.
type Expander struct {
	llm    llm.Completer
	opts   ExpanderOptions
	logger *slog.Logger
}

func NewExpander(c llm.Completer, opts ExpanderOptions, logger *slog.Logger) *Expander {
	if opts.Targets == (Targets{}) {
		opts.Targets = DefaultTargets()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{llm: c, opts: opts, logger: logger}
}

func (e *Expander) Targets() Targets { return e.opts.Targets }

// Expand runs the loop for a single unit. The draft is returned alongside
// any error so callers can report partial progress.
func (e *Expander) Expand(ctx context.Context, u Unit, shared SharedContext) (SectionDraft, error) {
	d := SectionDraft{Unit: u.ID, Label: u.Label, Target: u.Target}
	for {
		words := d.WordCount()
		if words >= u.Target {
			d.Stop = StopTargetReached
			break
		}
		if d.Iterations >= e.opts.MaxIterations {
			d.Stop = StopCeilingReached
			e.logger.WarnContext(ctx, "Section hit iteration ceiling",
				"unit", u.ID, "words", words, "target", u.Target, "iterations", d.Iterations)
			break
		}

		remaining := u.Target - words
		text, err := e.llm.Complete(ctx, buildSectionPrompt(u, shared, d.Text, remaining), llm.Options{
			System:      sectionSystemPrompt,
			Temperature: llm.Float(expandTemperature),
			MaxTokens:   tokenBudget(remaining),
		})
		d.Iterations++
		if err != nil {
			return d, fmt.Errorf("expand %s (iteration %d): %w", u.ID, d.Iterations, err)
		}
		if strings.TrimSpace(text) == "" {
			d.Stop = StopStalled
			e.logger.WarnContext(ctx, "Section expansion stalled",
				"unit", u.ID, "words", words, "target", u.Target, "iterations", d.Iterations)
			break
		}
		if d.Text == "" {
			d.Text = text
		} else {
			d.Text += "\n\n" + text
		}
		e.logger.DebugContext(ctx, "Section iteration",
			"unit", u.ID, "iteration", d.Iterations, "words", d.WordCount(), "target", u.Target)
	}
	return d, nil
}

// ExpandAll expands every unit of the outline. Drafts come back in outline
// order regardless of Parallelism. onSection, if non-nil, is called as each
// unit finishes and may be called from several goroutines at once.
func (e *Expander) ExpandAll(ctx context.Context, o *outline.Outline, shared SharedContext, onSection func(SectionDraft)) ([]SectionDraft, error) {
	units := Units(o, e.opts.Targets)
	drafts := make([]SectionDraft, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Parallelism)
	for i, u := range units {
		g.Go(func() error {
			d, err := e.Expand(gctx, u, shared)
			drafts[i] = d
			if err != nil {
				return err
			}
			if onSection != nil {
				onSection(d)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return drafts, err
	}
	return drafts, nil
}

func tokenBudget(remaining int) int {
	return max(min(remaining*tokensPerWord, maxExpandTokens), minExpandTokens)
}
