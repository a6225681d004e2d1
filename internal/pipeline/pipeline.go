// Package pipeline runs research, outline, expansion and normalization in
// order to produce a two-speaker script for a topic.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/apresai/researchcast/internal/outline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/research"
	"github.com/apresai/researchcast/internal/script"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/apresai/researchcast/internal/pipeline")

const DefaultDeadline = 10 * time.Minute

type Request struct {
	Topic  string `json:"topic"`
	Prompt string `json:"prompt,omitempty"`
}

// SectionSummary describes how one unit's expansion ended.
type SectionSummary struct {
	Unit       script.UnitID     `json:"unit"`
	Label      string            `json:"label"`
	Words      int               `json:"words"`
	Target     int               `json:"target"`
	Iterations int               `json:"iterations"`
	Stop       script.StopReason `json:"stop"`
}

type Result struct {
	RunID    string             `json:"run_id"`
	Script   []script.Utterance `json:"script"`
	Outline  *outline.Outline   `json:"outline"`
	RawText  string             `json:"raw_text"`
	Research *research.Bundle   `json:"research"`
	Sections []SectionSummary   `json:"sections"`
	Warnings []Warning          `json:"warnings"`
	Dropped  int                `json:"dropped_lines"`
}

// Researcher gathers search results for a topic.
type Researcher interface {
	Collect(ctx context.Context, topic string) (*research.Bundle, error)
}

// Outliner turns research into an outline and returns the raw model text.
type Outliner interface {
	Synthesize(ctx context.Context, b *research.Bundle, prompt string) (*outline.Outline, string, error)
}

// Expander grows outline units into dialogue.
type Expander interface {
	ExpandAll(ctx context.Context, o *outline.Outline, shared script.SharedContext, onSection func(script.SectionDraft)) ([]script.SectionDraft, error)
}

type Options struct {
	// Deadline bounds a whole run. Zero means DefaultDeadline.
	Deadline time.Duration
	Progress progress.Callback
	Logger   *slog.Logger
}

// Pipeline holds the stage implementations. It is safe for concurrent Runs.
type Pipeline struct {
	research Researcher
	outliner Outliner
	expander Expander
	deadline time.Duration
	progress progress.Callback
	log      *slog.Logger
}

func New(r Researcher, o Outliner, e Expander, opts Options) *Pipeline {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.Progress == nil {
		opts.Progress = progress.NopCallback
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pipeline{
		research: r,
		outliner: o,
		expander: e,
		deadline: opts.Deadline,
		progress: opts.Progress,
		log:      opts.Logger,
	}
}

// Run executes every stage for req. extra receives the run's progress
// events in addition to the pipeline-wide callback.
func (p *Pipeline) Run(ctx context.Context, req Request, extra ...progress.Callback) (*Result, error) {
	start := time.Now()
	runID := ulid.Make().String()
	emit := progress.Multi(append([]progress.Callback{p.progress}, extra...)...)
	send := func(e progress.Event) {
		e.RunID = runID
		emit(e)
	}
	log := p.log.With("run_id", runID)

	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	res, err := p.run(ctx, req, runID, start, send, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ev := progress.NewEvent(stageOf(err), "Failed", 0, start)
		ev.Error = err
		send(ev)
		log.ErrorContext(ctx, "Pipeline failed", "error", err, "elapsed", time.Since(start).Round(time.Millisecond))
		return nil, err
	}

	msg := fmt.Sprintf("Script ready (%d utterances)", len(res.Script))
	send(progress.NewEvent(progress.StageComplete, msg, 1, start))
	log.InfoContext(ctx, "Pipeline complete",
		"utterances", len(res.Script),
		"warnings", len(res.Warnings),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, runID string, start time.Time, send progress.Callback, log *slog.Logger) (*Result, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, &Error{Stage: progress.StageResearch, Kind: KindInvalidInput, Message: "topic is required", Err: research.ErrEmptyTopic}
	}

	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	// Stage 1: Research
	send(progress.NewEvent(progress.StageResearch, fmt.Sprintf("Researching %q...", topic), 0.05, start))
	bundle, err := p.research.Collect(ctx, topic)
	if err != nil {
		return nil, classify(progress.StageResearch, "research failed", err)
	}
	log.InfoContext(ctx, "Research collected", "results", len(bundle.Results()), "keywords", bundle.TopKeywords())

	// Stage 2: Outline
	send(progress.NewEvent(progress.StageOutline, "Synthesizing outline...", 0.15, start))
	o, _, err := p.outliner.Synthesize(ctx, bundle, req.Prompt)
	if err != nil {
		return nil, classify(progress.StageOutline, "outline synthesis failed", err)
	}
	warnings := outlineWarnings(o)

	// Stage 3: Expand
	total := len(o.Subtopics) + 2
	send(progress.NewEvent(progress.StageExpand, fmt.Sprintf("Expanding %d sections...", total), 0.25, start))
	var (
		mu   sync.Mutex
		done int
	)
	// Held across send so sinks see section events one at a time, in order.
	onSection := func(d script.SectionDraft) {
		mu.Lock()
		defer mu.Unlock()
		done++
		ev := progress.NewEvent(progress.StageExpand, "Expanded "+d.Label, 0.25+0.65*float64(done)/float64(total), start)
		ev.Unit, ev.UnitNum, ev.UnitTotal, ev.Words = string(d.Unit), done, total, d.WordCount()
		send(ev)
	}
	shared := script.SharedContext{
		Topic:    topic,
		Title:    o.Title,
		Keywords: bundle.TopKeywords(),
		Prompt:   req.Prompt,
	}
	drafts, err := p.expander.ExpandAll(ctx, o, shared, onSection)
	if err != nil {
		return nil, classify(progress.StageExpand, "section expansion failed", err)
	}
	warnings = append(warnings, draftWarnings(drafts)...)

	// Stage 4: Normalize
	send(progress.NewEvent(progress.StageNormalize, "Normalizing script...", 0.95, start))
	text := script.Assemble(drafts)
	norm := script.Normalize(text)
	warnings = append(warnings, scriptWarnings(norm)...)

	for _, w := range warnings {
		log.WarnContext(ctx, "Run warning", "code", w.Code, "unit", w.Unit, "message", w.Message)
	}

	sections := make([]SectionSummary, len(drafts))
	for i, d := range drafts {
		sections[i] = SectionSummary{
			Unit:       d.Unit,
			Label:      d.Label,
			Words:      d.WordCount(),
			Target:     d.Target,
			Iterations: d.Iterations,
			Stop:       d.Stop,
		}
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return &Result{
		RunID:    runID,
		Script:   norm.Utterances,
		Outline:  o,
		RawText:  text,
		Research: bundle,
		Sections: sections,
		Warnings: warnings,
		Dropped:  norm.Dropped,
	}, nil
}

func stageOf(err error) progress.Stage {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Stage
	}
	return progress.StageComplete
}
