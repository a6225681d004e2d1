package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/outline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/research"
	"github.com/apresai/researchcast/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResearcher struct {
	err   error
	block bool
	calls int
}

func (f *fakeResearcher) Collect(ctx context.Context, topic string) (*research.Bundle, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	return research.NewBundle(topic, []research.Result{{Title: "Vents", Description: "Life without sun"}}, []string{"vents", "microbes"}), nil
}

type fakeOutliner struct {
	subtopics int
	err       error
}

func (f *fakeOutliner) Synthesize(context.Context, *research.Bundle, string) (*outline.Outline, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	o := &outline.Outline{Title: "Life in the Dark"}
	for i := 0; i < f.subtopics; i++ {
		o.Subtopics = append(o.Subtopics, outline.Subtopic{Title: "part"})
	}
	return o, "{}", nil
}

// dialogue answers every expansion call with the same text.
type dialogue struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
}

func (d *dialogue) Complete(context.Context, string, llm.Options) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.text, d.err
}

const exchange = "<Speaker 1>: The vents are teeming with life.\n<Speaker 2>: Even without any sunlight at all?"

func newTestPipeline(r Researcher, o Outliner, c llm.Completer, opts Options) *Pipeline {
	e := script.NewExpander(c, script.ExpanderOptions{
		Targets:       script.Targets{Intro: 10, Subtopic: 10, Conclusion: 10},
		MaxIterations: 4,
	}, nil)
	return New(r, o, e, opts)
}

type recorder struct {
	mu     sync.Mutex
	events []progress.Event
}

func (r *recorder) handle(e progress.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func TestRun(t *testing.T) {
	rec := &recorder{}
	p := newTestPipeline(&fakeResearcher{}, &fakeOutliner{subtopics: 3}, &dialogue{text: exchange}, Options{Progress: rec.handle})

	res, err := p.Run(context.Background(), Request{Topic: "  deep sea vents ", Prompt: "for kids"})
	require.NoError(t, err)

	assert.Len(t, res.RunID, 26)
	assert.Equal(t, "deep sea vents", res.Research.Topic())
	assert.Equal(t, "Life in the Dark", res.Outline.Title)
	require.Len(t, res.Script, 10)
	assert.Equal(t, script.Utterance{Speaker: 1, Text: "The vents are teeming with life."}, res.Script[0])
	assert.Equal(t, 2, res.Script[1].Speaker)
	assert.True(t, strings.HasPrefix(res.RawText, "INTRODUCTION:\n"))
	assert.Empty(t, res.Warnings)
	assert.Zero(t, res.Dropped)

	require.Len(t, res.Sections, 5)
	assert.Equal(t, script.UnitIntro, res.Sections[0].Unit)
	assert.Equal(t, script.StopTargetReached, res.Sections[4].Stop)
	assert.Equal(t, 1, res.Sections[2].Iterations)

	var stages []progress.Stage
	for _, e := range rec.events {
		assert.Equal(t, res.RunID, e.RunID)
		if len(stages) == 0 || stages[len(stages)-1] != e.Stage {
			stages = append(stages, e.Stage)
		}
	}
	assert.Equal(t, []progress.Stage{
		progress.StageResearch, progress.StageOutline, progress.StageExpand,
		progress.StageNormalize, progress.StageComplete,
	}, stages)
	last := rec.events[len(rec.events)-1]
	assert.InDelta(t, 1.0, last.Percent, 1e-9)
}

func TestRunExtraCallback(t *testing.T) {
	rec := &recorder{}
	p := newTestPipeline(&fakeResearcher{}, &fakeOutliner{subtopics: 3}, &dialogue{text: exchange}, Options{})
	_, err := p.Run(context.Background(), Request{Topic: "vents"}, rec.handle)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.events)
}

func TestRunParallelSectionEventsInOrder(t *testing.T) {
	e := script.NewExpander(&dialogue{text: exchange}, script.ExpanderOptions{
		Targets:       script.Targets{Intro: 10, Subtopic: 10, Conclusion: 10},
		MaxIterations: 4,
		Parallelism:   4,
	}, nil)
	p := New(&fakeResearcher{}, &fakeOutliner{subtopics: 6}, e, Options{})

	// No lock: section events must arrive one at a time.
	var nums []int
	var percents []float64
	_, err := p.Run(context.Background(), Request{Topic: "vents"}, func(ev progress.Event) {
		if ev.UnitNum > 0 {
			nums = append(nums, ev.UnitNum)
			percents = append(percents, ev.Percent)
		}
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, nums)
	assert.IsNondecreasing(t, percents)
}

func TestRunEmptyTopic(t *testing.T) {
	r := &fakeResearcher{}
	_, err := newTestPipeline(r, &fakeOutliner{}, &dialogue{}, Options{}).Run(context.Background(), Request{Topic: " \t"})

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindInvalidInput, pe.Kind)
	assert.Equal(t, progress.StageResearch, pe.Stage)
	assert.Zero(t, r.calls)
}

func TestRunErrorKinds(t *testing.T) {
	parseErr := &outline.ParseError{Raw: "not json", Cause: errors.New("no object")}
	tests := []struct {
		name  string
		r     *fakeResearcher
		o     *fakeOutliner
		c     *dialogue
		stage progress.Stage
		kind  ErrorKind
		raw   string
	}{
		{
			name:  "missing search key",
			r:     &fakeResearcher{err: &research.SearchUnavailableError{Err: research.ErrMissingCredential}},
			o:     &fakeOutliner{},
			c:     &dialogue{},
			stage: progress.StageResearch,
			kind:  KindConfiguration,
		},
		{
			name:  "search down",
			r:     &fakeResearcher{err: &research.SearchUnavailableError{StatusCode: 502}},
			o:     &fakeOutliner{},
			c:     &dialogue{},
			stage: progress.StageResearch,
			kind:  KindUpstream,
		},
		{
			name:  "outline parse",
			r:     &fakeResearcher{},
			o:     &fakeOutliner{err: parseErr},
			c:     &dialogue{},
			stage: progress.StageOutline,
			kind:  KindParse,
			raw:   "not json",
		},
		{
			name:  "outline auth",
			r:     &fakeResearcher{},
			o:     &fakeOutliner{err: &llm.GenerationFailedError{Attempts: 1, Err: &llm.ProviderError{Kind: llm.KindAuth, Err: errors.New("401")}}},
			c:     &dialogue{},
			stage: progress.StageOutline,
			kind:  KindConfiguration,
		},
		{
			name:  "expansion overloaded",
			r:     &fakeResearcher{},
			o:     &fakeOutliner{subtopics: 3},
			c:     &dialogue{err: &llm.GenerationFailedError{Attempts: 3, Err: &llm.ProviderError{Kind: llm.KindOverloaded, Err: errors.New("529")}}},
			stage: progress.StageExpand,
			kind:  KindUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := newTestPipeline(tt.r, tt.o, tt.c, Options{Progress: rec.handle}).Run(context.Background(), Request{Topic: "vents"})

			var pe *Error
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.Equal(t, tt.kind, pe.Kind)
			assert.Equal(t, tt.raw, pe.Raw)
			assert.NotEmpty(t, pe.Details)

			last := rec.events[len(rec.events)-1]
			assert.Equal(t, tt.stage, last.Stage)
			assert.Error(t, last.Error)
		})
	}
}

func TestRunDeadline(t *testing.T) {
	p := newTestPipeline(&fakeResearcher{block: true}, &fakeOutliner{}, &dialogue{}, Options{Deadline: 20 * time.Millisecond})
	_, err := p.Run(context.Background(), Request{Topic: "vents"})

	var pe *Error
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindTimeout, pe.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunWarnings(t *testing.T) {
	t.Run("normalization empty", func(t *testing.T) {
		p := newTestPipeline(&fakeResearcher{}, &fakeOutliner{subtopics: 2},
			&dialogue{text: "Plain prose with no speaker tags at all here."}, Options{})
		res, err := p.Run(context.Background(), Request{Topic: "vents"})
		require.NoError(t, err)

		assert.Empty(t, res.Script)
		assert.NotNil(t, res.Script)
		assert.Equal(t, 8, res.Dropped)
		assert.Equal(t, []WarningCode{WarnOutlineSmall, WarnNormalizationEmpty}, codes(res.Warnings))
	})

	t.Run("stalled sections", func(t *testing.T) {
		c := &dialogue{text: ""}
		p := newTestPipeline(&fakeResearcher{}, &fakeOutliner{subtopics: 3}, c, Options{})
		res, err := p.Run(context.Background(), Request{Topic: "vents"})
		require.NoError(t, err)

		assert.Equal(t, 5, c.calls)
		got := codes(res.Warnings)
		assert.Equal(t, WarnSectionShort, got[0])
		assert.Len(t, got, 7)
		assert.Contains(t, got, WarnScriptShort)
		assert.Contains(t, got, WarnNormalizationEmpty)
		assert.Equal(t, "intro", res.Warnings[0].Unit)
		assert.Equal(t, script.StopStalled, res.Sections[0].Stop)
	})

	t.Run("one-sided script", func(t *testing.T) {
		p := newTestPipeline(&fakeResearcher{}, &fakeOutliner{subtopics: 3},
			&dialogue{text: "<Speaker 1>: I will do all of the talking today, thanks."}, Options{})
		res, err := p.Run(context.Background(), Request{Topic: "vents"})
		require.NoError(t, err)
		assert.Contains(t, codes(res.Warnings), WarnSpeakerBalance)
	})
}

func codes(ws []Warning) []WarningCode {
	out := make([]WarningCode, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}
