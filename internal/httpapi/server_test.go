package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/script"
	"github.com/apresai/researchcast/internal/topics"
	"github.com/apresai/researchcast/internal/tts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	res *pipeline.Result
	err error
	got pipeline.Request
}

func (f *fakeGenerator) Run(_ context.Context, req pipeline.Request, _ ...progress.Callback) (*pipeline.Result, error) {
	f.got = req
	return f.res, f.err
}

type fakeSuggester struct {
	list []topics.Topic
	err  error
}

func (f *fakeSuggester) Suggest(_ context.Context, _ string) ([]topics.Topic, error) {
	return f.list, f.err
}

type fakeSynth struct {
	mu     sync.Mutex
	calls  int
	failAt int
}

func (f *fakeSynth) Name() string { return "fake" }

func (f *fakeSynth) DefaultVoices() tts.VoiceMap {
	return tts.VoiceMap{Speaker1: tts.Voice{ID: "v1"}, Speaker2: tts.Voice{ID: "v2"}}
}

func (f *fakeSynth) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.mu.Unlock()
	if i == f.failAt {
		return nil, &tts.SynthesisError{Provider: "fake", StatusCode: 500, Message: "boom"}
	}
	return &tts.Audio{
		Body:      io.NopCloser(strings.NewReader(fmt.Sprintf("[%s:%d]", req.Voice.ID, i))),
		RequestID: fmt.Sprintf("req-%d", i),
	}, nil
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestPodcast(t *testing.T) {
	gen := &fakeGenerator{res: &pipeline.Result{
		RunID:  "01J",
		Script: []script.Utterance{{Speaker: 1, Text: "Hello."}, {Speaker: 2, Text: "Hi."}},
	}}
	h := New(gen).Handler()

	rec := do(t, h, http.MethodPost, "/api/podcast", `{"topic":"tidal power","prompt":"keep it light"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "tidal power", gen.got.Topic)
	assert.Equal(t, "keep it light", gen.got.Prompt)

	var got struct {
		RunID  string             `json:"run_id"`
		Script []script.Utterance `json:"script"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "01J", got.RunID)
	assert.Len(t, got.Script, 2)
}

func TestPodcastBadRequests(t *testing.T) {
	h := New(&fakeGenerator{}).Handler()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing topic", `{"prompt":"x"}`, "Topic is required"},
		{"blank topic", `{"topic":"   "}`, "Topic is required"},
		{"malformed", `{"topic":`, "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/podcast", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.want, body.Error)
			assert.NotEmpty(t, body.Details)
		})
	}
}

func TestPodcastPipelineErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"configuration", &pipeline.Error{Stage: progress.StageResearch, Kind: pipeline.KindConfiguration, Message: "research failed", Details: "missing key"}, http.StatusInternalServerError},
		{"parse", &pipeline.Error{Stage: progress.StageOutline, Kind: pipeline.KindParse, Message: "outline synthesis failed", Details: "bad json", Raw: "not json"}, http.StatusInternalServerError},
		{"upstream", &pipeline.Error{Stage: progress.StageExpand, Kind: pipeline.KindUpstream, Message: "section expansion failed", Details: "overloaded"}, http.StatusBadGateway},
		{"timeout", &pipeline.Error{Stage: progress.StageExpand, Kind: pipeline.KindTimeout, Message: "section expansion failed", Details: "deadline"}, http.StatusBadGateway},
		{"untyped", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeGenerator{err: tt.err}).Handler()
			rec := do(t, h, http.MethodPost, "/api/podcast", `{"topic":"t"}`)
			assert.Equal(t, tt.code, rec.Code)
			body := decodeError(t, rec)
			assert.NotEmpty(t, body.Error)
			assert.NotEmpty(t, body.Details)

			var pe *pipeline.Error
			if errors.As(tt.err, &pe) {
				assert.Equal(t, string(pe.Stage), body.Stage)
				assert.Equal(t, pe.Raw, body.Raw)
			}
		})
	}
}

func TestAudioStreams(t *testing.T) {
	synth := &fakeSynth{failAt: -1}
	h := New(&fakeGenerator{}, WithAudio(tts.NewDriver(synth))).Handler()

	body := `{"script":[{"id":1,"text":"Hello."},{"id":2,"text":"Hi."},{"id":1,"text":"Bye."}]}`
	rec := do(t, h, http.MethodPost, "/api/audio", body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "[v1:0][v2:1][v1:2]", rec.Body.String())
	assert.True(t, rec.Flushed)
}

func TestAudioAcceptsBareArray(t *testing.T) {
	h := New(&fakeGenerator{}, WithAudio(tts.NewDriver(&fakeSynth{failAt: -1}))).Handler()
	rec := do(t, h, http.MethodPost, "/api/audio", `[{"id":2,"text":"Only me."}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[v2:0]", rec.Body.String())
}

func TestAudioBadScripts(t *testing.T) {
	h := New(&fakeGenerator{}, WithAudio(tts.NewDriver(&fakeSynth{failAt: -1}))).Handler()

	for name, body := range map[string]string{
		"malformed":   `{"script":`,
		"bad speaker": `{"script":[{"id":3,"text":"x"}]}`,
		"empty text":  `{"script":[{"id":1,"text":"  "}]}`,
		"no lines":    `{"script":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/audio", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid script", decodeError(t, rec).Error)
		})
	}
}

func TestAudioNotConfigured(t *testing.T) {
	h := New(&fakeGenerator{}, WithAudioError(fmt.Errorf("elevenlabs: %w", tts.ErrMissingCredential))).Handler()
	rec := do(t, h, http.MethodPost, "/api/audio", `[{"id":1,"text":"Hello."}]`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "Audio synthesis is not configured", body.Error)
	assert.Contains(t, body.Details, "missing synthesis credential")
}

func TestAudioFirstSegmentFailure(t *testing.T) {
	h := New(&fakeGenerator{}, WithAudio(tts.NewDriver(&fakeSynth{failAt: 0}))).Handler()
	rec := do(t, h, http.MethodPost, "/api/audio", `[{"id":1,"text":"Hello."},{"id":2,"text":"Hi."}]`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Audio synthesis failed", decodeError(t, rec).Error)
}

func TestAudioLaterSegmentFailureTruncates(t *testing.T) {
	h := New(&fakeGenerator{}, WithAudio(tts.NewDriver(&fakeSynth{failAt: 2}))).Handler()
	body := `[{"id":1,"text":"a"},{"id":2,"text":"b"},{"id":1,"text":"c"},{"id":2,"text":"d"}]`
	rec := do(t, h, http.MethodPost, "/api/audio", body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "[v1:0]"))
	assert.NotContains(t, rec.Body.String(), "[v1:2]")
	assert.NotContains(t, rec.Body.String(), "[v2:3]")
}

func TestTopics(t *testing.T) {
	s := &fakeSuggester{list: []topics.Topic{{Title: "Deep sea mining", Description: "d", Tags: []string{"ocean"}}}}
	h := New(&fakeGenerator{}, WithTopics(s)).Handler()

	rec := do(t, h, http.MethodGet, "/api/topics?q=oceans", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Topics []topics.Topic `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Topics, 1)
	assert.Equal(t, "Deep sea mining", got.Topics[0].Title)

	rec = do(t, h, http.MethodGet, "/api/topics", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopicsErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"parse", &topics.ParseError{Raw: "nope", Cause: errors.New("no array")}, http.StatusInternalServerError},
		{"upstream", errors.New("overloaded"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakeGenerator{}, WithTopics(&fakeSuggester{err: tt.err})).Handler()
			rec := do(t, h, http.MethodGet, "/api/topics?q=x", "")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	ready := errors.New("search: missing credential")
	h := New(&fakeGenerator{}, WithReadiness(func(context.Context) error { return ready })).Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)

	rec := do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, decodeError(t, rec).Details, "missing credential")

	ready = nil
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/readyz", "").Code)
}

func TestMetricsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# HELP up"))
	})
	h := New(&fakeGenerator{}, WithMetrics(metrics)).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# HELP")

	assert.Equal(t, http.StatusNotFound, do(t, New(&fakeGenerator{}).Handler(), http.MethodGet, "/metrics", "").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h := New(&fakeGenerator{}).Handler()
	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/api/podcast", "").Code)
}
