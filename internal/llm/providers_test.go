package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	"github.com/apresai/researchcast/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicProviderGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"hello "},{"type":"text","text":"world"}],
			"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":3,"output_tokens":2}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider("test-key", anthropicoption.WithBaseURL(srv.URL))
	require.NoError(t, err)

	got, err := p.Generate(context.Background(), Request{Model: "claude-test", Prompt: "hi", System: "sys", MaxTokens: 64, Temperature: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "claude-test", body["model"])
	assert.EqualValues(t, 64, body["max_tokens"])
}

func TestAnthropicProviderClassifiesOverload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(529)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider("test-key", anthropicoption.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Model: "m", Prompt: "hi", MaxTokens: 10})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindOverloaded, pe.Kind)
	assert.Equal(t, 529, pe.StatusCode)
	assert.True(t, pe.Transient())
}

func TestAnthropicProviderMissingKey(t *testing.T) {
	_, err := NewAnthropicProvider("")
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestOpenAIProviderGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test", srv.URL)
	require.NoError(t, err)

	got, err := p.Generate(context.Background(), Request{Model: "gpt-test", Prompt: "hello", MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)
}

func TestNewFromConfigUsesProviderDefaultModel(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := config.Default().LLM
	cfg.Provider = "openai"
	cfg.OpenAIAPIKey = "sk-test"
	cfg.OpenAIBaseURL = srv.URL

	c, err := NewFromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "hello", Options{})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", body["model"])
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-5-20250929", DefaultModel(""))
	assert.Equal(t, "claude-sonnet-4-5-20250929", DefaultModel("anthropic"))
	assert.Equal(t, "gpt-4o", DefaultModel("openai"))
	assert.Equal(t, "us.amazon.nova-2-lite-v1:0", DefaultModel("bedrock"))
}

func TestOpenAIProviderClassifiesAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIProvider("sk-test", srv.URL)
	require.NoError(t, err)

	_, err = p.Generate(context.Background(), Request{Model: "gpt-test", Prompt: "hello", MaxTokens: 10})
	assert.Equal(t, KindAuth, KindOf(err))
}

type fakeConverser struct {
	out *bedrockruntime.ConverseOutput
	err error
	in  *bedrockruntime.ConverseInput
}

func (f *fakeConverser) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func TestBedrockProviderGenerate(t *testing.T) {
	fc := &fakeConverser{out: &bedrockruntime.ConverseOutput{
		Output: &types.ConverseOutputMemberMessage{Value: types.Message{
			Role:    types.ConversationRoleAssistant,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "nova says hi"}},
		}},
	}}
	p := NewBedrockProviderWithClient(fc)

	got, err := p.Generate(context.Background(), Request{Model: "us.amazon.nova-2-lite-v1:0", Prompt: "hi", System: "sys", MaxTokens: 50, Temperature: 0.4})
	require.NoError(t, err)
	assert.Equal(t, "nova says hi", got)
	assert.Equal(t, "us.amazon.nova-2-lite-v1:0", aws.ToString(fc.in.ModelId))
	assert.Len(t, fc.in.System, 1)
	assert.Equal(t, int32(50), aws.ToInt32(fc.in.InferenceConfig.MaxTokens))
}

func TestBedrockProviderClassifies(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{&types.ThrottlingException{Message: aws.String("slow down")}, KindOverloaded},
		{&types.ServiceUnavailableException{Message: aws.String("busy")}, KindOverloaded},
		{&types.ModelTimeoutException{Message: aws.String("slow model")}, KindTimeout},
		{&types.AccessDeniedException{Message: aws.String("no")}, KindAuth},
		{errors.New("boom"), KindOther},
	}
	for _, tt := range tests {
		p := NewBedrockProviderWithClient(&fakeConverser{err: tt.err})
		_, err := p.Generate(context.Background(), Request{Model: "m", Prompt: "p", MaxTokens: 1})
		assert.Equal(t, tt.want, KindOf(err), tt.err.Error())
	}
}
