package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsModelID      = "eleven_turbo_v2"
	elevenLabsOutputFormat = "mp3_44100_128"
	elevenLabsTimeout      = 60 * time.Second

	elevenLabsDefaultVoice1 = "UgBBYS2sOqTuMpoF3BR0"
	elevenLabsDefaultVoice2 = "kPzsL2i3teMYv0FxEYQ6"
)

type elevenLabsRequest struct {
	Text               string                `json:"text"`
	ModelID            string                `json:"model_id"`
	VoiceSettings      elevenLabsVoiceParams `json:"voice_settings"`
	PreviousRequestIDs []string              `json:"previous_request_ids,omitempty"`
}

type elevenLabsVoiceParams struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsSynthesizer calls the ElevenLabs streaming endpoint and chains
// requests through previous_request_ids for consistent prosody.
type ElevenLabsSynthesizer struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	voices  VoiceMap
}

// ElevenLabsOption configures an ElevenLabsSynthesizer.
type ElevenLabsOption func(*ElevenLabsSynthesizer)

func WithElevenLabsBaseURL(url string) ElevenLabsOption {
	return func(s *ElevenLabsSynthesizer) {
		if url != "" {
			s.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithElevenLabsClient(client *http.Client) ElevenLabsOption {
	return func(s *ElevenLabsSynthesizer) { s.client = client }
}

func WithElevenLabsModel(model string) ElevenLabsOption {
	return func(s *ElevenLabsSynthesizer) {
		if model != "" {
			s.model = model
		}
	}
}

// WithElevenLabsVoices overrides the voice ids; empty values keep defaults.
func WithElevenLabsVoices(voice1, voice2 string) ElevenLabsOption {
	return func(s *ElevenLabsSynthesizer) { s.voices = s.voices.withOverrides(voice1, voice2) }
}

func NewElevenLabsSynthesizer(apiKey string, opts ...ElevenLabsOption) *ElevenLabsSynthesizer {
	s := &ElevenLabsSynthesizer{
		apiKey:  apiKey,
		baseURL: elevenLabsBaseURL,
		model:   elevenLabsModelID,
		client:  &http.Client{Timeout: elevenLabsTimeout},
		voices:  elevenLabsDefaultVoices(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ElevenLabsSynthesizer) Name() string { return "elevenlabs" }

func (s *ElevenLabsSynthesizer) DefaultVoices() VoiceMap { return s.voices }

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if s.apiKey == "" {
		return nil, ErrMissingCredential
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    req.Text,
		ModelID: s.model,
		VoiceSettings: elevenLabsVoiceParams{
			Stability:       req.Voice.Stability,
			SimilarityBoost: req.Voice.SimilarityBoost,
		},
		PreviousRequestIDs: req.PreviousRequestIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream?output_format=%s", s.baseURL, req.Voice.ID, elevenLabsOutputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("xi-api-key", s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	res, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &SynthesisError{Provider: s.Name(), Message: "request failed", Cause: err}
	}
	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &SynthesisError{
			Provider:   s.Name(),
			StatusCode: res.StatusCode,
			Message:    strings.TrimSpace(string(errBody)),
		}
	}

	return &Audio{Body: res.Body, RequestID: res.Header.Get("request-id")}, nil
}

func elevenLabsDefaultVoices() VoiceMap {
	return VoiceMap{
		Speaker1: Voice{ID: elevenLabsDefaultVoice1, Name: "Mark", Stability: 0.5, SimilarityBoost: 0.5},
		Speaker2: Voice{ID: elevenLabsDefaultVoice2, Name: "Brittney", Stability: 0.45, SimilarityBoost: 0.7},
	}
}
