package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
)

const (
	googleDefaultVoice1 = "en-US-Chirp3-HD-Charon"
	googleDefaultVoice2 = "en-US-Chirp3-HD-Leda"
)

// GoogleSpeechClient is the subset of the Cloud TTS client used here.
type GoogleSpeechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
}

// GoogleSynthesizer uses Google Cloud Text-to-Speech (Chirp 3 HD voices).
// Request chaining is not supported and PreviousRequestIDs is ignored.
type GoogleSynthesizer struct {
	client GoogleSpeechClient
	voices VoiceMap
}

// NewGoogleSynthesizer creates a Cloud TTS client using application default
// credentials. The returned close func releases the client connection.
func NewGoogleSynthesizer(ctx context.Context, voice1, voice2 string) (*GoogleSynthesizer, func() error, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("create Google TTS client: %w", err)
	}
	return NewGoogleSynthesizerWithClient(client, voice1, voice2), client.Close, nil
}

func NewGoogleSynthesizerWithClient(client GoogleSpeechClient, voice1, voice2 string) *GoogleSynthesizer {
	voices := VoiceMap{
		Speaker1: Voice{ID: googleDefaultVoice1, Name: "Charon"},
		Speaker2: Voice{ID: googleDefaultVoice2, Name: "Leda"},
	}
	return &GoogleSynthesizer{client: client, voices: voices.withOverrides(voice1, voice2)}
}

func (p *GoogleSynthesizer) Name() string { return "google" }

func (p *GoogleSynthesizer) DefaultVoices() VoiceMap { return p.voices }

func (p *GoogleSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	resp, err := p.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: "en-US",
			Name:         req.Voice.ID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, &SynthesisError{Provider: p.Name(), Message: "synthesize", Cause: err}
	}
	return &Audio{Body: io.NopCloser(bytes.NewReader(resp.AudioContent))}, nil
}
