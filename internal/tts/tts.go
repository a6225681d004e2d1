// Package tts turns normalized utterances into a single MP3 stream by
// calling a speech provider once per utterance.
package tts

import (
	"context"
	"io"
)

// Voice is a provider voice plus the settings used for one speaker.
type Voice struct {
	ID              string
	Name            string
	Stability       float64
	SimilarityBoost float64
}

// VoiceMap assigns a voice to each of the two speakers.
type VoiceMap struct {
	Speaker1 Voice
	Speaker2 Voice
}

// For returns the voice for speaker 1 or 2.
func (m VoiceMap) For(speaker int) (Voice, bool) {
	switch speaker {
	case 1:
		return m.Speaker1, true
	case 2:
		return m.Speaker2, true
	default:
		return Voice{}, false
	}
}

// withOverrides replaces voice ids where an override is set.
func (m VoiceMap) withOverrides(voice1, voice2 string) VoiceMap {
	if voice1 != "" {
		m.Speaker1.ID, m.Speaker1.Name = voice1, voice1
	}
	if voice2 != "" {
		m.Speaker2.ID, m.Speaker2.Name = voice2, voice2
	}
	return m
}

// Request is one synthesis call. PreviousRequestIDs carries the chaining
// context for providers that support it; others ignore it.
type Request struct {
	Text               string
	Voice              Voice
	PreviousRequestIDs []string
}

// Audio is a provider response. Body streams MP3 bytes and must be closed.
// RequestID is empty when the provider does not report one.
type Audio struct {
	Body      io.ReadCloser
	RequestID string
}

// Synthesizer converts one piece of text to speech.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (*Audio, error)
	DefaultVoices() VoiceMap
}
