package tts

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned when the provider API key is absent.
	ErrMissingCredential = errors.New("missing synthesis credential")

	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidSpeaker is returned for utterances whose speaker is not 1 or 2.
	ErrInvalidSpeaker = errors.New("speaker must be 1 or 2")
)

// SynthesisError provides detailed error information from TTS providers.
type SynthesisError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *SynthesisError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Cause }

// SegmentError reports the utterance that stopped a stream.
type SegmentError struct {
	Index   int
	Speaker int
	Cause   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("synthesize segment %d (speaker %d): %v", e.Index, e.Speaker, e.Cause)
}

func (e *SegmentError) Unwrap() error { return e.Cause }
