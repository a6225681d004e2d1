package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/apresai/researchcast/internal/config"
)

// NewFromConfig builds the configured synthesizer and a Driver around it.
// The returned closer releases provider resources.
func NewFromConfig(ctx context.Context, cfg config.TTSConfig, logger *slog.Logger) (*Driver, io.Closer, error) {
	var (
		synth  Synthesizer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Provider {
	case "", "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return nil, nil, fmt.Errorf("elevenlabs: %w", ErrMissingCredential)
		}
		synth = NewElevenLabsSynthesizer(cfg.ElevenLabsAPIKey,
			WithElevenLabsBaseURL(cfg.ElevenLabsURL),
			WithElevenLabsModel(cfg.Model),
			WithElevenLabsVoices(cfg.Voice1, cfg.Voice2),
		)
	case "google":
		g, closeFn, err := NewGoogleSynthesizer(ctx, cfg.Voice1, cfg.Voice2)
		if err != nil {
			return nil, nil, err
		}
		synth, closer = g, closerFunc(closeFn)
	case "polly":
		awsCfg, err := config.LoadAWS(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, nil, err
		}
		synth = NewPollySynthesizer(awsCfg, cfg.Voice1, cfg.Voice2)
	default:
		return nil, nil, fmt.Errorf("unknown TTS provider %q: choose elevenlabs, google, or polly", cfg.Provider)
	}

	d := NewDriver(synth, WithRateLimit(cfg.RequestsPerSec), WithLogger(logger))
	return d, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
