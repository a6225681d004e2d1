// Package httpapi exposes script generation, audio streaming and topic
// suggestions over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/apresai/researchcast/internal/config"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/script"
	"github.com/apresai/researchcast/internal/topics"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultMaxBodySize int64 = 1 << 20

// Generator runs the script pipeline. *pipeline.Pipeline satisfies it.
type Generator interface {
	Run(ctx context.Context, req pipeline.Request, extra ...progress.Callback) (*pipeline.Result, error)
}

// Suggester proposes topics for an interest. *topics.Suggester satisfies it.
type Suggester interface {
	Suggest(ctx context.Context, interest string) ([]topics.Topic, error)
}

// AudioStreamer synthesizes a script in the background. *tts.Driver
// satisfies it.
type AudioStreamer interface {
	StreamAsync(ctx context.Context, utterances []script.Utterance) io.ReadCloser
}

type Server struct {
	gen      Generator
	topics   Suggester
	audio    AudioStreamer
	audioErr error
	ready    func(context.Context) error
	metrics  http.Handler
	logger   *slog.Logger
	maxBody  int64
}

type Option func(*Server)

func WithTopics(s Suggester) Option {
	return func(srv *Server) { srv.topics = s }
}

func WithAudio(a AudioStreamer) Option {
	return func(srv *Server) { srv.audio = a }
}

// WithAudioError records why audio synthesis could not be configured.
// /api/audio answers 500 with this error until a streamer is set.
func WithAudioError(err error) Option {
	return func(srv *Server) { srv.audioErr = err }
}

// WithReadiness sets the check behind /readyz.
func WithReadiness(fn func(context.Context) error) Option {
	return func(srv *Server) { srv.ready = fn }
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(srv *Server) { srv.metrics = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

func WithMaxBodySize(n int64) Option {
	return func(srv *Server) {
		if n > 0 {
			srv.maxBody = n
		}
	}
}

func New(gen Generator, opts ...Option) *Server {
	s := &Server{
		gen:     gen,
		logger:  slog.Default(),
		maxBody: defaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/podcast", s.handlePodcast)
	mux.HandleFunc("POST /api/audio", s.handleAudio)
	mux.HandleFunc("GET /api/topics", s.handleTopics)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return otelhttp.NewHandler(s.logRequests(mux), "researchcast-api")
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests for at most cfg.ShutdownTimeout.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.HTTPConfig) error {
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("HTTP API listening", "addr", addr)

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("HTTP API stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
