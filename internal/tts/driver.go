package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/apresai/researchcast/internal/script"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("github.com/apresai/researchcast/internal/tts")

// Report summarizes what a stream wrote.
type Report struct {
	Segments int   `json:"segments"`
	Bytes    int64 `json:"bytes"`
}

// Driver synthesizes utterances strictly in order and writes each
// segment's audio to the output as it arrives.
type Driver struct {
	synth   Synthesizer
	voices  VoiceMap
	chain   int
	limiter *rate.Limiter
	logger  *slog.Logger

	segments metric.Int64Counter
	bytes    metric.Int64Counter
	failures metric.Int64Counter
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

func WithVoices(v VoiceMap) DriverOption {
	return func(d *Driver) { d.voices = v }
}

// WithRateLimit caps synthesis calls per second. rps <= 0 disables it.
func WithRateLimit(rps float64) DriverOption {
	return func(d *Driver) {
		if rps > 0 {
			d.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithChainLength sets how many previous request ids accompany each call.
func WithChainLength(n int) DriverOption {
	return func(d *Driver) { d.chain = n }
}

func WithLogger(l *slog.Logger) DriverOption {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDriver(s Synthesizer, opts ...DriverOption) *Driver {
	d := &Driver{
		synth:  s,
		voices: s.DefaultVoices(),
		chain:  DefaultChainLength,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	meter := otel.Meter("github.com/apresai/researchcast/internal/tts")
	d.segments, _ = meter.Int64Counter("tts.segments", metric.WithDescription("Utterances synthesized and written"))
	d.bytes, _ = meter.Int64Counter("tts.bytes", metric.WithUnit("By"))
	d.failures, _ = meter.Int64Counter("tts.failures", metric.WithDescription("Streams stopped by a segment failure"))
	return d
}

func (d *Driver) Provider() string { return d.synth.Name() }

// Stream synthesizes every utterance in order and copies the audio to w.
// The first failing segment stops the stream; bytes already written stay
// written and the error is a *SegmentError.
func (d *Driver) Stream(ctx context.Context, utterances []script.Utterance, w io.Writer) (Report, error) {
	ctx, span := tracer.Start(ctx, "tts.Stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("tts.provider", d.synth.Name()),
		attribute.Int("tts.utterances", len(utterances)),
	)

	var rep Report
	queue := NewRequestIDQueue(d.chain)
	out := newFlushWriter(w)
	attrs := metric.WithAttributes(attribute.String("provider", d.synth.Name()))

	for i, u := range utterances {
		d.logger.DebugContext(ctx, "Synthesizing segment",
			"index", i, "total", len(utterances), "speaker", u.Speaker, "chars", len(u.Text))

		n, requestID, err := d.segment(ctx, u, queue.Snapshot(), out)
		rep.Bytes += n
		d.bytes.Add(ctx, n, attrs)
		if err != nil {
			err = &SegmentError{Index: i, Speaker: u.Speaker, Cause: err}
			d.failures.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			d.logger.ErrorContext(ctx, "Audio stream stopped",
				"index", i, "segments_written", rep.Segments, "bytes", rep.Bytes, "error", err)
			return rep, err
		}
		queue.Push(requestID)
		rep.Segments++
		d.segments.Add(ctx, 1, attrs)
	}

	d.logger.InfoContext(ctx, "Audio stream complete", "segments", rep.Segments, "bytes", rep.Bytes)
	return rep, nil
}

func (d *Driver) segment(ctx context.Context, u script.Utterance, previous []string, w io.Writer) (int64, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	voice, ok := d.voices.For(u.Speaker)
	if !ok {
		return 0, "", fmt.Errorf("%w: got %d", ErrInvalidSpeaker, u.Speaker)
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return 0, "", err
		}
	}

	audio, err := d.synth.Synthesize(ctx, Request{Text: u.Text, Voice: voice, PreviousRequestIDs: previous})
	if err != nil {
		return 0, "", err
	}
	defer audio.Body.Close()

	n, err := io.Copy(w, audio.Body)
	if err != nil {
		return n, "", fmt.Errorf("copy audio: %w", err)
	}
	return n, audio.RequestID, nil
}

// StreamAsync runs Stream in a background goroutine and returns the read
// side of a pipe. A failed stream surfaces as a read error after the bytes
// written so far. Closing the reader stops synthesis at the next write.
func (d *Driver) StreamAsync(ctx context.Context, utterances []script.Utterance) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		var err error
		defer func() { pw.CloseWithError(err) }()
		_, err = d.Stream(ctx, utterances, pw)
	}()
	return pr
}

// flushWriter flushes after every write when the destination supports it,
// so HTTP clients receive audio as each chunk arrives.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func newFlushWriter(w io.Writer) *flushWriter {
	f, _ := w.(http.Flusher)
	return &flushWriter{w: w, f: f}
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if fw.f != nil && n > 0 {
		fw.f.Flush()
	}
	return n, err
}
