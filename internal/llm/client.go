package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("github.com/apresai/researchcast/internal/llm")

const (
	defaultTemperature    = 0.7
	defaultMaxTokens      = 1024
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 1 * time.Second
	defaultBackoffMult    = 2
	defaultAttemptTimeout = 120 * time.Second
)

// ClientOptions configures a Client. Zero values take the defaults above.
type ClientOptions struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	MaxAttempts    int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// Client adds retry with exponential backoff and a per-attempt deadline to a
// Provider.
type Client struct {
	provider Provider
	opts     ClientOptions
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error

	attempts metric.Int64Counter
	retries  metric.Int64Counter
	failures metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewClient wraps p.
func NewClient(p Provider, opts ClientOptions, logger *slog.Logger) *Client {
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = defaultAttemptTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	meter := otel.Meter("github.com/apresai/researchcast/internal/llm")
	c := &Client{provider: p, opts: opts, log: logger, sleep: sleepCtx}
	c.attempts, _ = meter.Int64Counter("llm.attempts", metric.WithDescription("Generation attempts sent to the provider"))
	c.retries, _ = meter.Int64Counter("llm.retries", metric.WithDescription("Generation attempts retried after a transient failure"))
	c.failures, _ = meter.Int64Counter("llm.failures", metric.WithDescription("Complete calls that ended in GenerationFailed"))
	c.latency, _ = meter.Float64Histogram("llm.attempt.duration", metric.WithUnit("s"))
	return c
}

// Provider returns the wrapped provider.
func (c *Client) Provider() Provider { return c.provider }

// Complete sends prompt to the provider. Transient failures (overload,
// per-attempt timeout) are retried up to MaxAttempts total, sleeping
// BaseDelay*2^i after failed attempt i. Cancellation of ctx is returned as
// is and never retried.
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	req := Request{
		Model:       c.opts.Model,
		System:      opts.System,
		Prompt:      prompt,
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	}
	if opts.Model != "" {
		req.Model = opts.Model
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	ctx, span := tracer.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", c.provider.Name()),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)
	providerAttr := metric.WithAttributes(attribute.String("provider", c.provider.Name()))

	var lastErr error
	delay := c.opts.BaseDelay
	attempt := 0
	for attempt < c.opts.MaxAttempts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		attempt++

		c.attempts.Add(ctx, 1, providerAttr)
		start := time.Now()
		text, err := c.attempt(ctx, req)
		c.latency.Record(ctx, time.Since(start).Seconds(), providerAttr)
		if err == nil {
			span.SetAttributes(attribute.Int("llm.attempts", attempt))
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		lastErr = err
		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Transient() {
			break
		}
		if attempt >= c.opts.MaxAttempts {
			break
		}

		c.log.WarnContext(ctx, "Generation attempt failed, retrying",
			"provider", c.provider.Name(),
			"attempt", attempt,
			"max_attempts", c.opts.MaxAttempts,
			"kind", pe.Kind.String(),
			"delay", delay,
			"error", err,
		)
		c.retries.Add(ctx, 1, providerAttr)
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= defaultBackoffMult
	}

	c.failures.Add(ctx, 1, providerAttr)
	failed := &GenerationFailedError{Attempts: attempt, Err: lastErr}
	span.RecordError(failed)
	span.SetStatus(codes.Error, "generation failed")
	return "", failed
}

// attempt runs one provider call under the per-attempt deadline. The call
// runs in its own goroutine so a provider that ignores ctx still cannot hold
// the caller past the deadline.
func (c *Client) attempt(ctx context.Context, req Request) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.opts.AttemptTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := c.provider.Generate(attemptCtx, req)
		done <- result{text, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
			return "", c.timeoutError()
		}
		return r.text, r.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", c.timeoutError()
	}
}

func (c *Client) timeoutError() error {
	return &ProviderError{
		Provider: c.provider.Name(),
		Kind:     KindTimeout,
		Err:      fmt.Errorf("attempt exceeded %s", c.opts.AttemptTimeout),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
