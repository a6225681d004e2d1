// Package llm wraps text-generation providers behind a single retrying,
// time-bounded Complete call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredential is returned by provider constructors when the API key
// (or equivalent) is absent. It is a configuration error and never retried.
var ErrMissingCredential = errors.New("missing credential")

// Request is what the client hands a provider for a single attempt.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Provider is a text-generation backend. Implementations classify their own
// failures into *ProviderError so the client never inspects SDK types.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Completer is the narrow interface consumed by the pipeline stages.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
}

// Options overrides client defaults for one Complete call. Zero values keep
// the default; Temperature is a pointer because 0 is a meaningful setting.
type Options struct {
	Model       string
	System      string
	Temperature *float64
	MaxTokens   int
}

// Float returns a pointer to v, for Options.Temperature.
func Float(v float64) *float64 { return &v }

// ErrorKind classifies a provider failure.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindOverloaded
	KindTimeout
	KindAuth
)

func (k ErrorKind) String() string {
	switch k {
	case KindOverloaded:
		return "overloaded"
	case KindTimeout:
		return "timeout"
	case KindAuth:
		return "auth"
	default:
		return "other"
	}
}

// ProviderError is a classified failure from one provider attempt.
type ProviderError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	return e.Kind == KindOverloaded || e.Kind == KindTimeout
}

// GenerationFailedError is returned once the retry budget is spent or a
// non-transient failure occurs.
type GenerationFailedError struct {
	Attempts int
	Err      error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

// KindOf returns the classification of err, or KindOther when err carries no
// *ProviderError.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindOther
}

// classifyStatus maps an HTTP status and message to an ErrorKind. The message
// check covers providers that report overload inside a 200/500 body.
func classifyStatus(status int, msg string) ErrorKind {
	switch {
	case status == 529 || status == 503:
		return KindOverloaded
	case status == 401 || status == 403:
		return KindAuth
	case status == 408 || status == 504:
		return KindTimeout
	case strings.Contains(strings.ToLower(msg), "overloaded"):
		return KindOverloaded
	default:
		return KindOther
	}
}
