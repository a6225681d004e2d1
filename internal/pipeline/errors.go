package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/apresai/researchcast/internal/llm"
	"github.com/apresai/researchcast/internal/outline"
	"github.com/apresai/researchcast/internal/progress"
	"github.com/apresai/researchcast/internal/research"
)

// ErrorKind groups failures by who can fix them.
type ErrorKind string

const (
	KindInvalidInput  ErrorKind = "invalid_input"
	KindConfiguration ErrorKind = "configuration"
	KindUpstream      ErrorKind = "upstream"
	KindParse         ErrorKind = "parse"
	KindTimeout       ErrorKind = "timeout"
)

// Error is returned by Run. Raw carries the model output for parse failures.
type Error struct {
	Stage   progress.Stage
	Kind    ErrorKind
	Message string
	Details string
	Raw     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// classify wraps err for stage, picking the Kind from the error chain.
func classify(stage progress.Stage, msg string, err error) *Error {
	pe := &Error{Stage: stage, Kind: KindUpstream, Message: msg, Details: err.Error(), Err: err}

	var (
		parseErr *outline.ParseError
		provErr  *llm.ProviderError
	)
	switch {
	case errors.Is(err, research.ErrEmptyTopic):
		pe.Kind = KindInvalidInput
	case errors.Is(err, research.ErrMissingCredential), errors.Is(err, llm.ErrMissingCredential):
		pe.Kind = KindConfiguration
	case errors.As(err, &provErr) && provErr.Kind == llm.KindAuth:
		pe.Kind = KindConfiguration
	case errors.As(err, &parseErr):
		pe.Kind = KindParse
		pe.Raw = parseErr.Raw
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		pe.Kind = KindTimeout
	}
	return pe
}
