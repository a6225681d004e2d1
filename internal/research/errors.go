package research

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyTopic is returned for an empty or whitespace-only topic.
	ErrEmptyTopic = errors.New("topic must not be empty")
	// ErrMissingCredential is returned when no search API key is configured.
	ErrMissingCredential = errors.New("missing search credential")
)

// SearchUnavailableError reports a failed search provider call.
type SearchUnavailableError struct {
	StatusCode int
	Err        error
}

func (e *SearchUnavailableError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search unavailable (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("search unavailable: %v", e.Err)
}

func (e *SearchUnavailableError) Unwrap() error { return e.Err }
