// Package outline turns a research bundle into a structured episode outline
// with a single generation call.
package outline

import "fmt"

// Subtopic count bounds. Responses above MaxSubtopics are truncated.
const (
	MinSubtopics = 3
	MaxSubtopics = 6
)

type Outline struct {
	Title        string       `json:"title"`
	Introduction Introduction `json:"introduction"`
	Subtopics    []Subtopic   `json:"subtopics"`
	Conclusion   Conclusion   `json:"conclusion"`
}

type Introduction struct {
	Hook           string   `json:"hook"`
	MainThemes     []string `json:"mainThemes"`
	NarrativeSetup string   `json:"narrativeSetup"`
}

type Subtopic struct {
	Title               string `json:"title"`
	KeyPoint            string `json:"keyPoint"`
	SupportingEvidence  string `json:"supportingEvidence"`
	NarrativeConnection string `json:"narrativeConnection"`
}

type Conclusion struct {
	KeyInsights         []string `json:"keyInsights"`
	FascinatingElements []string `json:"fascinatingElements"`
	FinalThoughts       string   `json:"finalThoughts"`
}

// ParseError is returned when the model's response cannot be turned into an
// Outline. Raw holds the full response for diagnostics.
type ParseError struct {
	Raw   string
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse outline: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
