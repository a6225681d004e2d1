// Package progress carries pipeline progress events to a terminal renderer
// or a NATS subject.
package progress

import "time"

// Stage identifies which pipeline stage is active.
type Stage string

const (
	StageResearch  Stage = "research"
	StageOutline   Stage = "outline"
	StageExpand    Stage = "expand"
	StageNormalize Stage = "normalize"
	StageAudio     Stage = "audio"
	StageComplete  Stage = "complete"
)

// Event carries progress information from the pipeline to its sinks.
type Event struct {
	RunID   string        `json:"run_id,omitempty"`
	Stage   Stage         `json:"stage"`
	Message string        `json:"message"`
	Percent float64       `json:"percent"` // 0.0–1.0
	Elapsed time.Duration `json:"elapsed_ns"`

	// Set during StageExpand as each unit finishes.
	Unit      string `json:"unit,omitempty"`
	UnitNum   int    `json:"unit_num,omitempty"`
	UnitTotal int    `json:"unit_total,omitempty"`
	Words     int    `json:"words,omitempty"`

	Error error `json:"-"`
	// ErrorText mirrors Error for serialized sinks.
	ErrorText string `json:"error,omitempty"`
	// OutputFile is set on StageComplete when a result was written to disk.
	OutputFile string `json:"output_file,omitempty"`
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}

// Multi fans an event out to every non-nil callback in order.
func Multi(cbs ...Callback) Callback {
	return func(e Event) {
		for _, cb := range cbs {
			if cb != nil {
				cb(e)
			}
		}
	}
}
