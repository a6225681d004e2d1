package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/apresai/researchcast/internal/observability"
	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/apresai/researchcast/internal/progress"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// progressInterval throttles store writes except on stage transitions.
const progressInterval = 2 * time.Second

// Generator runs the script pipeline. *pipeline.Pipeline satisfies it.
type Generator interface {
	Run(ctx context.Context, req pipeline.Request, extra ...progress.Callback) (*pipeline.Result, error)
}

// ErrTooManyTasks is returned when MaxTasks generations are already running.
var ErrTooManyTasks = errors.New("max concurrent tasks reached")

// TaskManager runs generate_script calls in the background.
type TaskManager struct {
	gen     Generator
	store   *Store
	log     *slog.Logger
	baseCtx context.Context // cancelled on SIGTERM for graceful shutdown

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	maxTasks int
	running  int
	wg       sync.WaitGroup
}

// NewTaskManager creates a task manager.
// baseCtx should be cancelled on SIGTERM so pipeline goroutines can clean up.
func NewTaskManager(baseCtx context.Context, gen Generator, store *Store, maxTasks int, logger *slog.Logger) *TaskManager {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	return &TaskManager{
		gen:      gen,
		store:    store,
		log:      logger,
		baseCtx:  baseCtx,
		cancels:  make(map[string]context.CancelFunc),
		maxTasks: maxTasks,
	}
}

// StartTask records a job and starts the pipeline in a goroutine. It
// returns the job ID immediately.
func (tm *TaskManager) StartTask(ctx context.Context, req pipeline.Request) (string, error) {
	id, err := NewJobID()
	if err != nil {
		return "", err
	}

	tm.mu.Lock()
	if tm.running >= tm.maxTasks {
		tm.mu.Unlock()
		return "", fmt.Errorf("%w (%d)", ErrTooManyTasks, tm.maxTasks)
	}
	tm.running++

	// The task outlives the tool call, so it derives from baseCtx and only
	// carries the caller's span for linking.
	taskCtx := observability.DetachTraceContextFrom(ctx, tm.baseCtx)
	taskCtx, cancel := context.WithCancel(taskCtx)
	tm.cancels[id] = cancel
	tm.wg.Add(1)
	tm.mu.Unlock()

	tm.store.CreateJob(id, req.Topic, req.Prompt)
	go tm.runPipeline(taskCtx, id, req)

	return id, nil
}

// CancelTask cancels a running task. It reports whether the task was
// running.
func (tm *TaskManager) CancelTask(id string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	cancel, ok := tm.cancels[id]
	if ok {
		cancel()
	}
	return ok
}

// Running returns the number of tasks in flight.
func (tm *TaskManager) Running() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.running
}

// Wait blocks until every started task has finished.
func (tm *TaskManager) Wait() {
	tm.wg.Wait()
}

func (tm *TaskManager) runPipeline(ctx context.Context, id string, req pipeline.Request) {
	defer tm.wg.Done()
	ctx, span := tracer.Start(ctx, "task.generate_script",
		trace.WithAttributes(attribute.String("script_id", id)),
	)
	defer span.End()

	defer func() {
		tm.mu.Lock()
		if cancel, ok := tm.cancels[id]; ok {
			cancel()
			delete(tm.cancels, id)
		}
		tm.running--
		tm.mu.Unlock()
	}()

	log := tm.log.With("script_id", id)

	// Parallel expansion reports sections from several goroutines.
	var (
		progressMu sync.Mutex
		lastWrite  time.Time
		lastStage  progress.Stage
	)
	onProgress := func(evt progress.Event) {
		if evt.Error != nil || evt.Stage == progress.StageComplete {
			return
		}
		progressMu.Lock()
		defer progressMu.Unlock()
		now := time.Now()
		stageChanged := evt.Stage != lastStage
		if !stageChanged && now.Sub(lastWrite) < progressInterval {
			return
		}
		if stageChanged {
			span.AddEvent("stage_transition",
				trace.WithAttributes(
					attribute.String("stage", string(evt.Stage)),
					attribute.Float64("percent", evt.Percent),
				),
			)
		}
		tm.store.UpdateProgress(id, mapStage(evt.Stage), evt.Percent, evt.Message)
		lastWrite = now
		lastStage = evt.Stage
	}

	start := time.Now()
	log.InfoContext(ctx, "Script generation starting", "topic", req.Topic)
	res, err := tm.gen.Run(ctx, req, onProgress)
	elapsed := time.Since(start).Round(time.Second)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pipeline failed")
		kind := string(pipeline.KindUpstream)
		var pe *pipeline.Error
		if errors.As(err, &pe) {
			kind = string(pe.Kind)
		}
		if tm.baseCtx.Err() != nil {
			err = fmt.Errorf("server shutdown during processing: %w", err)
		}
		log.ErrorContext(ctx, "Script generation failed", "error", err, "elapsed", elapsed.String())
		tm.store.FailJob(id, kind, err.Error())
		return
	}

	tm.store.CompleteJob(id, res)
	span.SetAttributes(attribute.Int("utterances", len(res.Script)))
	log.InfoContext(ctx, "Script generation complete",
		"run_id", res.RunID,
		"utterances", len(res.Script),
		"warnings", len(res.Warnings),
		"elapsed", elapsed.String())
}

func mapStage(s progress.Stage) JobStatus {
	switch s {
	case progress.StageResearch:
		return JobStatusResearching
	case progress.StageOutline:
		return JobStatusOutlining
	case progress.StageExpand:
		return JobStatusExpanding
	case progress.StageNormalize:
		return JobStatusNormalizing
	default:
		return JobStatusSubmitted
	}
}
