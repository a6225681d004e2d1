package mcpserver

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/apresai/researchcast/internal/pipeline"
	"github.com/oklog/ulid/v2"
)

// JobStatus represents the state of a script generation job.
type JobStatus string

const (
	JobStatusSubmitted   JobStatus = "submitted"
	JobStatusResearching JobStatus = "researching"
	JobStatusOutlining   JobStatus = "outlining"
	JobStatusExpanding   JobStatus = "expanding"
	JobStatusNormalizing JobStatus = "normalizing"
	JobStatusComplete    JobStatus = "complete"
	JobStatusFailed      JobStatus = "failed"
)

// Job is the in-memory record of one generate_script call.
type Job struct {
	ID              string           `json:"script_id"`
	Topic           string           `json:"topic"`
	Prompt          string           `json:"prompt,omitempty"`
	Status          JobStatus        `json:"status"`
	ProgressPercent float64          `json:"progress_percent"`
	StageMessage    string           `json:"stage_message,omitempty"`
	ErrorMessage    string           `json:"error,omitempty"`
	ErrorKind       string           `json:"error_kind,omitempty"`
	Result          *pipeline.Result `json:"result,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (j *Job) terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusFailed
}

// Store keeps jobs for the life of the process. Finished jobs older than
// the TTL are evicted on the next write.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	ttl  time.Duration
	now  func() time.Time
}

// NewStore creates a store. A ttl of zero keeps finished jobs forever.
func NewStore(ttl time.Duration) *Store {
	return &Store{jobs: make(map[string]*Job), ttl: ttl, now: time.Now}
}

// NewJobID generates a ULID for a new job.
func NewJobID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// CreateJob inserts a new job with status=submitted.
func (s *Store) CreateJob(id, topic, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	now := s.now().UTC()
	s.jobs[id] = &Job{
		ID:        id,
		Topic:     topic,
		Prompt:    prompt,
		Status:    JobStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UpdateProgress records the stage of a running job. Finished jobs are
// left untouched.
func (s *Store) UpdateProgress(id string, status JobStatus, percent float64, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.terminal() {
		return
	}
	j.Status = status
	j.ProgressPercent = percent
	j.StageMessage = message
	j.UpdatedAt = s.now().UTC()
}

// CompleteJob stores the pipeline result.
func (s *Store) CompleteJob(id string, res *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	j.Status = JobStatusComplete
	j.ProgressPercent = 1
	j.StageMessage = "Complete"
	j.Result = res
	j.UpdatedAt = s.now().UTC()
}

// FailJob marks a job failed.
func (s *Store) FailJob(id, kind, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.terminal() {
		return
	}
	j.Status = JobStatusFailed
	j.ErrorKind = kind
	j.ErrorMessage = errMsg
	j.UpdatedAt = s.now().UTC()
}

// GetJob returns a copy of the job, or nil when it is unknown or evicted.
func (s *Store) GetJob(id string) *Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil
	}
	cp := *j
	return &cp
}

// ListJobs returns up to limit jobs, newest first.
func (s *Store) ListJobs(limit int) []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, *j)
	}
	s.mu.RUnlock()

	// ULIDs sort by creation time.
	sort.Slice(out, func(a, b int) bool { return out[a].ID > out[b].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.now().Add(-s.ttl)
	for id, j := range s.jobs {
		if j.terminal() && j.UpdatedAt.Before(cutoff) {
			delete(s.jobs, id)
		}
	}
}
