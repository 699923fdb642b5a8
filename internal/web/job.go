package web

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lrcfetch/internal/pipeline"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusCancelled JobStatus = "cancelled"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Job is one lyrics run over a file, directory or playlist.
type Job struct {
	ID          string
	Request     FetchRequest
	Status      JobStatus
	Progress    int
	Total       int
	Current     string
	Stats       pipeline.Stats
	Warnings    []string
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	Cancel      context.CancelFunc
}

func (j *Job) snapshot() *Job {
	c := *j
	c.Warnings = append([]string(nil), j.Warnings...)
	return &c
}

// stamp records start and completion times when the status moves.
func (j *Job) stamp(prev JobStatus, now time.Time) {
	if prev == j.Status {
		return
	}
	switch {
	case j.Status == StatusRunning && j.StartedAt == nil:
		j.StartedAt = &now
	case j.Status.Done() && j.CompletedAt == nil:
		j.CompletedAt = &now
	}
}

type subscribers map[chan *Job]struct{}

// JobManager keeps jobs in memory and fans their updates out to
// subscribers. Finished jobs are dropped after the retention period.
type JobManager struct {
	mu        sync.RWMutex
	jobs      map[string]*Job
	subs      map[string]subscribers
	retention time.Duration
	now       func() time.Time
}

const (
	defaultRetention = time.Hour
	cleanupInterval  = 10 * time.Minute
	maxWarnings      = 50
	updateBuffer     = 10
)

// NewJobManager creates an empty job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:      make(map[string]*Job),
		subs:      make(map[string]subscribers),
		retention: defaultRetention,
		now:       time.Now,
	}
}

// StartCleanup prunes finished jobs periodically until ctx is cancelled.
func (jm *JobManager) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jm.prune()
			}
		}
	}()
}

// prune drops jobs that finished more than the retention period ago.
func (jm *JobManager) prune() int {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	cutoff := jm.now().Add(-jm.retention)
	removed := 0
	for id, job := range jm.jobs {
		if job.CompletedAt == nil || !job.CompletedAt.Before(cutoff) {
			continue
		}
		delete(jm.jobs, id)
		delete(jm.subs, id)
		removed++
	}
	return removed
}

// CreateJob registers a pending job for req
func (jm *JobManager) CreateJob(req FetchRequest) *Job {
	job := &Job{
		ID:        "job_" + uuid.NewString(),
		Request:   req,
		Status:    StatusPending,
		CreatedAt: jm.now(),
	}

	jm.mu.Lock()
	jm.jobs[job.ID] = job
	jm.mu.Unlock()

	return job.snapshot()
}

// GetJob returns a copy of the job with the given ID
func (jm *JobManager) GetJob(id string) (*Job, error) {
	jm.mu.RLock()
	defer jm.mu.RUnlock()

	job, ok := jm.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	return job.snapshot(), nil
}

// ListJobs returns copies of all jobs, oldest first
func (jm *JobManager) ListJobs() []*Job {
	jm.mu.RLock()
	jobs := make([]*Job, 0, len(jm.jobs))
	for _, job := range jm.jobs {
		jobs = append(jobs, job.snapshot())
	}
	jm.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].CreatedAt.Before(jobs[b].CreatedAt)
	})
	return jobs
}

// UpdateJob applies fn to the job under the manager lock and sends a copy
// of the result to every subscriber.
func (jm *JobManager) UpdateJob(id string, fn func(*Job)) error {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	job, ok := jm.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	prev := job.Status
	fn(job)
	job.stamp(prev, jm.now())

	update := job.snapshot()
	for ch := range jm.subs[id] {
		deliver(ch, update)
	}
	return nil
}

// deliver never blocks. A slow subscriber misses intermediate updates, but
// a terminal one replaces the oldest queued update so it always arrives.
func deliver(ch chan *Job, update *Job) {
	select {
	case ch <- update:
		return
	default:
	}
	if !update.Status.Done() {
		return
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- update:
	default:
	}
}

// AddWarning records a provider warning on the job, keeping the most recent ones.
func (jm *JobManager) AddWarning(id, msg string) error {
	return jm.UpdateJob(id, func(j *Job) {
		j.Warnings = append(j.Warnings, msg)
		if over := len(j.Warnings) - maxWarnings; over > 0 {
			j.Warnings = j.Warnings[over:]
		}
	})
}

// Subscribe returns a channel receiving the job after every update.
func (jm *JobManager) Subscribe(jobID string) <-chan *Job {
	ch := make(chan *Job, updateBuffer)

	jm.mu.Lock()
	defer jm.mu.Unlock()
	if jm.subs[jobID] == nil {
		jm.subs[jobID] = make(subscribers)
	}
	jm.subs[jobID][ch] = struct{}{}
	return ch
}

// Unsubscribe stops updates on ch and closes it.
func (jm *JobManager) Unsubscribe(jobID string, ch <-chan *Job) {
	jm.mu.Lock()
	defer jm.mu.Unlock()

	for sub := range jm.subs[jobID] {
		if sub == ch {
			delete(jm.subs[jobID], sub)
			close(sub)
			return
		}
	}
}
