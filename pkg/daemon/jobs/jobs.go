// Package jobs runs copies in the background and tracks their state.
//
// A Supervisor owns one record per job. The goroutine running a job is the
// only writer of its progress and outcome; Cancel only flips the status and
// calls the job's cancel func. Records are never evicted.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jamesainslie/paneo/pkg/paneo/copier"
	"github.com/jamesainslie/paneo/pkg/paneo/filemanager"
	"github.com/jamesainslie/paneo/pkg/paneo/logging"
	"github.com/jamesainslie/paneo/pkg/paneo/types"
)

// ErrNotFound is returned for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Status is the lifecycle state of a job.
type Status string

// Job states. Every state other than StatusRunning is terminal.
const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether s is a final state.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// Job is a snapshot of a copy job.
type Job struct {
	ID         string                  `json:"jobId"`
	Status     Status                  `json:"status"`
	Result     *types.Result           `json:"result,omitempty"`
	Error      string                  `json:"error,omitempty"`
	Progress   types.Progress          `json:"progress"`
	StartedAt  time.Time               `json:"startedAt"`
	FinishedAt *time.Time              `json:"finishedAt,omitempty"`
	Request    filemanager.CopyRequest `json:"request"`
}

// Task is a validated copy ready to run.
type Task interface {
	Run(ctx context.Context, onProgress func(types.Progress)) (types.Result, error)
}

// PlanFunc validates a request and returns the task that performs it.
// It must not modify the filesystem.
type PlanFunc func(filemanager.CopyRequest) (Task, error)

// FromManager returns a PlanFunc backed by m.PlanCopy.
func FromManager(m *filemanager.Manager) PlanFunc {
	return func(req filemanager.CopyRequest) (Task, error) {
		plan, err := m.PlanCopy(req)
		if err != nil {
			return nil, err
		}
		return plan, nil
	}
}

type record struct {
	job    Job
	cancel context.CancelFunc
}

// Supervisor starts and tracks background copy jobs.
type Supervisor struct {
	plan  PlanFunc
	newID func() string
	now   func() time.Time
	log   *logging.Logger

	mu   sync.RWMutex
	jobs map[string]*record
	wg   sync.WaitGroup
}

// New creates a Supervisor that plans jobs with plan.
func New(plan PlanFunc) *Supervisor {
	return &Supervisor{
		plan:  plan,
		newID: uuid.NewString,
		now:   time.Now,
		log:   logging.Get("jobs"),
		jobs:  make(map[string]*record),
	}
}

// Start validates req and launches the copy in the background. Validation
// errors are returned before any job is recorded.
func (s *Supervisor) Start(req filemanager.CopyRequest) (string, error) {
	task, err := s.plan(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rec := &record{
		job: Job{
			ID:        s.newID(),
			Status:    StatusRunning,
			StartedAt: s.now(),
			Request:   req,
		},
		cancel: cancel,
	}

	s.mu.Lock()
	s.jobs[rec.job.ID] = rec
	s.mu.Unlock()

	s.log.Info("copy job started", "job", rec.job.ID,
		"from", req.FromRootID+":"+req.FromPath, "to", req.ToRootID+":"+req.ToDirPath,
		"overwrite", req.Overwrite)

	s.wg.Add(1)
	go s.run(ctx, rec, task)
	return rec.job.ID, nil
}

func (s *Supervisor) run(ctx context.Context, rec *record, task Task) {
	defer s.wg.Done()
	defer rec.cancel()

	res, err := task.Run(ctx, func(p types.Progress) {
		s.mu.Lock()
		if rec.job.Status == StatusRunning {
			rec.job.Progress = p
		}
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	job := &rec.job
	switch {
	case job.Status != StatusRunning || ctx.Err() != nil:
		job.Status = StatusCanceled
	case errors.Is(err, copier.ErrCanceled) || errors.Is(err, context.Canceled):
		job.Status = StatusCanceled
	case err != nil:
		job.Status = StatusFailed
		job.Error = err.Error()
	default:
		job.Status = StatusCompleted
		job.Result = &res
	}
	if job.FinishedAt == nil {
		finished := s.now()
		job.FinishedAt = &finished
	}

	switch job.Status {
	case StatusFailed:
		s.log.Error("copy job failed", "job", job.ID, "error", job.Error)
	case StatusCanceled:
		s.log.Info("copy job canceled", "job", job.ID, "processed", job.Progress.ProcessedFiles)
	default:
		s.log.Info("copy job completed", "job", job.ID,
			"copied", res.CopiedFiles, "dirs", res.CopiedDirectories, "skipped", res.Skipped)
	}
}

// Status returns a snapshot of the job.
func (s *Supervisor) Status(id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.job.snapshot(), nil
}

// Cancel requests cancellation of a running job. Canceling a finished job
// returns its final state unchanged.
func (s *Supervisor) Cancel(id string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.jobs[id]
	if !ok {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.job.Status == StatusRunning {
		rec.job.Status = StatusCanceled
		finished := s.now()
		rec.job.FinishedAt = &finished
		rec.cancel()
		s.log.Info("copy job cancel requested", "job", id)
	}
	return rec.job.snapshot(), nil
}

// List returns every job ordered by start time.
func (s *Supervisor) List() []Job {
	s.mu.RLock()
	out := make([]Job, 0, len(s.jobs))
	for _, rec := range s.jobs {
		out = append(out, rec.job.snapshot())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out
}

// Counts returns the number of running jobs and the number of jobs recorded.
func (s *Supervisor) Counts() (running, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.jobs {
		if rec.job.Status == StatusRunning {
			running++
		}
	}
	return running, len(s.jobs)
}

// Shutdown cancels every running job and waits for their goroutines to exit
// or ctx to be done.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	ids := make([]string, 0, len(s.jobs))
	for id, rec := range s.jobs {
		if rec.job.Status == StatusRunning {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_, _ = s.Cancel(id)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshot returns a copy of j that shares no memory with the record.
func (j Job) snapshot() Job {
	if j.Result != nil {
		res := *j.Result
		j.Result = &res
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		j.FinishedAt = &t
	}
	return j
}
