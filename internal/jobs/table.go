package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/models"
)

// ErrIDConflict indicates a duplicate job id or a double cancel-signal
// registration. Both are programming errors with random 128-bit ids.
var ErrIDConflict = errors.New("id conflict")

// Table is the owning store of jobs, keyed by job id. It is the single
// serialization domain for job mutation: the drain loop, generator
// callbacks, HTTP cancellation, and the cleanup sweep all go through its
// lock. Reads hand out deep snapshots.
type Table struct {
	mu        sync.RWMutex
	jobs      map[uuid.UUID]*models.Job
	cancels   map[uuid.UUID]context.CancelFunc
	maxRetain time.Duration
	logger    arbor.ILogger
}

// NewTable creates an empty table retaining terminal jobs for maxRetain.
func NewTable(maxRetain time.Duration, logger arbor.ILogger) *Table {
	return &Table{
		jobs:      make(map[uuid.UUID]*models.Job),
		cancels:   make(map[uuid.UUID]context.CancelFunc),
		maxRetain: maxRetain,
		logger:    logger,
	}
}

// Add inserts a job. Fails with ErrIDConflict if the id already exists.
func (t *Table) Add(job *models.Job) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.jobs[job.ID]; exists {
		return fmt.Errorf("%w: job %s already exists", ErrIDConflict, job.ID)
	}
	t.jobs[job.ID] = job
	return nil
}

// Snapshot returns a deep copy of the job, or nil if unknown.
func (t *Table) Snapshot(id uuid.UUID) *models.Job {
	t.mu.RLock()
	defer t.mu.RUnlock()

	job, ok := t.jobs[id]
	if !ok {
		return nil
	}
	return job.Snapshot()
}

// Cancel transitions a waiting or running job to cancelled and fires its
// registered cancel signal, if any. Idempotent: unknown ids and terminal
// jobs are no-ops. A job cancelled while waiting keeps no start time.
func (t *Table) Cancel(id uuid.UUID) {
	t.mu.Lock()

	job, ok := t.jobs[id]
	if !ok || job.Status.Terminal() {
		t.mu.Unlock()
		return
	}

	if err := job.Update(models.JobStatusCancelled, models.CancelledInfoOf(job.Info)); err != nil {
		t.mu.Unlock()
		t.logger.Error().Err(err).Str("job_id", id.String()).Msg("Cancel transition rejected")
		return
	}
	cancel := t.cancels[id]
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// RegisterCancel associates the cancel signal with a job. At most one
// signal per id; a repeat registration returns ErrIDConflict. If the job is
// already terminal (cancelled between dequeue and registration), the signal
// fires immediately. Unknown ids are ignored.
func (t *Table) RegisterCancel(id uuid.UUID, cancel context.CancelFunc) error {
	t.mu.Lock()

	job, ok := t.jobs[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	if _, dup := t.cancels[id]; dup {
		t.mu.Unlock()
		return fmt.Errorf("%w: cancel signal already registered for job %s", ErrIDConflict, id)
	}
	t.cancels[id] = cancel
	terminal := job.Status.Terminal()
	t.mu.Unlock()

	if terminal {
		cancel()
	}
	return nil
}

// ReleaseCancel drops the registered cancel signal once a run finishes.
func (t *Table) ReleaseCancel(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.cancels, id)
}

// MarkRunning transitions a waiting job to running and returns its input.
// Returns false if the job is unknown or not waiting (e.g. cancelled while
// queued), in which case the caller skips it.
func (t *Table) MarkRunning(id uuid.UUID) (models.JobInput, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusWaiting {
		return models.JobInput{}, false
	}

	waiting, ok := job.Info.(models.WaitingInfo)
	if !ok {
		return models.JobInput{}, false
	}
	if err := job.Update(models.JobStatusRunning, models.RunningInfoOf(waiting)); err != nil {
		t.logger.Error().Err(err).Str("job_id", id.String()).Msg("Running transition rejected")
		return models.JobInput{}, false
	}
	return job.Input, true
}

// SetRunningState overwrites the running state. Refused (returns false)
// once the job is no longer running.
func (t *Table) SetRunningState(id uuid.UUID, state models.RunningState) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, running := t.runningJob(id)
	if !running {
		return false
	}
	info := job.Info.(models.RunningInfo)
	if err := job.Update(models.JobStatusRunning, info.WithState(state)); err != nil {
		t.logger.Error().Err(err).Str("job_id", id.String()).Msg("Running state update rejected")
		return false
	}
	return true
}

// AppendWordLocation appends one character's result to a running job.
// Dropped silently (returns false) once the job is no longer running.
func (t *Table) AppendWordLocation(id uuid.UUID, loc models.GeneratedWordLocation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, running := t.runningJob(id)
	if !running {
		return false
	}
	job.AppendWordLocation(loc)
	return true
}

// IsRunning reports whether the job exists and is currently running.
func (t *Table) IsRunning(id uuid.UUID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, running := t.runningJob(id)
	return running
}

// Complete transitions a running job to completed. Returns false if the
// job is no longer running (e.g. cancelled while the generator unwound).
func (t *Table) Complete(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, running := t.runningJob(id)
	if !running {
		return false
	}
	info := job.Info.(models.RunningInfo)
	if err := job.Update(models.JobStatusCompleted, models.CompletedInfoOf(info)); err != nil {
		t.logger.Error().Err(err).Str("job_id", id.String()).Msg("Completed transition rejected")
		return false
	}
	return true
}

// Fail transitions a running job to failed, recording the error message.
// Returns false if the job is no longer running.
func (t *Table) Fail(id uuid.UUID, errorMessage string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	job, running := t.runningJob(id)
	if !running {
		return false
	}
	info := job.Info.(models.RunningInfo)
	if err := job.Update(models.JobStatusFailed, models.FailedInfoOf(info, errorMessage)); err != nil {
		t.logger.Error().Err(err).Str("job_id", id.String()).Msg("Failed transition rejected")
		return false
	}
	return true
}

// Cleanup removes every terminal job whose end time is older than the
// retention window and reports each of its stored image ids to onRelease
// exactly once. Ordering within one sweep is unspecified.
func (t *Table) Cleanup(onRelease func(imageID uuid.UUID)) {
	now := time.Now()

	t.mu.Lock()
	var released []uuid.UUID
	removed := 0
	for id, job := range t.jobs {
		stopped, ok := job.Info.(models.StoppedInfo)
		if !ok {
			continue
		}
		if now.Sub(stopped.EndedAt()) <= t.maxRetain {
			continue
		}
		released = append(released, job.Result.ImageIDs()...)
		delete(t.jobs, id)
		delete(t.cancels, id)
		removed++
	}
	t.mu.Unlock()

	if onRelease != nil {
		for _, imageID := range released {
			onRelease(imageID)
		}
	}

	if removed > 0 {
		t.logger.Debug().
			Int("jobs_removed", removed).
			Int("images_released", len(released)).
			Msg("Expired jobs cleaned up")
	}
}

// Len returns the number of jobs currently in the table.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// runningJob must be called with the lock held.
func (t *Table) runningJob(id uuid.UUID) (*models.Job, bool) {
	job, ok := t.jobs[id]
	if !ok || job.Status != models.JobStatusRunning {
		return nil, false
	}
	return job, true
}
