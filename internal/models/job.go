package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrStatusInfoMismatch indicates a job status paired with the wrong info
// variant. This is a programming error and should be unreachable.
var ErrStatusInfoMismatch = errors.New("job status does not match job info variant")

// JobInput is the immutable client-submitted payload. InputText may be
// empty and may contain whitespace and arbitrary characters.
type JobInput struct {
	InputText string `json:"input_text"`
}

// Job is the sole mutable entity of the service. It is owned by the job
// table; all mutation happens under the table's lock, so the struct itself
// carries no synchronization. HTTP read paths receive deep snapshots.
type Job struct {
	ID     uuid.UUID
	Input  JobInput
	Status JobStatus
	Info   JobInfo
	Result JobResult
}

// NewJob validates status/info agreement before constructing.
func NewJob(id uuid.UUID, input JobInput, status JobStatus, info JobInfo) (*Job, error) {
	if err := validateStatusInfo(status, info); err != nil {
		return nil, err
	}
	return &Job{
		ID:     id,
		Input:  input,
		Status: status,
		Info:   info,
	}, nil
}

// NewWaitingJob constructs a freshly submitted job.
func NewWaitingJob(id uuid.UUID, input JobInput, placeInQueue int) (*Job, error) {
	return NewJob(id, input, JobStatusWaiting, NewWaitingInfo(placeInQueue))
}

// Update transitions the job to a new status/info pair, enforcing
// agreement between the two.
func (j *Job) Update(status JobStatus, info JobInfo) error {
	if err := validateStatusInfo(status, info); err != nil {
		return err
	}
	j.Status = status
	j.Info = info
	return nil
}

// AppendWordLocation appends one character's result. Callers must ensure
// the job is still running; results are frozen once terminal.
func (j *Job) AppendWordLocation(loc GeneratedWordLocation) {
	j.Result.WordLocations = append(j.Result.WordLocations, loc)
}

// Snapshot returns a deep copy safe to hand outside the table's lock.
func (j *Job) Snapshot() *Job {
	copied := *j

	copied.Result.WordLocations = make([]GeneratedWordLocation, len(j.Result.WordLocations))
	copy(copied.Result.WordLocations, j.Result.WordLocations)
	for i, loc := range copied.Result.WordLocations {
		if loc.ImageID != nil {
			id := *loc.ImageID
			copied.Result.WordLocations[i].ImageID = &id
		}
	}

	if cancelled, ok := j.Info.(CancelledInfo); ok && cancelled.TimeStartToRun != nil {
		started := *cancelled.TimeStartToRun
		cancelled.TimeStartToRun = &started
		copied.Info = cancelled
	}

	return &copied
}

func validateStatusInfo(status JobStatus, info JobInfo) error {
	if info == nil {
		return fmt.Errorf("%w: status %s with nil info", ErrStatusInfoMismatch, status)
	}
	if info.Kind() != status {
		return fmt.Errorf("%w: status %s with %s info", ErrStatusInfoMismatch, status, info.Kind())
	}
	return nil
}
