package models

import (
	"time"
)

// JobInfo is the status-dependent payload attached to a job. Exactly one
// variant exists per status; Job.Update enforces the pairing.
//
// Variant structure:
//
//	JobInfo
//	├── WaitingInfo
//	├── RunningInfo
//	└── terminal (also implement StoppedInfo)
//	    ├── CompletedInfo
//	    ├── FailedInfo
//	    └── CancelledInfo
type JobInfo interface {
	// Kind returns the status this variant belongs to.
	Kind() JobStatus
	// QueuedAt returns the time the job entered the queue.
	QueuedAt() time.Time
}

// StoppedInfo is implemented by the terminal variants.
type StoppedInfo interface {
	JobInfo
	// EndedAt returns the time the job reached its terminal status.
	EndedAt() time.Time
}

// WaitingInfo is the payload of a queued job.
type WaitingInfo struct {
	TimeStartToQueue time.Time
	// PlaceInQueue is the 1-indexed queue position captured at submit time.
	// It is a stable sentinel: it is NOT updated as earlier jobs finish or
	// cancel, so clients observe progress by polling and comparing.
	PlaceInQueue int
}

func NewWaitingInfo(placeInQueue int) WaitingInfo {
	return WaitingInfo{
		TimeStartToQueue: time.Now(),
		PlaceInQueue:     placeInQueue,
	}
}

func (i WaitingInfo) Kind() JobStatus     { return JobStatusWaiting }
func (i WaitingInfo) QueuedAt() time.Time { return i.TimeStartToQueue }

// RunningInfo is the payload of the single running job.
type RunningInfo struct {
	TimeStartToQueue time.Time
	TimeStartToRun   time.Time
	RunningState     RunningState
}

// RunningInfoOf promotes a waiting job's info on dequeue.
func RunningInfoOf(waiting WaitingInfo) RunningInfo {
	return RunningInfo{
		TimeStartToQueue: waiting.TimeStartToQueue,
		TimeStartToRun:   time.Now(),
		RunningState:     RunningStateNotStarted(),
	}
}

// WithState returns a copy carrying the new running state.
func (i RunningInfo) WithState(state RunningState) RunningInfo {
	return RunningInfo{
		TimeStartToQueue: i.TimeStartToQueue,
		TimeStartToRun:   i.TimeStartToRun,
		RunningState:     state,
	}
}

func (i RunningInfo) Kind() JobStatus     { return JobStatusRunning }
func (i RunningInfo) QueuedAt() time.Time { return i.TimeStartToQueue }

// CompletedInfo is the payload of a successfully finished job.
type CompletedInfo struct {
	TimeStartToQueue time.Time
	TimeStartToRun   time.Time
	TimeEnd          time.Time
}

func CompletedInfoOf(running RunningInfo) CompletedInfo {
	return CompletedInfo{
		TimeStartToQueue: running.TimeStartToQueue,
		TimeStartToRun:   running.TimeStartToRun,
		TimeEnd:          time.Now(),
	}
}

func (i CompletedInfo) Kind() JobStatus     { return JobStatusCompleted }
func (i CompletedInfo) QueuedAt() time.Time { return i.TimeStartToQueue }
func (i CompletedInfo) EndedAt() time.Time  { return i.TimeEnd }

// FailedInfo is the payload of a job whose generator reported an error.
type FailedInfo struct {
	TimeStartToQueue time.Time
	TimeStartToRun   time.Time
	TimeEnd          time.Time
	ErrorMessage     string
}

func FailedInfoOf(running RunningInfo, errorMessage string) FailedInfo {
	return FailedInfo{
		TimeStartToQueue: running.TimeStartToQueue,
		TimeStartToRun:   running.TimeStartToRun,
		TimeEnd:          time.Now(),
		ErrorMessage:     errorMessage,
	}
}

func (i FailedInfo) Kind() JobStatus     { return JobStatusFailed }
func (i FailedInfo) QueuedAt() time.Time { return i.TimeStartToQueue }
func (i FailedInfo) EndedAt() time.Time  { return i.TimeEnd }

// CancelledInfo is the payload of a user-interrupted job. TimeStartToRun is
// nil when the job was cancelled before it ever started running.
type CancelledInfo struct {
	TimeStartToQueue time.Time
	TimeStartToRun   *time.Time
	TimeEnd          time.Time
}

// CancelledInfoOf derives the cancelled payload from either a waiting or a
// running job's info.
func CancelledInfoOf(info JobInfo) CancelledInfo {
	cancelled := CancelledInfo{
		TimeStartToQueue: info.QueuedAt(),
		TimeEnd:          time.Now(),
	}
	if running, ok := info.(RunningInfo); ok {
		started := running.TimeStartToRun
		cancelled.TimeStartToRun = &started
	}
	return cancelled
}

func (i CancelledInfo) Kind() JobStatus     { return JobStatusCancelled }
func (i CancelledInfo) QueuedAt() time.Time { return i.TimeStartToQueue }
func (i CancelledInfo) EndedAt() time.Time  { return i.TimeEnd }
