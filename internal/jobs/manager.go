package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/interfaces"
	"github.com/ternarybob/scribo/internal/models"
)

// Manager owns the job lifecycle engine: the table, the FIFO queue, and the
// two background loops (queue drain and retention cleanup). It implements
// interfaces.JobService for the HTTP adapters.
//
// Exactly one job is running at any instant: the drain loop is a single
// goroutine that advances one job at a time.
type Manager struct {
	table     *Table
	queue     *Queue
	generator interfaces.TextGenerator
	images    interfaces.ImageStorage
	logger    arbor.ILogger

	queueInterval time.Duration
	retainTime    time.Duration

	// submitMu serializes StartJob so queue-position snapshots reflect the
	// order submissions reached the queue.
	submitMu sync.Mutex

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewManager wires the engine. Start must be called before jobs progress.
func NewManager(queueInterval, retainTime time.Duration, generator interfaces.TextGenerator, images interfaces.ImageStorage, logger arbor.ILogger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		table:         NewTable(retainTime, logger),
		queue:         NewQueue(),
		generator:     generator,
		images:        images,
		logger:        logger,
		queueInterval: queueInterval,
		retainTime:    retainTime,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start launches the queue-drain and cleanup loops.
func (m *Manager) Start() {
	if m.started {
		return
	}
	m.started = true

	m.wg.Add(2)
	go m.runDrainLoop()
	go m.runCleanupLoop()

	m.logger.Info().
		Dur("queue_interval", m.queueInterval).
		Dur("retain_time", m.retainTime).
		Msg("Job manager started")
}

// Stop cancels both loops and waits for them to exit. A running generation
// is cancelled through its context.
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
	m.logger.Info().Msg("Job manager stopped")
}

// StartJob creates a job in waiting state, adds it to the table, and
// enqueues its id. The returned id is the client's handle for polling.
//
// The recorded queue position is 1-indexed and captured at submit time
// (first-in-line = 1). It is never recomputed afterwards, including when an
// earlier job is cancelled.
func (m *Manager) StartJob(input models.JobInput) (uuid.UUID, error) {
	m.submitMu.Lock()
	defer m.submitMu.Unlock()

	id := uuid.New()
	place := m.queue.Size() + 1

	job, err := models.NewWaitingJob(id, input, place)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}
	if err := m.table.Add(job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to register job: %w", err)
	}
	m.queue.Enqueue(id)

	m.logger.Info().
		Str("job_id", id.String()).
		Int("place_in_queue", place).
		Int("input_chars", len([]rune(input.InputText))).
		Msg("Job submitted")

	return id, nil
}

// RetrieveJob returns a snapshot of the job, or nil if unknown.
func (m *Manager) RetrieveJob(id uuid.UUID) *models.Job {
	return m.table.Snapshot(id)
}

// InterruptJob cancels a waiting or running job. Unknown ids and terminal
// jobs are no-ops.
func (m *Manager) InterruptJob(id uuid.UUID) {
	m.table.Cancel(id)
	m.logger.Debug().Str("job_id", id.String()).Msg("Interrupt requested")
}

// runDrainLoop advances jobs from waiting to terminal, one at a time.
// A panic in one iteration is logged and the loop backs off one interval;
// the loop itself never dies.
func (m *Manager) runDrainLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		m.drainIteration()
	}
}

func (m *Manager) drainIteration() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Queue drain iteration panicked - backing off")
			m.sleep(m.queueInterval)
		}
	}()

	if m.queue.Size() == 0 {
		m.sleep(m.queueInterval)
		return
	}

	id, ok := m.queue.Dequeue()
	if !ok {
		return
	}

	// Absent jobs (already cleaned up) and jobs cancelled while queued are
	// skipped here.
	input, ok := m.table.MarkRunning(id)
	if !ok {
		return
	}

	m.logger.Info().Str("job_id", id.String()).Msg("Job started")

	genCtx, cancel := context.WithCancel(m.ctx)
	defer cancel()

	if err := m.table.RegisterCancel(id, cancel); err != nil {
		m.logger.Error().Err(err).Str("job_id", id.String()).Msg("Cancel signal registration failed")
	}

	err := m.generator.Generate(genCtx, input, m.stateCallback(id), m.wordCallback(genCtx, id))
	m.table.ReleaseCancel(id)
	m.finish(id, err)
}

// finish records the generation outcome. A job cancelled mid-run is already
// terminal by the time the generator unwinds; the transition helpers refuse
// to overwrite it.
func (m *Manager) finish(id uuid.UUID, err error) {
	switch {
	case err == nil:
		if m.table.Complete(id) {
			m.logger.Info().Str("job_id", id.String()).Msg("Job completed")
		}
	case errors.Is(err, context.Canceled):
		m.table.Cancel(id)
		m.logger.Info().Str("job_id", id.String()).Msg("Job cancelled")
	default:
		if m.table.Fail(id, err.Error()) {
			m.logger.Warn().Err(err).Str("job_id", id.String()).Msg("Job failed")
		}
	}
}

// stateCallback writes running-state updates, refusing them once the job is
// no longer running.
func (m *Manager) stateCallback(id uuid.UUID) interfaces.StateCallback {
	return func(state models.RunningState) {
		m.table.SetRunningState(id, state)
	}
}

// wordCallback persists successful image bytes and appends the word result.
// A storage failure downgrades that one word to a miss; it does not fail
// the job. Words reported after the job stopped are dropped.
func (m *Manager) wordCallback(ctx context.Context, id uuid.UUID) interfaces.WordCallback {
	return func(word models.GeneratedWord) {
		if !m.table.IsRunning(id) {
			return
		}

		var imageID *uuid.UUID
		if word.Success() {
			saved, err := m.images.Save(ctx, word.Image)
			if err != nil {
				m.logger.Warn().
					Err(err).
					Str("job_id", id.String()).
					Str("word", word.Word).
					Msg("Failed to store image - recording miss")
			} else {
				imageID = &saved
			}
		}

		loc, err := models.NewGeneratedWordLocation(word.Word, imageID)
		if err != nil {
			m.logger.Error().Err(err).Str("job_id", id.String()).Msg("Invalid word result dropped")
			return
		}

		if !m.table.AppendWordLocation(id, loc) && imageID != nil {
			// The job stopped while the image was being stored; release the
			// orphaned bytes so cleanup has nothing to miss.
			if derr := m.images.Delete(ctx, *imageID); derr != nil {
				m.logger.Warn().Err(derr).Str("image_id", imageID.String()).Msg("Failed to release orphaned image")
			}
		}
	}
}

// runCleanupLoop removes expired terminal jobs and their images. Errors and
// panics are swallowed per sweep; the loop never dies.
func (m *Manager) runCleanupLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}
		m.cleanupIteration()
		if !m.sleep(m.retainTime) {
			return
		}
	}
}

func (m *Manager) cleanupIteration() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Cleanup iteration panicked - continuing")
		}
	}()

	m.table.Cleanup(func(imageID uuid.UUID) {
		if err := m.images.Delete(m.ctx, imageID); err != nil {
			m.logger.Warn().Err(err).Str("image_id", imageID.String()).Msg("Failed to delete expired image")
		}
	})
}

// sleep waits for d or until shutdown. Returns false on shutdown.
func (m *Manager) sleep(d time.Duration) bool {
	select {
	case <-m.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
