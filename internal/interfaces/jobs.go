package interfaces

import (
	"github.com/google/uuid"

	"github.com/ternarybob/scribo/internal/models"
)

// JobService is the narrow port the HTTP adapters use to drive the job
// lifecycle engine.
type JobService interface {
	// StartJob creates a waiting job, enqueues it, and returns its id.
	StartJob(input models.JobInput) (uuid.UUID, error)
	// RetrieveJob returns a snapshot of the job, or nil if unknown.
	// Callers cannot mutate table state through the returned value.
	RetrieveJob(id uuid.UUID) *models.Job
	// InterruptJob cancels a waiting or running job. Idempotent: unknown
	// ids and terminal jobs are no-ops.
	InterruptJob(id uuid.UUID)
}
