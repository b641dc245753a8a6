package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribo/internal/models"
)

func newTestTable(t *testing.T, maxRetain time.Duration) *Table {
	t.Helper()
	return NewTable(maxRetain, arbor.NewLogger())
}

func addWaitingJob(t *testing.T, table *Table, text string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	job, err := models.NewWaitingJob(id, models.JobInput{InputText: text}, 1)
	require.NoError(t, err)
	require.NoError(t, table.Add(job))
	return id
}

func TestTable_AddConflict(t *testing.T) {
	table := newTestTable(t, time.Minute)

	id := uuid.New()
	job, err := models.NewWaitingJob(id, models.JobInput{}, 1)
	require.NoError(t, err)
	require.NoError(t, table.Add(job))

	dup, err := models.NewWaitingJob(id, models.JobInput{}, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, table.Add(dup), ErrIDConflict)
}

func TestTable_SnapshotIsDefensive(t *testing.T) {
	table := newTestTable(t, time.Minute)
	id := addWaitingJob(t, table, "ab")

	snapshot := table.Snapshot(id)
	require.NotNil(t, snapshot)

	// Mutating the snapshot must not affect the table's copy.
	snapshot.Status = models.JobStatusFailed
	assert.Equal(t, models.JobStatusWaiting, table.Snapshot(id).Status)

	assert.Nil(t, table.Snapshot(uuid.New()), "unknown id returns nil")
}

func TestTable_CancelWaiting(t *testing.T) {
	table := newTestTable(t, time.Minute)
	id := addWaitingJob(t, table, "ab")

	table.Cancel(id)

	job := table.Snapshot(id)
	require.Equal(t, models.JobStatusCancelled, job.Status)
	info := job.Info.(models.CancelledInfo)
	assert.Nil(t, info.TimeStartToRun, "a job cancelled before running has no start time")
}

func TestTable_CancelRunningFiresSignal(t *testing.T) {
	table := newTestTable(t, time.Minute)
	id := addWaitingJob(t, table, "ab")

	_, ok := table.MarkRunning(id)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, table.RegisterCancel(id, cancel))

	table.Cancel(id)

	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel signal was not fired")
	}

	job := table.Snapshot(id)
	require.Equal(t, models.JobStatusCancelled, job.Status)
	info := job.Info.(models.CancelledInfo)
	assert.NotNil(t, info.TimeStartToRun, "a job cancelled mid-run keeps its start time")
}

func TestTable_CancelIsIdempotent(t *testing.T) {
	table := newTestTable(t, time.Minute)

	// Unknown id is a no-op.
	table.Cancel(uuid.New())

	id := addWaitingJob(t, table, "ab")
	table.Cancel(id)
	first := table.Snapshot(id).Info.(models.CancelledInfo).TimeEnd

	// A second cancel leaves the terminal job untouched.
	table.Cancel(id)
	assert.Equal(t, first, table.Snapshot(id).Info.(models.CancelledInfo).TimeEnd)
}

func TestTable_RegisterCancel(t *testing.T) {
	table := newTestTable(t, time.Minute)

	t.Run("unknown job is ignored", func(t *testing.T) {
		assert.NoError(t, table.RegisterCancel(uuid.New(), func() {}))
	})

	t.Run("double registration conflicts", func(t *testing.T) {
		id := addWaitingJob(t, table, "ab")
		require.NoError(t, table.RegisterCancel(id, func() {}))
		assert.ErrorIs(t, table.RegisterCancel(id, func() {}), ErrIDConflict)
	})

	t.Run("registration after cancellation fires immediately", func(t *testing.T) {
		id := addWaitingJob(t, table, "ab")
		table.Cancel(id)

		fired := false
		require.NoError(t, table.RegisterCancel(id, func() { fired = true }))
		assert.True(t, fired)
	})
}

func TestTable_Transitions(t *testing.T) {
	t.Run("mark running requires waiting", func(t *testing.T) {
		table := newTestTable(t, time.Minute)
		id := addWaitingJob(t, table, "abc")

		input, ok := table.MarkRunning(id)
		require.True(t, ok)
		assert.Equal(t, "abc", input.InputText)

		// Not waiting anymore.
		_, ok = table.MarkRunning(id)
		assert.False(t, ok)

		// Unknown job.
		_, ok = table.MarkRunning(uuid.New())
		assert.False(t, ok)
	})

	t.Run("complete only applies to running jobs", func(t *testing.T) {
		table := newTestTable(t, time.Minute)
		id := addWaitingJob(t, table, "a")

		assert.False(t, table.Complete(id), "waiting job cannot complete")

		_, ok := table.MarkRunning(id)
		require.True(t, ok)
		assert.True(t, table.Complete(id))
		assert.Equal(t, models.JobStatusCompleted, table.Snapshot(id).Status)

		assert.False(t, table.Complete(id), "terminal job accepts no transitions")
	})

	t.Run("fail records the error message", func(t *testing.T) {
		table := newTestTable(t, time.Minute)
		id := addWaitingJob(t, table, "a")
		_, ok := table.MarkRunning(id)
		require.True(t, ok)

		require.True(t, table.Fail(id, "simulated"))
		info := table.Snapshot(id).Info.(models.FailedInfo)
		assert.Equal(t, "simulated", info.ErrorMessage)
	})

	t.Run("cancelled job refuses completion", func(t *testing.T) {
		table := newTestTable(t, time.Minute)
		id := addWaitingJob(t, table, "a")
		_, ok := table.MarkRunning(id)
		require.True(t, ok)

		table.Cancel(id)
		assert.False(t, table.Complete(id))
		assert.Equal(t, models.JobStatusCancelled, table.Snapshot(id).Status)
	})
}

func TestTable_RunningStateAndResults(t *testing.T) {
	table := newTestTable(t, time.Minute)
	id := addWaitingJob(t, table, "ab")

	state := models.RunningStateGenerating("")
	assert.False(t, table.SetRunningState(id, state), "refused while waiting")

	_, ok := table.MarkRunning(id)
	require.True(t, ok)

	require.True(t, table.SetRunningState(id, state))
	info := table.Snapshot(id).Info.(models.RunningInfo)
	assert.Equal(t, "GENERATING", info.RunningState.Name)

	imageID := uuid.New()
	loc, err := models.NewGeneratedWordLocation("a", &imageID)
	require.NoError(t, err)
	require.True(t, table.AppendWordLocation(id, loc))

	table.Cancel(id)

	// Results are frozen once terminal; late callbacks are dropped.
	assert.False(t, table.AppendWordLocation(id, loc))
	assert.False(t, table.SetRunningState(id, state))
	assert.Len(t, table.Snapshot(id).Result.WordLocations, 1)
}

func TestTable_Cleanup(t *testing.T) {
	table := newTestTable(t, 50*time.Millisecond)

	expired := addWaitingJob(t, table, "ab")
	_, ok := table.MarkRunning(expired)
	require.True(t, ok)

	imageID := uuid.New()
	loc, err := models.NewGeneratedWordLocation("a", &imageID)
	require.NoError(t, err)
	require.True(t, table.AppendWordLocation(expired, loc))
	require.True(t, table.Complete(expired))

	fresh := addWaitingJob(t, table, "x")

	// Nothing is old enough yet.
	table.Cleanup(func(uuid.UUID) {
		t.Fatal("nothing should be released before the retention window passes")
	})
	require.NotNil(t, table.Snapshot(expired))

	time.Sleep(80 * time.Millisecond)

	var released []uuid.UUID
	table.Cleanup(func(id uuid.UUID) {
		released = append(released, id)
	})

	assert.Nil(t, table.Snapshot(expired), "expired terminal job is removed")
	assert.NotNil(t, table.Snapshot(fresh), "non-terminal jobs are never removed")
	assert.Equal(t, []uuid.UUID{imageID}, released, "every stored image id is released exactly once")

	// A second sweep has nothing left to release.
	table.Cleanup(func(uuid.UUID) {
		t.Fatal("images must not be released twice")
	})
}
