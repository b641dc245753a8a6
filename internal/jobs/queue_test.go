package jobs

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFOOrder(t *testing.T) {
	q := NewQueue()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		q.Enqueue(id)
	}
	assert.Equal(t, 3, q.Size())

	for _, want := range ids {
		got, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 0, q.Size())
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue()

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestQueue_DedupOnInsert(t *testing.T) {
	q := NewQueue()
	id := uuid.New()

	q.Enqueue(id)
	q.Enqueue(id)
	assert.Equal(t, 1, q.Size())

	// Once dequeued the id may be enqueued again.
	_, ok := q.Dequeue()
	require.True(t, ok)
	q.Enqueue(id)
	assert.Equal(t, 1, q.Size())
}
