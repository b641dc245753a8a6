package jobs

import (
	"sync"

	"github.com/google/uuid"
)

// Queue is a FIFO of job identifiers with dedup-on-insert. It holds only
// ids; jobs themselves are owned by the Table.
type Queue struct {
	mu      sync.Mutex
	ids     []uuid.UUID
	members map[uuid.UUID]struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		members: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue appends the id to the tail. Ids already present are ignored.
func (q *Queue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, exists := q.members[id]; exists {
		return
	}
	q.members[id] = struct{}{}
	q.ids = append(q.ids, id)
}

// Dequeue pops the head. The second return is false when the queue is empty.
func (q *Queue) Dequeue() (uuid.UUID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ids) == 0 {
		return uuid.Nil, false
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	delete(q.members, id)
	return id, true
}

// Size returns the number of queued ids.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ids)
}
