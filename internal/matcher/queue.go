package matcher

import (
	"sync"

	"github.com/gigmatch/gigmatch/internal/model"
)

// Delivery is one newly discovered job waiting to be shown to a user.
type Delivery struct {
	UserID int64
	Job    model.JobListing
}

// Queue is the FIFO hand-off between the matching loop and the presentation
// layer. Push never blocks; DrainReady never waits.
type Queue struct {
	mu    sync.Mutex
	items []Delivery
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a delivery.
func (q *Queue) Push(d Delivery) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, d)
}

// DrainReady removes and returns all queued deliveries in arrival order.
// It returns nil when the queue is empty.
func (q *Queue) DrainReady() []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued deliveries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
