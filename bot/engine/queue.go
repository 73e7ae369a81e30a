package engine

import (
	"context"
	"sync"
)

// WorkQueue is a bounded FIFO between the producer and the consumers. Enqueue blocks while the queue is full, which
// throttles the producer instead of dropping items. Every enqueued item stays pending until a consumer calls Ack.
type WorkQueue struct {
	items chan Item

	mu      sync.Mutex
	pending int
	idle    chan struct{} // closed while pending == 0
}

// NewWorkQueue returns a WorkQueue holding at most capacity items.
func NewWorkQueue(capacity int) *WorkQueue {
	if capacity < 1 {
		capacity = 1
	}

	idle := make(chan struct{})
	close(idle)

	return &WorkQueue{
		items: make(chan Item, capacity),
		idle:  idle,
	}
}

// Enqueue adds item, blocking while the queue is full.
func (q *WorkQueue) Enqueue(ctx context.Context, item Item) error {
	q.mu.Lock()
	if q.pending == 0 {
		q.idle = make(chan struct{})
	}
	q.pending++
	q.mu.Unlock()

	select {
	case q.items <- item:
		return nil
	case <-ctx.Done():
		q.Ack()

		return ctx.Err()
	}
}

// Dequeue removes the oldest item, blocking while the queue is empty.
func (q *WorkQueue) Dequeue(ctx context.Context) (Item, error) {
	select {
	case item := <-q.items:
		return item, nil
	case <-ctx.Done():
		return Item{}, ctx.Err()
	}
}

// Ack marks one dequeued item as fully processed.
func (q *WorkQueue) Ack() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending == 0 {
		return
	}

	q.pending--
	if q.pending == 0 {
		close(q.idle)
	}
}

// Join blocks until every enqueued item has been acknowledged.
func (q *WorkQueue) Join(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of enqueued but unacknowledged items.
func (q *WorkQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.pending
}

// Len returns the number of buffered items.
func (q *WorkQueue) Len() int {
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *WorkQueue) Cap() int {
	return cap(q.items)
}
