package queue

import (
	"context"
	"sync"
	"time"
)

// memoryQueue is the single-box fallback used when no Redis address is
// configured, and the queue of choice in tests. Bounded so a stuck worker
// cannot grow it without limit.
type memoryQueue struct {
	ch        chan string
	closeOnce sync.Once
	done      chan struct{}
}

func NewMemoryQueue(capacity int) TaskQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &memoryQueue{
		ch:   make(chan string, capacity),
		done: make(chan struct{}),
	}
}

func (q *memoryQueue) Enqueue(ctx context.Context, payload string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}
	select {
	case q.ch <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *memoryQueue) Dequeue(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case payload := <-q.ch:
		return payload, nil
	case <-q.done:
		return "", nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (q *memoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}
