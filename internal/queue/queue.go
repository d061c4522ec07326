package queue

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrQueueFull is returned by bounded in-memory queues under backpressure.
	ErrQueueFull = errors.New("task queue full")
	// ErrQueueClosed is returned once Close has been called.
	ErrQueueClosed = errors.New("task queue closed")
)

// TaskQueue is a one-way task channel: producers enqueue opaque payloads,
// workers block on Dequeue. Delivery is at-least-once only in combination
// with the durable job table; the queue itself is just a wake-up signal.
type TaskQueue interface {
	Enqueue(ctx context.Context, payload string) error
	// Dequeue blocks up to timeout and returns the oldest payload, or ""
	// when none arrived in time.
	Dequeue(ctx context.Context, timeout time.Duration) (string, error)
	Close() error
}
