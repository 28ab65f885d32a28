// Package notify delivers delayed operator notifications on a single
// designated consumer goroutine, with cancellation that wins over any
// delivery still in flight.
package notify

import (
	"context"
	"sync"
)

// Queue is a single-consumer task queue. Tasks posted from any goroutine run
// one at a time, in order, on the goroutine that calls Run.
type Queue struct {
	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once
}

// NewQueue returns a queue that buffers up to size pending tasks.
func NewQueue(size int) *Queue {
	if size <= 0 {
		size = 64
	}
	return &Queue{
		tasks:  make(chan func(), size),
		closed: make(chan struct{}),
	}
}

// Post enqueues task. It blocks while the queue is full and returns false
// once the queue has been closed.
func (q *Queue) Post(task func()) bool {
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.tasks <- task:
		return true
	case <-q.closed:
		return false
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	return len(q.tasks)
}

// Run executes tasks until ctx is done or the queue is closed. On close it
// drains whatever was already queued before returning.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-q.tasks:
			task()
		case <-q.closed:
			q.drain()
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case task := <-q.tasks:
			task()
		default:
			return
		}
	}
}

// Close stops accepting tasks. Safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}
