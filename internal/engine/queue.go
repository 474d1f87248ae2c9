package engine

import (
	"sync"
	"sync/atomic"
)

// Queue is the bounded work channel between the walker and the workers.
//
// The task channel is never closed: closing is signalled on a separate done
// channel, so a producer racing with Close gets false back instead of a
// panic. Close is idempotent and safe to call from any goroutine.
type Queue struct {
	tasks chan Task
	done  chan struct{}
	once  sync.Once
	peak  atomic.Int64
}

// NewQueue creates a queue holding at most capacity tasks.
func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		tasks: make(chan Task, capacity),
		done:  make(chan struct{}),
	}
}

// Push enqueues t, blocking while the queue is full. It returns false if the
// queue was closed before t could be enqueued.
func (q *Queue) Push(t Task) bool {
	if q.Closed() {
		return false
	}
	select {
	case q.tasks <- t:
		q.observe()
		return true
	case <-q.done:
		return false
	}
}

// TryPush enqueues t only if there is room right now.
func (q *Queue) TryPush(t Task) bool {
	if q.Closed() {
		return false
	}
	select {
	case q.tasks <- t:
		q.observe()
		return true
	default:
		return false
	}
}

// Pop blocks until a task is available. It returns false once the queue is
// closed. Tasks still buffered after Close may be abandoned.
func (q *Queue) Pop() (Task, bool) {
	if q.Closed() {
		return Task{}, false
	}
	select {
	case t := <-q.tasks:
		return t, true
	case <-q.done:
		return Task{}, false
	}
}

// Close wakes every blocked Push and Pop.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}

// Done is closed when the queue is.
func (q *Queue) Done() <-chan struct{} { return q.done }

// Len is the number of buffered tasks.
func (q *Queue) Len() int { return len(q.tasks) }

// Cap is the queue capacity.
func (q *Queue) Cap() int { return cap(q.tasks) }

// Peak is the largest buffer length observed after a push.
func (q *Queue) Peak() int { return int(q.peak.Load()) }

func (q *Queue) observe() {
	n := int64(len(q.tasks))
	for {
		cur := q.peak.Load()
		if n <= cur || q.peak.CompareAndSwap(cur, n) {
			return
		}
	}
}
