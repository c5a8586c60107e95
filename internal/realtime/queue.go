package realtime

import (
	"sync"
	"time"

	"github.com/banshee-data/motion.report/internal/biomech"
	"github.com/banshee-data/motion.report/internal/pose"
)

// task is an admitted frame waiting for the worker.
type task struct {
	frame       pose.Frame
	submittedAt time.Time
	tier        biomech.Tier
}

// taskQueue is a bounded FIFO that evicts its oldest entry on overflow.
// wake carries at most one pending signal for the worker.
type taskQueue struct {
	mu    sync.Mutex
	items []task
	cap   int
	wake  chan struct{}
}

func newTaskQueue(capacity int) *taskQueue {
	return &taskQueue{
		items: make([]task, 0, capacity),
		cap:   capacity,
		wake:  make(chan struct{}, 1),
	}
}

// push appends t and reports whether an older task was evicted.
func (q *taskQueue) push(t task) (evicted bool) {
	q.mu.Lock()
	if len(q.items) >= q.cap {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		evicted = true
	}
	q.items = append(q.items, t)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return evicted
}

func (q *taskQueue) pop() (task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return task{}, false
	}
	t := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = task{}
	q.items = q.items[:len(q.items)-1]
	return t, true
}

// clear empties the queue and returns how many tasks were discarded.
func (q *taskQueue) clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	clear(q.items)
	q.items = q.items[:0]
	return n
}

func (q *taskQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
