package coordinator

import "sync"

// Dispatcher re-marshals engine callbacks onto the coordinator's control thread.
// Every task it is given must eventually run on that thread, in order.
type Dispatcher interface {
	Dispatch(task func())
}

// DispatcherFunc adapts a function to a Dispatcher.
type DispatcherFunc func(task func())

func (f DispatcherFunc) Dispatch(task func()) {
	f(task)
}

// Queue buffers tasks until the control thread drains them.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Dispatch(task func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
}

// Drain runs queued tasks, including any queued while draining, and returns how many ran.
func (q *Queue) Drain() int {
	ran := 0
	for {
		q.mu.Lock()
		tasks := q.tasks
		q.tasks = nil
		q.mu.Unlock()

		if len(tasks) == 0 {
			return ran
		}

		for _, task := range tasks {
			task()
		}
		ran += len(tasks)
	}
}

// Pending returns the number of queued tasks.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Drain runs the engine callbacks the coordinator queued itself, when it was
// created without a Dispatcher. Call it on the control thread. With a caller's
// Dispatcher it does nothing.
func (c *Coordinator) Drain() int {
	if c.owned == nil {
		return 0
	}
	return c.owned.Drain()
}
