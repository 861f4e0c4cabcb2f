package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Task represents a callback scheduled for future execution
type Task struct {
	ID       string
	ExpiryAt time.Time
	Callback func()
	index    int // index in the heap (for heap.Interface)
}

// taskHeap is a min-heap of Tasks ordered by ExpiryAt
type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	return h[i].ExpiryAt.Before(h[j].ExpiryAt)
}

func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *taskHeap) Push(x interface{}) {
	n := len(*h)
	task := x.(*Task)
	task.index = n
	*h = append(*h, task)
}

func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	task := old[n-1]
	old[n-1] = nil  // avoid memory leak
	task.index = -1 // for safety
	*h = old[0 : n-1]
	return task
}

// Scheduler runs callbacks at their scheduled times using a min-heap.
// The engine uses it for idle handle eviction and the rollup service
// for its monthly runs. Rescheduling an existing ID replaces it.
type Scheduler struct {
	heap    taskHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	tasks   map[string]*Task // for O(1) lookup by ID
	stopped bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewScheduler creates a new scheduler
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(taskHeap, 0),
		wakeup: make(chan struct{}, 1),
		tasks:  make(map[string]*Task),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start starts the scheduler loop
func (s *Scheduler) Start() {
	go s.run()
}

// Stop stops the scheduler gracefully. Callbacks already dispatched
// keep running; pending tasks are dropped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

// Schedule adds a task to be executed at the specified time,
// replacing any existing task with the same ID
func (s *Scheduler) Schedule(id string, expiryAt time.Time, callback func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.tasks[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.tasks, id)
	}

	task := &Task{
		ID:       id,
		ExpiryAt: expiryAt,
		Callback: callback,
	}

	heap.Push(&s.heap, task)
	s.tasks[id] = task

	// Wake up the scheduler if this is now the earliest task
	if s.heap[0] == task {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a scheduled task
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, task.index)
	delete(s.tasks, id)
	return true
}

// run is the main scheduler loop
func (s *Scheduler) run() {
	defer close(s.doneCh)

	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		var waitDuration time.Duration
		if s.heap.Len() == 0 {
			// No tasks, wait indefinitely
			waitDuration = 24 * time.Hour
		} else {
			nextTask := s.heap[0]
			waitDuration = time.Until(nextTask.ExpiryAt)

			if waitDuration <= 0 {
				// Task is ready to execute
				task := heap.Pop(&s.heap).(*Task)
				delete(s.tasks, task.ID)

				go task.Callback()

				s.mu.Unlock()
				continue
			}
		}

		s.mu.Unlock()

		// Wait for either timeout or wakeup signal
		timer := time.NewTimer(waitDuration)
		select {
		case <-timer.C:
			// Time to check for expired tasks
		case <-s.wakeup:
			// New task added or existing task updated
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// Pending returns the number of scheduled tasks
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}

var ErrSchedulerStopped = &SchedulerError{"scheduler is stopped"}

// SchedulerError represents a scheduler error
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
