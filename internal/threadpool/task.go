package threadpool

import "sync/atomic"

// TaskType distinguishes ordinary work from the internal terminator tasks
// used to stop worker goroutines during Destroy, and from custom tasks
// submitted with a caller-supplied priority for future scheduling needs.
type TaskType int

const (
	TaskFunction TaskType = iota
	TaskTerminator
	TaskCustom
)

// Status tracks a task's position in its lifecycle: Waiting in the ring,
// Processed by a worker (function has run), Completed (routed to the
// owning client's completed ring, side effects safe to observe). The
// transitions are monotone: Waiting -> Processed -> Completed.
type Status int32

const (
	StatusWaiting Status = iota
	StatusProcessed
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "Waiting"
	case StatusProcessed:
		return "Processed"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// Task is one unit of work submitted to a ThreadPool. Fn receives the
// executing worker's thread index (or -1 when run synchronously by an
// inactive ThPI). Priority is recorded for inspection; scheduling itself
// is plain FIFO and never reorders the waiting ring.
type Task struct {
	ClientID int
	Priority int
	Type     TaskType
	Fn       func(threadIdx int)

	status atomic.Int32
	owner  *ThPI
}

// Status returns the task's current lifecycle status.
func (t *Task) Status() Status {
	return Status(t.status.Load())
}

func (t *Task) setStatus(s Status) {
	t.status.Store(int32(s))
}
