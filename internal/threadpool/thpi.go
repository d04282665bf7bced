package threadpool

// ThPI ("thread pool interface") is the per-client handle a caller uses to
// submit work and wait for it. Two submission idioms are supported:
//
//   - AddWaitingTask/WaitUntilFinished: submit-as-you-go, for callers that
//     generate one task per loop iteration (e.g. one task per picture row).
//   - StoreTask/SubmitStored/WaitUntilFinished2: buffer a batch of
//     closures, then release them all at once, for callers that want every
//     task of a batch queued back-to-back before waiting (e.g. handing off
//     every component's window-sum task for one frame), with a coalesced
//     bulk receive on the wait side.
//
// Completed tasks are routed by workers to this client's private completed
// ring; the wait calls receive them and return the task objects to a local
// free-list so steady-state row dispatch allocates nothing. A ThPI is
// intended for use by one goroutine at a time.
//
// An inactive ThPI (obtained from Inactive, not bound to a pool) runs
// every task inline in the calling goroutine with thread index -1; this is
// the single supported non-threaded mode.
type ThPI struct {
	pool      *ThreadPool
	clientID  int
	completed *ring

	// Priority is recorded on every task this client submits, for
	// tie-breaking policy; scheduling itself is FIFO.
	Priority int

	free   []*Task
	immed  int
	batch  int
	stored []*Task
}

// Inactive returns a ThPI not bound to any pool: every submitted task runs
// synchronously on the calling thread with thread index -1.
func Inactive() *ThPI {
	return &ThPI{}
}

// ClientID returns the id this handle registered under.
func (p *ThPI) ClientID() int { return p.clientID }

// Synchronous reports whether this handle runs tasks inline.
func (p *ThPI) Synchronous() bool { return p.pool == nil }

// takeTask pops a reusable task object from the free-list or allocates
// one, binding fn to it.
func (p *ThPI) takeTask(fn func(threadIdx int)) *Task {
	var t *Task
	if n := len(p.free); n > 0 {
		t = p.free[n-1]
		p.free = p.free[:n-1]
	} else {
		t = &Task{}
	}
	t.ClientID = p.clientID
	t.Priority = p.Priority
	t.Type = TaskFunction
	t.Fn = fn
	t.owner = p
	t.setStatus(StatusWaiting)
	return t
}

func (p *ThPI) recycle(t *Task) {
	t.Fn = nil
	p.free = append(p.free, t)
}

// AddWaitingTask submits fn for execution. In synchronous mode fn runs
// immediately with thread index -1 and WaitUntilFinished is a no-op;
// otherwise the task is enqueued on the pool's waiting ring, blocking
// while the ring is full.
func (p *ThPI) AddWaitingTask(fn func(threadIdx int)) {
	if p.Synchronous() {
		fn(-1)
		return
	}
	p.pool.waiting.push(p.takeTask(fn))
	p.immed++
}

// Receive pops the next completed task for this client, blocking until
// one arrives. The caller owns the returned task until it resubmits or
// drops it; ordinary metric code uses WaitUntilFinished instead.
func (p *ThPI) Receive() *Task {
	t, _ := p.completed.pop()
	return t
}

// ReceiveN pops up to n completed tasks in one coalesced bulk operation,
// blocking until at least one is available.
func (p *ThPI) ReceiveN(n int) []*Task {
	return p.completed.popN(n)
}

// WaitUntilFinished blocks until every task submitted via AddWaitingTask
// since the last wait has completed, returning the task objects to the
// free-list.
func (p *ThPI) WaitUntilFinished() {
	if p.Synchronous() {
		return
	}
	for p.immed > 0 {
		t, ok := p.completed.pop()
		if !ok {
			return
		}
		p.immed--
		p.recycle(t)
	}
}

// StoreTask buffers fn locally without submitting it to the pool.
func (p *ThPI) StoreTask(fn func(threadIdx int)) {
	if p.Synchronous() {
		p.stored = append(p.stored, &Task{Fn: fn})
		return
	}
	p.stored = append(p.stored, p.takeTask(fn))
}

// SubmitStored releases every task buffered by StoreTask since the last
// call, pushing them back-to-back onto the waiting ring. In synchronous
// mode they run immediately, in submission order.
func (p *ThPI) SubmitStored() {
	tasks := p.stored
	p.stored = nil

	if p.Synchronous() {
		for _, t := range tasks {
			t.Fn(-1)
		}
		return
	}
	for _, t := range tasks {
		p.pool.waiting.push(t)
	}
	p.batch += len(tasks)
}

// WaitUntilFinished2 blocks until every task released by SubmitStored has
// completed, using the coalesced bulk receive.
func (p *ThPI) WaitUntilFinished2() {
	if p.Synchronous() {
		return
	}
	for p.batch > 0 {
		ts := p.completed.popN(p.batch)
		if ts == nil {
			return
		}
		p.batch -= len(ts)
		for _, t := range ts {
			p.recycle(t)
		}
	}
}
