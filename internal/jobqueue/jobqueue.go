// Package jobqueue implements the dynamic work pool driving one sort root.
//
// Jobs are independent callables; dependency structure between sort steps
// lives in the steps' own substep counters, never in queue order. A job may
// enqueue further jobs while it runs. The pool terminates when the queue is
// empty and every worker is parked in the pop path, which by construction
// means no job is running that could still produce work.
package jobqueue

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// A Job is one unit of work. Run may call Enqueue to publish follow-up work.
type Job interface {
	Run()
}

// Func adapts a plain function to the Job interface.
type Func func()

// Run invokes the function.
func (f Func) Run() { f() }

// Queue is a multi-producer multi-consumer job pool with idle-worker
// signalling. One Queue serves one sort root and is not reusable after
// Run returns.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond
	jobs []Job
	head int

	workers int32
	idle    atomic.Int32
	done    bool
}

// New creates an empty queue.
func New() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue publishes a job. Safe to call from any goroutine, including from
// inside a running job.
func (q *Queue) Enqueue(j Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()
	q.cond.Signal()
}

// HasIdle reports whether at least one worker is currently parked with no
// work available. A racy snapshot: callers use it as a heuristic to free
// pending work, so a stale answer is harmless.
func (q *Queue) HasIdle() bool {
	return q.idle.Load() > 0
}

// pop removes the oldest job, blocking while the queue is empty and other
// workers are still running jobs. It returns false once the pool has
// drained: queue empty and all workers idle.
func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.head < len(q.jobs) {
			j := q.jobs[q.head]
			q.jobs[q.head] = nil
			q.head++
			if q.head == len(q.jobs) {
				q.jobs = q.jobs[:0]
				q.head = 0
			}
			return j, true
		}
		if q.done {
			return nil, false
		}
		if q.idle.Add(1) == q.workers {
			// Last running worker found the queue empty: drained.
			q.done = true
			q.cond.Broadcast()
			return nil, false
		}
		q.cond.Wait()
		if q.done {
			return nil, false
		}
		q.idle.Add(-1)
	}
}

// Run executes jobs on the given number of workers until the pool drains.
// If pin is non-nil it is invoked once per worker on a locked OS thread
// before the worker starts popping; pinning is best-effort.
func (q *Queue) Run(workers int, pin func(worker int)) error {
	if workers < 1 {
		workers = 1
	}
	q.workers = int32(workers)

	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			if pin != nil {
				runtime.LockOSThread()
				defer runtime.UnlockOSThread()
				pin(w)
			}
			for {
				j, ok := q.pop()
				if !ok {
					return nil
				}
				j.Run()
			}
		})
	}
	return g.Wait()
}
