// Package pool implements a bounded, fixed-size FIFO worker pool: a single
// mutex guards a job queue and a busy-worker counter, with two condition
// variables — one signalled on every submission (work-available), one
// signalled whenever a worker finishes a job (work-done) so wait_idle can
// observe the queue draining. This generalises the teacher's
// semaphore-channel concurrency limiter (muscato_screen.go's
// `limit := make(chan bool, concurrency)`) into the mutex/condvar shape
// required here.
package pool

import (
	"fmt"
	"sync"

	"github.com/will-rowe/antman/internal/errs"
)

// MinWorkers is the smallest pool size Create accepts.
const MinWorkers = 2

// Job is a unit of work submitted to the pool.
type Job func()

// Pool is a fixed-size FIFO worker pool.
type Pool struct {
	mu        sync.Mutex
	workAvail *sync.Cond
	workDone  *sync.Cond
	queue     []Job
	busy      int
	shutdown  bool
	wg        sync.WaitGroup
}

// Create starts n workers (n must be >= MinWorkers and, when maxWorkers is
// greater than 0, <= maxWorkers; a maxWorkers of 0 or less sets no upper
// bound).
func Create(n, maxWorkers int) (*Pool, error) {
	if n < MinWorkers {
		return nil, fmt.Errorf("worker count %d below minimum %d: %w", n, MinWorkers, errs.ErrConfigInvalid)
	}
	if maxWorkers > 0 && n > maxWorkers {
		return nil, fmt.Errorf("worker count %d exceeds configured maximum %d: %w", n, maxWorkers, errs.ErrConfigInvalid)
	}

	p := &Pool{}
	p.workAvail = sync.NewCond(&p.mu)
	p.workDone = sync.NewCond(&p.mu)

	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.shutdown {
			p.workAvail.Wait()
		}
		if len(p.queue) == 0 && p.shutdown {
			p.mu.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.busy++
		p.mu.Unlock()

		job()

		p.mu.Lock()
		p.busy--
		p.workDone.Broadcast()
		p.mu.Unlock()
	}
}

// Submit enqueues job in FIFO order. It returns false (rejected) if the
// pool has begun shutting down; accepted jobs are run exactly once.
func (p *Pool) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return false
	}
	p.queue = append(p.queue, job)
	p.workAvail.Signal()
	return true
}

// WaitIdle blocks until the queue is empty and no worker is currently
// executing a job.
func (p *Pool) WaitIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 || p.busy > 0 {
		p.workDone.Wait()
	}
}

// Shutdown refuses new submissions, lets already-queued and in-flight jobs
// run to completion, then joins every worker.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.shutdown = true
	p.workAvail.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
