// Package dispatch runs scrape tasks on a fixed-size worker pool.
// Submission order is FIFO and the queue is unbounded; backpressure
// is the rate limiters' job, not the pool's.
package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrAwaitTimeout is returned by Handle.Await when the task does not
// finish in time. The task itself keeps running to completion so that
// held resources are still released.
var ErrAwaitTimeout = errors.New("dispatch: task await timed out")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatch: pool is closed")

// Task is a unit of scrape work.
type Task func() (any, error)

// Handle resolves with the task's outcome.
type Handle struct {
	done   chan struct{}
	result any
	err    error
}

// Await blocks until the task finishes or the timeout elapses. On
// timeout the underlying work is abandoned from the caller's
// perspective but not killed.
func (h *Handle) Await(timeout time.Duration) (any, error) {
	select {
	case <-h.done:
		return h.result, h.err
	case <-time.After(timeout):
		return nil, ErrAwaitTimeout
	}
}

// Pool is the bounded worker pool. Workers survive task panics; a
// panicking task fails only its own handle.
type Pool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []*item
	closed  bool
	workers sync.WaitGroup

	// onDepthChange, when set, observes every queue depth transition.
	// The engine points it at the queue-depth gauge.
	onDepthChange func(depth int)
}

type item struct {
	task   Task
	handle *Handle
}

func NewPool(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < workers; i++ {
		p.workers.Add(1)
		go p.worker()
	}
	return p
}

// OnDepthChange registers a callback invoked with the queue depth
// after every enqueue and dequeue. Set it before submitting work.
func (p *Pool) OnDepthChange(fn func(depth int)) {
	p.mu.Lock()
	p.onDepthChange = fn
	p.mu.Unlock()
}

// Submit enqueues a task and returns its handle.
func (p *Pool) Submit(task Task) (*Handle, error) {
	h := &Handle{done: make(chan struct{})}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.queue = append(p.queue, &item{task: task, handle: h})
	if p.onDepthChange != nil {
		p.onDepthChange(len(p.queue))
	}
	p.mu.Unlock()

	p.cond.Signal()
	return h, nil
}

// QueueDepth reports the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Close stops accepting work and blocks until the queue drains and
// all workers exit.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cond.Broadcast()
	p.workers.Wait()
}

func (p *Pool) worker() {
	defer p.workers.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closed {
			p.mu.Unlock()
			return
		}
		it := p.queue[0]
		p.queue = p.queue[1:]
		if p.onDepthChange != nil {
			p.onDepthChange(len(p.queue))
		}
		p.mu.Unlock()

		it.handle.result, it.handle.err = runTask(it.task)
		close(it.handle.done)
	}
}

// runTask isolates task panics so a bad page or extractor bug cannot
// take a worker down with it.
func runTask(task Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("dispatch: task panic: %v", r)
		}
	}()
	return task()
}
