package client

import "sync"

// Dispatcher is the execution context completions are delivered on.
type Dispatcher interface {
	Dispatch(fn func())
}

// ImmediateDispatcher runs fn on the goroutine that completed the request.
type ImmediateDispatcher struct{}

func (ImmediateDispatcher) Dispatch(fn func()) { fn() }

// SerialQueue runs every dispatched function, in order, on one goroutine.
// It plays the role of a UI main queue. Close must not be called from a job.
type SerialQueue struct {
	mu      sync.RWMutex
	closed  bool
	jobs    chan func()
	stopped chan struct{}
	once    sync.Once
}

func NewSerialQueue(buffer int) *SerialQueue {
	q := &SerialQueue{
		jobs:    make(chan func(), buffer),
		stopped: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *SerialQueue) run() {
	defer close(q.stopped)
	for fn := range q.jobs {
		fn()
	}
}

// Dispatch enqueues fn. Once the queue is closed fn runs on the caller's
// goroutine, so every completion is still delivered.
func (q *SerialQueue) Dispatch(fn func()) {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		fn()
		return
	}
	q.jobs <- fn
	q.mu.RUnlock()
}

// Close stops accepting work, runs what is already queued and waits for
// the queue goroutine to exit.
func (q *SerialQueue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
	})
	<-q.stopped
}
