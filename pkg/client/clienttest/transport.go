// Package clienttest provides a scripted client.Transport for tests.
package clienttest

import (
	"context"
	"net/http"
	"sync"

	"github.com/bobby-s-dev/iweather/pkg/client"
)

// Transport answers every task with the canned fields below. Completion
// happens synchronously inside Resume unless Hold is set, in which case it
// waits for Release.
type Transport struct {
	mu sync.Mutex

	Body       []byte
	StatusCode int
	Err        error
	// NoResponse completes tasks without an HTTP response.
	NoResponse bool
	// Hold parks completions until Release is called.
	Hold bool

	lastRequest *http.Request
	tasks       []*Task
	release     chan struct{}
}

func New(status int, body []byte) *Transport {
	return &Transport{
		StatusCode: status,
		Body:       body,
	}
}

func (t *Transport) DataTask(req *http.Request, done func(*client.Response, error)) client.Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastRequest = req
	task := &Task{transport: t, done: done, cancelCh: make(chan struct{})}
	t.tasks = append(t.tasks, task)
	return task
}

// LastRequest is the most recently dispatched request.
func (t *Transport) LastRequest() *http.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastRequest
}

// LastURL is the string form of the last dispatched URL, or "".
func (t *Transport) LastURL() string {
	req := t.LastRequest()
	if req == nil {
		return ""
	}
	return req.URL.String()
}

// Tasks returns every task created so far.
func (t *Transport) Tasks() []*Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Release unblocks held completions.
func (t *Transport) Release() {
	t.mu.Lock()
	ch := t.releaseChan()
	t.mu.Unlock()

	select {
	case <-ch:
	default:
		close(ch)
	}
}

func (t *Transport) releaseChan() chan struct{} {
	if t.release == nil {
		t.release = make(chan struct{})
	}
	return t.release
}

func (t *Transport) outcome() (*client.Response, bool, chan struct{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var release chan struct{}
	if t.Hold {
		release = t.releaseChan()
	}

	if t.NoResponse {
		return nil, t.Hold, release, t.Err
	}
	var body []byte
	if t.Body != nil {
		body = append([]byte(nil), t.Body...)
	}
	resp := &client.Response{
		StatusCode: t.StatusCode,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       body,
	}
	return resp, t.Hold, release, t.Err
}

// Task completes once. Cancelling a held or not yet resumed task completes
// it with context.Canceled and no response, like an aborted HTTP request.
type Task struct {
	transport *Transport
	done      func(*client.Response, error)
	cancelCh  chan struct{}

	mu        sync.Mutex
	resumed   int
	cancelled bool
	finished  bool
}

func (k *Task) Resume() {
	k.mu.Lock()
	k.resumed++
	first := k.resumed == 1
	cancelled := k.cancelled
	k.mu.Unlock()
	if !first {
		return
	}
	if cancelled {
		k.finish(nil, context.Canceled)
		return
	}

	resp, hold, release, err := k.transport.outcome()
	if hold {
		go func() {
			select {
			case <-release:
				k.finish(resp, err)
			case <-k.cancelCh:
				k.finish(nil, context.Canceled)
			}
		}()
		return
	}
	k.finish(resp, err)
}

func (k *Task) Cancel() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.cancelled {
		return
	}
	k.cancelled = true
	close(k.cancelCh)
}

func (k *Task) finish(resp *client.Response, err error) {
	k.mu.Lock()
	if k.finished {
		k.mu.Unlock()
		return
	}
	k.finished = true
	k.mu.Unlock()

	k.done(resp, err)
}

// ResumeCount reports how many times Resume was called.
func (k *Task) ResumeCount() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.resumed
}

func (k *Task) Cancelled() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.cancelled
}
