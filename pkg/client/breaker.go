package client

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerConfig struct {
	Threshold int
	Timeout   time.Duration
}

// BreakerTransport fails fast while the upstream keeps answering 5xx or not
// at all. It never retries.
type BreakerTransport struct {
	next    Transport
	breaker *gobreaker.TwoStepCircuitBreaker
}

func NewBreakerTransport(name string, next Transport, config BreakerConfig, logger *zap.Logger) *BreakerTransport {
	threshold := uint32(config.Threshold)
	if threshold == 0 {
		threshold = 3
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("transport", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewTwoStepCircuitBreaker(settings),
	}
}

func (b *BreakerTransport) State() gobreaker.State {
	return b.breaker.State()
}

func (b *BreakerTransport) DataTask(req *http.Request, done func(*Response, error)) Task {
	task := &breakerTask{breaker: b.breaker, done: done}
	task.inner = b.next.DataTask(req, func(resp *Response, err error) {
		task.report(err == nil && resp != nil && resp.StatusCode < 500)
		done(resp, err)
	})
	return task
}

type breakerTask struct {
	breaker *gobreaker.TwoStepCircuitBreaker
	inner   Task
	done    func(*Response, error)
	report  func(success bool)
	once    sync.Once
}

func (t *breakerTask) Resume() {
	t.once.Do(func() {
		report, err := t.breaker.Allow()
		if err != nil {
			t.done(nil, fmt.Errorf("circuit breaker: %w", err))
			return
		}
		t.report = report
		t.inner.Resume()
	})
}

func (t *breakerTask) Cancel() {
	t.inner.Cancel()
}
