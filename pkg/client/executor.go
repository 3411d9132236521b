package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Result carries either a decoded value or a NetworkError.
type Result[T any] struct {
	Value T
	Err   error
}

type Executor struct {
	transport  Transport
	dispatcher Dispatcher
	logger     *zap.Logger
	metrics    *Metrics
	tracing    *TracingHelper
}

type Option func(*Executor)

// WithDispatcher sets the context callback and stream results are delivered on.
func WithDispatcher(d Dispatcher) Option {
	return func(e *Executor) {
		e.dispatcher = d
	}
}

func WithMetrics(m *Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithTracing(t *TracingHelper) Option {
	return func(e *Executor) {
		e.tracing = t
	}
}

func NewExecutor(transport Transport, logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		transport:  transport,
		dispatcher: ImmediateDispatcher{},
		logger:     logger,
		tracing:    NewTracingHelper(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSessionExecutor builds an executor over a real HTTP transport.
func NewSessionExecutor(config SessionConfig, logger *zap.Logger, opts ...Option) *Executor {
	return NewExecutor(NewHTTPTransport(config, logger), logger, opts...)
}

// Execute performs the request and blocks until it completes.
func Execute[T any](ctx context.Context, e *Executor, desc RequestDescriptor) (T, error) {
	results := make(chan Result[T], 1)
	task := execute(ctx, e, desc, func(r Result[T]) {
		results <- r
	})

	select {
	case r := <-results:
		return r.Value, r.Err
	case <-ctx.Done():
		// the transport still reports once after cancellation
		if task != nil {
			task.Cancel()
		}
		r := <-results
		return r.Value, r.Err
	}
}

// ExecuteAsync performs the request and hands the result to onComplete on
// the executor's dispatcher. The returned task is nil when the request could
// not be built; onComplete has already been scheduled in that case.
func ExecuteAsync[T any](ctx context.Context, e *Executor, desc RequestDescriptor, onComplete func(Result[T])) Task {
	return execute(ctx, e, desc, func(r Result[T]) {
		e.dispatcher.Dispatch(func() {
			onComplete(r)
		})
	})
}

// ExecuteStream emits exactly one Result and closes the channel. Each call
// is a new request; the channel cannot be restarted.
func ExecuteStream[T any](ctx context.Context, e *Executor, desc RequestDescriptor) <-chan Result[T] {
	out := make(chan Result[T], 1)
	execute(ctx, e, desc, func(r Result[T]) {
		e.dispatcher.Dispatch(func() {
			out <- r
			close(out)
		})
	})
	return out
}

// execute is the single request pipeline behind every calling convention.
// deliver is invoked exactly once.
func execute[T any](ctx context.Context, e *Executor, desc RequestDescriptor, deliver func(Result[T])) Task {
	start := time.Now()
	ctx, span := e.tracing.StartSpan(ctx, "client.execute",
		attribute.String("request.type", string(desc.Type)),
		attribute.String("request.method", string(desc.Method)))
	e.metrics.begin()

	finish := func(r Result[T]) {
		e.metrics.RecordRequest(desc.Type, start, r.Err)
		endSpan(span, r.Err)
		deliver(r)
	}

	req, err := e.newHTTPRequest(ctx, desc)
	if err != nil {
		finish(Result[T]{Err: err})
		return nil
	}

	task := e.transport.DataTask(req, func(resp *Response, err error) {
		payload, netErr := e.validate(req, resp, err)
		if netErr != nil {
			finish(Result[T]{Err: netErr})
			return
		}

		var value T
		if err := json.Unmarshal(payload, &value); err != nil {
			e.logger.Error("Failed to decode response",
				zap.String("url", RedactURL(req.URL)),
				zap.String("target", fmt.Sprintf("%T", value)),
				zap.Error(err))
			finish(Result[T]{Err: ErrParsing})
			return
		}
		finish(Result[T]{Value: value})
	})
	task.Resume()

	return task
}

func (e *Executor) newHTTPRequest(ctx context.Context, desc RequestDescriptor) (*http.Request, error) {
	path, ok := percentEncodeQuery(desc.Path)
	if !ok {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(path)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}

	method := desc.Method
	if method == "" {
		method = MethodGet
	}

	var body io.Reader
	if method == MethodPost && desc.Body != nil {
		body = bytes.NewReader(desc.Body)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), path, body)
	if err != nil {
		return nil, ErrInvalidURL
	}

	req.Header.Add("Content-Type", desc.ContentType)
	for key, value := range desc.Headers {
		req.Header.Add(key, value)
	}

	return req, nil
}

// validate classifies the transport outcome and returns the payload to decode.
func (e *Executor) validate(req *http.Request, resp *Response, err error) ([]byte, error) {
	if resp == nil {
		e.logger.Warn("No HTTP response received",
			zap.String("url", RedactURL(req.URL)),
			zap.Error(redactError(err)))
		return nil, ErrBadRequest
	}

	if netErr := classifyStatus(resp.StatusCode); netErr != nil {
		e.logger.Warn("Request rejected by status",
			zap.String("url", RedactURL(req.URL)),
			zap.Int("status", resp.StatusCode))
		return nil, netErr
	}

	if len(resp.Body) == 0 {
		return nil, ErrNoData
	}

	return resp.Body, nil
}

const upperhex = "0123456789ABCDEF"

// percentEncodeQuery escapes every byte outside the URL query allowed set.
// '%' is escaped as well, so pre-encoded input is encoded twice.
func percentEncodeQuery(s string) (string, bool) {
	if !utf8.ValidString(s) {
		return "", false
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if queryAllowed(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String(), true
}

func queryAllowed(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("!$&'()*+,-./:;=?@_~", c) >= 0
}
