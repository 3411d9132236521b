package client

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the structured HTTP answer handed back by a Transport.
// A nil Body means the payload could not be obtained.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Task is a single dispatched request. Nothing is sent until Resume.
type Task interface {
	Resume()
	Cancel()
}

// Transport moves one request over the wire. done is called exactly once
// for every task that has been resumed; a nil *Response means no HTTP
// response was received.
type Transport interface {
	DataTask(req *http.Request, done func(*Response, error)) Task
}

// SessionConfig replaces a process-wide session with explicit settings.
type SessionConfig struct {
	// RequestTimeout bounds connecting and waiting for response headers.
	RequestTimeout time.Duration
	// ResourceTimeout bounds the whole exchange including the body.
	ResourceTimeout time.Duration
	// IgnoreLocalCache asks every hop to revalidate. No cache store exists.
	IgnoreLocalCache bool
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		RequestTimeout:   30 * time.Second,
		ResourceTimeout:  30 * time.Second,
		IgnoreLocalCache: true,
	}
}

type HTTPTransport struct {
	client HTTPClient
	config SessionConfig
	logger *zap.Logger
}

func NewHTTPTransport(config SessionConfig, logger *zap.Logger) *HTTPTransport {
	dialer := &net.Dialer{Timeout: config.RequestTimeout}
	httpClient := &http.Client{
		Timeout: config.ResourceTimeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           dialer.DialContext,
			TLSHandshakeTimeout:   config.RequestTimeout,
			ResponseHeaderTimeout: config.RequestTimeout,
		},
	}

	return NewHTTPTransportWithClient(httpClient, config, logger)
}

func NewHTTPTransportWithClient(httpClient HTTPClient, config SessionConfig, logger *zap.Logger) *HTTPTransport {
	return &HTTPTransport{
		client: httpClient,
		config: config,
		logger: logger,
	}
}

func (t *HTTPTransport) DataTask(req *http.Request, done func(*Response, error)) Task {
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)

	if t.config.IgnoreLocalCache {
		req.Header.Set("Cache-Control", "no-cache")
	}

	return &httpTask{
		transport: t,
		req:       req,
		done:      done,
		cancel:    cancel,
	}
}

type httpTask struct {
	transport *HTTPTransport
	req       *http.Request
	done      func(*Response, error)
	cancel    context.CancelFunc
	once      sync.Once
}

func (t *httpTask) Resume() {
	t.once.Do(func() {
		go t.run()
	})
}

func (t *httpTask) Cancel() {
	t.cancel()
}

func (t *httpTask) run() {
	defer t.cancel()

	logger := t.transport.logger
	resp, err := t.transport.client.Do(t.req)
	if err != nil {
		logger.Warn("HTTP request failed",
			zap.String("url", RedactURL(t.req.URL)),
			zap.Error(redactError(err)))
		t.done(nil, err)
		return
	}
	defer resp.Body.Close()

	response := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn("Reading response body failed",
			zap.String("url", RedactURL(t.req.URL)),
			zap.Int("status", resp.StatusCode),
			zap.Error(redactError(err)))
		t.done(response, err)
		return
	}
	response.Body = body

	logger.Debug("Request completed",
		zap.String("url", RedactURL(t.req.URL)),
		zap.Int("status", resp.StatusCode),
		zap.Int("body_size", len(body)))

	t.done(response, nil)
}
