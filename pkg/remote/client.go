// Package remote calls the NLP model services consulted every turn. Each
// service is a single JSON POST endpoint; failures are returned as *Error
// values and never panic.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"time"

	"socialbot-be/internal/pkg/logger"
	"socialbot-be/pkg/errkind"
)

const (
	defaultTimeout = 2 * time.Second
	retryBackoff   = 50 * time.Millisecond
)

// ServiceConfig registers one remote service.
type ServiceConfig struct {
	Name            string
	URL             string
	RequiredContext []string
	Timeout         time.Duration
	Retries         int
}

// Result is a successful service reply.
type Result struct {
	Service     string
	Raw         json.RawMessage
	Performance float64
	Latency     time.Duration
}

// Decode unmarshals the reply body into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Raw, v)
}

type Client struct {
	http     *http.Client
	services map[string]ServiceConfig
	logger   logger.ILogger
}

type Option func(*Client)

// WithHTTPClient overrides the shared transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func NewClient(services []ServiceConfig, log logger.ILogger, opts ...Option) (*Client, error) {
	c := &Client{
		http:     &http.Client{},
		services: make(map[string]ServiceConfig, len(services)),
		logger:   log,
	}
	for _, s := range services {
		if s.Name == "" || s.URL == "" {
			return nil, fmt.Errorf("remote: service %q needs a name and a url", s.Name)
		}
		if _, dup := c.services[s.Name]; dup {
			return nil, fmt.Errorf("remote: service %q registered twice", s.Name)
		}
		if s.Timeout <= 0 {
			s.Timeout = defaultTimeout
		}
		if s.Retries < 0 {
			s.Retries = 0
		}
		c.services[s.Name] = s
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Has reports whether service is registered.
func (c *Client) Has(service string) bool {
	_, ok := c.services[service]
	return ok
}

// Services lists the registered service names in sorted order.
func (c *Client) Services() []string {
	names := make([]string, 0, len(c.services))
	for n := range c.services {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Call posts payload to service and returns its reply.
func (c *Client) Call(ctx context.Context, service string, payload map[string]any) (*Result, error) {
	cfg, ok := c.services[service]
	if !ok {
		return nil, &Error{Kind: errkind.ErrServiceError, Service: service, Message: "service not registered"}
	}

	var missing []string
	for _, key := range cfg.RequiredContext {
		if _, ok := payload[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, missingContext(service, missing)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Kind: errkind.ErrServiceError, Service: service, Message: "encode payload", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	var lastErr *Error
	for attempt := 0; attempt <= cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, c.fail(&Error{Kind: errkind.ErrTimeout, Service: service, Err: ctx.Err()}, attempt)
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		res, callErr := c.post(ctx, cfg, body)
		if callErr == nil {
			res.Latency = time.Since(start)
			return res, nil
		}
		lastErr = callErr
		if !retryable(callErr) {
			break
		}
	}
	if lastErr == nil {
		lastErr = &Error{Kind: errkind.ErrServiceError, Service: service, Message: "no attempt made"}
	}
	return nil, c.fail(lastErr, cfg.Retries)
}

func (c *Client) post(ctx context.Context, cfg ServiceConfig, body []byte) (*Result, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: errkind.ErrServiceError, Service: cfg.Name, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &Error{Kind: errkind.ErrTimeout, Service: cfg.Name, Err: err}
		}
		return nil, &Error{Kind: errkind.ErrServiceError, Service: cfg.Name, Message: "transport", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &Error{Kind: errkind.ErrTimeout, Service: cfg.Name, Err: err}
		}
		return nil, &Error{Kind: errkind.ErrServiceError, Service: cfg.Name, Message: "read body", Err: err}
	}

	var envelope struct {
		Error       bool    `json:"error"`
		Message     string  `json:"message"`
		StackTrace  string  `json:"stack_trace"`
		Performance float64 `json:"performance"`
	}
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:       errkind.ErrServiceError,
			Service:    cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			StackTrace: envelope.StackTrace,
		}
	}
	if decodeErr != nil {
		return nil, &Error{Kind: errkind.ErrServiceError, Service: cfg.Name, Message: "decode reply", Err: decodeErr}
	}
	if envelope.Error {
		return nil, &Error{
			Kind:       errkind.ErrServiceError,
			Service:    cfg.Name,
			StatusCode: resp.StatusCode,
			Message:    envelope.Message,
			StackTrace: envelope.StackTrace,
		}
	}

	return &Result{Service: cfg.Name, Raw: raw, Performance: envelope.Performance}, nil
}

func (c *Client) fail(e *Error, attempts int) *Error {
	if e == nil {
		e = &Error{Kind: errkind.ErrServiceError, Message: "unknown failure"}
	}
	details := map[string]interface{}{
		"service":  e.Service,
		"kind":     errkind.Name(e.Kind),
		"attempts": attempts + 1,
	}
	if e.StatusCode != 0 {
		details["status"] = e.StatusCode
	}
	if e.Message != "" {
		details["message"] = e.Message
	}
	if e.StackTrace != "" {
		details["stack_trace"] = e.StackTrace
	}
	c.logger.Warn("remote", "Remote call failed", details)
	return e
}

// retryable covers infrastructure failures. Application errors (HTTP 500 or an
// error body) and timeouts are final.
func retryable(e *Error) bool {
	if !errors.Is(e.Kind, errkind.ErrServiceError) {
		return false
	}
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	case 0:
		return e.Message == "transport"
	}
	return false
}

func isTimeout(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
