// Package httputil provides HTTP client plumbing shared by the provider
// integrations.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

const (
	// DefaultTimeout bounds every provider call. The integrations this layer
	// replaced left timeouts at library defaults; here they are explicit and
	// overridable per provider.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBody caps provider response bodies to prevent memory
	// exhaustion from a misbehaving endpoint.
	DefaultMaxBody = 1 << 20 // 1MiB
)

// Doer abstracts *http.Client so tests and the circuit breaker can wrap it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NewClient returns an HTTP client with an explicit timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// WithBreaker wraps a Doer with a circuit breaker. The breaker trips after a
// run of consecutive transport failures and recovers after a cooldown; it
// never retries, it only sheds load from an integration that is already down.
func WithBreaker(name string, doer Doer) Doer {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &breakerDoer{doer: doer, cb: cb}
}

type breakerDoer struct {
	doer Doer
	cb   *gobreaker.CircuitBreaker
}

func (b *breakerDoer) Do(req *http.Request) (*http.Response, error) {
	resp, err := b.cb.Execute(func() (interface{}, error) {
		return b.doer.Do(req)
	})
	if err != nil {
		return nil, err
	}
	return resp.(*http.Response), nil
}

// PostJSON issues a JSON POST and returns the status code and bounded body.
// Headers are applied after Content-Type so callers can override it.
func PostJSON(ctx context.Context, doer Doer, url string, payload interface{}, headers map[string]string) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("httputil: marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("httputil: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return drain(doer, req)
}

// PostForm issues a form-encoded POST and returns the status code and body.
func PostForm(ctx context.Context, doer Doer, url, form string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(form)))
	if err != nil {
		return 0, nil, fmt.Errorf("httputil: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return drain(doer, req)
}

// Get issues a GET and returns the status code and bounded body.
func Get(ctx context.Context, doer Doer, url string, headers map[string]string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("httputil: create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return drain(doer, req)
}

func drain(doer Doer, req *http.Request) (int, []byte, error) {
	resp, err := doer.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("httputil: execute request: %w", err)
	}
	defer resp.Body.Close()

	body, _, err := ReadAllWithLimit(resp.Body, DefaultMaxBody)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("httputil: read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}
