// Package transport performs the network calls gateway adapters delegate to:
// one synchronous HTTP exchange per operation, with a request timeout, a
// circuit breaker per endpoint host, and transcript capture for scrubbed
// diagnostics.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

const defaultTimeout = 30 * time.Second

// maxBodyBytes caps response reads; processor responses are small.
const maxBodyBytes = 4 << 20

// Result is the raw outcome of one exchange.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Config holds transport configuration.
type Config struct {
	Timeout time.Duration

	// ConsecutiveFailures opens the breaker after this many failures in a
	// row. Zero keeps the default of 5.
	ConsecutiveFailures uint32

	// OnTranscript, when set, receives the formatted request/response pair
	// of every exchange, including failed ones. The text is raw; callers
	// scrub it before storing.
	OnTranscript func(transcript string)
}

// Client issues processor HTTP calls. A single Client is safe for concurrent
// use; per-call state lives on the stack.
type Client struct {
	http         *http.Client
	onTranscript func(string)
	failures     uint32

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*Result]
}

// New creates a transport client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	failures := cfg.ConsecutiveFailures
	if failures == 0 {
		failures = 5
	}
	return &Client{
		http:         &http.Client{Timeout: timeout},
		onTranscript: cfg.OnTranscript,
		failures:     failures,
		breakers:     make(map[string]*gobreaker.CircuitBreaker[*Result]),
	}
}

// Do performs one exchange. Processor-level failures (4xx/5xx) are returned
// as a Result, not an error; only network faults and an open breaker produce
// errors.
func (c *Client) Do(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Result, error) {
	breaker := c.breakerFor(rawURL)

	result, err := breaker.Execute(func() (*Result, error) {
		return c.exchange(ctx, method, rawURL, headers, body)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PostForm sends an application/x-www-form-urlencoded request.
func (c *Client) PostForm(ctx context.Context, rawURL string, headers map[string]string, values url.Values) (*Result, error) {
	h := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Do(ctx, http.MethodPost, rawURL, h, []byte(values.Encode()))
}

// PostJSON marshals payload and sends an application/json request.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Do(ctx, http.MethodPost, rawURL, h, body)
}

// HTTPClient exposes the client as a plain *http.Client for vendor SDKs that
// accept one, keeping the breaker and transcript hook in the request path.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{
		Timeout:   c.http.Timeout,
		Transport: roundTripper{c},
	}
}

type roundTripper struct {
	client *Client
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		body = data
	}

	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		headers[k] = req.Header.Get(k)
	}

	result, err := rt.client.Do(req.Context(), req.Method, req.URL.String(), headers, body)
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", result.StatusCode, http.StatusText(result.StatusCode)),
		StatusCode:    result.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        result.Header,
		Body:          io.NopCloser(bytes.NewReader(result.Body)),
		ContentLength: int64(len(result.Body)),
		Request:       req,
	}, nil
}

func (c *Client) exchange(ctx context.Context, method, rawURL string, headers map[string]string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.record(method, rawURL, headers, body, nil, err)
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.record(method, rawURL, headers, body, nil, err)
		return nil, fmt.Errorf("read response: %w", err)
	}

	result := &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       data,
	}
	c.record(method, rawURL, headers, body, result, nil)
	return result, nil
}

func (c *Client) record(method, rawURL string, headers map[string]string, body []byte, result *Result, exchangeErr error) {
	if c.onTranscript == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", method, rawURL)
	for k, v := range headers {
		fmt.Fprintf(&sb, "%s: %s\n", k, v)
	}
	if len(body) > 0 {
		sb.WriteString("\n")
		sb.Write(body)
		sb.WriteString("\n")
	}
	switch {
	case exchangeErr != nil:
		fmt.Fprintf(&sb, "-- error: %v\n", exchangeErr)
	case result != nil:
		fmt.Fprintf(&sb, "-- %d\n", result.StatusCode)
		sb.Write(result.Body)
		sb.WriteString("\n")
	}
	c.onTranscript(sb.String())
}

// breakerFor returns the circuit breaker for the URL's host, creating it on
// first use.
func (c *Client) breakerFor(rawURL string) *gobreaker.CircuitBreaker[*Result] {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.breakers[host]; ok {
		return b
	}

	failures := c.failures
	settings := gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	}

	b := gobreaker.NewCircuitBreaker[*Result](settings)
	c.breakers[host] = b
	return b
}
