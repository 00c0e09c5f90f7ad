package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

const (
	defaultUserAgent      = "photosort/0.1"
	defaultTimeout        = 10 * time.Second
	defaultConnectTimeout = 5 * time.Second
	defaultMediaTimeout   = 30 * time.Second
	defaultMaxConnections = 10
	defaultMaxConcurrent  = 3
)

// TransportConfig configures a Transport. Zero values fall back to defaults.
type TransportConfig struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MediaTimeout   time.Duration
	MaxConnections int
	MaxConcurrent  int64
	Read           *RetryPolicy
	Write          *RetryPolicy
}

// Response is a fully read 2xx reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Transport performs every outbound call to the backend. All calls share one
// connection pool and a global permit of MaxConcurrent in-flight requests.
type Transport struct {
	base         string
	apiKey       string
	userAgent    string
	timeout      time.Duration
	mediaTimeout time.Duration
	pool         *http.Transport
	http         *http.Client
	sem          *semaphore.Weighted
	read         *RetryPolicy
	write        *RetryPolicy
	closed       atomic.Bool
}

// NewTransport builds a Transport with its own pooled connections.
func NewTransport(cfg TransportConfig) (*Transport, error) {
	base, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.MediaTimeout <= 0 {
		cfg.MediaTimeout = defaultMediaTimeout
	}
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.Read == nil {
		cfg.Read = ReadRetryPolicy()
	}
	if cfg.Write == nil {
		cfg.Write = WriteRetryPolicy()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	pool := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxConnections,
		MaxIdleConnsPerHost:   cfg.MaxConnections,
		MaxConnsPerHost:       cfg.MaxConnections,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}

	return &Transport{
		base:         base,
		apiKey:       cfg.APIKey,
		userAgent:    defaultUserAgent,
		timeout:      cfg.Timeout,
		mediaTimeout: cfg.MediaTimeout,
		pool:         pool,
		http:         &http.Client{Transport: pool},
		sem:          semaphore.NewWeighted(cfg.MaxConcurrent),
		read:         cfg.Read,
		write:        cfg.Write,
	}, nil
}

// BaseURL returns the normalized backend base URL.
func (t *Transport) BaseURL() string { return t.base }

// Fetch issues a GET on the read retry policy.
func (t *Transport) Fetch(ctx context.Context, path string) (*Response, error) {
	return t.do(ctx, call{policy: t.read, method: http.MethodGet, path: path, timeout: t.timeout})
}

// FetchMedia issues a GET for binary content with the longer media timeout.
func (t *Transport) FetchMedia(ctx context.Context, path string) (*Response, error) {
	return t.do(ctx, call{policy: t.read, method: http.MethodGet, path: path, timeout: t.mediaTimeout, accept: "*/*"})
}

// Query issues a POST that only reads backend state, on the read retry policy.
func (t *Transport) Query(ctx context.Context, path string, body any) (*Response, error) {
	return t.do(ctx, call{policy: t.read, method: http.MethodPost, path: path, body: body, timeout: t.timeout})
}

// Mutate issues a state-changing request on the write retry policy and
// returns the JSON reply, or nil when the backend sent no body.
func (t *Transport) Mutate(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	resp, err := t.do(ctx, call{policy: t.write, method: method, path: path, body: body, timeout: t.timeout})
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(resp.Body)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("%s %s: %w: body is not JSON", method, path, ErrMalformedResponse)
	}
	return json.RawMessage(trimmed), nil
}

// Close releases pooled connections. It is safe to call more than once;
// requests issued afterwards fail with ErrClosed.
func (t *Transport) Close() {
	if t.closed.CompareAndSwap(false, true) {
		t.pool.CloseIdleConnections()
	}
}

// call describes one logical request, which may take several attempts.
type call struct {
	policy  *RetryPolicy
	method  string
	path    string
	body    any
	timeout time.Duration
	accept  string
}

func (t *Transport) do(ctx context.Context, c call) (*Response, error) {
	if t.closed.Load() {
		return nil, ErrClosed
	}
	var payload []byte
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}
	if c.accept == "" {
		c.accept = "application/json"
	}

	var resp *Response
	err := c.policy.Execute(ctx, func() error {
		r, err := t.attempt(ctx, c, payload)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// attempt performs a single round trip while holding one permit.
func (t *Transport) attempt(ctx context.Context, c call, payload []byte) (*Response, error) {
	method, path := c.method, c.path
	if err := t.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire request slot: %w", err)
	}
	defer t.sem.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, t.base+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", c.accept)
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("x-api-key", t.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := t.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TransientError{Method: method, Path: path, Err: err}
		}
		return nil, fmt.Errorf("execute request %s %s: %w", method, path, err)
	}
	defer func() { _ = res.Body.Close() }()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, &TransientError{Method: method, Path: path, Err: err}
		}
		return nil, fmt.Errorf("read response %s %s: %w", method, path, err)
	}

	contentType := res.Header.Get("Content-Type")
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: res.StatusCode,
			Detail:     summarizeBody(contentType, data),
		}
	}
	return &Response{StatusCode: res.StatusCode, ContentType: contentType, Body: data}, nil
}

// parseBaseURL normalizes the configured base URL. The path is kept because
// Immich serves its API under /api.
func parseBaseURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse base url %q: missing host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}
