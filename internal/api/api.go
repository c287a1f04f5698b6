package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"market-watch-bot/internal/logger"
)

// Client is the shared REST client for every upstream the monitor calls:
// exchanges, market stats, LLM providers, Telegram, QuickChart.
type Client struct {
	httpClient *http.Client
	baseURL    string
	headers    map[string]string
}

type ClientOption func(*Client)

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithBaseURL prefixes every request path.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.headers[key] = value
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		headers:    map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StatusError is returned for responses with status >= 400.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Request is one call. Body is JSON-encoded unless a raw body is set.
type Request struct {
	Method  string
	URL     string
	Body    interface{}
	Headers map[string]string

	raw         []byte
	contentType string
	ctx         context.Context
}

type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Headers: map[string]string{},
		ctx:     context.Background(),
	}
}

func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

func (r *Request) WithBody(body interface{}) *Request {
	r.Body = body
	return r
}

func (r *Request) WithHeader(key, value string) *Request {
	r.Headers[key] = value
	return r
}

func (r *Request) withRaw(body []byte, contentType string) *Request {
	r.raw = body
	r.contentType = contentType
	return r
}

// Do sends the request and reads the whole body. A status >= 400 becomes a *StatusError.
func (c *Client) Do(req *Request) (*Response, error) {
	url := c.baseURL + req.URL

	var body io.Reader
	contentType := req.contentType
	switch {
	case req.raw != nil:
		body = bytes.NewReader(req.raw)
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	logger.Debug(req.ctx, "Upstream call",
		"method", req.Method,
		"path", req.URL,
		"status", httpResp.StatusCode,
		"duration", time.Since(start),
		"bytes", len(data))

	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: string(data)}
	}
	return &Response{StatusCode: httpResp.StatusCode, Body: data, Headers: httpResp.Header}, nil
}

func (c *Client) GET(ctx context.Context, url string, headers ...map[string]string) (*Response, error) {
	req := NewRequest(http.MethodGet, url).WithContext(ctx)
	for _, h := range headers {
		for k, v := range h {
			req.WithHeader(k, v)
		}
	}
	return c.Do(req)
}

// POST sends body as JSON.
func (c *Client) POST(ctx context.Context, url string, body interface{}, headers ...map[string]string) (*Response, error) {
	req := NewRequest(http.MethodPost, url).WithContext(ctx).WithBody(body)
	for _, h := range headers {
		for k, v := range h {
			req.WithHeader(k, v)
		}
	}
	return c.Do(req)
}

// FilePart is one file field of a multipart upload.
type FilePart struct {
	Field    string
	Filename string
	Data     []byte
}

// PostMultipart sends fields and an optional file as multipart/form-data.
func (c *Client) PostMultipart(ctx context.Context, url string, fields map[string]string, file *FilePart) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", k, err)
		}
	}
	if file != nil {
		fw, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, fmt.Errorf("create form file: %w", err)
		}
		if _, err := fw.Write(file.Data); err != nil {
			return nil, fmt.Errorf("write form file: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	req := NewRequest(http.MethodPost, url).WithContext(ctx).withRaw(buf.Bytes(), w.FormDataContentType())
	return c.Do(req)
}

func (r *Response) ParseJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return nil
}

// BrowserHeaders is for endpoints that reject bare clients.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// RetryConfig is the attempt budget of DoWithRetry. The wait doubles up to MaxWait.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// FixedRetry retries attempts times with a constant wait in between.
func FixedRetry(attempts int, wait time.Duration) *RetryConfig {
	return &RetryConfig{MaxAttempts: attempts, InitialWait: wait, MaxWait: wait}
}

// DoWithRetry repeats Do until it succeeds or the attempts run out. A nil
// config means a single attempt. The wait is cut short when the context ends.
func (c *Client) DoWithRetry(req *Request, config *RetryConfig) (*Response, error) {
	attempts, wait, maxWait := 1, time.Duration(0), time.Duration(0)
	if config != nil {
		attempts, wait, maxWait = max(config.MaxAttempts, 1), config.InitialWait, config.MaxWait
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		logger.Warn(req.ctx, "Upstream call failed, retrying", "path", req.URL, "attempt", attempt, "error", err, "wait", wait)

		select {
		case <-req.ctx.Done():
			return nil, req.ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
		if wait > maxWait {
			wait = maxWait
		}
	}
	return nil, fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
