package google

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single HTTP round trip
const DefaultTimeout = 30 * time.Second

// Request is an outbound HTTP request
type Request struct {
	Method string
	URL    string
	Body   []byte
	Header http.Header
}

// Response is the status and body of a completed request
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
}

// IsSuccess reports whether the status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport sends requests to a remote HTTP endpoint
type Transport interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport implements Transport on top of net/http
type HTTPTransport struct {
	client *http.Client
	logger *slog.Logger
}

// NewHTTPTransport creates a transport whose requests time out after timeout
func NewHTTPTransport(timeout time.Duration, logger *slog.Logger) *HTTPTransport {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return NewHTTPTransportWithClient(&http.Client{Timeout: timeout}, logger)
}

// NewHTTPTransportWithClient creates a transport that uses client
func NewHTTPTransportWithClient(client *http.Client, logger *slog.Logger) *HTTPTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPTransport{
		client: client,
		logger: logger,
	}
}

// Send performs the request and reads the whole response body
func (t *HTTPTransport) Send(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", req.Method, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.Debug("HTTP request completed",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       data,
	}, nil
}
