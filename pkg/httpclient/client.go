// Package httpclient provides a retrying HTTP client shared by the LLM,
// embedding and rerank gateways. Retries honor Retry-After on rate limits
// and back off exponentially otherwise.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	ConservativeRetry
	SmartRetry
)

type Client struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	log        *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.client.Timeout = timeout
	}
}

func WithMaxRetries(max int) Option {
	return func(c *Client) {
		c.maxRetries = max
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func New(opts ...Option) *Client {
	client := &Client{
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 2,
		baseDelay:  time.Second,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func retryStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// Do executes the request, retrying retryable failures up to maxRetries
// times. The request must carry GetBody for retries to replay the body,
// which http.NewRequestWithContext sets for byte readers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("failed to recreate request body for retry: %w", err)
			}
			req.Body = body
		}

		resp, err := c.client.Do(req)
		if err != nil {
			// Transport errors (conn refused, ctx cancelled) are not retried.
			return nil, err
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		strategy := retryStrategy(resp.StatusCode)
		if strategy == NoRetry || attempt >= c.maxRetries {
			if strategy == NoRetry {
				return resp, fmt.Errorf("HTTP %d", resp.StatusCode)
			}
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("max HTTP retries (%d) exceeded", c.maxRetries),
			}
		}

		delay := c.delayFor(strategy, attempt, resp.Header)
		resp.Body.Close()
		c.log.Debug("retrying request",
			"status", resp.StatusCode, "delay", delay, "attempt", attempt+1)
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(delay):
		}
	}

	return nil, &RetryableError{
		Message: fmt.Sprintf("max retries exceeded after %d attempts", c.maxRetries),
	}
}

func (c *Client) delayFor(strategy RetryStrategy, attempt int, header http.Header) time.Duration {
	if strategy == SmartRetry {
		if after := parseRetryAfter(header); after > 0 {
			return after
		}
		exponential := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(float64(exponential) * 0.1)
		return exponential + jitter
	}
	return time.Duration(attempt+1) * c.baseDelay
}

func parseRetryAfter(header http.Header) time.Duration {
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
