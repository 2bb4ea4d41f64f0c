package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/pkg/logger"
)

// maxErrorBody bounds how much of an error response is quoted back.
const maxErrorBody = 4 << 10

const (
	defaultRetryMax     = 3
	defaultRetryWaitMin = 500 * time.Millisecond
	defaultRetryWaitMax = 5 * time.Second
)

// HTTPClient talks to a running odds service. Connection errors, 429 and 5xx
// answers are retried with backoff.
type HTTPClient struct {
	baseURL string
	client  *retryablehttp.Client
}

// ClientOption applies a configuration option to the HTTPClient.
type ClientOption func(*retryablehttp.Client)

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) ClientOption {
	return func(c *retryablehttp.Client) {
		if n >= 0 {
			c.RetryMax = n
		}
	}
}

// WithRetryWait bounds the backoff between attempts.
func WithRetryWait(minWait, maxWait time.Duration) ClientOption {
	return func(c *retryablehttp.Client) {
		if minWait > 0 && maxWait >= minWait {
			c.RetryWaitMin = minWait
			c.RetryWaitMax = maxWait
		}
	}
}

// WithClientLogger routes retry attempts to l.
func WithClientLogger(l logger.Logger) ClientOption {
	return func(c *retryablehttp.Client) {
		if l != nil {
			c.Logger = retryLogger{log: l}
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL. timeout bounds
// each attempt.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPClient {
	rc := retryablehttp.NewClient()
	rc.HTTPClient.Timeout = timeout
	rc.RetryMax = defaultRetryMax
	rc.RetryWaitMin = defaultRetryWaitMin
	rc.RetryWaitMax = defaultRetryWaitMax
	rc.Logger = nil
	// Hand the last response back so its status and body can be reported.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	for _, opt := range opts {
		opt(rc)
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  rc,
	}
}

// Odds posts req to /odds.
func (c *HTTPClient) Odds(ctx context.Context, req service.OddsRequest) (service.OddsResponse, error) {
	const op = "tools.remote_odds"
	var out service.OddsResponse

	body, err := json.Marshal(req)
	if err != nil {
		return out, fmt.Errorf("%s: failed to marshal request body: %w", op, err)
	}
	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/odds", body)
	if err != nil {
		return out, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return out, fmt.Errorf("%s: %w: %w", op, ErrRemote, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return out, fmt.Errorf("%s: %w: status %d: %s", op, ErrRemote, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return out, nil
}

// retryLogger adapts logger.Logger to retryablehttp.LeveledLogger.
type retryLogger struct {
	log logger.Logger
}

func (l retryLogger) Error(msg string, kv ...interface{}) {
	l.log.Error(context.Background(), msg, kvFields(kv)...)
}

func (l retryLogger) Info(msg string, kv ...interface{}) {
	l.log.Info(context.Background(), msg, kvFields(kv)...)
}

func (l retryLogger) Debug(msg string, kv ...interface{}) {
	l.log.Debug(context.Background(), msg, kvFields(kv)...)
}

func (l retryLogger) Warn(msg string, kv ...interface{}) {
	l.log.Warn(context.Background(), msg, kvFields(kv)...)
}

func kvFields(kv []interface{}) []logger.Field {
	fields := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields = append(fields, logger.Any(fmt.Sprint(kv[i]), kv[i+1]))
	}
	return fields
}
