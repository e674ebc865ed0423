package hackloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/hackloud/internal/logging"
	"github.com/me/hackloud/pkg/model"
	"github.com/sony/gobreaker"
)

var (
	errBreakerOpen  = errors.New("circuit breaker open")
	errServerStatus = errors.New("server error status")
)

// Client provides methods to interact with the Hackloud REST API.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     *slog.Logger
	breaker    *gobreaker.CircuitBreaker
	now        func() time.Time
}

// NewClient creates a new Hackloud API client with the given configuration.
func NewClient(config Config, logger *slog.Logger) *Client {
	logger = logging.OrDiscard(logger)
	if config.MaxPreviewBytes <= 0 {
		config.MaxPreviewBytes = DefaultMaxPreviewBytes
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	config.StaticURL = strings.TrimRight(config.StaticURL, "/")

	logger = logger.With("component", "hackloud-client")
	c := &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
		logger: logger,
		now:    time.Now,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "hackloud-api",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.config
}

// request describes a single API call.
type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	token       string
	body        []byte
	contentType string
	accept      string
	// noRetry disables retries for requests whose replay is not safe even
	// though the method is idempotent.
	noRetry bool
}

// rawResponse is a fully-read HTTP response.
type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

// apiResponse is the parsed envelope.
type apiResponse struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     *model.APIError `json:"error"`
}

func jsonRequest(op, method, path, token string, body any) (request, error) {
	r := request{op: op, method: method, path: path, token: token}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return r, WrapError(op, fmt.Errorf("marshaling request: %w", err))
		}
		r.body = data
		r.contentType = "application/json"
	}
	return r, nil
}

// call sends r and decodes the envelope's data into out (if non-nil).
func (c *Client) call(ctx context.Context, r request, out any) error {
	res, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	var env apiResponse
	if len(res.body) > 0 {
		if err := json.Unmarshal(res.body, &env); err != nil && res.status < 400 {
			return WrapError(r.op, fmt.Errorf("parse response (status %d): %w", res.status, err))
		}
	}

	if res.status >= 400 || env.Status == "error" {
		return fromResponse(r.op, res.status, env.Error)
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return WrapError(r.op, fmt.Errorf("unmarshaling data: %w", err))
		}
	}
	return nil
}

// send executes r with retries for idempotent methods. A response with a
// non-2xx status is returned as-is; only transport failures (and 5xx after
// the last attempt is exhausted) are reported as errors by the caller.
func (c *Client) send(ctx context.Context, r request) (*rawResponse, error) {
	logger := c.logger.With("op", r.op, "method", r.method, "path", r.path)

	retries := 0
	if idempotent(r.method) && !r.noRetry {
		retries = c.config.MaxRetries
	}

	var lastErr error
	var lastRes *rawResponse
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			delay := c.config.RetryDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			logger.Debug("retrying after delay", "attempt", attempt, "delay", delay)

			select {
			case <-ctx.Done():
				return nil, WrapError(r.op, ctx.Err())
			case <-time.After(delay):
			}
		}

		res, err := c.attempt(ctx, r)
		if err != nil && !errors.Is(err, errServerStatus) {
			lastErr = err
			if errors.Is(err, errBreakerOpen) || ctx.Err() != nil {
				break
			}
			logger.Debug("request failed, will retry", "error", err, "attempt", attempt)
			continue
		}

		if res.status >= 500 || res.status == http.StatusTooManyRequests {
			lastRes, lastErr = res, nil
			logger.Debug("server error, will retry", "status", res.status, "attempt", attempt)
			continue
		}

		logger.Debug("request done", "status", res.status)
		return res, nil
	}

	if lastErr == nil && lastRes != nil {
		return lastRes, nil
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return nil, WrapError(r.op, fmt.Errorf("all retries exhausted: %w", lastErr))
}

// attempt performs a single HTTP exchange through the circuit breaker.
func (c *Client) attempt(ctx context.Context, r request) (*rawResponse, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		res, err := c.doRequest(ctx, r)
		if err != nil {
			return nil, err
		}
		if res.status >= 500 {
			return res, errServerStatus
		}
		return res, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", errBreakerOpen, err)
	}
	res, _ := out.(*rawResponse)
	return res, err
}

// doRequest performs a single HTTP request and reads the response.
func (c *Client) doRequest(ctx context.Context, r request) (*rawResponse, error) {
	u := c.config.BaseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	if r.accept != "" {
		httpReq.Header.Set("Accept", r.accept)
	} else {
		httpReq.Header.Set("Accept", "application/json")
	}
	if r.token != "" {
		httpReq.Header.Set("Authorization", r.token)
	}
	httpReq.Header.Set("X-Request-ID", "req_"+uuid.New().String()[:8])

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &rawResponse{status: httpResp.StatusCode, header: httpResp.Header, body: respBody}, nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// Health checks that the backend answers.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, request{op: "Health", method: http.MethodGet, path: "/health"}, nil)
}
