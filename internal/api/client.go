package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nhle/todosync/internal/model"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "todosync_api_request_duration_seconds",
	Help:    "Latency of todo API requests by method and status.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "status"})

// Client is a thin HTTP client for the todo REST API.
// It handles Bearer token authentication, JSON marshaling, client-side
// rate limiting, and retry with exponential backoff on 429 and 503.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	validate   *validator.Validate
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how often a throttled request is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithRateLimit caps requests per second. Zero or less disables limiting.
func WithRateLimit(perSec float64) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), int(perSec)+1)
	}
}

// WithLogger sets the logger used for retry and failure messages.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a new API client. baseURL is the API root including
// any version prefix (e.g. http://localhost:8080/api/v1).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		validate:   validator.New(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from the api section of the config.
func NewClientFromConfig(cfg model.APIConfig, token string, logger *zap.Logger) *Client {
	return NewClient(cfg.BaseURL,
		WithToken(token),
		WithHTTPClient(&http.Client{Timeout: cfg.Timeout()}),
		WithMaxRetries(cfg.MaxRetries),
		WithRateLimit(cfg.RatePerSec),
		WithLogger(logger),
	)
}

// ListTodos fetches one page of todos matching filter.
func (c *Client) ListTodos(
	ctx context.Context,
	filter model.TodoFilter,
	skip, limit int,
) ([]model.Todo, error) {
	var todos []model.Todo
	path := "/todos?" + filter.Query(skip, limit).Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// GetTodo fetches a single todo.
func (c *Client) GetTodo(ctx context.Context, id string) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodGet, "/todos/"+url.PathEscape(id), nil, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// CreateTodo creates a todo and returns the server copy.
func (c *Client) CreateTodo(ctx context.Context, input model.TodoInput) (*model.Todo, error) {
	if err := c.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("invalid todo: %w", err)
	}
	var todo model.Todo
	if err := c.do(ctx, http.MethodPost, "/todos", input, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// UpdateTodo applies a partial update and returns the server copy.
func (c *Client) UpdateTodo(
	ctx context.Context,
	id string,
	patch model.TodoPatch,
) (*model.Todo, error) {
	var todo model.Todo
	if err := c.do(ctx, http.MethodPatch, "/todos/"+url.PathEscape(id), patch, &todo); err != nil {
		return nil, err
	}
	return &todo, nil
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/todos/"+url.PathEscape(id), nil, nil)
}

// ListProjects fetches all projects with their todo counts.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// CreateProject creates a project.
func (c *Client) CreateProject(ctx context.Context, name string) (*model.Project, error) {
	var project model.Project
	body := model.ProjectInput{Name: name}
	if err := c.do(ctx, http.MethodPost, "/projects", body, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListLabels fetches the label aggregate.
func (c *Client) ListLabels(ctx context.Context) ([]model.Label, error) {
	var labels []model.Label
	if err := c.do(ctx, http.MethodGet, "/labels", nil, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// GetCounts fetches the bucket counters.
func (c *Client) GetCounts(ctx context.Context) (*model.Counts, error) {
	var counts model.Counts
	if err := c.do(ctx, http.MethodGet, "/todos/counts", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// do is the core HTTP method that builds the request, handles auth,
// throttling with exponential backoff, and JSON (de)serialization.
func (c *Client) do(
	ctx context.Context,
	method string,
	path string,
	body interface{},
	result interface{},
) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("waiting for rate limiter: %w", err)
			}
		}

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			requestDuration.WithLabelValues(method, "error").Observe(time.Since(start).Seconds())
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		requestDuration.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).
			Observe(time.Since(start).Seconds())
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if retryable(method, resp.StatusCode) {
			lastErr = responseError(resp.StatusCode, method, path, respBody)
			if attempt == c.maxRetries {
				break
			}
			wait := retryAfterDuration(resp, attempt)
			c.logger.Warn("todo API throttled, backing off",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt+1),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return responseError(resp.StatusCode, method, path, respBody)
		}

		// No content to parse (e.g. 204).
		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}

		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}

		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// retryable reports whether a response may be retried. A 429 was never
// processed, so any method is retried. A 503 may come after the server
// acted, so only idempotent methods are retried.
func retryable(method string, status int) bool {
	switch status {
	case http.StatusTooManyRequests:
		return true
	case http.StatusServiceUnavailable:
		return method == http.MethodGet || method == http.MethodDelete
	}
	return false
}

// responseError turns a non-2xx response into an *Error, preferring the
// server's JSON error message over the raw body.
func responseError(status int, method, path string, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil && eb.Error != "" {
		msg = eb.Error
	}
	return &Error{Status: status, Method: method, Path: path, Message: msg}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
