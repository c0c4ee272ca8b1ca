// Package api is the REST client for the fleet backend.
//
// Every call is bounded by a caller-side timeout and an optional client-side
// rate limit, and failures come back as structured errors with an API or
// AUTH code so the CLI and dashboard can render them uniformly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rileyhilliard/fleetwatch/internal/errors"
	"github.com/rileyhilliard/fleetwatch/internal/logger"
	"github.com/rileyhilliard/fleetwatch/internal/session"
	"golang.org/x/time/rate"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultTimeout  = 15 * time.Second
	DefaultPageSize = 100

	maxBodyBytes = 16 << 20
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each request, including time spent waiting on the rate limiter.
	Timeout time.Duration

	// MaxRPS caps requests per second. Zero disables throttling.
	MaxRPS float64
	Burst  int

	// PageSize is the default limit for paginated queries.
	PageSize int

	HTTPClient *http.Client
	Logger     logger.Logger
}

// Client talks to one backend on behalf of one session.
type Client struct {
	session  *session.Session
	http     *http.Client
	limiter  *rate.Limiter
	timeout  time.Duration
	pageSize int
	log      logger.Logger
}

// NewClient creates a client for s.
func NewClient(s *session.Session, opts Options) *Client {
	c := &Client{
		session:  s,
		http:     opts.HTTPClient,
		timeout:  opts.Timeout,
		pageSize: opts.PageSize,
		log:      logger.OrDefault(opts.Logger),
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if opts.MaxRPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), burst)
	}
	return c
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *session.Session {
	return c.session
}

// PageSize returns the default page limit.
func (c *Client) PageSize() int {
	return c.pageSize
}

// envelope is the status part every backend response may carry.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e envelope) reason() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// do performs one request and returns the raw response body once the HTTP
// status and the envelope both say it succeeded.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	what := method + " " + path

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportError(ctx, what, err)
		}
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrAPI,
				"Couldn't encode request for "+what, "")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.session.Endpoint(path, query), reader)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI, "Couldn't build request for "+what, "")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.session.Authorize(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, what, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.transportError(ctx, what, err)
	}
	c.log.Debug("%s -> %d (%s, %d bytes)", what, resp.StatusCode, time.Since(start).Round(time.Millisecond), len(data))

	var env envelope
	envErr := json.Unmarshal(data, &env)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.New(errors.ErrAuth,
			fmt.Sprintf("%s was rejected (%d %s)", what, resp.StatusCode, statusText(resp.StatusCode, env)),
			"Check your token, or run 'fleetwatch login' again.")
	case resp.StatusCode >= 400:
		return nil, &errors.Error{
			Code:       errors.ErrAPI,
			Message:    fmt.Sprintf("%s failed (%d %s)", what, resp.StatusCode, statusText(resp.StatusCode, env)),
			Suggestion: suggestionFor(resp.StatusCode),
			Cause:      &StatusError{Status: resp.StatusCode, Reason: env.reason()},
		}
	case envErr != nil:
		return nil, errors.WrapWithCode(envErr, errors.ErrAPI,
			"Unexpected response from "+what,
			"The server didn't return JSON. Is server.url pointing at the fleet backend?")
	case env.Success != nil && !*env.Success:
		reason := env.reason()
		if reason == "" {
			reason = "no reason given"
		}
		return nil, &errors.Error{
			Code:    errors.ErrAPI,
			Message: fmt.Sprintf("%s failed: %s", what, reason),
			Cause:   &StatusError{Status: resp.StatusCode, Reason: reason},
		}
	}

	return data, nil
}

// transportError classifies a failure that happened before a response was read.
func (c *Client) transportError(ctx context.Context, what string, err error) error {
	if stderrors.Is(err, context.Canceled) {
		return errors.WrapWithCode(context.Canceled, errors.ErrAPI, what+" was cancelled", "")
	}
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) || stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapWithCode(context.DeadlineExceeded, errors.ErrAPI,
			fmt.Sprintf("%s timed out after %s", what, c.timeout),
			"The backend is slow or unreachable. Raise api.timeout if this keeps happening.")
	}
	return errors.WrapWithCode(err, errors.ErrAPI,
		"Couldn't reach the backend for "+what,
		"Check server.url and that the backend is running.")
}

// StatusError is the cause attached to API errors that came with a response.
type StatusError struct {
	Status int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Reason)
}

// IsNotFound reports whether err came from a 404 response.
func IsNotFound(err error) bool {
	var se *StatusError
	return stderrors.As(err, &se) && se.Status == http.StatusNotFound
}

// IsCanceled reports whether err is the result of the caller cancelling.
// Callers treat this as an expected outcome, not a failure.
func IsCanceled(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

func statusText(code int, env envelope) string {
	if r := env.reason(); r != "" {
		return r
	}
	return strings.ToLower(http.StatusText(code))
}

func suggestionFor(code int) string {
	switch {
	case code == http.StatusNotFound:
		return "It may have been deleted. Refresh the list and try again."
	case code == http.StatusTooManyRequests:
		return "The backend is rate limiting. Lower api.max_rps."
	case code >= 500:
		return "The backend had a problem. Try again in a moment."
	default:
		return ""
	}
}

// decodePayload extracts the payload from a response that carries it under
// "data" or under a domain key, whichever is present first.
func decodePayload(data []byte, out any, keys ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI, "Unexpected response shape", "")
	}

	for _, key := range append([]string{"data"}, keys...) {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return errors.WrapWithCode(err, errors.ErrAPI,
				fmt.Sprintf("Couldn't decode '%s' in response", key), "")
		}
		return nil
	}

	return errors.New(errors.ErrAPI,
		fmt.Sprintf("Response has no '%s' payload", strings.Join(append([]string{"data"}, keys...), "' or '")),
		"The backend may be a different version than this client expects.")
}

// decodePage reads a `{<key>: [...], total_count, has_more}` envelope.
func decodePage[T any](data []byte, key string, offset int) (*Page[T], error) {
	var raw struct {
		TotalCount *int  `json:"total_count"`
		HasMore    *bool `json:"has_more"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI, "Unexpected response shape", "")
	}

	page := &Page[T]{Offset: offset}
	if err := decodePayload(data, &page.Items, key); err != nil {
		return nil, err
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	page.Total = offset + len(page.Items)
	if raw.TotalCount != nil {
		page.Total = *raw.TotalCount
	}
	if raw.HasMore != nil {
		page.HasMore = *raw.HasMore
	} else {
		page.HasMore = offset+len(page.Items) < page.Total
	}
	return page, nil
}

func joinIDs(ids []string) string {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			cleaned = append(cleaned, id)
		}
	}
	return strings.Join(cleaned, ",")
}

func formatBound(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
