package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"soa-backend/internal/pkg/metrics"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"
)

// Client is the shared HTTP transport for the Supabase Auth, PostgREST and
// Storage APIs. Every call sends the service key as both apikey and Bearer,
// the same way supabase-js does.
type Client struct {
	BaseURL   string
	SecretKey string
	HTTP      *http.Client

	breaker *gobreaker.CircuitBreaker[*rawResponse]
}

type rawResponse struct {
	status int
	body   []byte
}

// APIError is a non-2xx answer from Supabase.
type APIError struct {
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("supabase: status %d body: %s", e.Status, e.Body)
}

// NewClient returns a Client guarded by a circuit breaker that opens after
// five consecutive transport or 5xx failures.
func NewClient(baseURL, secretKey string) *Client {
	c := &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		SecretKey: secretKey,
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
	metrics.CircuitBreakerState.WithLabelValues("supabase").Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})
	return c
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (c *Client) ready() error {
	if c == nil || c.BaseURL == "" {
		return fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return nil
}

// do sends a JSON request and decodes a 2xx body into out (when non-nil).
// key overrides the service key for endpoints that take the anon key.
func (c *Client) do(ctx context.Context, method, path, key string, body, out interface{}) error {
	if err := c.ready(); err != nil {
		return err
	}
	if key == "" {
		key = c.SecretKey
	}
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	send := func() (*rawResponse, error) {
		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", key)
		req.Header.Set("Authorization", "Bearer "+key)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient().Do(req)
		if err != nil {
			return nil, fmt.Errorf("supabase request: %w", err)
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, newAPIError(resp.StatusCode, b)
		}
		return &rawResponse{status: resp.StatusCode, body: b}, nil
	}

	var (
		res *rawResponse
		err error
	)
	if c.breaker != nil {
		res, err = c.breaker.Execute(send)
	} else {
		res, err = send()
	}
	if err != nil {
		return err
	}
	if out == nil || len(res.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("supabase response decode: %w", err)
	}
	return nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	return c.HTTP
}

// newAPIError pulls the message out of the error shapes used by GoTrue
// ({msg, error_code}), PostgREST ({message, code}) and Storage ({error, message}).
func newAPIError(status int, body []byte) *APIError {
	var shape struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
		ErrorCode        string `json:"error_code"`
		Code             any    `json:"code"`
	}
	_ = json.Unmarshal(body, &shape)

	e := &APIError{Status: status, Body: string(body)}
	for _, m := range []string{shape.Msg, shape.Message, shape.ErrorDescription, shape.Error} {
		if m != "" {
			e.Message = m
			break
		}
	}
	e.Code = shape.ErrorCode
	if s, ok := shape.Code.(string); ok && e.Code == "" {
		e.Code = s
	}
	return e
}

// Ping checks that the Auth service answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/auth/v1/health", "", nil, nil)
}
