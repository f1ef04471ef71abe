package booking

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

	"wanderlust/internal/domain"
)

const (
	defaultBaseURL    = "http://localhost:8080"
	defaultTimeout    = 30 * time.Second
	bookPath          = "/api/order/book"
	IdempotencyHeader = "Idempotency-Key"
)

// TokenSource supplies the bearer token sent with each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// RejectedError is returned when the booking service answered and declined.
// Reason is the service's own explanation, verbatim and possibly empty.
type RejectedError struct {
	StatusCode int
	Reason     string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("booking: rejected with status %d: %s", e.StatusCode, e.Reason)
}

func (e *RejectedError) RejectionReason() string {
	return e.Reason
}

func (e *RejectedError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client dispatches trip bookings to the order service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTokenSource enables bearer authentication.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("booking: base URL must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func bookURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/api/order") {
		return base + "/book"
	}
	return base + bookPath
}

// Book submits req once. The service treats repeated deliveries carrying the
// same idempotencyKey as one booking.
func (c *Client) Book(ctx context.Context, req domain.BookingRequest, idempotencyKey string) error {
	idempotencyKey = strings.TrimSpace(idempotencyKey)
	if idempotencyKey == "" {
		return errors.New("booking: idempotency key must not be empty")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("booking: marshal request: %w", err)
	}

	url := bookURL(c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("booking: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(IdempotencyHeader, idempotencyKey)
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("booking: resolve token: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	res, err := hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("booking: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 1<<16))
		return nil
	}

	buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return &RejectedError{StatusCode: res.StatusCode, Reason: strings.TrimSpace(string(buf))}
}
