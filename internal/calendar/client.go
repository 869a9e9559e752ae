// Package calendar talks to the institution's department-scoped calendar
// service: free/busy queries and event creation.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is the department calendar client. It is constructed once at
// process start and shared; all methods are safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
	}
}

// CheckAvailability reports whether the department calendar shows no busy
// period inside [start, end)
func (c *Client) CheckAvailability(ctx context.Context, department string, start, end time.Time) (bool, error) {
	busy, err := c.BusyPeriods(ctx, department, start, end)
	if err != nil {
		return false, err
	}
	return len(busy) == 0, nil
}

// BusyPeriods lists the department's busy intervals inside [start, end).
// Reads are retried with exponential backoff before the failure is
// surfaced to the caller.
func (c *Client) BusyPeriods(ctx context.Context, department string, start, end time.Time) ([]BusyPeriod, error) {
	endpoint := fmt.Sprintf("%s/departments/%s/freebusy?%s",
		c.baseURL,
		url.PathEscape(department),
		url.Values{
			"start": {start.Format(time.RFC3339)},
			"end":   {end.Format(time.RFC3339)},
		}.Encode(),
	)

	var result freeBusyResponse

	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("calendar returned status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("calendar returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return nil, fmt.Errorf("query free/busy for %s: %w", department, err)
	}

	return result.Busy, nil
}

// CreateEvent creates a department calendar event. Creation is never
// auto-retried; the idempotency key lets the server dedupe a caller-level
// retry of the same finalization.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	endpoint := fmt.Sprintf("%s/departments/%s/events", c.baseURL, url.PathEscape(input.Department))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build event request: %w", err)
	}

	key := input.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("create event: status %d: %s", resp.StatusCode, detail)
	}

	var event Event
	if err := json.NewDecoder(resp.Body).Decode(&event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	return &event, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
