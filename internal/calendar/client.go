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

	"github.com/valethq/valet/internal/schedule"
)

// Client implements Service over the calendar backend's HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a calendar backend client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type freeBusyResponse struct {
	Busy []struct {
		Start time.Time `json:"start"`
		End   time.Time `json:"end"`
	} `json:"busy"`
}

// FreeBusy returns the user's busy intervals within [start, end].
func (c *Client) FreeBusy(ctx context.Context, userID string, start, end time.Time) ([]schedule.Interval, error) {
	q := url.Values{}
	q.Set("user", userID)
	q.Set("time_min", start.Format(time.RFC3339))
	q.Set("time_max", end.Format(time.RFC3339))

	var resp freeBusyResponse
	if err := c.do(ctx, http.MethodGet, "/freebusy?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("freebusy query: %w", err)
	}

	busy := make([]schedule.Interval, 0, len(resp.Busy))
	for _, b := range resp.Busy {
		busy = append(busy, schedule.Interval{Start: b.Start, End: b.End})
	}
	return busy, nil
}

// CreateEvent inserts an event.
func (c *Client) CreateEvent(ctx context.Context, userID string, ev Event) (*Event, error) {
	var created Event
	if err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(userID)+"/events", ev, &created); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &created, nil
}

// UpdateEvent applies non-zero fields to the stored event.
func (c *Client) UpdateEvent(ctx context.Context, userID string, ev Event) (*Event, error) {
	var updated Event
	path := "/users/" + url.PathEscape(userID) + "/events/" + url.PathEscape(ev.ID)
	if err := c.do(ctx, http.MethodPatch, path, ev, &updated); err != nil {
		return nil, fmt.Errorf("update event %s: %w", ev.ID, err)
	}
	return &updated, nil
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, userID, eventID string) error {
	path := "/users/" + url.PathEscape(userID) + "/events/" + url.PathEscape(eventID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete event %s: %w", eventID, err)
	}
	return nil
}

type listEventsResponse struct {
	Events []Event `json:"events"`
}

// ListEvents returns events within [start, end].
func (c *Client) ListEvents(ctx context.Context, userID string, start, end time.Time) ([]Event, error) {
	q := url.Values{}
	q.Set("time_min", start.Format(time.RFC3339))
	q.Set("time_max", end.Format(time.RFC3339))

	var resp listEventsResponse
	path := "/users/" + url.PathEscape(userID) + "/events?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return resp.Events, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendar backend error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
