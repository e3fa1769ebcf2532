package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client implements Sender over the mail backend's HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a mail backend client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers the message.
func (c *Client) Send(ctx context.Context, userID string, msg Message) (string, error) {
	id, err := c.post(ctx, "/users/"+url.PathEscape(userID)+"/messages", msg)
	if err != nil {
		return "", fmt.Errorf("send mail: %w", err)
	}
	return id, nil
}

// Draft stores the message as a draft.
func (c *Client) Draft(ctx context.Context, userID string, msg Message) (string, error) {
	id, err := c.post(ctx, "/users/"+url.PathEscape(userID)+"/drafts", msg)
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}
	return id, nil
}

func (c *Client) post(ctx context.Context, path string, msg Message) (string, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mail backend error %d: %s", resp.StatusCode, string(body))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	return out.ID, nil
}
