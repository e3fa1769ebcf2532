package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Client implements Service over the conversation service's HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client

	mu       sync.Mutex
	handlers map[string]string // handler name -> id
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewClient creates a conversation service client.
func NewClient(opts ClientOptions) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		model:    opts.Model,
		client:   &http.Client{Timeout: timeout},
		handlers: make(map[string]string),
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

// CreateThread creates a new thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var resp threadResponse
	if err := c.do(ctx, http.MethodPost, "/threads", nil, &resp); err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return resp.ID, nil
}

// DeleteThread removes a thread.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if err := c.do(ctx, http.MethodDelete, "/threads/"+threadID, nil, nil); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// PostMessage appends a message to a thread.
func (c *Client) PostMessage(ctx context.Context, threadID, role, text string) error {
	body := map[string]string{"role": role, "text": text}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", body, nil); err != nil {
		return fmt.Errorf("post message to %s: %w", threadID, err)
	}
	return nil
}

type listMessagesResponse struct {
	Data []Message `json:"data"`
}

// ListMessages returns thread messages.
func (c *Client) ListMessages(ctx context.Context, threadID, order string, limit int) ([]Message, error) {
	path := "/threads/" + threadID + "/messages?order=" + order
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var resp listMessagesResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("list messages for %s: %w", threadID, err)
	}
	return resp.Data, nil
}

type handlerResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type listHandlersResponse struct {
	Data []handlerResponse `json:"data"`
}

// EnsureHandler creates the named handler if it does not exist yet.
// Resolved IDs are cached for the lifetime of the client.
func (c *Client) EnsureHandler(ctx context.Context, def HandlerDef) (string, error) {
	c.mu.Lock()
	if id, ok := c.handlers[def.Name]; ok {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	var listed listHandlersResponse
	if err := c.do(ctx, http.MethodGet, "/assistants", nil, &listed); err != nil {
		return "", fmt.Errorf("list handlers: %w", err)
	}
	for _, h := range listed.Data {
		if h.Name == def.Name {
			c.cacheHandler(def.Name, h.ID)
			return h.ID, nil
		}
	}

	if def.Model == "" {
		def.Model = c.model
	}
	var created handlerResponse
	if err := c.do(ctx, http.MethodPost, "/assistants", def, &created); err != nil {
		return "", fmt.Errorf("create handler %s: %w", def.Name, err)
	}
	c.cacheHandler(def.Name, created.ID)
	return created.ID, nil
}

func (c *Client) cacheHandler(name, id string) {
	c.mu.Lock()
	c.handlers[name] = id
	c.mu.Unlock()
}

// StartRun begins a run against a thread.
func (c *Client) StartRun(ctx context.Context, threadID, handlerID, instructions string) (*Run, error) {
	body := map[string]string{"assistant_id": handlerID}
	if instructions != "" {
		body["instructions"] = instructions
	}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return nil, fmt.Errorf("start run on %s: %w", threadID, err)
	}
	return &run, nil
}

// GetRun fetches current run state.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var run Run
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+runID, nil, &run); err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return &run, nil
}

// SubmitToolOutputs supplies the batch of outputs for a requires_action cycle.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error) {
	body := map[string]any{"tool_outputs": outputs}
	var run Run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs/"+runID+"/tool_outputs", body, &run); err != nil {
		return nil, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
	}
	return &run, nil
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
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("conversation service error %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
