// Package assistant defines the conversation service collaborator: the
// externally-owned system that stores threads, runs handlers against them,
// and emits tool calls mid-run. Valet only observes run state by polling
// and mutates it indirectly by submitting tool outputs.
package assistant

import (
	"context"
	"encoding/json"
	"time"
)

// RunStatus is the state of a run as reported by the conversation service.
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether a status ends the run.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled, RunExpired:
		return true
	}
	return false
}

// Run is one processing cycle of a message against a handler.
type Run struct {
	ID        string     `json:"id"`
	ThreadID  string     `json:"thread_id"`
	Status    RunStatus  `json:"status"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ToolCall is a function invocation requested while a run is in
// requires_action. Every tool call must receive exactly one output
// before the run can resume.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolOutput is the string result supplied back for one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Message is one entry in a thread's history.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	RunID     string    `json:"run_id,omitempty"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ToolSpec declares a callable function for handler registration. The
// parameter schema is JSON-shaped and consumed verbatim by the service.
type ToolSpec struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  *ParamSchema `json:"parameters,omitempty"`
}

// ParamSchema is the JSON Schema for tool parameters.
type ParamSchema struct {
	Type       string                `json:"type"`
	Properties map[string]*ParamProp `json:"properties,omitempty"`
	Required   []string              `json:"required,omitempty"`
}

// ParamProp describes a single parameter.
type ParamProp struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// HandlerDef registers a named handler with its instructions and tools.
type HandlerDef struct {
	Name         string     `json:"name"`
	Instructions string     `json:"instructions"`
	Model        string     `json:"model"`
	Tools        []ToolSpec `json:"tools,omitempty"`
}

// Service is the narrow interface Valet uses to talk to the conversation
// service. Implementations must be safe for concurrent use.
type Service interface {
	// CreateThread creates a new message history container.
	CreateThread(ctx context.Context) (string, error)

	// DeleteThread removes a thread and its history.
	DeleteThread(ctx context.Context, threadID string) error

	// PostMessage appends a message to a thread.
	PostMessage(ctx context.Context, threadID, role, text string) error

	// ListMessages returns thread messages, order "asc" or "desc".
	// limit <= 0 means service default.
	ListMessages(ctx context.Context, threadID, order string, limit int) ([]Message, error)

	// EnsureHandler creates the named handler if absent and returns its ID.
	EnsureHandler(ctx context.Context, def HandlerDef) (string, error)

	// StartRun begins a run of a handler against a thread. Instructions
	// override the handler's defaults for this run only.
	StartRun(ctx context.Context, threadID, handlerID, instructions string) (*Run, error)

	// GetRun fetches current run state, including pending tool calls when
	// the run is in requires_action.
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)

	// SubmitToolOutputs supplies all outputs for a requires_action cycle
	// in one atomic batch.
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)
}
