package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/category"
	"github.com/valethq/valet/internal/metrics"
)

// Router resolves tool calls to category executors.
type Router struct {
	registry *Registry
	log      *slog.Logger
}

// NewRouter creates a router over a registry.
func NewRouter(registry *Registry, log *slog.Logger) *Router {
	return &Router{registry: registry, log: log}
}

// Route executes a single tool call on behalf of a user and returns the
// output text. The caller's user id is injected into the arguments so
// executors act for the requesting user regardless of what the model
// put in the payload. Unresolvable calls produce an unknown-function
// output rather than an error so the run can continue.
func (r *Router) Route(ctx context.Context, c category.Category, call assistant.ToolCall, userID string) string {
	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			r.log.Warn("malformed tool arguments", "function", call.Name, "error", err)
			return fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err)
		}
	}
	args["user_id"] = userID

	exec, ok := r.registry.Get(c)
	if !ok {
		r.log.Warn("no executor for category", "category", c, "function", call.Name)
		return UnknownFunction(call.Name)
	}

	metrics.ToolExecutions.WithLabelValues(string(c), call.Name).Inc()
	r.log.Info("executing tool", "category", c, "function", call.Name, "user", userID)
	return exec.Execute(ctx, call.Name, args)
}

// UnknownFunction renders the output used for tool calls nothing can
// serve. Submitting this text keeps the batch complete so the run does
// not stall waiting on a dropped call.
func UnknownFunction(name string) string {
	return fmt.Sprintf("Unknown function: %s", name)
}
