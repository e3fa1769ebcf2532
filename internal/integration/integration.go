// Package integration provides the per-category executors that perform
// tool calls requested mid-run, and the router that resolves them.
//
// Executor failures are deliberately not errors: the conversation service
// needs readable text to react to, so missing parameters and downstream
// failures are folded into the returned string at this boundary.
package integration

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/category"
)

// Executor performs the actions one category's handler can request.
type Executor interface {
	// Tools declares the functions this executor accepts, consumed
	// verbatim by handler registration.
	Tools() []assistant.ToolSpec

	// Instructions returns the handler's system instructions.
	Instructions() string

	// Execute runs a named function and returns a human-readable result,
	// success or descriptive failure. It never panics and never returns
	// an error.
	Execute(ctx context.Context, fn string, args map[string]any) string
}

// Registry maps categories to their executors. Categories without an
// entry (general, family, todo, document) have no tools; any call routed
// to them resolves to an unknown-function output.
type Registry struct {
	executors map[category.Category]Executor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[category.Category]Executor)}
}

// Register binds an executor to a category.
func (r *Registry) Register(c category.Category, e Executor) {
	r.executors[c] = e
}

// Get returns the executor for a category, if any.
func (r *Registry) Get(c category.Category) (Executor, bool) {
	e, ok := r.executors[c]
	return e, ok
}

// Categories returns the registered categories in stable order.
func (r *Registry) Categories() []category.Category {
	out := make([]category.Category, 0, len(r.executors))
	for c := range r.executors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// missingParams returns the names of required params absent from args.
func missingParams(args map[string]any, required ...string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// missingParamsMessage renders the canonical missing-parameter text.
func missingParamsMessage(action string, missing []string) string {
	return fmt.Sprintf("Missing required parameters for %s: %s", action, strings.Join(missing, ", "))
}

// stringArg reads a string argument, returning "" when absent or not a
// string.
func stringArg(args map[string]any, name string) string {
	if v, ok := args[name].(string); ok {
		return v
	}
	return ""
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}
