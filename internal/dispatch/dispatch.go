// Package dispatch orchestrates one message end to end: identity
// normalization, classification, session lookup, run execution with
// tool-call routing, and response extraction.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/category"
	"github.com/valethq/valet/internal/identity"
	"github.com/valethq/valet/internal/integration"
	"github.com/valethq/valet/internal/metrics"
	"github.com/valethq/valet/internal/session"
)

// Result is the outcome of one dispatch. Exactly one of Response and
// Err is meaningful; Err never escapes as a panic or a dropped message.
type Result struct {
	UserID   string
	Category category.Category
	ThreadID string
	RunID    string
	Response string
	Err      error
}

// Classifier assigns a category to a message. *classify.Classifier is
// the production implementation.
type Classifier interface {
	Classify(ctx context.Context, text string) (category.Category, error)
}

// Dispatcher wires the collaborators for message orchestration. All
// dependencies are injected; the zero value is not usable.
type Dispatcher struct {
	svc          assistant.Service
	classifier   Classifier
	sessions     session.Store
	registry     *integration.Registry
	router       *integration.Router
	model        string
	pollInterval time.Duration
	runTimeout   time.Duration
	log          *slog.Logger
}

// New creates a dispatcher.
func New(svc assistant.Service, classifier Classifier, sessions session.Store,
	registry *integration.Registry, router *integration.Router,
	model string, pollInterval, runTimeout time.Duration, log *slog.Logger) *Dispatcher {
	return &Dispatcher{
		svc:          svc,
		classifier:   classifier,
		sessions:     sessions,
		registry:     registry,
		router:       router,
		model:        model,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		log:          log,
	}
}

// Dispatch processes one incoming message for a user and returns the
// handler's reply. Any panic below this point is recovered into
// Result.Err so a single bad message cannot take the process down.
func (d *Dispatcher) Dispatch(ctx context.Context, rawUserID, platform, text string) (res Result) {
	start := time.Now()
	log := d.log.With("dispatch_id", uuid.NewString())
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("dispatch panic: %v", r)
			log.Error("recovered dispatch panic", "panic", r, "user", rawUserID)
		}
		outcome := "ok"
		if res.Err != nil {
			outcome = "error"
		}
		cat := string(res.Category)
		if cat == "" {
			cat = "unknown"
		}
		metrics.DispatchCount.WithLabelValues(cat, outcome).Inc()
		metrics.DispatchDuration.WithLabelValues(cat).Observe(time.Since(start).Seconds())
	}()

	uid, err := identity.Normalize(rawUserID, platform)
	if err != nil {
		res.Err = fmt.Errorf("normalize user id: %w", err)
		return res
	}
	res.UserID = uid

	cat, err := d.classifier.Classify(ctx, text)
	if err != nil {
		res.Err = fmt.Errorf("classify message: %w", err)
		return res
	}
	res.Category = cat
	log.Info("dispatching message", "user", uid, "category", cat)

	handlerID, err := d.svc.EnsureHandler(ctx, d.handlerDef(cat))
	if err != nil {
		res.Err = fmt.Errorf("ensure handler for %s: %w", cat, err)
		return res
	}

	threadID, err := d.sessions.GetOrCreate(ctx, uid, d.svc.CreateThread)
	if err != nil {
		res.Err = fmt.Errorf("session for %s: %w", uid, err)
		return res
	}
	res.ThreadID = threadID

	if err := d.svc.PostMessage(ctx, threadID, "user", text); err != nil {
		res.Err = fmt.Errorf("post message: %w", err)
		return res
	}

	run, err := d.svc.StartRun(ctx, threadID, handlerID, "")
	if err != nil {
		res.Err = fmt.Errorf("start run: %w", err)
		return res
	}
	res.RunID = run.ID

	run, err = assistant.PollRun(ctx, d.svc, threadID, run.ID, d.pollInterval, d.runTimeout,
		func(ctx context.Context, r *assistant.Run) ([]assistant.ToolOutput, error) {
			return d.answerToolCalls(ctx, cat, r, uid), nil
		})
	if err != nil {
		res.Err = fmt.Errorf("run %s: %w", res.RunID, err)
		return res
	}
	if run.Status != assistant.RunCompleted {
		res.Err = fmt.Errorf("unexpected run status: %s", run.Status)
		return res
	}

	reply, err := d.extractReply(ctx, threadID, run.ID)
	if err != nil {
		res.Err = err
		return res
	}
	res.Response = reply

	if err := d.sessions.Touch(ctx, uid); err != nil {
		// The reply already exists; a failed touch only risks an early
		// sweep, so log and carry on.
		log.Warn("session touch failed", "user", uid, "error", err)
	}
	return res
}

// answerToolCalls routes every pending call and returns one output per
// call. Calls nothing can serve get an unknown-function output so the
// batch stays complete.
func (d *Dispatcher) answerToolCalls(ctx context.Context, cat category.Category, run *assistant.Run, userID string) []assistant.ToolOutput {
	outputs := make([]assistant.ToolOutput, 0, len(run.ToolCalls))
	for _, tc := range run.ToolCalls {
		outputs = append(outputs, assistant.ToolOutput{
			ToolCallID: tc.ID,
			Output:     d.router.Route(ctx, cat, tc, userID),
		})
	}
	return outputs
}

// extractReply finds the assistant message the completed run produced.
func (d *Dispatcher) extractReply(ctx context.Context, threadID, runID string) (string, error) {
	msgs, err := d.svc.ListMessages(ctx, threadID, "desc", 20)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, m := range msgs {
		if m.Role == "assistant" && m.RunID == runID {
			return m.Text, nil
		}
	}
	return "", fmt.Errorf("run %s completed but produced no assistant message", runID)
}

// handlerDef builds the registration for a category's handler. Categories
// with an executor carry its tools and instructions; the rest get a
// conversational prompt derived from the category table.
func (d *Dispatcher) handlerDef(cat category.Category) assistant.HandlerDef {
	def := assistant.HandlerDef{
		Name:  category.HandlerName(cat),
		Model: d.model,
	}
	if exec, ok := d.registry.Get(cat); ok {
		def.Instructions = exec.Instructions()
		def.Tools = exec.Tools()
		return def
	}
	h := category.Handlers[cat]
	def.Instructions = fmt.Sprintf("You are %s. %s Respond helpfully and concisely.", h.Name, h.Description)
	return def
}
