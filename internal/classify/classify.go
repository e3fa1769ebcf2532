// Package classify routes incoming messages to a category by asking the
// conversation service's classifier handler.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/category"
)

// historyTurns bounds how many recent messages feed the classifier as
// context for ambiguous follow-ups ("what about tuesday?").
const historyTurns = 5

// Classifier assigns a category to each incoming message. It holds a
// single lazily-created thread of its own so classification context
// never mixes with user conversations.
type Classifier struct {
	svc          assistant.Service
	model        string
	pollInterval time.Duration
	runTimeout   time.Duration
	log          *slog.Logger

	mu        sync.Mutex
	threadID  string
	handlerID string
	history   []string
}

// New creates a classifier.
func New(svc assistant.Service, model string, pollInterval, runTimeout time.Duration, log *slog.Logger) *Classifier {
	return &Classifier{
		svc:          svc,
		model:        model,
		pollInterval: pollInterval,
		runTimeout:   runTimeout,
		log:          log,
	}
}

// instructions builds the classifier prompt from the category table so
// the two can never drift apart.
func instructions() string {
	var sb strings.Builder
	sb.WriteString("You are a message classifier. Classify the user's message " +
		"into exactly one of the following categories and respond with the " +
		"category name only, lowercase, no punctuation:\n\n")
	for _, c := range category.Destinations() {
		h := category.Handlers[c]
		fmt.Fprintf(&sb, "- %s: %s\n", c, h.Description)
	}
	sb.WriteString("\nIf no category clearly applies, respond with general.")
	return sb.String()
}

// Classify returns the category for a message. Model output that names
// no known category coerces to general; only transport and run failures
// are errors.
func (c *Classifier) Classify(ctx context.Context, text string) (category.Category, error) {
	threadID, handlerID, err := c.ensure(ctx)
	if err != nil {
		return category.General, err
	}

	prompt := c.withHistory(text)
	if err := c.svc.PostMessage(ctx, threadID, "user", prompt); err != nil {
		return category.General, fmt.Errorf("post classifier message: %w", err)
	}

	run, err := c.svc.StartRun(ctx, threadID, handlerID, "")
	if err != nil {
		return category.General, fmt.Errorf("start classifier run: %w", err)
	}

	run, err = assistant.PollRun(ctx, c.svc, threadID, run.ID, c.pollInterval, c.runTimeout, nil)
	if err != nil {
		return category.General, fmt.Errorf("classifier run: %w", err)
	}
	if run.Status != assistant.RunCompleted {
		return category.General, fmt.Errorf("classifier run ended %s", run.Status)
	}

	msgs, err := c.svc.ListMessages(ctx, threadID, "desc", historyTurns)
	if err != nil {
		return category.General, fmt.Errorf("read classifier reply: %w", err)
	}
	for _, m := range msgs {
		if m.Role == "assistant" {
			cat := category.Parse(m.Text)
			c.remember(text)
			c.log.Debug("classified message", "category", cat, "raw", m.Text)
			return cat, nil
		}
	}
	return category.General, fmt.Errorf("classifier run %s produced no reply", run.ID)
}

// ensure lazily creates the classifier's handler and thread.
func (c *Classifier) ensure(ctx context.Context) (threadID, handlerID string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.handlerID == "" {
		id, err := c.svc.EnsureHandler(ctx, assistant.HandlerDef{
			Name:         category.HandlerName(category.Classifier),
			Instructions: instructions(),
			Model:        c.model,
		})
		if err != nil {
			return "", "", fmt.Errorf("ensure classifier handler: %w", err)
		}
		c.handlerID = id
	}
	if c.threadID == "" {
		id, err := c.svc.CreateThread(ctx)
		if err != nil {
			return "", "", fmt.Errorf("create classifier thread: %w", err)
		}
		c.threadID = id
	}
	return c.threadID, c.handlerID, nil
}

// withHistory prefixes the message with recent turns so follow-ups
// classify like the conversation they continue.
func (c *Classifier) withHistory(text string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.history) == 0 {
		return text
	}
	var sb strings.Builder
	sb.WriteString("Recent messages:\n")
	for _, h := range c.history {
		fmt.Fprintf(&sb, "- %s\n", h)
	}
	sb.WriteString("\nClassify this message: ")
	sb.WriteString(text)
	return sb.String()
}

func (c *Classifier) remember(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, text)
	if len(c.history) > historyTurns {
		c.history = c.history[len(c.history)-historyTurns:]
	}
}
