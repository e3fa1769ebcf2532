package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/valethq/valet/internal/metrics"
)

// ErrRunTimeout reports a run that reached no terminal state before the
// poll deadline. It is distinct from a run the service itself marked
// failed or expired.
var ErrRunTimeout = errors.New("run polling deadline exceeded")

// ActionFunc answers one requires_action cycle. It must return exactly
// one output per pending tool call; the batch is submitted atomically.
type ActionFunc func(ctx context.Context, run *Run) ([]ToolOutput, error)

// PollRun polls a run until it reaches a terminal state, answering
// requires_action cycles through handle. A nil handle fails the poll on
// the first requires_action, for callers whose handlers declare no
// tools. The deadline bounds the whole poll, submissions included.
func PollRun(ctx context.Context, svc Service, threadID, runID string, interval, timeout time.Duration, handle ActionFunc) (*Run, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		metrics.RunPolls.Inc()
		run, err := svc.GetRun(ctx, threadID, runID)
		if err != nil {
			return nil, fmt.Errorf("get run %s: %w", runID, err)
		}

		switch {
		case run.Status.Terminal():
			return run, nil

		case run.Status == RunRequiresAction:
			if handle == nil {
				return run, fmt.Errorf("run %s requires action but no handler is set", runID)
			}
			outputs, err := handle(ctx, run)
			if err != nil {
				return run, err
			}
			if run, err = svc.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
				return nil, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
			}
			if run.Status.Terminal() {
				return run, nil
			}
		}

		if time.Now().After(deadline) {
			return run, ErrRunTimeout
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}
