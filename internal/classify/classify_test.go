package classify

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/category"
)

// fakeService replies to every classifier run with a fixed answer.
type fakeService struct {
	answer      string
	runStatus   assistant.RunStatus
	threads     int
	handlers    int
	lastMessage string
}

func (f *fakeService) CreateThread(ctx context.Context) (string, error) {
	f.threads++
	return "th_cls", nil
}

func (f *fakeService) DeleteThread(ctx context.Context, threadID string) error { return nil }

func (f *fakeService) PostMessage(ctx context.Context, threadID, role, text string) error {
	f.lastMessage = text
	return nil
}

func (f *fakeService) ListMessages(ctx context.Context, threadID, order string, limit int) ([]assistant.Message, error) {
	return []assistant.Message{{ID: "m_1", Role: "assistant", Text: f.answer}}, nil
}

func (f *fakeService) EnsureHandler(ctx context.Context, def assistant.HandlerDef) (string, error) {
	f.handlers++
	return "h_cls", nil
}

func (f *fakeService) StartRun(ctx context.Context, threadID, handlerID, instructions string) (*assistant.Run, error) {
	return &assistant.Run{ID: "run_cls", ThreadID: threadID, Status: assistant.RunQueued}, nil
}

func (f *fakeService) GetRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	status := f.runStatus
	if status == "" {
		status = assistant.RunCompleted
	}
	return &assistant.Run{ID: runID, ThreadID: threadID, Status: status}, nil
}

func (f *fakeService) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	return &assistant.Run{ID: runID, Status: assistant.RunCompleted}, nil
}

func newTestClassifier(svc assistant.Service) *Classifier {
	return New(svc, "gpt-4o-2024-08-06", time.Millisecond, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClassifyKnownCategory(t *testing.T) {
	svc := &fakeService{answer: "travel"}
	c := newTestClassifier(svc)

	got, err := c.Classify(context.Background(), "book me a flight to SFO")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if got != category.Travel {
		t.Errorf("Classify() = %q, want travel", got)
	}
}

func TestClassifyCoercesUnknownAnswer(t *testing.T) {
	tests := []struct {
		answer string
		want   category.Category
	}{
		{"weather", category.General},
		{"", category.General},
		{"  Schedule  ", category.Schedule},
		{"SCHEDULEEMAIL", category.ScheduleEmail},
		{"classifier", category.General},
	}
	for _, tt := range tests {
		svc := &fakeService{answer: tt.answer}
		c := newTestClassifier(svc)
		got, err := c.Classify(context.Background(), "hello")
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tt.answer, err)
		}
		if got != tt.want {
			t.Errorf("Classify() with answer %q = %q, want %q", tt.answer, got, tt.want)
		}
	}
}

func TestClassifyFailedRunIsError(t *testing.T) {
	svc := &fakeService{answer: "travel", runStatus: assistant.RunFailed}
	c := newTestClassifier(svc)

	got, err := c.Classify(context.Background(), "hello")
	if err == nil {
		t.Fatal("Classify() with failed run returned no error")
	}
	if got != category.General {
		t.Errorf("Classify() on error = %q, want general", got)
	}
}

func TestClassifyReusesThreadAndHandler(t *testing.T) {
	svc := &fakeService{answer: "todo"}
	c := newTestClassifier(svc)

	for i := 0; i < 3; i++ {
		if _, err := c.Classify(context.Background(), "add milk to my list"); err != nil {
			t.Fatalf("Classify() error = %v", err)
		}
	}
	if svc.threads != 1 {
		t.Errorf("created %d threads, want 1", svc.threads)
	}
	if svc.handlers != 1 {
		t.Errorf("registered %d handlers, want 1", svc.handlers)
	}
}

func TestClassifyCarriesRecentContext(t *testing.T) {
	svc := &fakeService{answer: "schedule"}
	c := newTestClassifier(svc)

	if _, err := c.Classify(context.Background(), "am I free on monday?"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if _, err := c.Classify(context.Background(), "what about tuesday?"); err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !strings.Contains(svc.lastMessage, "am I free on monday?") {
		t.Errorf("second prompt missing prior turn:\n%s", svc.lastMessage)
	}
}

func TestInstructionsListAllDestinations(t *testing.T) {
	text := instructions()
	for _, c := range category.Destinations() {
		if !strings.Contains(text, string(c)) {
			t.Errorf("instructions missing category %q", c)
		}
	}
	if strings.Contains(text, "- classifier:") {
		t.Error("instructions leak the internal classifier category")
	}
}
