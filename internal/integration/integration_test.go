package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/calendar"
	"github.com/valethq/valet/internal/category"
	"github.com/valethq/valet/internal/mail"
	"github.com/valethq/valet/internal/schedule"
	"github.com/valethq/valet/internal/travel"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCalendar struct {
	busy    []schedule.Interval
	lastUID string
	events  []calendar.Event
}

func (f *fakeCalendar) FreeBusy(ctx context.Context, userID string, start, end time.Time) ([]schedule.Interval, error) {
	f.lastUID = userID
	return f.busy, nil
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, userID string, ev calendar.Event) (*calendar.Event, error) {
	ev.ID = "ev_1"
	ev.Link = "https://cal.example/ev_1"
	f.events = append(f.events, ev)
	return &ev, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, userID string, ev calendar.Event) (*calendar.Event, error) {
	return &ev, nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, userID, eventID string) error {
	return nil
}

func (f *fakeCalendar) ListEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.Event, error) {
	return f.events, nil
}

type fakeSearcher struct{}

func (fakeSearcher) SearchFlights(ctx context.Context, q travel.FlightQuery) (string, error) {
	return "1. Flight " + q.Origin + " to " + q.Destination, nil
}

func (fakeSearcher) SearchHotels(ctx context.Context, q travel.HotelQuery) (string, error) {
	return "1. Hotel in " + q.Location, nil
}

type fakeSender struct {
	sent   []mail.Message
	drafts []mail.Message
}

func (f *fakeSender) Send(ctx context.Context, userID string, msg mail.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return "m_1", nil
}

func (f *fakeSender) Draft(ctx context.Context, userID string, msg mail.Message) (string, error) {
	f.drafts = append(f.drafts, msg)
	return "d_1", nil
}

func calendarExec(busy []schedule.Interval) (*CalendarExecutor, *fakeCalendar) {
	fc := &fakeCalendar{busy: busy}
	exec := NewCalendarExecutor(fc, CalendarOptions{Timezone: "UTC", WorkdayStart: 9, WorkdayEnd: 17}, testLogger())
	return exec, fc
}

func TestRouterUnknownCategory(t *testing.T) {
	r := NewRouter(NewRegistry(), testLogger())
	out := r.Route(context.Background(), category.General, assistant.ToolCall{
		ID: "tc_1", Name: "do_something", Arguments: json.RawMessage(`{}`),
	}, "slack_u1")
	if out != "Unknown function: do_something" {
		t.Errorf("Route() = %q, want unknown function output", out)
	}
}

func TestRouterUnknownFunctionInExecutor(t *testing.T) {
	reg := NewRegistry()
	exec, _ := calendarExec(nil)
	reg.Register(category.Schedule, exec)
	r := NewRouter(reg, testLogger())

	out := r.Route(context.Background(), category.Schedule, assistant.ToolCall{
		ID: "tc_1", Name: "teleport", Arguments: json.RawMessage(`{}`),
	}, "slack_u1")
	if out != "Unknown function: teleport" {
		t.Errorf("Route() = %q, want unknown function output", out)
	}
}

func TestRouterInjectsUserID(t *testing.T) {
	reg := NewRegistry()
	exec, fc := calendarExec(nil)
	reg.Register(category.Schedule, exec)
	r := NewRouter(reg, testLogger())

	args := `{"start_date":"2024-11-04","end_date":"2024-11-04","timezone":"UTC","user_id":"spoofed"}`
	r.Route(context.Background(), category.Schedule, assistant.ToolCall{
		ID: "tc_1", Name: "check_available_slots", Arguments: json.RawMessage(args),
	}, "slack_u1")

	if fc.lastUID != "slack_u1" {
		t.Errorf("FreeBusy called with user %q, want the caller's id", fc.lastUID)
	}
}

func TestRouterMalformedArguments(t *testing.T) {
	reg := NewRegistry()
	exec, _ := calendarExec(nil)
	reg.Register(category.Schedule, exec)
	r := NewRouter(reg, testLogger())

	out := r.Route(context.Background(), category.Schedule, assistant.ToolCall{
		ID: "tc_1", Name: "check_available_slots", Arguments: json.RawMessage(`{not json`),
	}, "slack_u1")
	if !strings.HasPrefix(out, "Invalid arguments for check_available_slots") {
		t.Errorf("Route() = %q, want invalid-arguments output", out)
	}
}

func TestCheckAvailableSlotsMorningBusy(t *testing.T) {
	day := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	exec, _ := calendarExec([]schedule.Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
	})

	out := exec.Execute(context.Background(), "check_available_slots", map[string]any{
		"start_date": "2024-11-04",
		"end_date":   "2024-11-04",
		"timezone":   "UTC",
		"user_id":    "slack_u1",
	})

	if !strings.Contains(out, "10:00 AM - 05:00 PM") {
		t.Errorf("output missing the 10:00-17:00 block:\n%s", out)
	}
	if !strings.Contains(out, "timezone: UTC") {
		t.Errorf("output missing timezone header:\n%s", out)
	}
}

func TestCheckAvailableSlotsNarrowGap(t *testing.T) {
	day := time.Date(2024, 11, 4, 0, 0, 0, 0, time.UTC)
	exec, _ := calendarExec([]schedule.Interval{
		{Start: day.Add(9 * time.Hour), End: day.Add(12 * time.Hour)},
		{Start: day.Add(12*time.Hour + 30*time.Minute), End: day.Add(17 * time.Hour)},
	})

	out := exec.Execute(context.Background(), "check_available_slots", map[string]any{
		"start_date": "2024-11-04",
		"end_date":   "2024-11-04",
		"timezone":   "UTC",
		"user_id":    "slack_u1",
	})

	if !strings.Contains(out, "12:00 PM - 12:30 PM") {
		t.Errorf("output missing the 12:00-12:30 block:\n%s", out)
	}
	if strings.Count(out, " - ") != 1 {
		t.Errorf("want exactly one block, got:\n%s", out)
	}
}

func TestCheckAvailableSlotsNullTimezone(t *testing.T) {
	fc := &fakeCalendar{}
	exec := NewCalendarExecutor(fc, CalendarOptions{Timezone: "America/New_York", WorkdayStart: 9, WorkdayEnd: 17}, testLogger())

	out := exec.Execute(context.Background(), "check_available_slots", map[string]any{
		"start_date": "2024-11-04",
		"end_date":   "2024-11-04",
		"timezone":   "NULL",
		"user_id":    "slack_u1",
	})

	if !strings.Contains(out, "timezone: America/New_York") {
		t.Errorf("NULL timezone did not fall back to default:\n%s", out)
	}
}

func TestCheckAvailableSlotsMissingParams(t *testing.T) {
	exec, _ := calendarExec(nil)
	out := exec.Execute(context.Background(), "check_available_slots", map[string]any{
		"start_date": "2024-11-04",
		"user_id":    "slack_u1",
	})
	want := "Missing required parameters for check_available_slots: end_date, timezone"
	if out != want {
		t.Errorf("Execute() = %q, want %q", out, want)
	}
}

func TestCreateEventRejectsInvertedTimes(t *testing.T) {
	exec, _ := calendarExec(nil)
	out := exec.Execute(context.Background(), "create_event", map[string]any{
		"summary":    "Standup",
		"start_time": "2024-11-04T10:00:00Z",
		"end_time":   "2024-11-04T09:00:00Z",
		"user_id":    "slack_u1",
	})
	if !strings.Contains(out, "start_time must precede end_time") {
		t.Errorf("Execute() = %q, want inverted-times rejection", out)
	}
}

func TestCreateEventSucceeds(t *testing.T) {
	exec, fc := calendarExec(nil)
	out := exec.Execute(context.Background(), "create_event", map[string]any{
		"summary":    "Standup",
		"start_time": "2024-11-04T10:00:00Z",
		"end_time":   "2024-11-04T10:30:00Z",
		"user_id":    "slack_u1",
	})
	if !strings.Contains(out, "Event created: Standup") {
		t.Errorf("Execute() = %q, want creation confirmation", out)
	}
	if len(fc.events) != 1 {
		t.Fatalf("created %d events, want 1", len(fc.events))
	}
}

func TestTravelExecutorMissingParams(t *testing.T) {
	exec := NewTravelExecutor(fakeSearcher{}, testLogger())
	out := exec.Execute(context.Background(), "search_flights", map[string]any{
		"origin":  "JFK",
		"user_id": "slack_u1",
	})
	want := "Missing required parameters for search_flights: destination, departure_date"
	if out != want {
		t.Errorf("Execute() = %q, want %q", out, want)
	}
}

func TestTravelExecutorSearch(t *testing.T) {
	exec := NewTravelExecutor(fakeSearcher{}, testLogger())
	out := exec.Execute(context.Background(), "search_flights", map[string]any{
		"origin":         "JFK",
		"destination":    "SFO",
		"departure_date": "2024-12-01",
		"user_id":        "slack_u1",
	})
	if !strings.Contains(out, "JFK to SFO") {
		t.Errorf("Execute() = %q, want rendered search results", out)
	}
}

func TestEmailExecutorSendAndDraft(t *testing.T) {
	sender := &fakeSender{}
	exec := NewEmailExecutor(sender, testLogger())

	args := map[string]any{
		"to":      "alice@example.com",
		"subject": "Hello",
		"body":    "Hi Alice",
		"user_id": "slack_u1",
	}
	if out := exec.Execute(context.Background(), "send_email", args); !strings.Contains(out, "Email sent") {
		t.Errorf("send_email = %q", out)
	}
	if out := exec.Execute(context.Background(), "create_draft", args); !strings.Contains(out, "Draft saved") {
		t.Errorf("create_draft = %q", out)
	}
	if len(sender.sent) != 1 || len(sender.drafts) != 1 {
		t.Errorf("sent=%d drafts=%d, want 1 each", len(sender.sent), len(sender.drafts))
	}
}

func TestExecutorsDeclareTools(t *testing.T) {
	execs := map[string]Executor{
		"calendar": func() Executor { e, _ := calendarExec(nil); return e }(),
		"travel":   NewTravelExecutor(fakeSearcher{}, testLogger()),
		"email":    NewEmailExecutor(&fakeSender{}, testLogger()),
	}
	for name, e := range execs {
		if len(e.Tools()) == 0 {
			t.Errorf("%s executor declares no tools", name)
		}
		if e.Instructions() == "" {
			t.Errorf("%s executor has empty instructions", name)
		}
	}
}
