package integration

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/calendar"
	"github.com/valethq/valet/internal/schedule"
)

const dateLayout = "2006-01-02"

// CalendarOptions carries the scheduling defaults applied when the model
// leaves them unspecified.
type CalendarOptions struct {
	// Timezone is the IANA zone used when a request carries none.
	Timezone string

	// WorkdayStart and WorkdayEnd bound availability searches, as hours
	// of the day.
	WorkdayStart int
	WorkdayEnd   int
}

// CalendarExecutor serves the schedule category: availability search and
// event CRUD against the calendar backend.
type CalendarExecutor struct {
	svc  calendar.Service
	opts CalendarOptions
	log  *slog.Logger
}

// NewCalendarExecutor creates a calendar executor.
func NewCalendarExecutor(svc calendar.Service, opts CalendarOptions, log *slog.Logger) *CalendarExecutor {
	if opts.Timezone == "" {
		opts.Timezone = "UTC"
	}
	if opts.WorkdayStart == 0 && opts.WorkdayEnd == 0 {
		opts.WorkdayStart = 9
		opts.WorkdayEnd = 17
	}
	return &CalendarExecutor{svc: svc, opts: opts, log: log}
}

func (e *CalendarExecutor) Instructions() string {
	return "You are a scheduling assistant. You manage the user's calendar: " +
		"find available meeting slots, create, update, delete and list events. " +
		"Always confirm times back to the user in their timezone. Dates are " +
		"YYYY-MM-DD and timestamps are RFC 3339. When the user does not name " +
		"a timezone, pass NULL and the default will be applied."
}

func (e *CalendarExecutor) Tools() []assistant.ToolSpec {
	return []assistant.ToolSpec{
		{
			Name:        "check_available_slots",
			Description: "Find free meeting slots between the user's busy calendar intervals within a date range.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"start_date":       {Type: "string", Description: "First day of the range, YYYY-MM-DD."},
					"end_date":         {Type: "string", Description: "Last day of the range, YYYY-MM-DD."},
					"timezone":         {Type: "string", Description: "IANA timezone, or NULL for the user's default."},
					"duration_minutes": {Type: "integer", Description: "Minimum slot length in minutes. Defaults to 30."},
				},
				Required: []string{"start_date", "end_date", "timezone"},
			},
		},
		{
			Name:        "create_event",
			Description: "Create a calendar event.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"summary":     {Type: "string", Description: "Event title."},
					"start_time":  {Type: "string", Description: "Event start, RFC 3339."},
					"end_time":    {Type: "string", Description: "Event end, RFC 3339."},
					"description": {Type: "string", Description: "Optional event description."},
					"location":    {Type: "string", Description: "Optional event location."},
				},
				Required: []string{"summary", "start_time", "end_time"},
			},
		},
		{
			Name:        "update_event",
			Description: "Update fields of an existing calendar event.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"event_id":    {Type: "string", Description: "ID of the event to update."},
					"summary":     {Type: "string"},
					"start_time":  {Type: "string", Description: "New start, RFC 3339."},
					"end_time":    {Type: "string", Description: "New end, RFC 3339."},
					"description": {Type: "string"},
					"location":    {Type: "string"},
				},
				Required: []string{"event_id"},
			},
		},
		{
			Name:        "delete_event",
			Description: "Delete a calendar event.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"event_id": {Type: "string", Description: "ID of the event to delete."},
				},
				Required: []string{"event_id"},
			},
		},
		{
			Name:        "list_events",
			Description: "List the user's calendar events within a date range.",
			Parameters: &assistant.ParamSchema{
				Type: "object",
				Properties: map[string]*assistant.ParamProp{
					"start_date": {Type: "string", Description: "First day of the range, YYYY-MM-DD."},
					"end_date":   {Type: "string", Description: "Last day of the range, YYYY-MM-DD."},
				},
				Required: []string{"start_date", "end_date"},
			},
		},
	}
}

func (e *CalendarExecutor) Execute(ctx context.Context, fn string, args map[string]any) string {
	switch fn {
	case "check_available_slots":
		return e.checkAvailableSlots(ctx, args)
	case "create_event":
		return e.createEvent(ctx, args)
	case "update_event":
		return e.updateEvent(ctx, args)
	case "delete_event":
		return e.deleteEvent(ctx, args)
	case "list_events":
		return e.listEvents(ctx, args)
	}
	return UnknownFunction(fn)
}

// resolveLocation maps the model-supplied timezone argument to a
// location. "NULL" is the contract value for "use the default".
func (e *CalendarExecutor) resolveLocation(tz string) (*time.Location, string, error) {
	if tz == "" || strings.EqualFold(tz, "NULL") {
		tz = e.opts.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, "", fmt.Errorf("unknown timezone %q", tz)
	}
	return loc, tz, nil
}

func (e *CalendarExecutor) checkAvailableSlots(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "start_date", "end_date", "timezone"); len(missing) > 0 {
		return missingParamsMessage("check_available_slots", missing)
	}

	loc, tzName, err := e.resolveLocation(stringArg(args, "timezone"))
	if err != nil {
		return err.Error()
	}

	startDay, err := time.ParseInLocation(dateLayout, stringArg(args, "start_date"), loc)
	if err != nil {
		return fmt.Sprintf("Invalid start_date: %v", err)
	}
	endDay, err := time.ParseInLocation(dateLayout, stringArg(args, "end_date"), loc)
	if err != nil {
		return fmt.Sprintf("Invalid end_date: %v", err)
	}
	if endDay.Before(startDay) {
		return "Invalid date range: end_date precedes start_date."
	}

	rangeStart := startDay
	rangeEnd := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), 23, 59, 59, 0, loc)

	busy, err := e.svc.FreeBusy(ctx, stringArg(args, "user_id"), rangeStart, rangeEnd)
	if err != nil {
		e.log.Error("freebusy lookup failed", "error", err)
		return fmt.Sprintf("Could not read the calendar: %v", err)
	}

	opts := schedule.Options{
		WorkdayStart: e.opts.WorkdayStart,
		WorkdayEnd:   e.opts.WorkdayEnd,
		SlotDuration: time.Duration(intArg(args, "duration_minutes", 30)) * time.Minute,
		Location:     loc,
	}
	days := schedule.FindFreeBlocks(rangeStart, rangeEnd, busy, opts)
	return schedule.FormatAvailability(days, tzName)
}

func (e *CalendarExecutor) createEvent(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "summary", "start_time", "end_time"); len(missing) > 0 {
		return missingParamsMessage("create_event", missing)
	}

	start, err := time.Parse(time.RFC3339, stringArg(args, "start_time"))
	if err != nil {
		return fmt.Sprintf("Invalid start_time: %v", err)
	}
	end, err := time.Parse(time.RFC3339, stringArg(args, "end_time"))
	if err != nil {
		return fmt.Sprintf("Invalid end_time: %v", err)
	}
	if !start.Before(end) {
		return "Invalid event times: start_time must precede end_time."
	}

	ev, err := e.svc.CreateEvent(ctx, stringArg(args, "user_id"), calendar.Event{
		Summary:     stringArg(args, "summary"),
		Description: stringArg(args, "description"),
		Location:    stringArg(args, "location"),
		Start:       start,
		End:         end,
	})
	if err != nil {
		e.log.Error("event create failed", "error", err)
		return fmt.Sprintf("Could not create the event: %v", err)
	}

	out := fmt.Sprintf("Event created: %s (%s - %s)", ev.Summary,
		ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339))
	if ev.Link != "" {
		out += "\nLink: " + ev.Link
	}
	return out
}

func (e *CalendarExecutor) updateEvent(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "event_id"); len(missing) > 0 {
		return missingParamsMessage("update_event", missing)
	}

	ev := calendar.Event{
		ID:          stringArg(args, "event_id"),
		Summary:     stringArg(args, "summary"),
		Description: stringArg(args, "description"),
		Location:    stringArg(args, "location"),
	}
	if s := stringArg(args, "start_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Sprintf("Invalid start_time: %v", err)
		}
		ev.Start = t
	}
	if s := stringArg(args, "end_time"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return fmt.Sprintf("Invalid end_time: %v", err)
		}
		ev.End = t
	}

	updated, err := e.svc.UpdateEvent(ctx, stringArg(args, "user_id"), ev)
	if err != nil {
		e.log.Error("event update failed", "event", ev.ID, "error", err)
		return fmt.Sprintf("Could not update the event: %v", err)
	}
	return fmt.Sprintf("Event updated: %s (%s - %s)", updated.Summary,
		updated.Start.Format(time.RFC3339), updated.End.Format(time.RFC3339))
}

func (e *CalendarExecutor) deleteEvent(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "event_id"); len(missing) > 0 {
		return missingParamsMessage("delete_event", missing)
	}
	id := stringArg(args, "event_id")
	if err := e.svc.DeleteEvent(ctx, stringArg(args, "user_id"), id); err != nil {
		e.log.Error("event delete failed", "event", id, "error", err)
		return fmt.Sprintf("Could not delete the event: %v", err)
	}
	return "Event deleted."
}

func (e *CalendarExecutor) listEvents(ctx context.Context, args map[string]any) string {
	if missing := missingParams(args, "start_date", "end_date"); len(missing) > 0 {
		return missingParamsMessage("list_events", missing)
	}

	loc, _, err := e.resolveLocation("")
	if err != nil {
		return err.Error()
	}
	start, err := time.ParseInLocation(dateLayout, stringArg(args, "start_date"), loc)
	if err != nil {
		return fmt.Sprintf("Invalid start_date: %v", err)
	}
	end, err := time.ParseInLocation(dateLayout, stringArg(args, "end_date"), loc)
	if err != nil {
		return fmt.Sprintf("Invalid end_date: %v", err)
	}
	end = time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, loc)

	events, err := e.svc.ListEvents(ctx, stringArg(args, "user_id"), start, end)
	if err != nil {
		e.log.Error("event list failed", "error", err)
		return fmt.Sprintf("Could not list events: %v", err)
	}
	if len(events) == 0 {
		return "No events found in the given date range."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d event(s):\n", len(events))
	for _, ev := range events {
		fmt.Fprintf(&sb, "- %s: %s - %s", ev.Summary,
			ev.Start.In(loc).Format("Mon Jan 2 03:04 PM"), ev.End.In(loc).Format("03:04 PM"))
		if ev.Location != "" {
			fmt.Fprintf(&sb, " @ %s", ev.Location)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}
