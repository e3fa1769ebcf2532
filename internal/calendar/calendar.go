// Package calendar defines the calendar backend collaborator. Valet only
// needs busy intervals and event CRUD; credential handling and provider
// specifics live behind this interface.
package calendar

import (
	"context"
	"time"

	"github.com/valethq/valet/internal/schedule"
)

// Event is a calendar event as Valet sees it.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Link        string    `json:"link,omitempty"`
}

// Service is the narrow calendar interface the schedule integration uses.
type Service interface {
	// FreeBusy returns the user's busy intervals within [start, end].
	FreeBusy(ctx context.Context, userID string, start, end time.Time) ([]schedule.Interval, error)

	// CreateEvent inserts an event and returns it with ID and link set.
	CreateEvent(ctx context.Context, userID string, ev Event) (*Event, error)

	// UpdateEvent applies non-zero fields of ev to the stored event.
	UpdateEvent(ctx context.Context, userID string, ev Event) (*Event, error)

	// DeleteEvent removes an event.
	DeleteEvent(ctx context.Context, userID, eventID string) error

	// ListEvents returns events within [start, end], ordered by start.
	ListEvents(ctx context.Context, userID string, start, end time.Time) ([]Event, error)
}
