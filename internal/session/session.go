// Package session persists the mapping from user identity to the
// conversation thread that holds their history.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a user has no stored session.
var ErrNotFound = errors.New("session not found")

// Session binds a normalized user identity to a conversation thread.
type Session struct {
	UserID     string
	ThreadID   string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// CreateThreadFunc requests a new thread from the conversation service.
// It is invoked at most once per user for concurrent GetOrCreate calls.
type CreateThreadFunc func(ctx context.Context) (string, error)

// Store is the interface for conversation session persistence.
// Implementations must be safe for concurrent use across distinct and
// identical user keys.
type Store interface {
	// GetOrCreate returns the user's thread, creating and persisting one
	// via create on first use. On a hit the last-used timestamp is
	// refreshed.
	GetOrCreate(ctx context.Context, userID string, create CreateThreadFunc) (string, error)

	// Get returns the stored session or ErrNotFound.
	Get(ctx context.Context, userID string) (*Session, error)

	// Touch refreshes the last-used timestamp.
	Touch(ctx context.Context, userID string) error

	// Delete removes the stored session.
	Delete(ctx context.Context, userID string) error

	// Stale returns sessions whose last use precedes cutoff.
	Stale(ctx context.Context, cutoff time.Time) ([]Session, error)

	// Count returns the number of stored sessions.
	Count(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
