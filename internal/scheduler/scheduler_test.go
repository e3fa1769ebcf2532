package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/session"
)

type fakeStore struct {
	stale   []session.Session
	deleted []string
}

func (f *fakeStore) GetOrCreate(ctx context.Context, userID string, create session.CreateThreadFunc) (string, error) {
	return "", nil
}
func (f *fakeStore) Get(ctx context.Context, userID string) (*session.Session, error) {
	return nil, session.ErrNotFound
}
func (f *fakeStore) Touch(ctx context.Context, userID string) error { return nil }
func (f *fakeStore) Delete(ctx context.Context, userID string) error {
	f.deleted = append(f.deleted, userID)
	return nil
}
func (f *fakeStore) Stale(ctx context.Context, cutoff time.Time) ([]session.Session, error) {
	return f.stale, nil
}
func (f *fakeStore) Count(ctx context.Context) (int, error) {
	return len(f.stale) - len(f.deleted), nil
}
func (f *fakeStore) Close() error { return nil }

type fakeThreads struct {
	assistant.Service
	deleted []string
	failFor string
}

func (f *fakeThreads) DeleteThread(ctx context.Context, threadID string) error {
	if threadID == f.failFor {
		return errors.New("service unavailable")
	}
	f.deleted = append(f.deleted, threadID)
	return nil
}

func TestSweepRemovesStaleSessions(t *testing.T) {
	store := &fakeStore{stale: []session.Session{
		{UserID: "slack_u1", ThreadID: "th_1"},
		{UserID: "slack_u2", ThreadID: "th_2"},
	}}
	threads := &fakeThreads{}
	s := New(store, threads, 24*time.Hour, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := s.Sweep(context.Background()); got != 2 {
		t.Errorf("Sweep() = %d, want 2", got)
	}
	if len(threads.deleted) != 2 {
		t.Errorf("deleted %d threads, want 2", len(threads.deleted))
	}
	if len(store.deleted) != 2 {
		t.Errorf("deleted %d sessions, want 2", len(store.deleted))
	}
}

func TestSweepKeepsSessionWhenThreadDeleteFails(t *testing.T) {
	store := &fakeStore{stale: []session.Session{
		{UserID: "slack_u1", ThreadID: "th_1"},
		{UserID: "slack_u2", ThreadID: "th_2"},
	}}
	threads := &fakeThreads{failFor: "th_1"}
	s := New(store, threads, 24*time.Hour, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	if got := s.Sweep(context.Background()); got != 1 {
		t.Errorf("Sweep() = %d, want 1", got)
	}
	for _, uid := range store.deleted {
		if uid == "slack_u1" {
			t.Error("session removed although its thread delete failed")
		}
	}
}

func TestSweepEmptyStore(t *testing.T) {
	s := New(&fakeStore{}, &fakeThreads{}, 24*time.Hour, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := s.Sweep(context.Background()); got != 0 {
		t.Errorf("Sweep() = %d, want 0", got)
	}
}
