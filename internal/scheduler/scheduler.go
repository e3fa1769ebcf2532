// Package scheduler runs the periodic session sweep that expires idle
// conversations and releases their threads.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/valethq/valet/internal/assistant"
	"github.com/valethq/valet/internal/metrics"
	"github.com/valethq/valet/internal/session"
)

// Sweeper expires sessions idle longer than the TTL. Each sweep deletes
// the remote thread first so a failed thread delete leaves the session
// visible for the next pass.
type Sweeper struct {
	sessions session.Store
	svc      assistant.Service
	ttl      time.Duration
	schedule string
	log      *slog.Logger
	cron     *cron.Cron
}

// New creates a sweeper. schedule is a cron spec such as "@every 1h".
func New(sessions session.Store, svc assistant.Service, ttl time.Duration, schedule string, log *slog.Logger) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		svc:      svc,
		ttl:      ttl,
		schedule: schedule,
		log:      log,
		cron:     cron.New(),
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Sweep(ctx)
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("session sweeper started", "schedule", s.schedule, "ttl", s.ttl)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep expires every session idle past the TTL and returns how many
// were removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cutoff := time.Now().Add(-s.ttl)
	stale, err := s.sessions.Stale(ctx, cutoff)
	if err != nil {
		s.log.Error("stale session query failed", "error", err)
		return 0
	}

	removed := 0
	for _, sess := range stale {
		if err := s.svc.DeleteThread(ctx, sess.ThreadID); err != nil {
			s.log.Warn("thread delete failed, keeping session", "user", sess.UserID, "thread", sess.ThreadID, "error", err)
			continue
		}
		if err := s.sessions.Delete(ctx, sess.UserID); err != nil {
			s.log.Error("session delete failed", "user", sess.UserID, "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		metrics.SessionsSwept.Add(float64(removed))
		s.log.Info("session sweep complete", "removed", removed)
	}
	if count, err := s.sessions.Count(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(count))
	}
	return removed
}
