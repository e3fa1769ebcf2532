package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite for persistence.
type SQLiteStore struct {
	db *sql.DB

	// locks serializes create-if-absent per user key so two concurrent
	// dispatches for the same user share one thread creation.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore opens (or creates) the session database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db, locks: make(map[string]*sync.Mutex)}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		last_used_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_last_used ON sessions(last_used_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// GetOrCreate returns the user's thread, creating one on first use.
func (s *SQLiteStore) GetOrCreate(ctx context.Context, userID string, create CreateThreadFunc) (string, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	sess, err := s.Get(ctx, userID)
	if err == nil {
		if err := s.Touch(ctx, userID); err != nil {
			return "", err
		}
		return sess.ThreadID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	threadID, err := create(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create thread: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, thread_id, created_at, last_used_at) VALUES (?, ?, ?, ?)`,
		userID, threadID, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	return threadID, nil
}

// Get returns the stored session or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, thread_id, created_at, last_used_at FROM sessions WHERE user_id = ?`,
		userID,
	)

	var sess Session
	err := row.Scan(&sess.UserID, &sess.ThreadID, &sess.CreatedAt, &sess.LastUsedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &sess, nil
}

// Touch refreshes the last-used timestamp.
func (s *SQLiteStore) Touch(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session.
func (s *SQLiteStore) Delete(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Stale returns sessions last used before cutoff.
func (s *SQLiteStore) Stale(ctx context.Context, cutoff time.Time) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, thread_id, created_at, last_used_at FROM sessions WHERE last_used_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.UserID, &sess.ThreadID, &sess.CreatedAt, &sess.LastUsedAt); err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Count returns the number of stored sessions.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
