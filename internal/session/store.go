package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store persists sessions in the sessions table.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore creates a new session store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Create inserts a session with a freshly generated token.
func (s *Store) Create(ctx context.Context, userID, accessToken string) (*Session, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Millisecond)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, matrix_user_id, matrix_access_token, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?)`,
		token, userID, accessToken, toMillis(now), toMillis(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	return &Session{
		ID:          token,
		UserID:      userID,
		AccessToken: accessToken,
		CreatedAt:   now,
		LastSeen:    now,
	}, nil
}

// Get returns the session and bumps its last_seen in the same statement.
// last_seen never moves backwards.
// Returns ErrNotFound if the session does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	var (
		sess              Session
		created, lastSeen int64
	)
	err := s.db.QueryRowContext(ctx, `
		UPDATE sessions SET last_seen = MAX(last_seen, ?)
		WHERE session_id = ?
		RETURNING session_id, matrix_user_id, matrix_access_token, created_at, last_seen`,
		toMillis(s.now()), id,
	).Scan(&sess.ID, &sess.UserID, &sess.AccessToken, &created, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.CreatedAt = fromMillis(created)
	sess.LastSeen = fromMillis(lastSeen)
	return &sess, nil
}

// Delete removes a session. Deleting a missing session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUser removes every session belonging to a Matrix user.
func (s *Store) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE matrix_user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete sessions for %s: %w", userID, err)
	}
	return res.RowsAffected()
}

// PruneIdle removes sessions not seen since before.
func (s *Store) PruneIdle(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE last_seen < ?`, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

// List returns all sessions, most recently seen first. It does not touch last_seen.
func (s *Store) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, matrix_user_id, matrix_access_token, created_at, last_seen
		FROM sessions ORDER BY last_seen DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []*Session
	for rows.Next() {
		var (
			sess              Session
			created, lastSeen int64
		)
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.AccessToken, &created, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.CreatedAt = fromMillis(created)
		sess.LastSeen = fromMillis(lastSeen)
		results = append(results, &sess)
	}
	return results, rows.Err()
}
