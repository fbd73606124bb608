package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository defines the data access contract for session rows.
// All SQL lives in the concrete implementation -- no SQL leaks out.
type SessionRepository interface {
	Insert(ctx context.Context, session *Session) error

	// FindByID returns the session row, or nil if no row exists.
	FindByID(ctx context.Context, sessionID string) (*Session, error)

	// Deactivate flips is_active off for an active row. Returns whether an
	// active row was found; an already-inactive row is not an error.
	Deactivate(ctx context.Context, sessionID string) (bool, error)

	// DeactivateExpired flips every active row whose expiry has passed.
	// Returns the number of rows swept.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)

	// DeactivateAllForUser flips every active row belonging to a user.
	DeactivateAllForUser(ctx context.Context, userID string) (int64, error)

	// TouchLastSeen stamps last_seen_at on an active row.
	TouchLastSeen(ctx context.Context, sessionID string, now time.Time) error

	// ListActive returns all currently active sessions, newest first.
	ListActive(ctx context.Context) ([]Session, error)
}

// sessionRepository implements SessionRepository with hand-written MariaDB
// queries against the sys_sessions table.
type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a session repository backed by the given DB pool.
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Insert appends a new session row.
func (r *sessionRepository) Insert(ctx context.Context, s *Session) error {
	query := `INSERT INTO sys_sessions
	              (session_id, user_id, login_time, expiry_time, ip_address, user_agent, is_active)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		s.SessionID,
		s.UserID,
		s.LoginTime,
		s.ExpiryTime,
		s.IPAddress,
		s.UserAgent,
		s.IsActive,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// FindByID retrieves a session row by its token. Returns nil (not an error)
// when no row exists -- an unknown token is a normal control-flow outcome.
func (r *sessionRepository) FindByID(ctx context.Context, sessionID string) (*Session, error) {
	query := `SELECT session_id, user_id, login_time, expiry_time,
	                 ip_address, user_agent, is_active, last_seen_at
	          FROM sys_sessions WHERE session_id = ?`

	s := &Session{}
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&s.SessionID,
		&s.UserID,
		&s.LoginTime,
		&s.ExpiryTime,
		&s.IPAddress,
		&s.UserAgent,
		&s.IsActive,
		&s.LastSeenAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}
	return s, nil
}

// Deactivate flips is_active off. The WHERE clause guards on is_active so
// the rows-affected count distinguishes "revoked now" from "already gone".
func (r *sessionRepository) Deactivate(ctx context.Context, sessionID string) (bool, error) {
	query := `UPDATE sys_sessions SET is_active = FALSE
	          WHERE session_id = ? AND is_active = TRUE`

	result, err := r.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return false, fmt.Errorf("deactivating session: %w", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// DeactivateExpired sweeps every active row whose expiry has passed.
func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE sys_sessions SET is_active = FALSE
	          WHERE is_active = TRUE AND expiry_time < ?`

	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("sweeping expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// DeactivateAllForUser revokes every active session a user holds.
func (r *sessionRepository) DeactivateAllForUser(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE sys_sessions SET is_active = FALSE
	          WHERE user_id = ? AND is_active = TRUE`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivating sessions for user: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// TouchLastSeen stamps the last_seen_at column.
func (r *sessionRepository) TouchLastSeen(ctx context.Context, sessionID string, now time.Time) error {
	query := `UPDATE sys_sessions SET last_seen_at = ?
	          WHERE session_id = ? AND is_active = TRUE`

	if _, err := r.db.ExecContext(ctx, query, now, sessionID); err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// ListActive returns all active sessions, newest first.
func (r *sessionRepository) ListActive(ctx context.Context) ([]Session, error) {
	query := `SELECT session_id, user_id, login_time, expiry_time,
	                 ip_address, user_agent, is_active, last_seen_at
	          FROM sys_sessions WHERE is_active = TRUE
	          ORDER BY login_time DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing active sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(
			&s.SessionID, &s.UserID, &s.LoginTime, &s.ExpiryTime,
			&s.IPAddress, &s.UserAgent, &s.IsActive, &s.LastSeenAt,
		); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
