package sessions

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/nijjara/erp/internal/apperror"
)

// tokenBytes is the number of random bytes in a session token.
// 32 bytes = 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

// SessionStore defines the business logic contract for session lifecycle.
// The auth service and the admin handler call these methods -- they never
// touch the repository directly.
type SessionStore interface {
	// Create sweeps expired sessions opportunistically, then issues a new
	// active session for the user with the given lifetime.
	Create(ctx context.Context, userID string, meta Metadata, duration time.Duration) (*Session, error)

	// Validate checks a token and reports the session's standing. Expired
	// sessions are flipped inactive as a side effect; repeated calls keep
	// returning the expired outcome and never resurrect the row.
	Validate(ctx context.Context, token string) (Validation, error)

	// Revoke deactivates a session. Idempotent: the first call returns
	// true, any later call false, and the row is never reactivated.
	Revoke(ctx context.Context, token string) (bool, error)

	// RevokeAllForUser deactivates every active session a user holds and
	// returns how many were revoked.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// TouchLastSeen records activity on a session. Best-effort: failures
	// are logged and swallowed.
	TouchLastSeen(ctx context.Context, token string)

	// ReapExpired sweeps every active-but-expired row. Invoked
	// opportunistically by Create and exposed for scheduled invocation.
	ReapExpired(ctx context.Context) (int64, error)

	// ListActive returns all active sessions for the admin view.
	ListActive(ctx context.Context) ([]Session, error)
}

// sessionStore implements SessionStore.
type sessionStore struct {
	repo SessionRepository

	// now is injectable for tests.
	now func() time.Time
}

// NewSessionStore creates a session store with the given repository.
func NewSessionStore(repo SessionRepository) SessionStore {
	return &sessionStore{
		repo: repo,
		now:  time.Now,
	}
}

// Create issues a new session. The sweep beforehand is best-effort: a
// failed sweep is logged but never blocks a login.
func (s *sessionStore) Create(ctx context.Context, userID string, meta Metadata, duration time.Duration) (*Session, error) {
	if _, err := s.ReapExpired(ctx); err != nil {
		slog.Warn("opportunistic session sweep failed",
			slog.Any("error", err),
		)
	}

	token, err := generateToken()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("generating session token: %w", err))
	}

	now := s.now().UTC()
	meta = meta.truncated()
	session := &Session{
		SessionID:  token,
		UserID:     userID,
		LoginTime:  now,
		ExpiryTime: now.Add(duration),
		IPAddress:  meta.IPAddress,
		UserAgent:  meta.UserAgent,
		IsActive:   true,
	}

	if err := s.repo.Insert(ctx, session); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating session: %w", err))
	}

	slog.Info("session created",
		slog.String("user_id", userID),
		slog.Time("expires_at", session.ExpiryTime),
	)
	return session, nil
}

// Validate walks the token through the session state machine.
func (s *sessionStore) Validate(ctx context.Context, token string) (Validation, error) {
	if token == "" {
		return Validation{Reason: ReasonNotFound, Message: "No token provided"}, nil
	}

	session, err := s.repo.FindByID(ctx, token)
	if err != nil {
		return Validation{}, apperror.NewInternal(fmt.Errorf("validating session: %w", err))
	}
	if session == nil {
		return Validation{Reason: ReasonNotFound, Message: "Session not found"}, nil
	}
	if !session.IsActive {
		return Validation{Reason: ReasonInactive, Message: "Session inactive"}, nil
	}

	if session.ExpiryTime.Before(s.now()) {
		// Lazy expiry: flip the row now so later reads take the inactive
		// path. A failed flip still reports expired -- the expiry check
		// re-runs on every call, so the outcome stays stable.
		if _, err := s.repo.Deactivate(ctx, token); err != nil {
			slog.Warn("failed to deactivate expired session",
				slog.Any("error", err),
			)
		}
		return Validation{Reason: ReasonExpired, Message: "Session expired"}, nil
	}

	expiresAt := session.ExpiryTime
	return Validation{
		Valid:     true,
		Message:   "Session valid",
		UserID:    session.UserID,
		ExpiresAt: &expiresAt,
	}, nil
}

// Revoke deactivates a session row.
func (s *sessionStore) Revoke(ctx context.Context, token string) (bool, error) {
	found, err := s.repo.Deactivate(ctx, token)
	if err != nil {
		return false, apperror.NewInternal(fmt.Errorf("revoking session: %w", err))
	}
	return found, nil
}

// RevokeAllForUser deactivates every active session for a user.
func (s *sessionStore) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, apperror.NewInternal(fmt.Errorf("revoking sessions for user: %w", err))
	}
	if n > 0 {
		slog.Info("revoked all sessions for user",
			slog.String("user_id", userID),
			slog.Int64("count", n),
		)
	}
	return n, nil
}

// TouchLastSeen is fire-and-forget bookkeeping on the non-critical path.
func (s *sessionStore) TouchLastSeen(ctx context.Context, token string) {
	if err := s.repo.TouchLastSeen(ctx, token, s.now().UTC()); err != nil {
		slog.Warn("failed to touch session",
			slog.Any("error", err),
		)
	}
}

// ReapExpired sweeps expired sessions in one statement.
func (s *sessionStore) ReapExpired(ctx context.Context) (int64, error) {
	n, err := s.repo.DeactivateExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("reaping expired sessions: %w", err)
	}
	if n > 0 {
		slog.Info("reaped expired sessions", slog.Int64("count", n))
	}
	return n, nil
}

// ListActive returns all active sessions.
func (s *sessionStore) ListActive(ctx context.Context) ([]Session, error) {
	sessions, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("listing sessions: %w", err))
	}
	return sessions, nil
}

// generateToken creates a cryptographically random hex-encoded token.
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
