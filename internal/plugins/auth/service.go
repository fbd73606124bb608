package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/nijjara/erp/internal/apperror"
	"github.com/nijjara/erp/internal/config"
	"github.com/nijjara/erp/internal/plugins/audit"
	"github.com/nijjara/erp/internal/plugins/bootstrap"
	"github.com/nijjara/erp/internal/plugins/directory"
	"github.com/nijjara/erp/internal/plugins/lockout"
	"github.com/nijjara/erp/internal/plugins/sessions"
)

// Client-facing messages. The credential message is shared by the
// unknown-username and wrong-password paths on purpose: the response must
// not reveal which half was wrong.
const (
	msgMissingCredentials = "Username and password are required"
	msgInvalidCredentials = "Invalid username or password"
	msgAccountLocked      = "Account temporarily locked due to repeated failed attempts. Try again later."
	msgAccountInactive    = "Account is inactive. Contact your administrator."
	msgLoginSuccess       = "Login successful"
)

// AuthService is the authentication entry point for handlers.
type AuthService interface {
	// Authenticate runs the full login flow. Expected rejections (bad
	// credentials, lockout, inactive account) come back as a LoginResult
	// with Success=false; an error means infrastructure failed and the
	// attempt must be treated as denied.
	Authenticate(ctx context.Context, req LoginRequest) (*LoginResult, error)

	// Logout revokes the session. Always reports success to the client; a
	// token that is already gone has nothing left to protect.
	Logout(ctx context.Context, token string, client ClientContext) error

	// Verify checks a session token and stamps activity on valid sessions.
	Verify(ctx context.Context, token string) (sessions.Validation, error)

	// ChangePassword verifies the current password, stores a new credential,
	// and revokes every session the user holds.
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error

	// SetPassword stores a new credential for a user without checking the
	// current one. Administrative provisioning only.
	SetPassword(ctx context.Context, userID, newPassword string) error
}

// authService implements AuthService.
type authService struct {
	directory directory.DirectoryService
	gate      *lockout.Gate
	sessions  sessions.SessionStore
	bootstrap bootstrap.Assembler
	audit     audit.AuditService

	secret          string
	sessionDuration time.Duration
	revealRemaining bool
}

// NewAuthService wires the authentication flow together.
func NewAuthService(
	dir directory.DirectoryService,
	gate *lockout.Gate,
	sessionStore sessions.SessionStore,
	assembler bootstrap.Assembler,
	auditSvc audit.AuditService,
	cfg config.AuthConfig,
) AuthService {
	return &authService{
		directory:       dir,
		gate:            gate,
		sessions:        sessionStore,
		bootstrap:       assembler,
		audit:           auditSvc,
		secret:          cfg.ServerSecret,
		sessionDuration: cfg.SessionDuration,
		revealRemaining: cfg.RevealRemainingAttempts,
	}
}

// Authenticate runs the login flow:
//
//	normalize -> lockout check -> directory lookup -> account state ->
//	credential verify -> session + bootstrap
//
// Failed credential checks feed the lockout gate; missing input and
// inactive accounts do not, since neither says anything about guessing.
func (s *authService) Authenticate(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := normalizeUsername(req.Username)
	client := req.Client.sanitize()

	if username == "" || req.Password == "" {
		return &LoginResult{Message: msgMissingCredentials}, nil
	}

	key := s.gate.Key(username, client.IPAddress)
	if status := s.gate.Check(ctx, key); status.Locked {
		s.recordEvent(ctx, audit.EventLoginLocked, username, client, map[string]any{
			"locked_until": status.LockedUntil,
		})
		return &LoginResult{
			Message:     msgAccountLocked,
			LockedUntil: status.LockedUntil,
		}, nil
	}

	user, err := s.directory.Lookup(ctx, username)
	if err != nil {
		// Fail closed: an unreachable directory denies the login.
		return nil, err
	}

	if user == nil {
		return s.credentialFailure(ctx, username, key, client), nil
	}

	if !user.Active() {
		// Account-state rejection. The caller presented a real username,
		// so this is not counted as a guess.
		s.recordEvent(ctx, audit.EventLoginFailed, user.UserID, client, map[string]any{
			"reason": "inactive_account",
		})
		return &LoginResult{Message: msgAccountInactive}, nil
	}

	if !VerifyPassword(req.Password, user.Salt, user.PasswordHash, s.secret) {
		return s.credentialFailure(ctx, username, key, client), nil
	}

	// Success path.
	s.gate.Clear(ctx, key)

	session, err := s.sessions.Create(ctx, user.UserID, sessions.Metadata{
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}, s.sessionDuration)
	if err != nil {
		return nil, err
	}

	s.directory.RecordLogin(ctx, user.UserID)

	payload := s.bootstrap.Assemble(ctx, user.RoleID)
	profile := s.directory.ProfileFor(ctx, user)

	s.recordEvent(ctx, audit.EventLoginSuccess, user.UserID, client, client.deviceDetails())
	slog.Info("user authenticated",
		slog.String("user_id", user.UserID),
		slog.String("ip", client.IPAddress),
	)

	expiresAt := session.ExpiryTime
	return &LoginResult{
		Success:   true,
		Message:   msgLoginSuccess,
		Token:     session.SessionID,
		ExpiresAt: &expiresAt,
		User:      &profile,
		Bootstrap: &payload,
	}, nil
}

// credentialFailure registers the failed guess and builds the rejection.
// Unknown usernames and wrong passwords converge here so the two cases are
// indistinguishable in message, in lockout accounting, and in shape.
func (s *authService) credentialFailure(ctx context.Context, username, key string, client ClientContext) *LoginResult {
	failure := s.gate.RegisterFailure(ctx, key)

	if failure.Locked {
		s.recordEvent(ctx, audit.EventLoginLocked, username, client, map[string]any{
			"locked_until": failure.LockedUntil,
		})
		return &LoginResult{
			Message:     msgAccountLocked,
			LockedUntil: failure.LockedUntil,
		}
	}

	s.recordEvent(ctx, audit.EventLoginFailed, username, client, map[string]any{
		"remaining_attempts": failure.RemainingAttempts,
	})

	result := &LoginResult{Message: msgInvalidCredentials}
	if s.revealRemaining {
		remaining := failure.RemainingAttempts
		result.RemainingAttempts = &remaining
	}
	return result
}

// Logout revokes the session. A miss is logged and still reported as
// success; logout is idempotent from the client's point of view.
func (s *authService) Logout(ctx context.Context, token string, client ClientContext) error {
	client = client.sanitize()

	found, err := s.sessions.Revoke(ctx, token)
	if err != nil {
		return err
	}
	if !found {
		slog.Warn("logout for unknown or already-revoked session")
		return nil
	}

	s.recordEvent(ctx, audit.EventLogout, "", client, nil)
	return nil
}

// Verify checks the token and stamps activity on sessions that pass.
func (s *authService) Verify(ctx context.Context, token string) (sessions.Validation, error) {
	validation, err := s.sessions.Validate(ctx, token)
	if err != nil {
		return sessions.Validation{}, err
	}
	if validation.Valid {
		s.sessions.TouchLastSeen(ctx, token)
	}
	return validation, nil
}

// ChangePassword rotates the credential. Every session the user holds is
// revoked afterwards; a password change invalidates whatever knew the old one.
func (s *authService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.directory.Get(ctx, userID)
	if err != nil {
		return err
	}

	if !VerifyPassword(currentPassword, user.Salt, user.PasswordHash, s.secret) {
		return apperror.NewUnauthorized("Current password is incorrect")
	}

	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}

	return s.storeNewPassword(ctx, userID, newPassword)
}

// SetPassword provisions a credential without knowing the current one.
// Reserved for the administrative surface.
func (s *authService) SetPassword(ctx context.Context, userID, newPassword string) error {
	if _, err := s.directory.Get(ctx, userID); err != nil {
		return err
	}
	if err := ValidatePasswordStrength(newPassword); err != nil {
		return err
	}
	return s.storeNewPassword(ctx, userID, newPassword)
}

func (s *authService) storeNewPassword(ctx context.Context, userID, newPassword string) error {
	hash, salt, err := HashPassword(newPassword, "", s.secret)
	if err != nil {
		return err
	}
	if err := s.directory.SetCredentials(ctx, userID, hash, salt); err != nil {
		return err
	}

	if _, err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		slog.Warn("failed to revoke sessions after password change",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}

	slog.Info("password changed", slog.String("user_id", userID))
	return nil
}

// recordEvent is the fire-and-forget audit hook for the login flow.
func (s *authService) recordEvent(ctx context.Context, eventType, userID string, client ClientContext, details map[string]any) {
	_ = s.audit.Record(ctx, eventType, userID, client.IPAddress, client.UserAgent, details)
}
