package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nijjara/erp/internal/config"
	"github.com/nijjara/erp/internal/plugins/audit"
	"github.com/nijjara/erp/internal/plugins/bootstrap"
	"github.com/nijjara/erp/internal/plugins/directory"
	"github.com/nijjara/erp/internal/plugins/lockout"
	"github.com/nijjara/erp/internal/plugins/sessions"
)

// --- lockout state store backed by a map ---

type memLockoutStore struct {
	mu     sync.Mutex
	states map[string]*lockout.State
	err    error
}

func newMemLockoutStore() *memLockoutStore {
	return &memLockoutStore{states: make(map[string]*lockout.State)}
}

func (m *memLockoutStore) Get(_ context.Context, key string) (*lockout.State, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[key]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, nil
}

func (m *memLockoutStore) Delete(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, key)
	return nil
}

func (m *memLockoutStore) Update(_ context.Context, key string, fn func(*lockout.State) (*lockout.State, time.Duration)) (*lockout.State, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, _ := fn(m.states[key])
	if next == nil {
		delete(m.states, key)
	} else {
		m.states[key] = next
	}
	return next, nil
}

// --- directory mock ---

type mockDirectory struct {
	users        map[string]*directory.User
	lookupErr    error
	loginsRecord []string
	credsSet     bool
}

func (m *mockDirectory) Lookup(_ context.Context, username string) (*directory.User, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return m.users[username], nil
}

func (m *mockDirectory) Get(_ context.Context, userID string) (*directory.User, error) {
	for _, u := range m.users {
		if u.UserID == userID {
			return u, nil
		}
	}
	return nil, errors.New("user not found")
}

func (m *mockDirectory) RecordLogin(_ context.Context, userID string) {
	m.loginsRecord = append(m.loginsRecord, userID)
}

func (m *mockDirectory) SetCredentials(_ context.Context, userID, hash, salt string) error {
	for _, u := range m.users {
		if u.UserID == userID {
			u.PasswordHash = hash
			u.Salt = salt
			m.credsSet = true
			return nil
		}
	}
	return errors.New("user not found")
}

func (m *mockDirectory) ProfileFor(_ context.Context, user *directory.User) directory.Profile {
	return directory.Profile{UserID: user.UserID, Username: user.Username}
}

// --- session store mock ---

type mockSessions struct {
	created   []string
	revoked   []string
	revokeAll []string
	touched   int

	createErr  error
	validation sessions.Validation
}

func (m *mockSessions) Create(_ context.Context, userID string, _ sessions.Metadata, duration time.Duration) (*sessions.Session, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.created = append(m.created, userID)
	now := time.Now().UTC()
	return &sessions.Session{
		SessionID:  "tok-" + userID,
		UserID:     userID,
		LoginTime:  now,
		ExpiryTime: now.Add(duration),
		IsActive:   true,
	}, nil
}

func (m *mockSessions) Validate(_ context.Context, _ string) (sessions.Validation, error) {
	return m.validation, nil
}

func (m *mockSessions) Revoke(_ context.Context, token string) (bool, error) {
	m.revoked = append(m.revoked, token)
	return token != "unknown", nil
}

func (m *mockSessions) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	m.revokeAll = append(m.revokeAll, userID)
	return 1, nil
}

func (m *mockSessions) TouchLastSeen(_ context.Context, _ string) {
	m.touched++
}

func (m *mockSessions) ReapExpired(_ context.Context) (int64, error) { return 0, nil }

func (m *mockSessions) ListActive(_ context.Context) ([]sessions.Session, error) { return nil, nil }

// --- bootstrap and audit mocks ---

type mockAssembler struct {
	payload bootstrap.Payload
}

func (m *mockAssembler) Assemble(_ context.Context, _ string) bootstrap.Payload {
	return m.payload
}

type mockAudit struct {
	events []string
}

func (m *mockAudit) Record(_ context.Context, eventType, _, _, _ string, _ map[string]any) error {
	m.events = append(m.events, eventType)
	return nil
}

func (m *mockAudit) ListEvents(_ context.Context, _ string, _ int) ([]audit.Event, int, error) {
	return nil, 0, nil
}

// --- fixture ---

type authFixture struct {
	svc      AuthService
	dir      *mockDirectory
	store    *memLockoutStore
	sessions *mockSessions
	audit    *mockAudit
}

func newAuthFixture(t *testing.T, maxAttempts int, reveal bool) *authFixture {
	t.Helper()

	hash, salt, err := HashPassword("secret123", "", testSecret)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	dir := &mockDirectory{users: map[string]*directory.User{
		"sami": {
			UserID:       "user-1",
			Username:     "sami",
			RoleID:       "role-user",
			Status:       directory.StatusActive,
			PasswordHash: hash,
			Salt:         salt,
		},
		"dormant": {
			UserID:       "user-2",
			Username:     "dormant",
			RoleID:       "role-user",
			Status:       directory.StatusInactive,
			PasswordHash: hash,
			Salt:         salt,
		},
	}}

	store := newMemLockoutStore()
	gate := lockout.NewGate(store, lockout.Policy{
		MaxFailedAttempts: maxAttempts,
		LockoutDuration:   15 * time.Minute,
		AttemptWindow:     15 * time.Minute,
	})

	sess := &mockSessions{}
	auditSvc := &mockAudit{}

	svc := NewAuthService(dir, gate, sess, &mockAssembler{payload: bootstrap.EmptyPayload()}, auditSvc, config.AuthConfig{
		ServerSecret:            testSecret,
		SessionDuration:         24 * time.Hour,
		RevealRemainingAttempts: reveal,
	})

	return &authFixture{svc: svc, dir: dir, store: store, sessions: sess, audit: auditSvc}
}

func login(f *authFixture, username, password string) (*LoginResult, error) {
	return f.svc.Authenticate(context.Background(), LoginRequest{
		Username: username,
		Password: password,
		Client:   ClientContext{IPAddress: "10.0.0.1", UserAgent: "test"},
	})
}

// --- tests ---

func TestAuthenticateSuccess(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	result, err := login(f, "sami", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Success = false, message %q", result.Message)
	}
	if result.Token == "" || result.ExpiresAt == nil {
		t.Error("success must carry a token and expiry")
	}
	if result.User == nil || result.User.UserID != "user-1" {
		t.Errorf("User = %+v, want profile for user-1", result.User)
	}
	if result.Bootstrap == nil || result.Bootstrap.Permissions == nil {
		t.Error("success must carry an initialized bootstrap payload")
	}
	if len(f.dir.loginsRecord) != 1 {
		t.Error("last login should have been recorded")
	}
	if len(f.audit.events) != 1 || f.audit.events[0] != audit.EventLoginSuccess {
		t.Errorf("audit events = %v, want [login.success]", f.audit.events)
	}
}

func TestAuthenticateCaseAndWhitespaceInsensitiveUsername(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	result, err := login(f, "  SaMi  ", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Errorf("normalized username should authenticate, got %q", result.Message)
	}
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	for _, req := range []LoginRequest{
		{Username: "", Password: "x"},
		{Username: "sami", Password: ""},
		{Username: "   ", Password: "x"},
	} {
		result, err := f.svc.Authenticate(context.Background(), req)
		if err != nil {
			t.Fatalf("Authenticate() error = %v", err)
		}
		if result.Success {
			t.Error("missing credentials must not authenticate")
		}
		if result.Message != msgMissingCredentials {
			t.Errorf("Message = %q, want %q", result.Message, msgMissingCredentials)
		}
	}
	if len(f.store.states) != 0 {
		t.Error("missing credentials must not count as failed attempts")
	}
}

func TestAuthenticateRejectionsAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	unknownUser, err := login(f, "ghost", "whatever")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	wrongPassword, err := login(f, "sami", "wrong")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if unknownUser.Message != msgInvalidCredentials || wrongPassword.Message != msgInvalidCredentials {
		t.Errorf("messages differ: unknown=%q wrong=%q", unknownUser.Message, wrongPassword.Message)
	}

	// Both count against their identity's lockout state.
	if len(f.store.states) != 2 {
		t.Errorf("lockout states = %d, want 2 (one per identity)", len(f.store.states))
	}
}

func TestAuthenticateRemainingAttemptsCountdown(t *testing.T) {
	f := newAuthFixture(t, 3, true)

	first, _ := login(f, "sami", "wrong")
	if first.RemainingAttempts == nil || *first.RemainingAttempts != 2 {
		t.Fatalf("first RemainingAttempts = %v, want 2", first.RemainingAttempts)
	}

	second, _ := login(f, "sami", "wrong")
	if second.RemainingAttempts == nil || *second.RemainingAttempts != 1 {
		t.Fatalf("second RemainingAttempts = %v, want 1", second.RemainingAttempts)
	}
}

func TestAuthenticateRemainingAttemptsHiddenWhenPolicySaysSo(t *testing.T) {
	f := newAuthFixture(t, 3, false)

	result, _ := login(f, "sami", "wrong")
	if result.RemainingAttempts != nil {
		t.Errorf("RemainingAttempts = %v, want nil when hidden by policy", *result.RemainingAttempts)
	}
}

func TestAuthenticateLockoutBlocksCorrectPassword(t *testing.T) {
	f := newAuthFixture(t, 3, true)

	for i := 0; i < 3; i++ {
		login(f, "sami", "wrong")
	}

	result, err := login(f, "sami", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.Success {
		t.Fatal("locked identity must not authenticate even with the right password")
	}
	if result.LockedUntil == nil {
		t.Error("locked rejection must carry the lock expiry")
	}
	if result.Message != msgAccountLocked {
		t.Errorf("Message = %q, want %q", result.Message, msgAccountLocked)
	}
}

func TestAuthenticateSuccessClearsLockoutState(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	login(f, "sami", "wrong")
	login(f, "sami", "wrong")

	result, err := login(f, "sami", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if len(f.store.states) != 0 {
		t.Error("success must clear the identity's lockout state")
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	result, err := login(f, "dormant", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.Success {
		t.Fatal("inactive account must not authenticate")
	}
	if result.Message != msgAccountInactive {
		t.Errorf("Message = %q, want %q", result.Message, msgAccountInactive)
	}
	if len(f.store.states) != 0 {
		t.Error("inactive-account rejection must not count as a guess")
	}
}

func TestAuthenticateDirectoryOutageFailsClosed(t *testing.T) {
	f := newAuthFixture(t, 5, true)
	f.dir.lookupErr = errors.New("connection refused")

	if _, err := login(f, "sami", "secret123"); err == nil {
		t.Fatal("directory outage must deny the login with an error")
	}
}

func TestAuthenticateLockoutOutageFailsOpen(t *testing.T) {
	f := newAuthFixture(t, 5, true)
	f.store.err = errors.New("redis: connection refused")

	result, err := login(f, "sami", "secret123")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Errorf("lockout store outage must not block a valid login, got %q", result.Message)
	}
}

func TestVerifyTouchesValidSessions(t *testing.T) {
	f := newAuthFixture(t, 5, true)
	f.sessions.validation = sessions.Validation{Valid: true, UserID: "user-1"}

	v, err := f.svc.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !v.Valid {
		t.Fatal("expected valid")
	}
	if f.sessions.touched != 1 {
		t.Error("valid session should be touched")
	}
}

func TestVerifyDoesNotTouchInvalidSessions(t *testing.T) {
	f := newAuthFixture(t, 5, true)
	f.sessions.validation = sessions.Validation{Reason: sessions.ReasonExpired}

	if _, err := f.svc.Verify(context.Background(), "tok"); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if f.sessions.touched != 0 {
		t.Error("invalid session must not be touched")
	}
}

func TestLogoutUnknownTokenStillSucceeds(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	if err := f.svc.Logout(context.Background(), "unknown", ClientContext{}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	err := f.svc.ChangePassword(context.Background(), "user-1", "secret123", "newsecret456")
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if !f.dir.credsSet {
		t.Error("new credentials should have been stored")
	}
	if len(f.sessions.revokeAll) != 1 || f.sessions.revokeAll[0] != "user-1" {
		t.Error("all sessions should be revoked after a password change")
	}

	// The new password works end to end.
	result, err := login(f, "sami", "newsecret456")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Errorf("new password should authenticate, got %q", result.Message)
	}
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	if err := f.svc.ChangePassword(context.Background(), "user-1", "wrong", "newsecret456"); err == nil {
		t.Fatal("wrong current password must be rejected")
	}
	if f.dir.credsSet {
		t.Error("credentials must not change on a failed verification")
	}
}

func TestSetPasswordProvisionsWithoutCurrent(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	if err := f.svc.SetPassword(context.Background(), "user-1", "provisioned9"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	if !f.dir.credsSet {
		t.Error("new credentials should have been stored")
	}
	if len(f.sessions.revokeAll) != 1 {
		t.Error("existing sessions should be revoked on a reset")
	}

	result, err := login(f, "sami", "provisioned9")
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !result.Success {
		t.Errorf("provisioned password should authenticate, got %q", result.Message)
	}
}

func TestChangePasswordRejectsWeakPassword(t *testing.T) {
	f := newAuthFixture(t, 5, true)

	if err := f.svc.ChangePassword(context.Background(), "user-1", "secret123", "abc"); err == nil {
		t.Fatal("weak new password must be rejected")
	}
	if f.dir.credsSet {
		t.Error("credentials must not change when the new password is too weak")
	}
}
