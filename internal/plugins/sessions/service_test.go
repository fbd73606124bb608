package sessions

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// fakeRepo is an in-memory SessionRepository for service tests. Error
// injection fields let individual tests simulate storage failures.
type fakeRepo struct {
	rows map[string]*Session

	insertErr error
	findErr   error
	updateErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*Session)}
}

func (f *fakeRepo) Insert(_ context.Context, s *Session) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	cp := *s
	f.rows[s.SessionID] = &cp
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id string) (*Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeRepo) Deactivate(_ context.Context, id string) (bool, error) {
	if f.updateErr != nil {
		return false, f.updateErr
	}
	s, ok := f.rows[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (f *fakeRepo) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	var n int64
	for _, s := range f.rows {
		if s.IsActive && s.ExpiryTime.Before(now) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) DeactivateAllForUser(_ context.Context, userID string) (int64, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	var n int64
	for _, s := range f.rows {
		if s.IsActive && s.UserID == userID {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) TouchLastSeen(_ context.Context, id string, now time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if s, ok := f.rows[id]; ok && s.IsActive {
		t := now
		s.LastSeenAt = &t
	}
	return nil
}

func (f *fakeRepo) ListActive(_ context.Context) ([]Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []Session
	for _, s := range f.rows {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func newTestStore(repo *fakeRepo, now time.Time) *sessionStore {
	return &sessionStore{
		repo: repo,
		now:  func() time.Time { return now },
	}
}

func TestCreateSetsExpiryFromDuration(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := newTestStore(repo, now)

	session, err := store.Create(context.Background(), "user-1",
		Metadata{IPAddress: "10.0.0.1", UserAgent: "test-agent"}, 24*time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if got, want := session.ExpiryTime, now.Add(24*time.Hour); !got.Equal(want) {
		t.Errorf("ExpiryTime = %v, want %v", got, want)
	}
	if !session.IsActive {
		t.Error("new session should be active")
	}
	if len(session.SessionID) != tokenBytes*2 {
		t.Errorf("token length = %d, want %d hex chars", len(session.SessionID), tokenBytes*2)
	}
	if _, ok := repo.rows[session.SessionID]; !ok {
		t.Error("session row was not persisted")
	}
}

func TestCreateTokensAreUnique(t *testing.T) {
	repo := newFakeRepo()
	store := newTestStore(repo, time.Now())

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s, err := store.Create(context.Background(), "user-1", Metadata{}, time.Hour)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if seen[s.SessionID] {
			t.Fatalf("duplicate token issued: %s", s.SessionID)
		}
		seen[s.SessionID] = true
	}
}

func TestCreateTruncatesOversizedMetadata(t *testing.T) {
	repo := newFakeRepo()
	store := newTestStore(repo, time.Now())

	s, err := store.Create(context.Background(), "user-1", Metadata{
		IPAddress: strings.Repeat("a", 200),
		UserAgent: strings.Repeat("b", 1000),
	}, time.Hour)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if len(s.IPAddress) != maxIPLength {
		t.Errorf("IPAddress length = %d, want %d", len(s.IPAddress), maxIPLength)
	}
	if len(s.UserAgent) != maxUserAgentLength {
		t.Errorf("UserAgent length = %d, want %d", len(s.UserAgent), maxUserAgentLength)
	}
}

func TestCreateSweepsExpiredSessions(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.rows["stale"] = &Session{
		SessionID:  "stale",
		UserID:     "user-2",
		ExpiryTime: now.Add(-time.Minute),
		IsActive:   true,
	}
	store := newTestStore(repo, now)

	if _, err := store.Create(context.Background(), "user-1", Metadata{}, time.Hour); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if repo.rows["stale"].IsActive {
		t.Error("expired session should have been swept during create")
	}
}

func TestValidateStateMachine(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		token      string
		session    *Session
		wantValid  bool
		wantReason string
	}{
		{
			name:       "empty token",
			token:      "",
			wantReason: ReasonNotFound,
		},
		{
			name:       "unknown token",
			token:      "no-such-token",
			wantReason: ReasonNotFound,
		},
		{
			name:  "inactive session",
			token: "tok",
			session: &Session{
				SessionID:  "tok",
				UserID:     "user-1",
				ExpiryTime: now.Add(time.Hour),
				IsActive:   false,
			},
			wantReason: ReasonInactive,
		},
		{
			name:  "expired session",
			token: "tok",
			session: &Session{
				SessionID:  "tok",
				UserID:     "user-1",
				ExpiryTime: now.Add(-time.Minute),
				IsActive:   true,
			},
			wantReason: ReasonExpired,
		},
		{
			name:  "valid session",
			token: "tok",
			session: &Session{
				SessionID:  "tok",
				UserID:     "user-1",
				ExpiryTime: now.Add(time.Hour),
				IsActive:   true,
			},
			wantValid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo()
			if tt.session != nil {
				repo.rows[tt.session.SessionID] = tt.session
			}
			store := newTestStore(repo, now)

			v, err := store.Validate(context.Background(), tt.token)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if v.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", v.Valid, tt.wantValid)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.wantReason)
			}
			if tt.wantValid {
				if v.UserID != "user-1" {
					t.Errorf("UserID = %q, want user-1", v.UserID)
				}
				if v.ExpiresAt == nil || !v.ExpiresAt.Equal(tt.session.ExpiryTime) {
					t.Errorf("ExpiresAt = %v, want %v", v.ExpiresAt, tt.session.ExpiryTime)
				}
			}
		})
	}
}

func TestValidateExpiredIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.rows["tok"] = &Session{
		SessionID:  "tok",
		UserID:     "user-1",
		ExpiryTime: now.Add(-time.Minute),
		IsActive:   true,
	}
	store := newTestStore(repo, now)

	first, err := store.Validate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if first.Reason != ReasonExpired {
		t.Fatalf("first Reason = %q, want %q", first.Reason, ReasonExpired)
	}
	if repo.rows["tok"].IsActive {
		t.Error("expired session should have been flipped inactive")
	}

	// Second validation sees the now-inactive row. Either reason is a
	// rejection; the row must stay inactive.
	second, err := store.Validate(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Validate() second call error = %v", err)
	}
	if second.Valid {
		t.Error("expired session must never validate again")
	}
	if repo.rows["tok"].IsActive {
		t.Error("row must remain inactive")
	}
}

func TestValidateInfrastructureErrorIsSurfaced(t *testing.T) {
	repo := newFakeRepo()
	repo.findErr = errors.New("connection refused")
	store := newTestStore(repo, time.Now())

	if _, err := store.Validate(context.Background(), "tok"); err == nil {
		t.Fatal("expected error when the store is unreachable")
	}
}

func TestRevokeTwice(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	repo.rows["tok"] = &Session{
		SessionID:  "tok",
		UserID:     "user-1",
		ExpiryTime: now.Add(time.Hour),
		IsActive:   true,
	}
	store := newTestStore(repo, now)

	found, err := store.Revoke(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if !found {
		t.Error("first revoke should report the session was found")
	}

	found, err = store.Revoke(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Revoke() second call error = %v", err)
	}
	if found {
		t.Error("second revoke should report nothing to do")
	}
	if repo.rows["tok"].IsActive {
		t.Error("session must stay revoked")
	}
}

func TestRevokeAllForUser(t *testing.T) {
	repo := newFakeRepo()
	now := time.Now()
	for _, id := range []string{"a", "b", "c"} {
		repo.rows[id] = &Session{
			SessionID:  id,
			UserID:     "user-1",
			ExpiryTime: now.Add(time.Hour),
			IsActive:   true,
		}
	}
	repo.rows["other"] = &Session{
		SessionID:  "other",
		UserID:     "user-2",
		ExpiryTime: now.Add(time.Hour),
		IsActive:   true,
	}
	store := newTestStore(repo, now)

	n, err := store.RevokeAllForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("RevokeAllForUser() error = %v", err)
	}
	if n != 3 {
		t.Errorf("revoked = %d, want 3", n)
	}
	if !repo.rows["other"].IsActive {
		t.Error("other user's session must be untouched")
	}
}

func TestReapExpiredCountsOnlyExpired(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.rows["old"] = &Session{SessionID: "old", ExpiryTime: now.Add(-time.Hour), IsActive: true}
	repo.rows["fresh"] = &Session{SessionID: "fresh", ExpiryTime: now.Add(time.Hour), IsActive: true}
	repo.rows["done"] = &Session{SessionID: "done", ExpiryTime: now.Add(-time.Hour), IsActive: false}
	store := newTestStore(repo, now)

	n, err := store.ReapExpired(context.Background())
	if err != nil {
		t.Fatalf("ReapExpired() error = %v", err)
	}
	if n != 1 {
		t.Errorf("reaped = %d, want 1", n)
	}
	if !repo.rows["fresh"].IsActive {
		t.Error("unexpired session must stay active")
	}
}

func TestTouchLastSeenSwallowsErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.updateErr = errors.New("write timeout")
	store := newTestStore(repo, time.Now())

	// Must not panic or surface the failure.
	store.TouchLastSeen(context.Background(), "tok")
}
