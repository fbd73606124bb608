package directory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nijjara/erp/internal/apperror"
)

// DirectoryService exposes user lookup to the rest of the system.
type DirectoryService interface {
	// Lookup finds a user by username, case-insensitively. Returns
	// (nil, nil) when the user does not exist; the caller decides how much
	// of that to reveal.
	Lookup(ctx context.Context, username string) (*User, error)

	// Get returns a user by ID or a not-found error.
	Get(ctx context.Context, userID string) (*User, error)

	// RecordLogin stamps last_login_at. Best-effort: failures are logged
	// and swallowed so bookkeeping never blocks a login.
	RecordLogin(ctx context.Context, userID string)

	// SetCredentials stores a new hash and salt for the user.
	SetCredentials(ctx context.Context, userID, hash, salt string) error

	// ProfileFor assembles the user-facing profile, attaching the linked
	// employee record when one exists. Employee lookup failures degrade to
	// a profile without the employee block.
	ProfileFor(ctx context.Context, user *User) Profile
}

// directoryService implements DirectoryService.
type directoryService struct {
	repo UserRepository

	now func() time.Time
}

// NewDirectoryService creates a directory service with the given repository.
func NewDirectoryService(repo UserRepository) DirectoryService {
	return &directoryService{
		repo: repo,
		now:  time.Now,
	}
}

// Lookup finds a user by username.
func (s *directoryService) Lookup(ctx context.Context, username string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("looking up user: %w", err))
	}
	return user, nil
}

// Get returns a user by ID.
func (s *directoryService) Get(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("fetching user: %w", err))
	}
	if user == nil {
		return nil, apperror.NewNotFound("user")
	}
	return user, nil
}

// RecordLogin stamps last_login_at on the non-critical path.
func (s *directoryService) RecordLogin(ctx context.Context, userID string) {
	if err := s.repo.UpdateLastLogin(ctx, userID, s.now().UTC()); err != nil {
		slog.Warn("failed to record last login",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// SetCredentials stores a new hash and salt.
func (s *directoryService) SetCredentials(ctx context.Context, userID, hash, salt string) error {
	if err := s.repo.SetCredentials(ctx, userID, hash, salt); err != nil {
		return apperror.NewInternal(fmt.Errorf("storing credentials: %w", err))
	}
	return nil
}

// ProfileFor assembles the login-response profile.
func (s *directoryService) ProfileFor(ctx context.Context, user *User) Profile {
	profile := Profile{
		UserID:   user.UserID,
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		RoleID:   user.RoleID,
	}

	if user.EmployeeID != nil && *user.EmployeeID != "" {
		employee, err := s.repo.FindEmployeeSummary(ctx, *user.EmployeeID)
		if err != nil {
			slog.Warn("failed to load employee record for profile",
				slog.String("user_id", user.UserID),
				slog.Any("error", err),
			)
		} else {
			profile.Employee = employee
		}
	}
	return profile
}
