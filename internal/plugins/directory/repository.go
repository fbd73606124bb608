package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// UserRepository defines the data access contract for sys_users.
type UserRepository interface {
	// FindByUsername matches case-insensitively. Returns nil if no row exists.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// FindByID returns the user row, or nil if no row exists.
	FindByID(ctx context.Context, userID string) (*User, error)

	// UpdateLastLogin stamps last_login_at.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// SetCredentials replaces the stored hash and salt.
	SetCredentials(ctx context.Context, userID, hash, salt string) error

	// FindEmployeeSummary returns the linked hrm_employees row, or nil.
	FindEmployeeSummary(ctx context.Context, employeeID string) (*EmployeeSummary, error)
}

// userRepository implements UserRepository against MariaDB.
type userRepository struct {
	db *sql.DB
}

// NewUserRepository creates a user repository backed by the given DB pool.
func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `user_id, username, full_name, email, role_id, status,
                     employee_id, last_login_at, password_hash, salt`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	err := row.Scan(
		&u.UserID,
		&u.Username,
		&u.FullName,
		&u.Email,
		&u.RoleID,
		&u.Status,
		&u.EmployeeID,
		&u.LastLoginAt,
		&u.PasswordHash,
		&u.Salt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user row: %w", err)
	}
	return u, nil
}

// FindByUsername looks a user up by name. Usernames are stored lowercase
// and the comparison folds case, so "Admin" and "admin" hit the same row.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM sys_users WHERE LOWER(username) = LOWER(?)`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

// FindByID looks a user up by primary key.
func (r *userRepository) FindByID(ctx context.Context, userID string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM sys_users WHERE user_id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// UpdateLastLogin stamps the last successful login time.
func (r *userRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE sys_users SET last_login_at = ? WHERE user_id = ?`
	if _, err := r.db.ExecContext(ctx, query, at, userID); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return nil
}

// SetCredentials replaces the stored hash and salt in one statement.
func (r *userRepository) SetCredentials(ctx context.Context, userID, hash, salt string) error {
	query := `UPDATE sys_users SET password_hash = ?, salt = ? WHERE user_id = ?`
	result, err := r.db.ExecContext(ctx, query, hash, salt, userID)
	if err != nil {
		return fmt.Errorf("setting credentials: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindEmployeeSummary returns the profile slice of an hrm_employees row.
func (r *userRepository) FindEmployeeSummary(ctx context.Context, employeeID string) (*EmployeeSummary, error) {
	query := `SELECT employee_id, full_name, department, job_title
	          FROM hrm_employees WHERE employee_id = ?`

	e := &EmployeeSummary{}
	err := r.db.QueryRowContext(ctx, query, employeeID).Scan(
		&e.EmployeeID, &e.FullName, &e.Department, &e.JobTitle,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning employee row: %w", err)
	}
	return e, nil
}
