// Package directory provides read access to the user directory. The auth
// plugin depends on it for credential lookup; the directory never depends
// back on auth.
package directory

import "time"

// User statuses as stored in sys_users.status.
const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusSuspended = "suspended"
)

// User is a sys_users row. PasswordHash and Salt never leave the server;
// the json tags exclude them so a User can be embedded in API responses.
type User struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	RoleID   string `json:"roleId"`
	Status   string `json:"status"`

	// EmployeeID links the account to an hrm_employees row, when the user
	// is a staff member. Service accounts leave it nil.
	EmployeeID *string `json:"employeeId,omitempty"`

	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	PasswordHash string `json:"-"`
	Salt         string `json:"-"`
}

// Active reports whether the account may sign in.
func (u *User) Active() bool {
	return u.Status == StatusActive
}

// EmployeeSummary is the slice of an hrm_employees row shown on profiles.
type EmployeeSummary struct {
	EmployeeID string `json:"employeeId"`
	FullName   string `json:"fullName"`
	Department string `json:"department"`
	JobTitle   string `json:"jobTitle"`
}

// Profile is the user-facing view assembled at login: the account plus the
// linked employee record, when one exists.
type Profile struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	RoleID   string `json:"roleId"`

	Employee *EmployeeSummary `json:"employee,omitempty"`
}
