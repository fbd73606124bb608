// Package audit records authentication security events. Every login
// attempt, lockout, logout, and administrative session revocation is
// captured as an Event and persisted to the auth_events table. The trail
// gives administrators visibility into credential-guessing activity and a
// record of who signed in when, from where.
//
// Recording is fire-and-forget: a failed audit write is logged server-side
// but never blocks the operation that triggered it.
package audit

import "time"

// --- Event type constants ---
// Each event string follows the pattern "resource.verb" for consistent
// filtering and display grouping.

const (
	// EventLoginSuccess is recorded when a user authenticates successfully.
	EventLoginSuccess = "login.success"

	// EventLoginFailed is recorded on a failed credential check, covering
	// both unknown usernames and wrong passwords (indistinguishable by design).
	EventLoginFailed = "login.failed"

	// EventLoginLocked is recorded when a login is rejected by the lockout
	// gate, including the attempt that triggers the lock.
	EventLoginLocked = "login.locked"

	// EventLogout is recorded when a session is revoked by its owner.
	EventLogout = "logout"

	// EventSessionRevoked is recorded when an administrator terminates a
	// session or force-logs-out a user.
	EventSessionRevoked = "session.revoked"
)

// Event represents a single recorded security event.
type Event struct {
	// EventID is a server-generated UUID.
	EventID string `json:"eventId"`

	EventType string `json:"eventType"`

	// UserID is the identity the event concerns. May be a normalized
	// username that does not exist in the directory (failed logins).
	UserID string `json:"userId"`

	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`

	// Details holds event-specific metadata (e.g. remaining attempts,
	// lock expiry). Persisted as JSON.
	Details map[string]any `json:"details,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}
