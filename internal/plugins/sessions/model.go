// Package sessions manages authenticated sessions in the shared tabular
// store. A session row is created on login, validated on every subsequent
// request, and flipped inactive on logout or expiry. Rows are never
// deleted -- the table doubles as an append-only audit trail of who was
// signed in when, from where.
package sessions

import "time"

// Field caps applied to client metadata before persistence. Values beyond
// the cap are silently truncated, never rejected.
const (
	maxIPLength        = 45 // Fits a full IPv6 address.
	maxUserAgentLength = 256
)

// Validation failure reasons. Stable machine-readable strings; the Message
// on Validation carries the human-readable variant.
const (
	ReasonNotFound = "session_not_found"
	ReasonInactive = "session_inactive"
	ReasonExpired  = "session_expired"
)

// Session is a row in the sys_sessions table.
type Session struct {
	// SessionID is the opaque server-generated token. It is both the
	// primary key and the credential the client presents.
	SessionID string `json:"sessionId"`

	UserID     string     `json:"userId"`
	LoginTime  time.Time  `json:"loginTime"`
	ExpiryTime time.Time  `json:"expiryTime"`
	IPAddress  string     `json:"ipAddress"`
	UserAgent  string     `json:"userAgent"`
	IsActive   bool       `json:"isActive"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// Metadata is the client information persisted alongside a session.
type Metadata struct {
	IPAddress string
	UserAgent string
}

// truncated returns a copy with every field clipped to its persistence cap.
func (m Metadata) truncated() Metadata {
	return Metadata{
		IPAddress: clip(m.IPAddress, maxIPLength),
		UserAgent: clip(m.UserAgent, maxUserAgentLength),
	}
}

// clip bounds s to max bytes.
func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Validation is the outcome of checking a session token.
type Validation struct {
	Valid bool `json:"valid"`

	// Reason is set when Valid is false (ReasonNotFound et al.).
	Reason string `json:"reason,omitempty"`

	// Message is the human-readable outcome, e.g. "Session expired".
	Message string `json:"message"`

	// UserID and ExpiresAt are populated only for valid sessions.
	UserID    string     `json:"userId,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
