// Package auth implements login, logout, and token verification for the
// Nijjara ERP server. It stitches together the user directory, the lockout
// gate, the session store, and the bootstrap assembler into a single
// authentication flow.
package auth

import (
	"strings"
	"time"

	"github.com/nijjara/erp/internal/plugins/bootstrap"
	"github.com/nijjara/erp/internal/plugins/directory"
)

// Field length caps applied to client-supplied context before it is stored
// or logged. A hostile client controls every one of these values.
const (
	maxUserAgentLength  = 256
	maxTimezoneLength   = 64
	maxLanguageLength   = 32
	maxPlatformLength   = 64
	maxScreenInfoLength = 32
	maxIPLength         = 45
)

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Client   ClientContext `json:"clientContext"`
}

// ClientContext is device metadata the client sends with a login. Everything
// in it is untrusted; sanitize() caps lengths before storage. IPAddress is
// filled server-side from the connection, never from the body.
type ClientContext struct {
	UserAgent  string `json:"userAgent"`
	Timezone   string `json:"timezone"`
	Language   string `json:"language"`
	Platform   string `json:"platform"`
	ScreenInfo string `json:"screenInfo"`

	IPAddress string `json:"-"`
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// deviceDetails returns the device fields that go into the audit trail.
// Only non-empty fields are included.
func (c ClientContext) deviceDetails() map[string]any {
	details := make(map[string]any)
	for key, value := range map[string]string{
		"timezone":    c.Timezone,
		"language":    c.Language,
		"platform":    c.Platform,
		"screen_info": c.ScreenInfo,
	} {
		if value != "" {
			details[key] = value
		}
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

// sanitize returns a copy with every field capped to its storage length.
func (c ClientContext) sanitize() ClientContext {
	return ClientContext{
		UserAgent:  clip(c.UserAgent, maxUserAgentLength),
		Timezone:   clip(c.Timezone, maxTimezoneLength),
		Language:   clip(c.Language, maxLanguageLength),
		Platform:   clip(c.Platform, maxPlatformLength),
		ScreenInfo: clip(c.ScreenInfo, maxScreenInfoLength),
		IPAddress:  clip(c.IPAddress, maxIPLength),
	}
}

// normalizeUsername trims surrounding whitespace and lowercases, so the
// lockout gate and the directory agree on the identity behind " Admin ".
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// LoginResult is the outcome of an authentication attempt. Success=false
// covers every expected rejection (bad credentials, lockout, inactive
// account); infrastructure faults surface as errors instead.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`

	// RemainingAttempts is set on credential failures when the policy
	// reveals the countdown.
	RemainingAttempts *int `json:"remainingAttempts,omitempty"`

	// LockedUntil is set when the attempt was rejected by the lockout gate.
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`

	// The fields below are set only on success.
	Token     string             `json:"token,omitempty"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
	User      *directory.Profile `json:"user,omitempty"`
	Bootstrap *bootstrap.Payload `json:"bootstrap,omitempty"`
}

// ChangePasswordRequest is the POST /api/auth/password body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
