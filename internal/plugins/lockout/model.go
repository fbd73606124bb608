// Package lockout implements the brute-force lockout gate: a per-identity
// failed-attempt counter with a time-boxed lock, backed by the shared Redis
// keyed property store. Every login request runs as an independent unit of
// work, so the state must live outside process memory and every
// read-modify-write must go through a compare-and-swap path.
//
// The gate has four logical states per identity: Clear (no record),
// Accumulating (attempts below the threshold), Locked (locked_until in the
// future), and back to Clear when the lock elapses, a read self-heals the
// stale record, or a successful login clears it.
package lockout

import "time"

// State is the persisted per-identity record: a failed-attempt counter and
// an optional absolute lock expiry. Stored as a JSON blob under a single
// key so independent requests observe one coherent value.
type State struct {
	Attempts    int        `json:"attempts"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
}

// lockedAt reports whether the state is locked as of the given instant.
func (s *State) lockedAt(now time.Time) bool {
	return s != nil && s.LockedUntil != nil && s.LockedUntil.After(now)
}

// Status is the result of a lockout check.
type Status struct {
	// Locked is true while the identity is under an active lockout.
	Locked bool `json:"locked"`

	// LockedUntil is the absolute expiry of the lock. Nil when not locked.
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// FailureResult is the outcome of recording a failed login attempt.
type FailureResult struct {
	// Locked is true if the identity is now (or already was) locked.
	Locked bool `json:"locked"`

	// RemainingAttempts is how many more failures are allowed before a
	// lockout triggers. Zero when locked.
	RemainingAttempts int `json:"remainingAttempts"`

	// LockedUntil is set when Locked is true.
	LockedUntil *time.Time `json:"lockedUntil,omitempty"`
}

// Policy holds the tunable lockout parameters. Defaults come from
// config.AuthConfig; tests construct tighter policies directly.
type Policy struct {
	// MaxFailedAttempts is the threshold that triggers a lockout.
	MaxFailedAttempts int

	// LockoutDuration is how long an identity stays locked.
	LockoutDuration time.Duration

	// AttemptWindow is how long a partial attempt count is retained. A
	// counter that sees no activity for this long expires on its own.
	AttemptWindow time.Duration

	// KeyByIP composes the client IP into the state key, so attackers on
	// different networks accumulate separate counters. The stored data is
	// inconsistent across deployments on this point, so it stays a flag.
	KeyByIP bool
}
