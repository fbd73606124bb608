package lockout

import (
	"context"
	"log/slog"
	"time"
)

// Gate is the lockout state machine. It deliberately fails OPEN on storage
// faults: a Redis outage must not permanently deny every login. The
// authentication decision itself still fails closed -- the gate only guards
// retry volume, it never grants access.
type Gate struct {
	store  StateStore
	policy Policy

	// now is injectable for tests.
	now func() time.Time
}

// NewGate creates a lockout gate with the given store and policy.
func NewGate(store StateStore, policy Policy) *Gate {
	return &Gate{
		store:  store,
		policy: policy,
		now:    time.Now,
	}
}

// Key builds the state key for an identity. When the policy keys by IP the
// client address is composed in, so the same username attacked from two
// networks accumulates two separate counters.
func (g *Gate) Key(username, clientIP string) string {
	if g.policy.KeyByIP && clientIP != "" {
		return username + "|" + clientIP
	}
	return username
}

// Check reports whether the identity is currently locked. A record whose
// lock has already elapsed is deleted on the spot (read-time self-heal) and
// reported unlocked. Storage errors are logged and report unlocked.
func (g *Gate) Check(ctx context.Context, key string) Status {
	state, err := g.store.Get(ctx, key)
	if err != nil {
		slog.Warn("lockout check failed open",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return Status{}
	}
	if state == nil {
		return Status{}
	}

	now := g.now()
	if state.lockedAt(now) {
		return Status{Locked: true, LockedUntil: state.LockedUntil}
	}

	// Lock elapsed or never set with zero attempts -- the record is stale
	// only when the lock has passed; a live attempt counter stays.
	if state.LockedUntil != nil {
		if err := g.store.Delete(ctx, key); err != nil {
			slog.Warn("failed to self-heal elapsed lockout",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
	return Status{}
}

// RegisterFailure records a failed login attempt. An already-locked
// identity is reported locked with zero remaining attempts and no counter
// change. Otherwise the counter increments; reaching the threshold sets the
// lock and resets the counter. The whole transition runs as one
// compare-and-swap so concurrent failures cannot lose updates.
func (g *Gate) RegisterFailure(ctx context.Context, key string) FailureResult {
	now := g.now()
	var result FailureResult

	_, err := g.store.Update(ctx, key, func(current *State) (*State, time.Duration) {
		if current.lockedAt(now) {
			result = FailureResult{Locked: true, LockedUntil: current.LockedUntil}
			return current, current.LockedUntil.Sub(now)
		}

		attempts := 1
		if current != nil && current.LockedUntil == nil {
			attempts = current.Attempts + 1
		}
		// A record with an elapsed lock restarts the count at 1.

		if attempts >= g.policy.MaxFailedAttempts {
			until := now.Add(g.policy.LockoutDuration)
			result = FailureResult{Locked: true, LockedUntil: &until}
			return &State{LockedUntil: &until}, g.policy.LockoutDuration
		}

		result = FailureResult{
			RemainingAttempts: g.policy.MaxFailedAttempts - attempts,
		}
		return &State{Attempts: attempts}, g.policy.AttemptWindow
	})
	if err != nil {
		// Fail open: the attempt goes uncounted rather than turning an
		// infrastructure fault into a denial of service.
		slog.Error("failed to record login failure",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return FailureResult{RemainingAttempts: g.policy.MaxFailedAttempts}
	}
	return result
}

// Clear deletes the identity's state entirely. Called on successful
// authentication so a prior near-threshold count never carries over.
func (g *Gate) Clear(ctx context.Context, key string) {
	if err := g.store.Delete(ctx, key); err != nil {
		slog.Warn("failed to clear lockout state",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}
