package lockout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// statePrefix namespaces lockout records in the shared Redis keyspace.
const statePrefix = "lockout:"

// casMaxRetries bounds the optimistic-concurrency retry loop. Contention on
// a single identity's key is rare (it takes two concurrent failed logins
// for the same account), so a handful of retries is plenty.
const casMaxRetries = 5

// ErrConflict is returned when a compare-and-swap update keeps losing the
// race after casMaxRetries attempts.
var ErrConflict = errors.New("lockout: concurrent update conflict")

// StateStore is the persistence contract for lockout state. Implementations
// must make Update atomic with respect to concurrent callers -- a plain
// read-modify-write would lose attempts under concurrent failed logins.
type StateStore interface {
	// Get returns the state for key, or nil if no record exists.
	Get(ctx context.Context, key string) (*State, error)

	// Delete removes the record for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Update atomically transforms the state for key. fn receives the
	// current state (nil if absent) and returns the new state and its TTL;
	// returning nil deletes the record. Update retries on write conflicts
	// and returns the state fn produced on the winning attempt.
	Update(ctx context.Context, key string, fn func(current *State) (*State, time.Duration)) (*State, error)
}

// redisStore implements StateStore on Redis using WATCH/MULTI for
// compare-and-swap semantics.
type redisStore struct {
	client *redis.Client
}

// NewRedisStore creates a StateStore backed by the given Redis client.
func NewRedisStore(client *redis.Client) StateStore {
	return &redisStore{client: client}
}

// Get reads and decodes the state blob. A corrupt blob is treated as absent
// (and logged) rather than surfaced as an error: the gate is designed to
// fail open on infrastructure faults, and a record we cannot parse is a
// fault, not a lockout.
func (s *redisStore) Get(ctx context.Context, key string) (*State, error) {
	data, err := s.client.Get(ctx, statePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lockout state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		slog.Warn("discarding corrupt lockout state",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return nil, nil
	}
	return &state, nil
}

// Delete removes the state record.
func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, statePrefix+key).Err(); err != nil {
		return fmt.Errorf("deleting lockout state: %w", err)
	}
	return nil
}

// Update runs fn under optimistic concurrency. The key is WATCHed, the
// current value read, and the write executed in a MULTI block; if another
// request touched the key in between, Redis aborts the transaction and the
// loop retries with the fresh value.
func (s *redisStore) Update(ctx context.Context, key string, fn func(*State) (*State, time.Duration)) (*State, error) {
	fullKey := statePrefix + key
	var result *State

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, fullKey).Bytes()
		var current *State
		switch {
		case errors.Is(err, redis.Nil):
			current = nil
		case err != nil:
			return fmt.Errorf("reading lockout state: %w", err)
		default:
			var state State
			if err := json.Unmarshal(data, &state); err == nil {
				current = &state
			}
			// Corrupt blob: treat as absent, fn starts fresh.
		}

		next, ttl := fn(current)
		result = next

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next == nil {
				pipe.Del(ctx, fullKey)
				return nil
			}
			encoded, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("encoding lockout state: %w", err)
			}
			pipe.Set(ctx, fullKey, encoded, ttl)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		err := s.client.Watch(ctx, txn, fullKey)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue // Lost the race -- retry with the fresh value.
		}
		return nil, err
	}
	return nil, ErrConflict
}
