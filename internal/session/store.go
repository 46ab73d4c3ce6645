// Package session owns the access pattern over the shared revocation
// store. A refresh token is usable for renewal iff it verifies
// cryptographically AND its token identifier is present here; logout and
// rotation work by removing membership, since the signed artifact itself
// cannot be destroyed.
//
// Layout: one key per token identifier ("rt:<jti>", value = subject id,
// TTL = refresh TTL) plus a per-subject index set ("rtu:<subject>") so a
// single subject's sessions can be revoked as a unit. Entries always carry
// a TTL; without it the working set would grow without bound.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable wraps any Redis transport or timeout failure. It is
// retryable and must never be conflated with an authentication failure.
var ErrStoreUnavailable = errors.New("revocation store unavailable")

const (
	tokenPrefix   = "rt:"
	subjectPrefix = "rtu:"
)

// revokeScript deletes a token entry and its index membership in one
// atomic step. The return value — whether the entry existed — is the
// arbiter for concurrent refresh attempts on the same token: exactly one
// caller observes 1.
const revokeScript = `
local subject = redis.call("GET", KEYS[1])
if not subject then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. subject, ARGV[1])
return 1
`

var revokeLua = redis.NewScript(revokeScript)

// Store records which refresh tokens are currently valid.
type Store struct {
	redis   redis.UniversalClient
	timeout time.Duration
}

// NewStore wraps a Redis client. timeout bounds every round trip; on
// expiry the operation fails with ErrStoreUnavailable.
func NewStore(client redis.UniversalClient, timeout time.Duration) *Store {
	return &Store{redis: client, timeout: timeout}
}

func (s *Store) tokenKey(jti string) string { return tokenPrefix + jti }

func (s *Store) subjectKey(subject string) string { return subjectPrefix + subject }

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Record marks a refresh token as valid for ttl. Idempotent. The subject
// index expires alongside the longest-lived entry it tracks; a stale index
// member is harmless because IsValid consults only the token entry.
func (s *Store) Record(ctx context.Context, jti, subjectID string, ttl time.Duration) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.tokenKey(jti), subjectID, ttl)
		pipe.SAdd(ctx, s.subjectKey(subjectID), jti)
		pipe.Expire(ctx, s.subjectKey(subjectID), ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// IsValid reports membership for a token identifier.
func (s *Store) IsValid(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	n, err := s.redis.Exists(ctx, s.tokenKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n == 1, nil
}

// Revoke removes a token entry and reports whether anything was actually
// removed. Idempotent: revoking an absent entry returns (false, nil).
func (s *Store) Revoke(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	existed, err := revokeLua.Run(ctx, s.redis,
		[]string{s.tokenKey(jti)},
		jti, subjectPrefix,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return existed == 1, nil
}

// RevokeAll removes every recorded token for a subject and returns how
// many entries were removed.
func (s *Store) RevokeAll(ctx context.Context, subjectID string) (int, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	jtis, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(jtis) == 0 {
		return 0, nil
	}

	keys := make([]string, len(jtis))
	for i, jti := range jtis {
		keys[i] = s.tokenKey(jti)
	}

	var deleted *redis.IntCmd
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, keys...)
		pipe.Del(ctx, s.subjectKey(subjectID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return int(deleted.Val()), nil
}

// ActiveTokenIDs returns the tracked token identifiers for a subject.
func (s *Store) ActiveTokenIDs(ctx context.Context, subjectID string) ([]string, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	jtis, err := s.redis.SMembers(ctx, s.subjectKey(subjectID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return jtis, nil
}

// Ping reports store reachability for health checks.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
