// Package idempotency serialises requests that share an Idempotency-Key and
// remembers the body each key was first used with.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

// ErrKeyReused is returned when a key arrives with a different request body.
var ErrKeyReused = errors.New("idempotency: key reused with a different request")

// ErrLockTimeout is returned when the per-key lock could not be taken in time.
var ErrLockTimeout = errors.New("idempotency: lock wait timed out")

// Keeper is implemented by Memory and RedisKeeper.
type Keeper interface {
	// Lock blocks until the caller holds the lock for key or ctx is done.
	Lock(ctx context.Context, key string) (unlock func(), err error)
	// Remember binds fingerprint to key for the keeper's TTL. A key already
	// bound to another fingerprint yields ErrKeyReused.
	Remember(ctx context.Context, key, fingerprint string) error
}

// Fingerprint hashes the parts of a request that must match on replay.
func Fingerprint(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

const defaultTTL = 24 * time.Hour
