// Package backend defines the flat key-value store used by vercache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly the
// same []byte that was previously passed to Set or Add for a key. Group version
// counters are stored as decimal ASCII so that stores with a native increment
// (memcached incr, redis INCR) can bump them in place.
//
// Important: keys of the form "<group>_version" and "<group>_<n>[_<key>]" are owned
// by vercache. External code MUST NOT write values under them.
package backend

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Increment when the key does not exist.
	ErrNotFound = errors.New("backend: key not found")
	// ErrUnavailable is returned when the store cannot be used on this host.
	ErrUnavailable = errors.New("backend: unavailable")
)

// Backend is a minimal byte store with TTLs and an increment primitive.
// Must be safe for concurrent use.
type Backend interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL; ttl <= 0 means no expiry (or the
	// store-wide default where per-entry TTL is unsupported).
	// Returns ok=false when the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Add stores value only if key is absent. added=false, err=nil means the key existed.
	Add(ctx context.Context, key string, value []byte, ttl time.Duration) (added bool, err error)

	// Delete removes a key. deleted=false means it was not there.
	Delete(ctx context.Context, key string) (deleted bool, err error)

	// Exists reports presence without decoding the value.
	Exists(ctx context.Context, key string) (bool, error)

	// Increment adds delta to a decimal counter and returns the new value.
	// Returns ErrNotFound when key is missing; it never creates the key.
	Increment(ctx context.Context, key string, delta uint64) (uint64, error)

	// Flush drops every entry in the store.
	Flush(ctx context.Context) error

	// Enabled is false for adapters running in degraded (no-op) mode.
	Enabled() bool

	// Close releases resources.
	Close(ctx context.Context) error
}

// DefaultTTLer is implemented by backends configured with their own default
// entry lifetime. vercache uses it when Options.DefaultTTL is zero.
type DefaultTTLer interface {
	DefaultTTL() time.Duration
}
