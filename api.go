package vercache

import (
	"context"
	"time"

	"github.com/unkn0wn-root/vercache/backend"
	c "github.com/unkn0wn-root/vercache/codec"
)

// Cache is the group-versioned cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// Backend failures never surface as errors from reads and writes: they are
// logged, reported through Hooks, and served as a miss or ok=false. Errors are
// returned for malformed arguments (ErrInvalidArgument), codec failures on Set,
// and from the administrative InvalidateGroup and Clear.
type Cache[V any] interface {
	Enabled() bool
	Close(context.Context) error

	// Entries
	Get(ctx context.Context, group, key string) (v V, ok bool, err error)
	GetOr(ctx context.Context, group, key string, def V) (V, error)
	GetMany(ctx context.Context, group string, keys []string) (values map[string]V, missing []string, err error)
	Exists(ctx context.Context, group string, keys ...string) (bool, error)
	// Set stores value; ttl == 0 => DefaultTTL, ttl < 0 => no expiry.
	Set(ctx context.Context, group, key string, value V, ttl time.Duration) (ok bool, err error)
	Delete(ctx context.Context, group, key string) (deleted bool, err error)

	// Groups
	InvalidateGroup(ctx context.Context, group string) (newVersion uint64, err error)
	Clear(ctx context.Context) error

	// Keys
	Version(ctx context.Context, group string) (uint64, error)
	Key(ctx context.Context, group, key string, allowEmpty bool) (string, error)
	Keys(ctx context.Context, group string, keys []string) ([]string, error)
}

// Options configure a Cache. Backend and Codec are required; others have sensible defaults.
type Options[V any] struct {
	// Required
	Backend backend.Backend
	Codec   c.Codec[V]

	Logger     Logger        // if nil, NopLogger is used
	Hooks      Hooks         // if nil, NopHooks is used
	DefaultTTL time.Duration // 0 => backend.DefaultTTLer, then 300s
	Disabled   bool          // default false (enabled)
	// Versions overrides where group counters live; nil => BackendVersions(Backend).
	Versions  VersionStore
	MaxKeyLen int // 0 => 250, <0 => unlimited
}

func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
