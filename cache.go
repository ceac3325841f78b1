package vercache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/vercache/backend"
	c "github.com/unkn0wn-root/vercache/codec"
	"github.com/unkn0wn-root/vercache/internal/wire"
)

type cache[V any] struct {
	backend    backend.Backend
	codec      c.Codec[V]
	keys       *VersionedKeys
	log        Logger
	hooks      Hooks
	enabled    bool
	defaultTTL time.Duration
}

var _ Cache[struct{}] = (*cache[struct{}])(nil)

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("vercache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("vercache: codec is required")
	}

	cc := &cache[V]{
		backend: opts.Backend,
		codec:   opts.Codec,
		enabled: !opts.Disabled && opts.Backend.Enabled(),
	}

	// defaults
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	ttl := opts.DefaultTTL
	if d, ok := opts.Backend.(backend.DefaultTTLer); ok && ttl == 0 {
		ttl = d.DefaultTTL()
	}
	cc.defaultTTL = coalesce[time.Duration](ttl, defaultTTL)

	store := opts.Versions
	if store == nil {
		store = BackendVersions(opts.Backend)
	}
	cc.keys = NewVersionedKeys(store, VersionOptions{
		Logger:    cc.log,
		Hooks:     cc.hooks,
		MaxKeyLen: opts.MaxKeyLen,
	})

	if !cc.enabled && !opts.Disabled {
		cc.log.Warn("backend unavailable; cache runs as no-op", nil)
	}
	return cc, nil
}

func (cc *cache[V]) Enabled() bool { return cc.enabled }

func (cc *cache[V]) Close(ctx context.Context) error {
	if cc.backend != nil {
		return cc.backend.Close(ctx)
	}
	return nil
}

// backendErr logs and reports a swallowed backend failure.
func (cc *cache[V]) backendErr(op, key string, err error) {
	cc.log.Warn("backend error", Fields{"op": op, "key": key, "err": err})
	cc.hooks.BackendError(op, err)
}

// storageKey builds the versioned key. ok=false with nil error means the
// version read failed and the call should degrade to a miss.
func (cc *cache[V]) storageKey(ctx context.Context, group, key string) (string, uint64, bool, error) {
	sk, ver, err := cc.keys.build(ctx, group, key, false)
	if err != nil {
		if errors.Is(err, ErrInvalidArgument) {
			return "", 0, false, err
		}
		cc.backendErr("version", group, err)
		return "", 0, false, nil
	}
	return sk, ver, true, nil
}

func (cc *cache[V]) selfHeal(ctx context.Context, sk, reason string) {
	_, _ = cc.backend.Delete(ctx, sk)
	cc.log.Debug("entry dropped on read", Fields{"key": sk, "reason": reason})
	cc.hooks.SelfHeal(sk, reason)
}

func (cc *cache[V]) Get(ctx context.Context, group, key string) (V, bool, error) {
	var zero V
	if !cc.enabled {
		return zero, false, cc.keys.validate(group, []string{key}, false)
	}
	sk, ver, ok, err := cc.storageKey(ctx, group, key)
	if err != nil || !ok {
		return zero, false, err
	}
	return cc.read(ctx, sk, ver)
}

func (cc *cache[V]) read(ctx context.Context, sk string, ver uint64) (V, bool, error) {
	var zero V
	raw, ok, err := cc.backend.Get(ctx, sk)
	if err != nil {
		cc.backendErr("get", sk, err)
		return zero, false, nil
	}
	if !ok {
		return zero, false, nil
	}
	stored, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		cc.selfHeal(ctx, sk, "corrupt")
		return zero, false, nil
	}
	if stored != ver {
		cc.selfHeal(ctx, sk, "version_mismatch")
		return zero, false, nil
	}
	v, err := cc.codec.Decode(payload)
	if err != nil {
		cc.selfHeal(ctx, sk, "value_decode")
		return zero, false, nil
	}
	return v, true, nil
}

func (cc *cache[V]) GetOr(ctx context.Context, group, key string, def V) (V, error) {
	v, ok, err := cc.Get(ctx, group, key)
	if err != nil || !ok {
		return def, err
	}
	return v, nil
}

// GetMany reads every key under one version snapshot. missing keeps input
// order; duplicate keys are reported once.
func (cc *cache[V]) GetMany(ctx context.Context, group string, keys []string) (map[string]V, []string, error) {
	if err := cc.keys.validate(group, keys, false); err != nil {
		return nil, nil, err
	}
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil, nil
	}

	seen := make(map[string]struct{}, len(keys))
	var missing []string
	miss := func(k string) {
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			missing = append(missing, k)
		}
	}

	if !cc.enabled {
		for _, k := range keys {
			miss(k)
		}
		return out, missing, nil
	}

	sks, ver, err := cc.keys.buildMany(ctx, group, keys)
	if err != nil {
		cc.backendErr("version", group, err)
		for _, k := range keys {
			miss(k)
		}
		return out, missing, nil
	}

	for i, k := range keys {
		if _, done := seen[k]; done {
			continue
		}
		if v, ok, _ := cc.read(ctx, sks[i], ver); ok {
			seen[k] = struct{}{}
			out[k] = v
		} else {
			miss(k)
		}
	}
	return out, missing, nil
}

// Exists reports whether every key has an entry Get would return. Presence is
// checked first; present entries are then decoded, and a frame that fails is
// self-healed and counts as absent.
func (cc *cache[V]) Exists(ctx context.Context, group string, keys ...string) (bool, error) {
	if len(keys) == 0 {
		return false, invalidArg("key list must not be empty")
	}
	if err := cc.keys.validate(group, keys, false); err != nil {
		return false, err
	}
	if !cc.enabled {
		return false, nil
	}
	sks, ver, err := cc.keys.buildMany(ctx, group, keys)
	if err != nil {
		cc.backendErr("version", group, err)
		return false, nil
	}
	for _, sk := range sks {
		ok, err := cc.backend.Exists(ctx, sk)
		if err != nil {
			cc.backendErr("exists", sk, err)
			return false, nil
		}
		if !ok {
			return false, nil
		}
	}
	for _, sk := range sks {
		if _, ok, _ := cc.read(ctx, sk, ver); !ok {
			return false, nil
		}
	}
	return true, nil
}

func (cc *cache[V]) Set(ctx context.Context, group, key string, value V, ttl time.Duration) (bool, error) {
	if !cc.enabled {
		return false, cc.keys.validate(group, []string{key}, false)
	}
	switch {
	case ttl == 0:
		ttl = cc.defaultTTL
	case ttl < 0:
		ttl = 0
	}
	sk, ver, ok, err := cc.storageKey(ctx, group, key)
	if err != nil || !ok {
		return false, err
	}
	payload, err := cc.codec.Encode(value)
	if err != nil {
		return false, err
	}
	ok, err = cc.backend.Set(ctx, sk, wire.EncodeEntry(ver, payload), ttl)
	if err != nil {
		cc.backendErr("set", sk, err)
		return false, nil
	}
	if !ok {
		cc.log.Debug("Set rejected by backend", Fields{"key": sk})
		cc.hooks.SetRejected(sk)
	}
	return ok, nil
}

// Delete removes the entry for key under the group's current version only;
// entries orphaned by earlier invalidations are left to expire.
func (cc *cache[V]) Delete(ctx context.Context, group, key string) (bool, error) {
	if !cc.enabled {
		return false, cc.keys.validate(group, []string{key}, false)
	}
	sk, _, ok, err := cc.storageKey(ctx, group, key)
	if err != nil || !ok {
		return false, err
	}
	deleted, err := cc.backend.Delete(ctx, sk)
	if err != nil {
		cc.backendErr("delete", sk, err)
		return false, nil
	}
	return deleted, nil
}

func (cc *cache[V]) InvalidateGroup(ctx context.Context, group string) (uint64, error) {
	if err := validateGroup(group); err != nil {
		return 0, err
	}
	if !cc.enabled {
		return 0, nil
	}
	return cc.keys.Invalidate(ctx, group)
}

func (cc *cache[V]) Clear(ctx context.Context) error {
	if !cc.enabled {
		return nil
	}
	if err := cc.backend.Flush(ctx); err != nil {
		cc.log.Error("flush failed", Fields{"err": err})
		cc.hooks.BackendError("flush", err)
		return err
	}
	cc.log.Info("cache cleared", nil)
	return nil
}

func (cc *cache[V]) Version(ctx context.Context, group string) (uint64, error) {
	return cc.keys.Version(ctx, group)
}

func (cc *cache[V]) Key(ctx context.Context, group, key string, allowEmpty bool) (string, error) {
	return cc.keys.Key(ctx, group, key, allowEmpty)
}

func (cc *cache[V]) Keys(ctx context.Context, group string, keys []string) ([]string, error) {
	return cc.keys.Keys(ctx, group, keys)
}
