package vercache

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/vercache/backend"
	"github.com/unkn0wn-root/vercache/internal/util"
)

// VersionStore is where group counters live. Get reports a missing counter
// with ok=false. Implementations may also satisfy VersionAdder and
// VersionIncrementer; VersionedKeys discovers both by type assertion.
type VersionStore interface {
	Get(ctx context.Context, key string) (v uint64, ok bool, err error)
	Set(ctx context.Context, key string, v uint64) error
}

// VersionAdder writes a counter only if it is absent.
type VersionAdder interface {
	Add(ctx context.Context, key string, v uint64) (added bool, err error)
}

// VersionIncrementer bumps an existing counter atomically; a missing counter
// is reported with ok=false and is not created.
type VersionIncrementer interface {
	Increment(ctx context.Context, key string) (v uint64, ok bool, err error)
}

// VersionFuncs adapts plain functions into a VersionStore. Getter and Setter are
// required; Adder and Incrementer are optional capabilities and are only used
// when non-nil.
type VersionFuncs struct {
	Getter      func(ctx context.Context, key string) (uint64, bool, error)
	Setter      func(ctx context.Context, key string, v uint64) error
	Adder       func(ctx context.Context, key string, v uint64) (bool, error)
	Incrementer func(ctx context.Context, key string) (uint64, bool, error)
}

func (f VersionFuncs) Get(ctx context.Context, key string) (uint64, bool, error) {
	return f.Getter(ctx, key)
}

func (f VersionFuncs) Set(ctx context.Context, key string, v uint64) error {
	return f.Setter(ctx, key, v)
}

type adderFunc func(ctx context.Context, key string, v uint64) (bool, error)

func (f adderFunc) Add(ctx context.Context, key string, v uint64) (bool, error) {
	return f(ctx, key, v)
}

type incrementerFunc func(ctx context.Context, key string) (uint64, bool, error)

func (f incrementerFunc) Increment(ctx context.Context, key string) (uint64, bool, error) {
	return f(ctx, key)
}

// BackendVersions stores counters in b as decimal values without expiry.
func BackendVersions(b backend.Backend) VersionStore { return backendVersions{b: b} }

type backendVersions struct{ b backend.Backend }

var (
	_ VersionAdder       = backendVersions{}
	_ VersionIncrementer = backendVersions{}
)

func (s backendVersions) Get(ctx context.Context, key string) (uint64, bool, error) {
	raw, ok, err := s.b.Get(ctx, key)
	if err != nil || !ok {
		return 0, false, err
	}
	v, err := backend.ParseCounter(raw)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

func (s backendVersions) Set(ctx context.Context, key string, v uint64) error {
	_, err := s.b.Set(ctx, key, backend.FormatCounter(v), 0)
	return err
}

func (s backendVersions) Add(ctx context.Context, key string, v uint64) (bool, error) {
	return s.b.Add(ctx, key, backend.FormatCounter(v), 0)
}

func (s backendVersions) Increment(ctx context.Context, key string) (uint64, bool, error) {
	v, err := s.b.Increment(ctx, key, 1)
	if errors.Is(err, backend.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// VersionOptions tune VersionedKeys. All fields are optional.
type VersionOptions struct {
	Logger Logger
	Hooks  Hooks
	// MaxKeyLen bounds a fully-qualified key; 0 => 250 (memcached), <0 => unlimited.
	MaxKeyLen int
}

// VersionedKeys turns (group, key) pairs into storage keys that embed the
// group's current version, and invalidates a group by bumping that version.
//
// A missing counter reads as BaselineVersion and is written back (with Add
// when the store supports it) so that native increments always find it.
// Nothing is cached in process: every key costs one counter read.
type VersionedKeys struct {
	store     VersionStore
	add       VersionAdder       // nil => Set
	incr      VersionIncrementer // nil => read-modify-write
	log       Logger
	hooks     Hooks
	maxKeyLen int
}

func NewVersionedKeys(store VersionStore, opts VersionOptions) *VersionedKeys {
	k := &VersionedKeys{
		store: store,
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		hooks: coalesce[Hooks](opts.Hooks, NopHooks{}),
	}
	switch {
	case opts.MaxKeyLen == 0:
		k.maxKeyLen = defaultMaxKeyLen
	case opts.MaxKeyLen > 0:
		k.maxKeyLen = opts.MaxKeyLen
	}

	switch s := store.(type) {
	case VersionFuncs:
		k.add, k.incr = s.capabilities()
	case *VersionFuncs:
		k.add, k.incr = s.capabilities()
	default:
		k.add, _ = store.(VersionAdder)
		k.incr, _ = store.(VersionIncrementer)
	}
	return k
}

func (f VersionFuncs) capabilities() (VersionAdder, VersionIncrementer) {
	var (
		a VersionAdder
		i VersionIncrementer
	)
	if f.Adder != nil {
		a = adderFunc(f.Adder)
	}
	if f.Incrementer != nil {
		i = incrementerFunc(f.Incrementer)
	}
	return a, i
}

func validateGroup(group string) error {
	if group == "" {
		return invalidArg("group must be a non-empty string")
	}
	if !util.ValidKeyChars(group) {
		return invalidArg("group %q contains whitespace or control characters", group)
	}
	return nil
}

func validateRaw(raw string, allowEmpty bool) error {
	if raw == "" {
		if !allowEmpty {
			return invalidArg("key must not be empty")
		}
		return nil
	}
	if !util.ValidKeyChars(raw) {
		return invalidArg("key %q contains whitespace or control characters", raw)
	}
	if util.ReservedRaw(raw) {
		return invalidArg("key %q collides with a group counter key", raw)
	}
	return nil
}

// VersionKey returns "<group>_version", the storage key of the group counter.
func (k *VersionedKeys) VersionKey(group string) (string, error) {
	if err := validateGroup(group); err != nil {
		return "", err
	}
	return util.VersionKey(group), nil
}

// Version returns the current version of group, seeding BaselineVersion when absent.
func (k *VersionedKeys) Version(ctx context.Context, group string) (uint64, error) {
	vk, err := k.VersionKey(group)
	if err != nil {
		return 0, err
	}
	return k.version(ctx, group, vk)
}

func (k *VersionedKeys) version(ctx context.Context, group, vk string) (uint64, error) {
	v, ok, err := k.store.Get(ctx, vk)
	if err != nil {
		return 0, err
	}
	switch {
	case ok && v > 0:
		return v, nil
	case ok:
		// a zero counter would increment onto the baseline; Add cannot replace it
		if err := k.store.Set(ctx, vk, BaselineVersion); err != nil {
			return 0, err
		}
		k.seeded(group)
		return BaselineVersion, nil
	}
	return k.seed(ctx, group, vk)
}

func (k *VersionedKeys) seed(ctx context.Context, group, vk string) (uint64, error) {
	if k.add == nil {
		if err := k.store.Set(ctx, vk, BaselineVersion); err != nil {
			return 0, err
		}
		k.seeded(group)
		return BaselineVersion, nil
	}

	added, err := k.add.Add(ctx, vk, BaselineVersion)
	if err != nil {
		return 0, err
	}
	if added {
		k.seeded(group)
		return BaselineVersion, nil
	}
	// lost the race to another seeder or invalidator; their value wins
	v, ok, err := k.store.Get(ctx, vk)
	if err != nil {
		return 0, err
	}
	if !ok || v == 0 {
		return BaselineVersion, nil
	}
	return v, nil
}

func (k *VersionedKeys) seeded(group string) {
	k.log.Debug("group version seeded", Fields{"group": group, "version": BaselineVersion})
	k.hooks.VersionSeeded(group)
}

// Key returns "<group>_<version>" plus "_<raw>" when raw is non-empty.
// An empty raw is rejected unless allowEmpty is set.
func (k *VersionedKeys) Key(ctx context.Context, group, raw string, allowEmpty bool) (string, error) {
	key, _, err := k.build(ctx, group, raw, allowEmpty)
	return key, err
}

// Keys maps Key over raws in order, reading the group version once.
func (k *VersionedKeys) Keys(ctx context.Context, group string, raws []string) ([]string, error) {
	keys, _, err := k.buildMany(ctx, group, raws)
	return keys, err
}

func (k *VersionedKeys) buildMany(ctx context.Context, group string, raws []string) ([]string, uint64, error) {
	if len(raws) == 0 {
		return nil, 0, invalidArg("key list must not be empty")
	}
	if err := k.validate(group, raws, false); err != nil {
		return nil, 0, err
	}
	v, err := k.version(ctx, group, util.VersionKey(group))
	if err != nil {
		return nil, 0, err
	}
	out := make([]string, len(raws))
	for i, r := range raws {
		out[i] = util.Compose(group, v, r)
	}
	return out, v, nil
}

// build validates before it touches the store, so argument errors never depend on backend health.
func (k *VersionedKeys) build(ctx context.Context, group, raw string, allowEmpty bool) (string, uint64, error) {
	if err := k.validate(group, []string{raw}, allowEmpty); err != nil {
		return "", 0, err
	}
	v, err := k.version(ctx, group, util.VersionKey(group))
	if err != nil {
		return "", 0, err
	}
	return util.Compose(group, v, raw), v, nil
}

// validate checks group and raws. The length check assumes the widest
// possible version so a key never starts failing after enough bumps.
func (k *VersionedKeys) validate(group string, raws []string, allowEmpty bool) error {
	if err := validateGroup(group); err != nil {
		return err
	}
	for _, r := range raws {
		if err := validateRaw(r, allowEmpty); err != nil {
			return err
		}
		if k.maxKeyLen > 0 && len(util.Compose(group, ^uint64(0), r)) > k.maxKeyLen {
			return invalidArg("key %q in group %q would exceed %d bytes", r, group, k.maxKeyLen)
		}
	}
	return nil
}

// Invalidate bumps the group version by one and returns the new version.
// Keys built before the call are never produced again.
func (k *VersionedKeys) Invalidate(ctx context.Context, group string) (uint64, error) {
	vk, err := k.VersionKey(group)
	if err != nil {
		return 0, err
	}
	v, err := k.bump(ctx, group, vk)
	if err != nil {
		k.log.Error("group invalidation failed", Fields{"group": group, "err": err})
		k.hooks.BackendError("invalidate", err)
		return 0, err
	}
	k.log.Debug("group invalidated", Fields{"group": group, "version": v})
	k.hooks.GroupInvalidated(group, v)
	return v, nil
}

func (k *VersionedKeys) bump(ctx context.Context, group, vk string) (uint64, error) {
	cur, err := k.version(ctx, group, vk)
	if err != nil {
		return 0, &InvalidateError{Group: group, SeedErr: err}
	}

	if k.incr == nil {
		// not atomic: concurrent invalidators may lose a bump, never move it back
		next := cur + 1
		if err := k.store.Set(ctx, vk, next); err != nil {
			return 0, &InvalidateError{Group: group, IncrErr: err}
		}
		return next, nil
	}

	for attempt := 0; attempt < 2; attempt++ {
		v, ok, err := k.incr.Increment(ctx, vk)
		if err != nil {
			return 0, &InvalidateError{Group: group, IncrErr: err}
		}
		if ok {
			return v, nil
		}
		// counter evicted between seed and increment: start the group over at baseline+1
		next := BaselineVersion + 1
		if k.add == nil {
			if err := k.store.Set(ctx, vk, next); err != nil {
				return 0, &InvalidateError{Group: group, IncrErr: err}
			}
			return next, nil
		}
		added, err := k.add.Add(ctx, vk, next)
		if err != nil {
			return 0, &InvalidateError{Group: group, IncrErr: err}
		}
		if added {
			return next, nil
		}
	}
	return 0, &InvalidateError{Group: group, IncrErr: errCounterLost}
}
