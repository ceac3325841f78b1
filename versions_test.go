package vercache

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mapVersions is a bare getter/setter pair over a map.
type mapVersions struct {
	mu sync.Mutex
	m  map[string]uint64
}

func newMapVersions() *mapVersions { return &mapVersions{m: make(map[string]uint64)} }

func (s *mapVersions) get(_ context.Context, k string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[k]
	return v, ok, nil
}

func (s *mapVersions) set(_ context.Context, k string, v uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[k] = v
	return nil
}

func TestVersionFuncsGetterSetterOnly(t *testing.T) {
	ctx := context.Background()
	s := newMapVersions()
	k := NewVersionedKeys(VersionFuncs{Getter: s.get, Setter: s.set}, VersionOptions{})

	if k.add != nil || k.incr != nil {
		t.Fatal("no optional capabilities expected")
	}
	key, err := k.Key(ctx, "users", "42", false)
	if err != nil || key != "users_1_42" {
		t.Fatalf("Key=(%q,%v)", key, err)
	}
	if s.m["users_version"] != 1 {
		t.Fatalf("baseline not seeded: %v", s.m)
	}

	for want := uint64(2); want <= 4; want++ {
		v, err := k.Invalidate(ctx, "users")
		if err != nil || v != want {
			t.Fatalf("Invalidate=(%d,%v) want %d", v, err, want)
		}
	}
	if key, _ := k.Key(ctx, "users", "42", false); key != "users_4_42" {
		t.Fatalf("Key after bumps=%q", key)
	}
}

func TestVersionFuncsPointerCapabilities(t *testing.T) {
	s := newMapVersions()
	f := &VersionFuncs{
		Getter: s.get,
		Setter: s.set,
		Adder:  func(context.Context, string, uint64) (bool, error) { return true, nil },
	}
	k := NewVersionedKeys(f, VersionOptions{})
	if k.add == nil || k.incr != nil {
		t.Fatalf("capabilities: add=%v incr=%v", k.add != nil, k.incr != nil)
	}
}

func TestSeedLosesRaceToExistingCounter(t *testing.T) {
	ctx := context.Background()
	reads := 0
	k := NewVersionedKeys(VersionFuncs{
		Getter: func(context.Context, string) (uint64, bool, error) {
			reads++
			if reads == 1 {
				return 0, false, nil
			}
			return 7, true, nil // another process bumped in between
		},
		Setter: func(context.Context, string, uint64) error {
			t.Fatal("Set must not be used when Add is available")
			return nil
		},
		Adder: func(context.Context, string, uint64) (bool, error) { return false, nil },
	}, VersionOptions{})

	v, err := k.Version(ctx, "users")
	if err != nil || v != 7 {
		t.Fatalf("Version=(%d,%v) want 7", v, err)
	}
}

func TestIncrementMissReseedsAtTwo(t *testing.T) {
	ctx := context.Background()
	var added []uint64
	k := NewVersionedKeys(VersionFuncs{
		Getter: func(context.Context, string) (uint64, bool, error) { return 5, true, nil },
		Setter: func(context.Context, string, uint64) error { return nil },
		Adder: func(_ context.Context, _ string, v uint64) (bool, error) {
			added = append(added, v)
			return true, nil
		},
		// counter evicted between the read and the increment
		Incrementer: func(context.Context, string) (uint64, bool, error) { return 0, false, nil },
	}, VersionOptions{})

	v, err := k.Invalidate(ctx, "users")
	if err != nil || v != BaselineVersion+1 {
		t.Fatalf("Invalidate=(%d,%v) want 2", v, err)
	}
	if len(added) != 1 || added[0] != 2 {
		t.Fatalf("added=%v want [2]", added)
	}
}

func TestIncrementRetryThenCounterLost(t *testing.T) {
	ctx := context.Background()
	incrs := 0
	k := NewVersionedKeys(VersionFuncs{
		Getter: func(context.Context, string) (uint64, bool, error) { return 3, true, nil },
		Setter: func(context.Context, string, uint64) error { return nil },
		Adder:  func(context.Context, string, uint64) (bool, error) { return false, nil },
		Incrementer: func(context.Context, string) (uint64, bool, error) {
			incrs++
			return 0, false, nil
		},
	}, VersionOptions{})

	_, err := k.Invalidate(ctx, "users")
	var ie *InvalidateError
	if !errors.As(err, &ie) || !errors.Is(err, errCounterLost) {
		t.Fatalf("err=%v want InvalidateError(counter lost)", err)
	}
	if incrs != 2 {
		t.Fatalf("increments=%d want 2", incrs)
	}
}

func TestIncrementRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	incrs := 0
	k := NewVersionedKeys(VersionFuncs{
		Getter: func(context.Context, string) (uint64, bool, error) { return 3, true, nil },
		Setter: func(context.Context, string, uint64) error { return nil },
		// someone else re-created the counter first
		Adder: func(context.Context, string, uint64) (bool, error) { return false, nil },
		Incrementer: func(context.Context, string) (uint64, bool, error) {
			incrs++
			if incrs == 1 {
				return 0, false, nil
			}
			return 4, true, nil
		},
	}, VersionOptions{})

	if v, err := k.Invalidate(ctx, "users"); err != nil || v != 4 {
		t.Fatalf("Invalidate=(%d,%v) want 4", v, err)
	}
}

func TestVersionKey(t *testing.T) {
	k := NewVersionedKeys(VersionFuncs{}, VersionOptions{})
	if vk, err := k.VersionKey("users"); err != nil || vk != "users_version" {
		t.Fatalf("VersionKey=(%q,%v)", vk, err)
	}
	if _, err := k.VersionKey(""); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("empty group err=%v", err)
	}
	if _, err := k.VersionKey("us\ners"); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("control char err=%v", err)
	}
}

func TestValidationPrecedesStoreAccess(t *testing.T) {
	ctx := context.Background()
	k := NewVersionedKeys(VersionFuncs{
		Getter: func(context.Context, string) (uint64, bool, error) {
			t.Fatal("store read on invalid arguments")
			return 0, false, nil
		},
	}, VersionOptions{})

	if _, err := k.Key(ctx, "users", "", false); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
	if _, err := k.Keys(ctx, "users", []string{"ok", "bad key"}); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err=%v", err)
	}
}
