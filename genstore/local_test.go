package genstore

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalAddIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	t.Cleanup(func() { _ = s.Close(ctx) })

	if _, ok, _ := s.Increment(ctx, "g_version"); ok {
		t.Fatalf("Increment on missing counter must report ok=false")
	}
	if s.Len() != 0 {
		t.Fatalf("Increment must not create counters")
	}

	added, err := s.Add(ctx, "g_version", 1)
	if err != nil || !added {
		t.Fatalf("Add: added=%v err=%v", added, err)
	}
	if added, _ := s.Add(ctx, "g_version", 9); added {
		t.Fatalf("second Add must not overwrite")
	}

	v, ok, err := s.Increment(ctx, "g_version")
	if err != nil || !ok || v != 2 {
		t.Fatalf("Increment: v=%d ok=%v err=%v", v, ok, err)
	}
	got, ok, _ := s.Get(ctx, "g_version")
	if !ok || got != 2 {
		t.Fatalf("Get: %d %v", got, ok)
	}
}

func TestLocalConcurrentIncrement(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, 0)
	_ = s.Set(ctx, "k", 1)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = s.Increment(ctx, "k")
		}()
	}
	wg.Wait()
	if v, _, _ := s.Get(ctx, "k"); v != 101 {
		t.Fatalf("v=%d want 101", v)
	}
}

func TestLocalCleanupPrunesOld(t *testing.T) {
	ctx := context.Background()
	s := NewLocal(0, time.Second)
	t.Cleanup(func() { _ = s.Close(ctx) })

	_ = s.Set(ctx, "old", 3)
	time.Sleep(1200 * time.Millisecond)
	_ = s.Set(ctx, "fresh", 5)
	s.Cleanup(time.Second)

	if _, ok, _ := s.Get(ctx, "old"); ok {
		t.Fatalf("expected old counter pruned")
	}
	if v, ok, _ := s.Get(ctx, "fresh"); !ok || v != 5 {
		t.Fatalf("fresh counter lost: %d %v", v, ok)
	}
}

func TestLocalCloseIdempotent(t *testing.T) {
	s := NewLocal(10*time.Millisecond, time.Hour)
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
}
