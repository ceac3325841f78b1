package genstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisWithTTL(rdb, "app", ttl)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, mr
}

func TestRedisAddIncrementNamespaced(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t, 0)

	if _, ok, err := s.Increment(ctx, "users_version"); err != nil || ok {
		t.Fatalf("Increment missing: ok=%v err=%v", ok, err)
	}
	if mr.Exists("gen:app:users_version") {
		t.Fatalf("Increment must not create the counter")
	}

	if added, err := s.Add(ctx, "users_version", 1); err != nil || !added {
		t.Fatalf("Add: %v %v", added, err)
	}
	v, ok, err := s.Increment(ctx, "users_version")
	if err != nil || !ok || v != 2 {
		t.Fatalf("Increment: %d %v %v", v, ok, err)
	}
	if got, _ := mr.Get("gen:app:users_version"); got != "2" {
		t.Fatalf("stored=%q want 2", got)
	}
	if mr.TTL("gen:app:users_version") != 0 {
		t.Fatalf("no TTL expected")
	}
}

func TestRedisTTLRefreshedOnBump(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedis(t, time.Hour)

	if _, err := s.Add(ctx, "g_version", 1); err != nil {
		t.Fatal(err)
	}
	mr.FastForward(30 * time.Minute)
	if _, ok, err := s.Increment(ctx, "g_version"); err != nil || !ok {
		t.Fatalf("Increment: %v %v", ok, err)
	}
	if ttl := mr.TTL("gen:app:g_version"); ttl != time.Hour {
		t.Fatalf("ttl=%s want refreshed 1h", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok, _ := s.Get(ctx, "g_version"); ok {
		t.Fatalf("counter should have expired")
	}
}

func TestRedisVerbatimKeys(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "")
	defer s.Close(context.Background())

	if err := s.Set(context.Background(), "g_version", 4); err != nil {
		t.Fatal(err)
	}
	if got, _ := mr.Get("g_version"); got != "4" {
		t.Fatalf("stored=%q", got)
	}
}
