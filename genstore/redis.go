package genstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

var incrExisting = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	local v = redis.call('INCR', KEYS[1])
	if tonumber(ARGV[1]) > 0 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return v
end
return false
`)

// Redis shares counters across processes and survives restarts.
// Optionally, a TTL is applied (and refreshed on every bump) to bound growth.
type Redis struct {
	rdb redis.UniversalClient
	ns  string        // key prefix; "" => keys are used verbatim
	ttl time.Duration // 0 disables expiry
}

var _ GenStore = (*Redis)(nil)

// NewRedis creates a Redis-backed store without TTL.
func NewRedis(client redis.UniversalClient, namespace string) *Redis {
	return &Redis{rdb: client, ns: namespace}
}

// NewRedisWithTTL creates a Redis-backed store whose counters expire after ttl
// without a bump. If ttl <= 0, keys do not expire.
func NewRedisWithTTL(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	if ttl < 0 {
		ttl = 0
	}
	return &Redis{rdb: client, ns: namespace, ttl: ttl}
}

func (s *Redis) key(k string) string {
	if s.ns == "" {
		return k
	}
	return "gen:" + s.ns + ":" + k
}

func (s *Redis) Get(ctx context.Context, k string) (uint64, bool, error) {
	res, err := s.rdb.Get(ctx, s.key(k)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	u, err := strconv.ParseUint(res, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("redis gen parse: %w", err)
	}
	return u, true, nil
}

func (s *Redis) Set(ctx context.Context, k string, v uint64) error {
	return s.rdb.Set(ctx, s.key(k), v, s.ttl).Err()
}

func (s *Redis) Add(ctx context.Context, k string, v uint64) (bool, error) {
	return s.rdb.SetNX(ctx, s.key(k), v, s.ttl).Result()
}

// Increment bumps and refreshes the TTL in one script round-trip.
func (s *Redis) Increment(ctx context.Context, k string) (uint64, bool, error) {
	v, err := incrExisting.Run(ctx, s.rdb, []string{s.key(k)}, s.ttl.Milliseconds()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return uint64(v), true, nil
}

// Cleanup is not applicable (Redis handles expiry if TTL is set).
func (s *Redis) Cleanup(time.Duration) {}

// Close closes the underlying Redis client.
func (s *Redis) Close(context.Context) error { return s.rdb.Close() }
