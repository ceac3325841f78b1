package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/vercache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

// incrExisting is INCRBY that refuses to create the key; a missing
// counter must be seeded by vercache, never silently restarted at delta.
var incrExisting = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return redis.call('INCRBY', KEYS[1], ARGV[1])
end
return false
`)

type Redis struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ backend.Backend = (*Redis)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Redis, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Redis{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

// NewFromAddrs builds and owns a UniversalClient: one address => single node,
// several => cluster.
func NewFromAddrs(addrs []string, password string) (*Redis, error) {
	if len(addrs) == 0 {
		return nil, errors.Join(backend.ErrUnavailable, errors.New("redis backend: no addresses"))
	}
	rdb := goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    addrs,
		Password: password,
	})
	return &Redis{rdb: rdb, closeClient: true}, nil
}

func (p *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := p.rdb.Get(ctx, key).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (p *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // treat non-positive TTLs as "no expiry" per backend contract
	}
	if err := p.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Redis) Add(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0
	}
	return p.rdb.SetNX(ctx, key, value, ttl).Result()
}

func (p *Redis) Delete(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := p.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *Redis) Increment(ctx context.Context, key string, delta uint64) (uint64, error) {
	v, err := incrExisting.Run(ctx, p.rdb, []string{key}, delta).Int64()
	if err == goredis.Nil {
		return 0, backend.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

// Flush empties the selected database; on a cluster every master is flushed.
func (p *Redis) Flush(ctx context.Context) error {
	if cc, ok := p.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			return c.FlushDB(ctx).Err()
		})
	}
	return p.rdb.FlushDB(ctx).Err()
}

func (p *Redis) Enabled() bool { return true }

// Ping checks reachability (not part of backend.Backend).
func (p *Redis) Ping(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

// Close releases the underlying redis client only when this backend owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (p *Redis) Close(context.Context) error {
	if p.closeClient {
		if err := p.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}
