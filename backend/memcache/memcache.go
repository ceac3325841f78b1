// Package memcache is the distributed backend: a weighted list of memcached
// nodes with client-side key distribution.
//
// Unlike the in-process backends it degrades instead of failing: with no
// servers configured the adapter reports Enabled()==false and every operation
// is a miss or a no-op, so a host without memcached keeps serving from the
// source of truth.
package memcache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"strconv"
	"time"

	mc "github.com/bradfitz/gomemcache/memcache"

	"github.com/unkn0wn-root/vercache/backend"
	"github.com/unkn0wn-root/vercache/config"
)

// relativeExpiryLimit is memcached's cutoff: larger expirations are read as unix time.
const relativeExpiryLimit = 30 * 24 * time.Hour

type Memcache struct {
	c          *mc.Client // nil => degraded
	servers    []string   // weighted, expanded address list
	defaultTTL time.Duration
}

var (
	_ backend.Backend      = (*Memcache)(nil)
	_ backend.DefaultTTLer = (*Memcache)(nil)
)

type Config struct {
	Servers      []config.Server
	Timeout      time.Duration // 0 => gomemcache default
	MaxIdleConns int
	// DefaultTTL is reported to vercache as the entry lifetime when the cache
	// options leave it unset.
	DefaultTTL time.Duration
}

func New(cfg Config) (*Memcache, error) {
	addrs := expandServers(cfg.Servers)
	if len(addrs) == 0 {
		return &Memcache{defaultTTL: cfg.DefaultTTL}, nil
	}
	var sl mc.ServerList
	if err := sl.SetServers(addrs...); err != nil {
		return nil, fmt.Errorf("memcache: servers: %w", err)
	}
	c := mc.NewFromSelector(&sl)
	if cfg.Timeout > 0 {
		c.Timeout = cfg.Timeout
	}
	if cfg.MaxIdleConns > 0 {
		c.MaxIdleConns = cfg.MaxIdleConns
	}
	return &Memcache{c: c, servers: addrs, defaultTTL: cfg.DefaultTTL}, nil
}

// NewFromClustering builds the adapter from a loaded clustering file.
// ExpireTime becomes the default entry TTL.
func NewFromClustering(cl *config.Clustering) (*Memcache, error) {
	if cl == nil {
		return &Memcache{}, nil
	}
	return New(Config{Servers: cl.Servers(), DefaultTTL: cl.TTL()})
}

func (p *Memcache) DefaultTTL() time.Duration { return p.defaultTTL }

// expandServers repeats each address in proportion to its weight. gomemcache
// picks a node by hash modulo list length, so repetition is weighting.
// Weights are reduced by their gcd: equal weights collapse to one entry each.
func expandServers(servers []config.Server) []string {
	g := 0
	for _, s := range servers {
		if s.Host == "" && s.Port == 0 {
			continue
		}
		g = gcd(g, max(s.Weight, 1))
	}
	var out []string
	for _, s := range servers {
		if s.Host == "" && s.Port == 0 {
			continue
		}
		addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
		for i := 0; i < max(s.Weight, 1)/g; i++ {
			out = append(out, addr)
		}
	}
	return out
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// expiration converts a TTL to memcached's int32 seconds; ttl<=0 => no expiry.
// Absolute times past the int32 range are clamped.
func expiration(ttl time.Duration, now time.Time) int32 {
	if ttl <= 0 {
		return 0
	}
	if ttl > relativeExpiryLimit {
		at := now.Add(ttl).Unix()
		if at > math.MaxInt32 {
			return math.MaxInt32
		}
		return int32(at)
	}
	s := int32(ttl / time.Second)
	if ttl%time.Second != 0 {
		s++
	}
	return s
}

func (p *Memcache) Servers() []string { return append([]string(nil), p.servers...) }

func (p *Memcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if p.c == nil {
		return nil, false, nil
	}
	it, err := p.c.Get(key)
	if errors.Is(err, mc.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return it.Value, true, nil
}

func (p *Memcache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if p.c == nil {
		return false, nil
	}
	err := p.c.Set(&mc.Item{Key: key, Value: value, Expiration: expiration(ttl, time.Now())})
	if errors.Is(err, mc.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcache) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if p.c == nil {
		return false, nil
	}
	err := p.c.Add(&mc.Item{Key: key, Value: value, Expiration: expiration(ttl, time.Now())})
	if errors.Is(err, mc.ErrNotStored) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Memcache) Delete(_ context.Context, key string) (bool, error) {
	if p.c == nil {
		return false, nil
	}
	err := p.c.Delete(key)
	if errors.Is(err, mc.ErrCacheMiss) {
		return false, nil
	}
	return err == nil, err
}

func (p *Memcache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Memcache) Increment(_ context.Context, key string, delta uint64) (uint64, error) {
	if p.c == nil {
		return 0, backend.ErrUnavailable
	}
	v, err := p.c.Increment(key, delta)
	if errors.Is(err, mc.ErrCacheMiss) {
		return 0, backend.ErrNotFound
	}
	return v, err
}

func (p *Memcache) Flush(_ context.Context) error {
	if p.c == nil {
		return nil
	}
	return p.c.FlushAll()
}

func (p *Memcache) Enabled() bool { return p.c != nil }

// Ping checks every node (not part of backend.Backend).
func (p *Memcache) Ping(_ context.Context) error {
	if p.c == nil {
		return backend.ErrUnavailable
	}
	return p.c.Ping()
}

func (p *Memcache) Close(_ context.Context) error { return nil }
