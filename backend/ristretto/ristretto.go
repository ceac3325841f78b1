package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/vercache/backend"
)

var ErrDropped = errors.New("ristretto: write dropped")

// Ristretto is an in-process backend with cost-based admission.
// Writes are waited on so a Get right after Set observes the value.
type Ristretto struct {
	c     *rc.Cache
	cost  func(value []byte) int64
	locks backend.KeyLocks
}

var _ backend.Backend = (*Ristretto)(nil)

type Config struct {
	NumCounters int64
	MaxCost     int64
	BufferItems int64
	Metrics     bool
	// Cost of one entry; nil => len(value).
	Cost func(value []byte) int64
}

func New(cfg Config) (*Ristretto, error) {
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.Join(backend.ErrUnavailable, errors.New("ristretto: invalid config"))
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, errors.Join(backend.ErrUnavailable, err)
	}
	cost := cfg.Cost
	if cost == nil {
		cost = func(v []byte) int64 { return int64(len(v)) }
	}
	return &Ristretto{c: c, cost: cost}, nil
}

func (p *Ristretto) get(key string) ([]byte, bool) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		p.c.Del(key)
		return nil, false
	}
	return b, true
}

func (p *Ristretto) set(key string, value []byte, ttl time.Duration) bool {
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, p.cost(value), ttl)
	p.c.Wait()
	return ok
}

func (p *Ristretto) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, ok := p.get(key)
	return b, ok, nil
}

func (p *Ristretto) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	return p.set(key, value, ttl), nil
}

func (p *Ristretto) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	if _, ok := p.get(key); ok {
		return false, nil
	}
	if !p.set(key, value, ttl) {
		return false, ErrDropped
	}
	return true, nil
}

func (p *Ristretto) Delete(_ context.Context, key string) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	_, ok := p.get(key)
	p.c.Del(key)
	p.c.Wait()
	return ok, nil
}

func (p *Ristretto) Exists(_ context.Context, key string) (bool, error) {
	_, ok := p.get(key)
	return ok, nil
}

// Increment keeps the remaining TTL of the counter.
func (p *Ristretto) Increment(_ context.Context, key string, delta uint64) (uint64, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()

	raw, ok := p.get(key)
	if !ok {
		return 0, backend.ErrNotFound
	}
	v, err := backend.ParseCounter(raw)
	if err != nil {
		return 0, err
	}
	v += delta
	ttl, _ := p.c.GetTTL(key)
	if !p.set(key, backend.FormatCounter(v), ttl) {
		return 0, ErrDropped
	}
	return v, nil
}

func (p *Ristretto) Flush(_ context.Context) error {
	p.c.Clear()
	return nil
}

func (p *Ristretto) Enabled() bool { return true }

func (p *Ristretto) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Helper to expose metrics if desired by the application (not part of backend.Backend).
func (p *Ristretto) Metrics() *rc.Metrics { return p.c.Metrics }
