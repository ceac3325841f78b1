package bigcache

import (
	"context"
	"errors"
	"sync"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/vercache/backend"
)

const defaultLifeWindow = 10 * time.Minute

// Bigcache is an in-process backend with a single store-wide lifetime.
//
// Per-entry TTLs passed to Set/Add are ignored. Group counters
// (backend.IsCounterKey) are kept in a side map outside the LifeWindow: a
// counter that expired before the entries of its current version would be
// re-seeded at the baseline and climb back onto those versions.
type Bigcache struct {
	c     *bc.BigCache
	locks backend.KeyLocks

	cmu      sync.Mutex
	counters map[string][]byte
}

var _ backend.Backend = (*Bigcache)(nil)

type Config struct {
	LifeWindow         time.Duration // 0 => 10m
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Shards             int // power of two; 0 => bigcache default
}

func New(ctx context.Context, cfg Config) (*Bigcache, error) {
	life := cfg.LifeWindow
	if life <= 0 {
		life = defaultLifeWindow
	}
	conf := bc.DefaultConfig(life)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	c, err := bc.New(ctx, conf)
	if err != nil {
		return nil, errors.Join(backend.ErrUnavailable, err)
	}
	return &Bigcache{c: c, counters: make(map[string][]byte)}, nil
}

func (p *Bigcache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if backend.IsCounterKey(key) {
		p.cmu.Lock()
		defer p.cmu.Unlock()
		v, ok := p.counters[key]
		return append([]byte(nil), v...), ok, nil
	}
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Bigcache) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if backend.IsCounterKey(key) {
		p.cmu.Lock()
		defer p.cmu.Unlock()
		p.counters[key] = append([]byte(nil), value...)
		return true, nil
	}
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	return true, p.c.Set(key, value)
}

func (p *Bigcache) Add(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	if backend.IsCounterKey(key) {
		p.cmu.Lock()
		defer p.cmu.Unlock()
		if _, ok := p.counters[key]; ok {
			return false, nil
		}
		p.counters[key] = append([]byte(nil), value...)
		return true, nil
	}
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	_, err := p.c.Get(key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, bc.ErrEntryNotFound) {
		return false, err
	}
	if err := p.c.Set(key, value); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Bigcache) Delete(_ context.Context, key string) (bool, error) {
	if backend.IsCounterKey(key) {
		p.cmu.Lock()
		defer p.cmu.Unlock()
		_, ok := p.counters[key]
		delete(p.counters, key)
		return ok, nil
	}
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (p *Bigcache) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := p.Get(ctx, key)
	return ok, err
}

func (p *Bigcache) Increment(_ context.Context, key string, delta uint64) (uint64, error) {
	if backend.IsCounterKey(key) {
		p.cmu.Lock()
		defer p.cmu.Unlock()
		raw, ok := p.counters[key]
		if !ok {
			return 0, backend.ErrNotFound
		}
		v, err := backend.ParseCounter(raw)
		if err != nil {
			return 0, err
		}
		v += delta
		p.counters[key] = backend.FormatCounter(v)
		return v, nil
	}

	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()

	raw, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return 0, backend.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	v, err := backend.ParseCounter(raw)
	if err != nil {
		return 0, err
	}
	v += delta
	if err := p.c.Set(key, backend.FormatCounter(v)); err != nil {
		return 0, err
	}
	return v, nil
}

func (p *Bigcache) Flush(_ context.Context) error {
	p.cmu.Lock()
	clear(p.counters)
	p.cmu.Unlock()
	return p.c.Reset()
}

func (p *Bigcache) Enabled() bool { return true }

func (p *Bigcache) Close(_ context.Context) error {
	return p.c.Close()
}
