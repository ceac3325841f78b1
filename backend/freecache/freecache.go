// Package freecache is the host-local shared-memory backend.
// Entries live in a fixed-size, GC-free arena with per-entry expiry.
package freecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	fc "github.com/coocood/freecache"

	"github.com/unkn0wn-root/vercache/backend"
)

type Freecache struct {
	c     *fc.Cache
	locks backend.KeyLocks
}

var _ backend.Backend = (*Freecache)(nil)

type Config struct {
	// SizeBytes is the arena size; freecache raises anything below 512KiB to 512KiB.
	SizeBytes int
}

// New fails fast: an in-process store that cannot be allocated is a deployment error.
func New(cfg Config) (*Freecache, error) {
	if cfg.SizeBytes <= 0 {
		return nil, fmt.Errorf("freecache: size must be positive: %w", backend.ErrUnavailable)
	}
	return &Freecache{c: fc.NewCache(cfg.SizeBytes)}, nil
}

// NewWithCache wraps an existing cache (shared with other users of the arena).
func NewWithCache(c *fc.Cache) *Freecache { return &Freecache{c: c} }

// expireSeconds converts a TTL to freecache seconds; ttl<=0 => no expiry, sub-second rounds up.
func expireSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	s := int(ttl / time.Second)
	if ttl%time.Second != 0 {
		s++
	}
	return s
}

func (p *Freecache) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get([]byte(key))
	if errors.Is(err, fc.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (p *Freecache) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	if err := p.c.Set([]byte(key), value, expireSeconds(ttl)); err != nil {
		if errors.Is(err, fc.ErrLargeEntry) || errors.Is(err, fc.ErrLargeKey) {
			return false, nil // rejected, not broken
		}
		return false, err
	}
	return true, nil
}

func (p *Freecache) Add(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()
	if _, err := p.c.Get([]byte(key)); err == nil {
		return false, nil
	} else if !errors.Is(err, fc.ErrNotFound) {
		return false, err
	}
	if err := p.c.Set([]byte(key), value, expireSeconds(ttl)); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Freecache) Delete(_ context.Context, key string) (bool, error) {
	return p.c.Del([]byte(key)), nil
}

func (p *Freecache) Exists(_ context.Context, key string) (bool, error) {
	_, err := p.c.TTL([]byte(key))
	if errors.Is(err, fc.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Increment keeps the remaining lifetime of the counter.
func (p *Freecache) Increment(_ context.Context, key string, delta uint64) (uint64, error) {
	mu := p.locks.For(key)
	mu.Lock()
	defer mu.Unlock()

	raw, expireAt, err := p.c.GetWithExpiration([]byte(key))
	if errors.Is(err, fc.ErrNotFound) {
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

	expire := 0
	if expireAt > 0 {
		expire = int(int64(expireAt) - time.Now().Unix())
		if expire <= 0 {
			return 0, backend.ErrNotFound // expired between read and now
		}
	}
	if err := p.c.Set([]byte(key), backend.FormatCounter(v), expire); err != nil {
		return 0, err
	}
	return v, nil
}

func (p *Freecache) Flush(_ context.Context) error {
	p.c.Clear()
	return nil
}

func (p *Freecache) Enabled() bool { return true }

func (p *Freecache) Close(_ context.Context) error { return nil }

// EntryCount exposes the arena population (not part of backend.Backend).
func (p *Freecache) EntryCount() int64 { return p.c.EntryCount() }
