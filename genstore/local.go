package genstore

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	v         uint64
	updatedAt time.Time
}

// Local keeps counters in-process.
// Optional cleanup loop prunes counters untouched for longer than retention.
type Local struct {
	mu     sync.RWMutex
	gens   map[string]localEntry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ GenStore = (*Local)(nil)

func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{gens: make(map[string]localEntry)}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Get(_ context.Context, k string) (uint64, bool, error) {
	s.mu.RLock()
	e, ok := s.gens[k]
	s.mu.RUnlock()
	return e.v, ok, nil
}

func (s *Local) Set(_ context.Context, k string, v uint64) error {
	s.mu.Lock()
	s.gens[k] = localEntry{v: v, updatedAt: time.Now()}
	s.mu.Unlock()
	return nil
}

func (s *Local) Add(_ context.Context, k string, v uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.gens[k]; ok {
		return false, nil
	}
	s.gens[k] = localEntry{v: v, updatedAt: time.Now()}
	return true, nil
}

func (s *Local) Increment(_ context.Context, k string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.gens[k]
	if !ok {
		return 0, false, nil
	}
	e.v++
	e.updatedAt = time.Now()
	s.gens[k] = e
	return e.v, true, nil
}

func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if e.updatedAt.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

// Close stops the cleanup loop. Safe to call more than once.
func (s *Local) Close(_ context.Context) error {
	s.once.Do(func() {
		if s.stopCh != nil {
			s.ticker.Stop()
			close(s.stopCh)
			s.wg.Wait()
		}
	})
	return nil
}
