// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := vercache.New[User](vercache.Options[User]{
//	    Backend: be,
//	    Codec:   codec.JSON[User]{},
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/vercache"
)

// Hooks forwards events to inner on worker goroutines. Events are dropped,
// never blocked on, when the queue is full.
type Hooks struct {
	inner   vercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed vs. sends
	closed  bool
	dropped atomic.Uint64
}

var _ vercache.Hooks = (*Hooks)(nil)

func New(inner vercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped counts events lost to a full queue or a closed hook.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) VersionSeeded(g string) { h.try(func() { h.inner.VersionSeeded(g) }) }
func (h *Hooks) SetRejected(k string)   { h.try(func() { h.inner.SetRejected(k) }) }
func (h *Hooks) GroupInvalidated(g string, v uint64) {
	h.try(func() { h.inner.GroupInvalidated(g, v) })
}
func (h *Hooks) SelfHeal(k, reason string) {
	h.try(func() { h.inner.SelfHeal(k, reason) })
}
func (h *Hooks) BackendError(op string, err error) {
	h.try(func() { h.inner.BackendError(op, err) })
}
