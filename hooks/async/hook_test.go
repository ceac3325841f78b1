package asynchook

import (
	"errors"
	"sync"
	"testing"

	"github.com/unkn0wn-root/vercache"
)

type recorder struct {
	vercache.NopHooks
	mu      sync.Mutex
	events  []string
	release chan struct{}
}

func (r *recorder) add(e string) {
	if r.release != nil {
		<-r.release
	}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) GroupInvalidated(g string, _ uint64) { r.add("inv:" + g) }
func (r *recorder) BackendError(op string, _ error)     { r.add("err:" + op) }

func TestAsyncDeliversAndDrains(t *testing.T) {
	rec := &recorder{}
	h := New(rec, 2, 16)
	h.GroupInvalidated("users", 2)
	h.BackendError("get", errors.New("x"))
	h.Close()

	if len(rec.events) != 2 {
		t.Fatalf("events=%v", rec.events)
	}
	h.GroupInvalidated("late", 3) // after close: dropped, no panic
	if h.Dropped() != 1 {
		t.Fatalf("dropped=%d want 1", h.Dropped())
	}
}

func TestAsyncDropsWhenFull(t *testing.T) {
	rec := &recorder{release: make(chan struct{})}
	h := New(rec, 1, 1)

	// first event occupies the worker, second fills the queue, the rest drop
	for i := 0; i < 10; i++ {
		h.GroupInvalidated("g", uint64(i))
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops with a blocked worker and queue of 1")
	}
	close(rec.release)
	h.Close()
}
