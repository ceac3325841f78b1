// Package backendtest is a contract suite every backend.Backend adapter runs in its tests.
package backendtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/vercache/backend"
)

type Options struct {
	// PerEntryTTL is false for stores with a single global lifetime (bigcache).
	PerEntryTTL bool
	// Advance moves the store clock forward; nil => time.Sleep.
	Advance func(d time.Duration)
	// Settle is called after writes for stores with buffered admission (ristretto).
	Settle func()
}

func (o Options) advance(d time.Duration) {
	if o.Advance != nil {
		o.Advance(d)
		return
	}
	time.Sleep(d)
}

func (o Options) settle() {
	if o.Settle != nil {
		o.Settle()
	}
}

// Run exercises the backend.Backend contract against a fresh store per subtest.
func Run(t *testing.T, newBackend func(t *testing.T) backend.Backend, opts Options) {
	t.Helper()
	ctx := context.Background()

	t.Run("GetMiss", func(t *testing.T) {
		b := newBackend(t)
		v, ok, err := b.Get(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("SetGet", func(t *testing.T) {
		b := newBackend(t)
		ok, err := b.Set(ctx, "k", []byte("v"), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		opts.settle()

		v, hit, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, hit)
		assert.Equal(t, []byte("v"), v)

		exists, err := b.Exists(ctx, "k")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("AddOnlyIfAbsent", func(t *testing.T) {
		b := newBackend(t)
		added, err := b.Add(ctx, "a", []byte("first"), 0)
		require.NoError(t, err)
		require.True(t, added)
		opts.settle()

		added, err = b.Add(ctx, "a", []byte("second"), 0)
		require.NoError(t, err)
		assert.False(t, added)
		opts.settle()

		v, ok, err := b.Get(ctx, "a")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("first"), v)
	})

	t.Run("Delete", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Set(ctx, "d", []byte("x"), 0)
		require.NoError(t, err)
		opts.settle()

		deleted, err := b.Delete(ctx, "d")
		require.NoError(t, err)
		assert.True(t, deleted)
		opts.settle()

		_, ok, err := b.Get(ctx, "d")
		require.NoError(t, err)
		assert.False(t, ok)

		exists, err := b.Exists(ctx, "d")
		require.NoError(t, err)
		assert.False(t, exists)

		deleted, err = b.Delete(ctx, "d")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Increment", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Increment(ctx, "users_version", 1)
		require.True(t, errors.Is(err, backend.ErrNotFound), "missing counter: got %v", err)

		_, err = b.Set(ctx, "users_version", backend.FormatCounter(1), 0)
		require.NoError(t, err)
		opts.settle()

		v, err := b.Increment(ctx, "users_version", 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), v)
		opts.settle()

		v, err = b.Increment(ctx, "users_version", 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), v)
		opts.settle()

		raw, ok, err := b.Get(ctx, "users_version")
		require.NoError(t, err)
		require.True(t, ok)
		got, err := backend.ParseCounter(raw)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), got)
	})

	t.Run("IncrementConcurrent", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Set(ctx, "c_version", backend.FormatCounter(1), 0)
		require.NoError(t, err)
		opts.settle()

		const n = 32
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := b.Increment(ctx, "c_version", 1); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		opts.settle()

		raw, ok, err := b.Get(ctx, "c_version")
		require.NoError(t, err)
		require.True(t, ok)
		got, err := backend.ParseCounter(raw)
		require.NoError(t, err)
		assert.Equal(t, uint64(n+1), got)
	})

	t.Run("Flush", func(t *testing.T) {
		b := newBackend(t)
		for _, k := range []string{"f1", "f2", "f3"} {
			_, err := b.Set(ctx, k, []byte(k), 0)
			require.NoError(t, err)
		}
		opts.settle()
		require.NoError(t, b.Flush(ctx))
		opts.settle()
		for _, k := range []string{"f1", "f2", "f3"} {
			_, ok, err := b.Get(ctx, k)
			require.NoError(t, err)
			assert.False(t, ok, "key %q survived flush", k)
		}
	})

	if !opts.PerEntryTTL {
		return
	}
	t.Run("TTLExpiry", func(t *testing.T) {
		b := newBackend(t)
		_, err := b.Set(ctx, "short", []byte("x"), time.Second)
		require.NoError(t, err)
		_, err = b.Set(ctx, "long", []byte("y"), time.Hour)
		require.NoError(t, err)
		opts.settle()

		opts.advance(2100 * time.Millisecond)

		_, ok, err := b.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok, "short-lived entry should have expired")

		_, ok, err = b.Get(ctx, "long")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
