package ristretto

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/vercache/backend"
	"github.com/unkn0wn-root/vercache/backend/backendtest"
)

func newTest(t *testing.T) *Ristretto {
	t.Helper()
	p, err := New(Config{NumCounters: 1e4, MaxCost: 1 << 20, BufferItems: 64})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close(context.Background()) })
	return p
}

func TestRistrettoContract(t *testing.T) {
	backendtest.Run(t, func(t *testing.T) backend.Backend {
		return newTest(t)
	}, backendtest.Options{PerEntryTTL: true})
}

func TestRistrettoInvalidConfig(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, backend.ErrUnavailable))
}

func TestRistrettoSelfHealsForeignValue(t *testing.T) {
	p := newTest(t)
	p.c.Set("foreign", 42, 1)
	p.c.Wait()

	_, ok, err := p.Get(context.Background(), "foreign")
	require.NoError(t, err)
	assert.False(t, ok)

	_, found := p.c.Get("foreign")
	assert.False(t, found, "unexpected entry shape should be dropped")
}
