// Package genstore keeps group version counters outside the entry backend.
//
// Both stores satisfy vercache.VersionStore, VersionAdder and
// VersionIncrementer, and plug in through Options.Versions. Use Local for a
// single process, or Redis to share counters across replicas while entries
// stay in an in-process backend.
//
// A counter that disappears (retention, TTL) reads as the baseline again.
// Retention and TTL must therefore exceed the longest entry TTL, or orphaned
// entries from the first epoch become reachable again.
package genstore

import (
	"context"
	"time"
)

// GenStore is the surface shared by Local and Redis.
type GenStore interface {
	// Get returns the counter; ok=false when missing.
	Get(ctx context.Context, key string) (uint64, bool, error)
	Set(ctx context.Context, key string, v uint64) error
	// Add writes v only if key is missing.
	Add(ctx context.Context, key string, v uint64) (bool, error)
	// Increment atomically adds one to an existing counter; ok=false when missing.
	Increment(ctx context.Context, key string) (uint64, bool, error)
	// Cleanup prunes old metadata if applicable (no-op for Redis).
	Cleanup(retention time.Duration)
	// Close releases resources (no-op ok).
	Close(context.Context) error
}
