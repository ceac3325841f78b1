package vercache

import "time"

const (
	// BaselineVersion is the version of a group that was never invalidated.
	BaselineVersion uint64 = 1

	defaultTTL       = 300 * time.Second
	defaultMaxKeyLen = 250 // memcached key limit
)

// coalesce returns def when v is the zero value of T - otherwise v.
func coalesce[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
