// Package vercache implements group-versioned cache keys over a pluggable byte
// store. Every group owns one integer counter; the counter value is embedded in
// each key of the group, so bumping it invalidates the whole group in O(1).
// Old entries are never deleted, they become unreachable and expire by TTL.
//
// Components:
//   - Backend: byte store with TTL (freecache, bigcache, ristretto, memcached, redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - VersionStore: where group counters live. The backend itself by default;
//     genstore.Local or genstore.Redis when counters must be shared differently.
//
// Keys:
//
//	<group>_version            - the group counter
//	<group>_<version>_<key>    - entries
//	<group>_<version>          - the group-level key (allowEmpty)
//
// Pattern:
//
//	u, ok, _ := cache.Get(ctx, "users", "42")
//	if !ok {
//		u = loadUser(42)
//		_, _ = cache.Set(ctx, "users", "42", u, 0)
//	}
//	// after a write to the users table:
//	_, _ = cache.InvalidateGroup(ctx, "users")
package vercache
