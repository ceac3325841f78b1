package backend

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// CounterSuffix ends every group counter key. Entry keys never end with it.
const CounterSuffix = "_version"

// IsCounterKey reports whether key holds a group counter.
func IsCounterKey(key string) bool { return strings.HasSuffix(key, CounterSuffix) }

// FormatCounter renders a counter the way memcached and redis store integers.
func FormatCounter(v uint64) []byte {
	return strconv.AppendUint(nil, v, 10)
}

// ParseCounter parses a decimal counter written by FormatCounter or a native incr.
func ParseCounter(b []byte) (uint64, error) {
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("backend: counter parse: %w", err)
	}
	return v, nil
}

const lockStripes = 64

// KeyLocks is a striped mutex used by in-process adapters to make
// Add and Increment atomic within the process.
type KeyLocks struct {
	mu [lockStripes]sync.Mutex
}

func (l *KeyLocks) For(key string) *sync.Mutex {
	return &l.mu[xxhash.Sum64String(key)%lockStripes]
}
