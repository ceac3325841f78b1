package vercache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking; wrap slow sinks with hooks/async.
type Hooks interface {
	// A missing group counter was written at BaselineVersion by this process.
	VersionSeeded(group string)

	// A group version was bumped; every key issued before is now orphaned.
	GroupInvalidated(group string, newVersion uint64)

	// An entry was deleted on read.
	// reason ∈ {"corrupt", "version_mismatch", "value_decode"}
	SelfHeal(storageKey, reason string)

	// A backend call failed and was served as a miss/no-op.
	// op ∈ {"version", "get", "set", "delete", "exists", "invalidate", "flush"}
	BackendError(op string, err error)

	// Backend returned ok=false on Set (backpressure/eviction/oversize).
	SetRejected(storageKey string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) VersionSeeded(string)            {}
func (NopHooks) GroupInvalidated(string, uint64) {}
func (NopHooks) SelfHeal(string, string)         {}
func (NopHooks) BackendError(string, error)      {}
func (NopHooks) SetRejected(string)              {}
