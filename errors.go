package vercache

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/vercache/backend"
)

var (
	// ErrInvalidArgument marks malformed groups or keys. Always returned synchronously.
	ErrInvalidArgument = errors.New("vercache: invalid argument")
	// ErrUnavailable is the backend sentinel re-exported for callers of New.
	ErrUnavailable = backend.ErrUnavailable

	errCounterLost = errors.New("version counter disappeared during increment")
)

func invalidArg(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}

// InvalidateError reports a group bump that did not happen. Callers should treat
// the group as possibly stale until a retry succeeds.
type InvalidateError struct {
	Group   string
	SeedErr error // reading or seeding the counter failed
	IncrErr error // the increment itself failed
}

func (e *InvalidateError) Error() string {
	switch {
	case e.SeedErr != nil && e.IncrErr != nil:
		return fmt.Sprintf("invalidate group %q failed: seed and increment failed: seed=%v; incr=%v",
			e.Group, e.SeedErr, e.IncrErr)
	case e.SeedErr != nil:
		return fmt.Sprintf("invalidate group %q: version seed failed: %v", e.Group, e.SeedErr)
	case e.IncrErr != nil:
		return fmt.Sprintf("invalidate group %q: increment failed: %v", e.Group, e.IncrErr)
	default:
		return fmt.Sprintf("invalidate group %q: unknown error", e.Group)
	}
}

func (e *InvalidateError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.SeedErr != nil {
		errs = append(errs, e.SeedErr)
	}
	if e.IncrErr != nil {
		errs = append(errs, e.IncrErr)
	}
	return errs
}
