package jobs

import (
	"errors"
	"fmt"

	"github.com/kerjago/kerjago/svc/billing"
)

var (
	// ErrJobNotFound is returned when no job matches the lookup.
	ErrJobNotFound = errors.New("job not found")

	// ErrNotJobOwner is returned when an employer mutates a posting they
	// do not own.
	ErrNotJobOwner = errors.New("job belongs to another employer")
)

// LimitReachedError reports that an employer's plan does not allow another
// open posting of the given kind. Callers surface the plan and limit to
// the user so the upgrade path is obvious.
type LimitReachedError struct {
	Plan     billing.Plan
	Limit    int64
	Resource string // "jobs" or "featured jobs"
}

func (e *LimitReachedError) Error() string {
	return fmt.Sprintf("%s plan allows at most %d open %s", e.Plan, e.Limit, e.Resource)
}
