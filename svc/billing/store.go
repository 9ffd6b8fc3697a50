package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists subscription records. Implementations must apply the
// Mark* transitions atomically at the point of write: the status change
// happens only if the current status is a legal predecessor of the target
// state, and the boolean result reports whether the write was applied.
// A false result is the idempotent no-op path, not an error. It is how
// duplicate webhook deliveries and overlapping sweeps stay safe without a
// global lock.
type Store interface {
	Create(ctx context.Context, sub *Subscription) error

	// FindByOrderID resolves the webhook idempotency key. Safe for
	// concurrent calls from the webhook path and retried deliveries.
	FindByOrderID(ctx context.Context, orderID string) (*Subscription, error)

	// FindLatestByUserID returns the user's most recently created
	// subscription, or ErrSubscriptionNotFound.
	FindLatestByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// MarkActive transitions pending/challenge→active and sets the
	// temporal fields in the same write.
	MarkActive(ctx context.Context, id uuid.UUID, start, end, paid time.Time) (bool, error)

	// MarkChallenge transitions pending→challenge.
	MarkChallenge(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkFailed transitions pending/challenge→failed.
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)

	// MarkExpired transitions active→expired.
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)

	// ExpireActiveExcept expires every active subscription of the user
	// other than keep, returning how many were expired. It backs the
	// one-active-subscription rule when concurrent checkouts settle.
	ExpireActiveExcept(ctx context.Context, userID uuid.UUID, keep uuid.UUID) (int64, error)

	// MarkReminded records that the reminder for the given day threshold
	// was sent. Applied only while active and only if the threshold
	// differs from the last one recorded, so a re-run sweep is a no-op.
	MarkReminded(ctx context.Context, id uuid.UUID, days int) (bool, error)

	// ListActiveEndedBefore returns active subscriptions whose end date is
	// strictly before t.
	ListActiveEndedBefore(ctx context.Context, t time.Time) ([]Subscription, error)

	// ListActiveEndingWithin returns active subscriptions whose end date
	// falls in (from, to].
	ListActiveEndingWithin(ctx context.Context, from, to time.Time) ([]Subscription, error)
}
