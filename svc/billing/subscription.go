package billing

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Status is a subscription lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusChallenge Status = "challenge"
	StatusActive    Status = "active"
	StatusFailed    Status = "failed"
	StatusExpired   Status = "expired"
)

// transitions is the full state machine. Every write that changes a
// subscription's status goes through a guard derived from this table, so
// invalid transitions have a single choke point instead of scattered
// conditionals.
var transitions = map[Status][]Status{
	StatusPending:   {StatusActive, StatusChallenge, StatusFailed},
	StatusChallenge: {StatusActive, StatusFailed},
	StatusActive:    {StatusExpired},
}

// CanTransition reports whether from→to is a legal state change.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Predecessors returns the states from which `to` is reachable. Stores use
// this as the atomic write guard: "transition only if the current status is
// an expected predecessor".
func Predecessors(to Status) []Status {
	var from []Status
	for s, targets := range transitions {
		if slices.Contains(targets, to) {
			from = append(from, s)
		}
	}
	return from
}

// Terminal reports whether no further transition may be applied.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusExpired
}

// Subscription is a paid subscription record. Created in pending by the
// checkout step, mutated only by the webhook reconciliation path
// (pending/challenge→active or →failed) and the expiration sweep
// (active→expired). Never deleted.
type Subscription struct {
	ID      uuid.UUID `json:"id"`
	UserID  uuid.UUID `json:"user_id"`
	Plan    Plan      `json:"plan"`
	Amount  int64     `json:"amount"`
	OrderID string    `json:"order_id"` // gateway order identifier, globally unique; the webhook idempotency key
	Status  Status    `json:"status"`

	// Temporal fields, nil until the record enters active. StartDate and
	// EndDate are always set together.
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`

	// ReminderDays is the last expiry-reminder threshold (7 or 3) sent for
	// this record, 0 if none. Prevents duplicate reminders when the daily
	// sweep runs more than once for the same threshold.
	ReminderDays int `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the subscription is currently active.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive
}

// DaysUntilExpiryAt returns the whole days remaining before EndDate,
// ceiling-rounded: 6 days 2 hours counts as 7. Returns 0 for records
// without an end date or already past it.
func (s *Subscription) DaysUntilExpiryAt(now time.Time) int {
	if s.EndDate == nil {
		return 0
	}
	remaining := s.EndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	days := int(remaining / (24 * time.Hour))
	if remaining%(24*time.Hour) > 0 {
		days++
	}
	return days
}
