package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/kerjago/kerjago/svc/billing"
)

// User is an employer account. Plan is the entitlement read on every
// limit check; it is written only by the billing reconciliation and
// expiration paths, never directly by the user.
type User struct {
	ID        uuid.UUID    `json:"id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Company   string       `json:"company,omitempty"`
	Plan      billing.Plan `json:"plan"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
