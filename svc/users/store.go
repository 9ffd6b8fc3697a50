package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/kerjago/kerjago/svc/billing"
)

// Store persists user accounts. The plan accessors double as the
// entitlement API the billing service works against.
type Store interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	GetPlan(ctx context.Context, userID uuid.UUID) (billing.Plan, error)
	SetPlan(ctx context.Context, userID uuid.UUID, plan billing.Plan) error
	GetEmail(ctx context.Context, userID uuid.UUID) (string, error)
}
