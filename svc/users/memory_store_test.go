package users

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjago/kerjago/svc/billing"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("create defaults to free plan", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()

		user := &User{ID: uuid.New(), Email: "a@example.id", Name: "Aulia"}
		require.NoError(t, store.Create(ctx, user))

		got, err := store.Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.PlanFree, got.Plan)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()

		require.NoError(t, store.Create(ctx, &User{ID: uuid.New(), Email: "a@example.id"}))
		err := store.Create(ctx, &User{ID: uuid.New(), Email: "a@example.id"})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("plan round trip", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		id := uuid.New()
		require.NoError(t, store.Create(ctx, &User{ID: id, Email: "b@example.id"}))

		require.NoError(t, store.SetPlan(ctx, id, billing.PlanPremium))
		plan, err := store.GetPlan(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, billing.PlanPremium, plan)

		// Idempotent overwrite.
		require.NoError(t, store.SetPlan(ctx, id, billing.PlanPremium))

		email, err := store.GetEmail(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "b@example.id", email)
	})

	t.Run("missing user", func(t *testing.T) {
		t.Parallel()
		store := NewMemoryStore()
		missing := uuid.New()

		_, err := store.Get(ctx, missing)
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = store.GetPlan(ctx, missing)
		assert.ErrorIs(t, err, ErrUserNotFound)
		_, err = store.GetEmail(ctx, missing)
		assert.ErrorIs(t, err, ErrUserNotFound)
		assert.ErrorIs(t, store.SetPlan(ctx, missing, billing.PlanBasic), ErrUserNotFound)

		_, err = store.GetByEmail(ctx, "nobody@example.id")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}
