package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kerjago/kerjago/svc/notify"
)

type sweeperFixture struct {
	sweeper  *Sweeper
	store    *MemoryStore
	users    *fakeUsers
	notifier *recordingNotifier
	now      time.Time
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()

	f := &sweeperFixture{
		store:    NewMemoryStore(),
		users:    newFakeUsers(),
		notifier: &recordingNotifier{},
		now:      time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
	}
	f.sweeper = NewSweeper(f.store, f.users, f.notifier,
		WithSweeperClock(func() time.Time { return f.now }))
	return f
}

// activeSub creates an activated subscription ending at the given time and
// grants the user the matching plan, mirroring a completed payment.
func (f *sweeperFixture) activeSub(t *testing.T, plan Plan, end time.Time) *Subscription {
	t.Helper()

	userID := uuid.New()
	f.users.mu.Lock()
	f.users.plans[userID] = plan
	f.users.mu.Unlock()

	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      plan,
		OrderID:   "KJG-" + uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: f.now.Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, f.store.Create(context.Background(), sub))

	applied, err := f.store.MarkActive(context.Background(), sub.ID, end.AddDate(0, 0, -30), end, end.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.True(t, applied)
	return sub
}

func TestExpireOverdue(t *testing.T) {
	t.Parallel()
	f := newSweeperFixture(t)

	overdue := f.activeSub(t, PlanPremium, f.now.Add(-2*time.Hour))
	current := f.activeSub(t, PlanBasic, f.now.Add(10*24*time.Hour))

	n, err := f.sweeper.ExpireOverdueAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.store.FindByOrderID(context.Background(), overdue.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.Status)

	plan, err := f.users.GetPlan(context.Background(), overdue.UserID)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, plan)

	// The current subscription is untouched.
	got, err = f.store.FindByOrderID(context.Background(), current.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)
	plan, err = f.users.GetPlan(context.Background(), current.UserID)
	require.NoError(t, err)
	assert.Equal(t, PlanBasic, plan)

	expiredNotifs := f.notifier.ofType(notify.TypeSubscriptionExpired)
	require.Len(t, expiredNotifs, 1)
	assert.Equal(t, overdue.UserID.String(), expiredNotifs[0].UserID)

	// A second sweep finds nothing to expire and sends nothing.
	n, err = f.sweeper.ExpireOverdueAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.ofType(notify.TypeSubscriptionExpired), 1)
}

func TestExpireOverdue_DowngradeFailureRetries(t *testing.T) {
	t.Parallel()
	f := newSweeperFixture(t)

	overdue := f.activeSub(t, PlanPremium, f.now.Add(-time.Hour))
	f.users.failSetPlan = 1

	// The downgrade fails, so the record must stay active for the next run.
	n, err := f.sweeper.ExpireOverdueAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := f.store.FindByOrderID(context.Background(), overdue.OrderID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.Status)

	n, err = f.sweeper.ExpireOverdueAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	plan, err := f.users.GetPlan(context.Background(), overdue.UserID)
	require.NoError(t, err)
	assert.Equal(t, PlanFree, plan)
}

func TestRemindExpiring(t *testing.T) {
	t.Parallel()
	f := newSweeperFixture(t)

	atSeven := f.activeSub(t, PlanBasic, f.now.Add(7*24*time.Hour))
	atThree := f.activeSub(t, PlanPremium, f.now.Add(3*24*time.Hour-time.Hour))
	atFive := f.activeSub(t, PlanBasic, f.now.Add(5*24*time.Hour))

	n, err := f.sweeper.RemindExpiringAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	reminders := f.notifier.ofType(notify.TypeSubscriptionExpiring)
	require.Len(t, reminders, 2)

	reminded := map[string]bool{}
	for _, r := range reminders {
		reminded[r.UserID] = true
	}
	assert.True(t, reminded[atSeven.UserID.String()])
	assert.True(t, reminded[atThree.UserID.String()])
	assert.False(t, reminded[atFive.UserID.String()], "5 days out is not a reminder threshold")

	// Re-running the sweep the same day sends nothing new.
	n, err = f.sweeper.RemindExpiringAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, f.notifier.ofType(notify.TypeSubscriptionExpiring), 2)
}

func TestRemindExpiring_SecondThresholdStillFires(t *testing.T) {
	t.Parallel()
	f := newSweeperFixture(t)

	sub := f.activeSub(t, PlanBasic, f.now.Add(7*24*time.Hour))

	n, err := f.sweeper.RemindExpiringAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Four days later the subscription crosses the 3-day threshold; the
	// earlier 7-day marker must not suppress this one.
	later := f.now.Add(4 * 24 * time.Hour)
	n, err = f.sweeper.RemindExpiringAt(context.Background(), later)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reminders := f.notifier.ofType(notify.TypeSubscriptionExpiring)
	require.Len(t, reminders, 2)
	assert.Equal(t, sub.UserID.String(), reminders[0].UserID)
	assert.Equal(t, sub.UserID.String(), reminders[1].UserID)
}

func TestRemindExpiring_CeilingRounding(t *testing.T) {
	t.Parallel()
	f := newSweeperFixture(t)

	// 6 days and 2 hours remaining rounds up to 7 and fires the reminder.
	f.activeSub(t, PlanBasic, f.now.Add(6*24*time.Hour+2*time.Hour))

	n, err := f.sweeper.RemindExpiringAt(context.Background(), f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
