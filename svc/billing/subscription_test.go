package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := []struct{ from, to Status }{
		{StatusPending, StatusActive},
		{StatusPending, StatusChallenge},
		{StatusPending, StatusFailed},
		{StatusChallenge, StatusActive},
		{StatusChallenge, StatusFailed},
		{StatusActive, StatusExpired},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	forbidden := []struct{ from, to Status }{
		{StatusActive, StatusPending},
		{StatusActive, StatusFailed},
		{StatusActive, StatusChallenge},
		{StatusFailed, StatusActive},
		{StatusFailed, StatusPending},
		{StatusExpired, StatusActive},
		{StatusExpired, StatusPending},
		{StatusChallenge, StatusPending},
		{StatusPending, StatusExpired},
		{StatusChallenge, StatusExpired},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be forbidden", tc.from, tc.to)
	}
}

func TestPredecessors(t *testing.T) {
	t.Parallel()

	assert.ElementsMatch(t, []Status{StatusPending, StatusChallenge}, Predecessors(StatusActive))
	assert.ElementsMatch(t, []Status{StatusPending, StatusChallenge}, Predecessors(StatusFailed))
	assert.ElementsMatch(t, []Status{StatusPending}, Predecessors(StatusChallenge))
	assert.ElementsMatch(t, []Status{StatusActive}, Predecessors(StatusExpired))
	assert.Empty(t, Predecessors(StatusPending))
}

func TestStatusTerminal(t *testing.T) {
	t.Parallel()

	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusChallenge.Terminal())
	assert.False(t, StatusActive.Terminal())
}

func TestDaysUntilExpiryAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		ts := now.Add(d)
		return &ts
	}

	tests := []struct {
		name string
		end  *time.Time
		want int
	}{
		{"no end date", nil, 0},
		{"already past", at(-time.Hour), 0},
		{"exactly now", at(0), 0},
		{"one second left", at(time.Second), 1},
		{"exactly three days", at(3 * 24 * time.Hour), 3},
		{"partial day rounds up", at(6*24*time.Hour + 2*time.Hour), 7},
		{"exactly seven days", at(7 * 24 * time.Hour), 7},
		{"just under seven days", at(7*24*time.Hour - time.Minute), 7},
		{"just over seven days", at(7*24*time.Hour + time.Minute), 8},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			sub := &Subscription{EndDate: tc.end}
			assert.Equal(t, tc.want, sub.DaysUntilExpiryAt(now))
		})
	}
}
