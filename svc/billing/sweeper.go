package billing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/pkg/metrics"
	"github.com/kerjago/kerjago/svc/notify"
)

// reminderThresholds are the only days-remaining values that trigger an
// expiry reminder. A subscription seen at 6 or 2 days gets nothing; the
// reminder for that window was either already sent or skipped for good.
var reminderThresholds = [...]int{7, 3}

// Sweeper runs the scheduled subscription maintenance: expiring overdue
// records and sending expiry reminders. Each record is handled in
// isolation so one bad record never stalls the rest of the sweep, and all
// writes go through the store's guarded transitions so overlapping runs
// are safe.
type Sweeper struct {
	store    Store
	users    UserDirectory
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperLogger sets the sweeper logger.
func WithSweeperLogger(l *slog.Logger) SweeperOption {
	return func(s *Sweeper) { s.logger = l }
}

// WithSweeperClock overrides the time source. Test hook.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) { s.now = now }
}

// NewSweeper creates the subscription sweeper.
func NewSweeper(store Store, users UserDirectory, notifier Notifier, opts ...SweeperOption) *Sweeper {
	s := &Sweeper{
		store:    store,
		users:    users,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExpireOverdue expires every active subscription whose end date has
// passed. Intended to run hourly.
func (s *Sweeper) ExpireOverdue(ctx context.Context) (int, error) {
	return s.ExpireOverdueAt(ctx, s.now().UTC())
}

// ExpireOverdueAt is ExpireOverdue at an explicit instant.
//
// The downgrade to free is written before the status flip. If the
// downgrade fails the record stays active and the next run retries; if the
// status flip fails after a successful downgrade, the user is already on
// free and the retry's downgrade is a harmless overwrite. Either failure
// order converges on the free plan.
func (s *Sweeper) ExpireOverdueAt(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.store.ListActiveEndedBefore(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range overdue {
		if err := s.users.SetPlan(ctx, sub.UserID, PlanFree); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to downgrade expired user",
				logger.SubscriptionID(sub.ID), logger.UserID(sub.UserID), logger.Error(err))
			continue
		}

		applied, err := s.store.MarkExpired(ctx, sub.ID)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to mark subscription expired",
				logger.SubscriptionID(sub.ID), logger.Error(err))
			continue
		}
		if !applied {
			continue
		}

		expired++
		metrics.SubscriptionsExpired.Inc()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "subscription expired",
			logger.SubscriptionID(sub.ID), logger.UserID(sub.UserID), logger.Plan(sub.Plan))

		if err := s.notifier.Send(ctx, notify.Notification{
			UserID:    sub.UserID.String(),
			Type:      notify.TypeSubscriptionExpired,
			Message:   fmt.Sprintf("Your %s subscription has expired. Your account is back on the free plan.", sub.Plan),
			RelatedID: sub.ID.String(),
		}); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send expiry notification",
				logger.SubscriptionID(sub.ID), logger.Error(err))
		}
	}

	return expired, nil
}

// RemindExpiring notifies users whose subscription expires in exactly 7 or
// 3 whole days, counting partial days up. Intended to run daily.
func (s *Sweeper) RemindExpiring(ctx context.Context) (int, error) {
	return s.RemindExpiringAt(ctx, s.now().UTC())
}

// RemindExpiringAt is RemindExpiring at an explicit instant. The guarded
// MarkReminded write dedupes repeated runs within the same threshold.
func (s *Sweeper) RemindExpiringAt(ctx context.Context, now time.Time) (int, error) {
	ending, err := s.store.ListActiveEndingWithin(ctx, now, now.Add(7*24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}

	sent := 0
	for _, sub := range ending {
		days := sub.DaysUntilExpiryAt(now)
		if !isReminderDay(days) {
			continue
		}

		applied, err := s.store.MarkReminded(ctx, sub.ID, days)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelError, "failed to record reminder",
				logger.SubscriptionID(sub.ID), logger.Error(err))
			continue
		}
		if !applied {
			continue
		}

		sent++
		metrics.RemindersSent.WithLabelValues(strconv.Itoa(days)).Inc()

		if err := s.notifier.Send(ctx, notify.Notification{
			UserID:    sub.UserID.String(),
			Type:      notify.TypeSubscriptionExpiring,
			Message:   fmt.Sprintf("Your %s subscription expires in %d days. Renew to keep your job postings live.", sub.Plan, days),
			RelatedID: sub.ID.String(),
		}); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send expiry reminder",
				logger.SubscriptionID(sub.ID), logger.Error(err))
		}
	}

	return sent, nil
}

func isReminderDay(days int) bool {
	for _, t := range reminderThresholds {
		if days == t {
			return true
		}
	}
	return false
}
