package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kerjago/kerjago/pkg/email"
	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/pkg/metrics"
	"github.com/kerjago/kerjago/svc/notify"
)

// UserDirectory is the billing view of the user service: the entitlement
// read/write pair plus the email lookup for payment receipts.
type UserDirectory interface {
	GetPlan(ctx context.Context, userID uuid.UUID) (Plan, error)
	SetPlan(ctx context.Context, userID uuid.UUID, plan Plan) error
	GetEmail(ctx context.Context, userID uuid.UUID) (string, error)
}

// Notifier sends a notification to a user. Satisfied by notify.Manager.
type Notifier interface {
	Send(ctx context.Context, notif notify.Notification) error
}

// WebhookEvent is the payment gateway's asynchronous status report for an
// order. TransactionStatus and FraudStatus carry the gateway's own
// vocabulary verbatim.
type WebhookEvent struct {
	OrderID           string `json:"order_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// CheckoutSession is what the client needs to complete a payment.
type CheckoutSession struct {
	OrderID     string `json:"order_id"`
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

// webhookTarget is the resolved intent of a webhook delivery.
type webhookTarget int

const (
	targetIgnore webhookTarget = iota
	targetNoop
	targetActivate
	targetChallenge
	targetFail
)

// resolveTarget maps the gateway's transaction/fraud status pair onto a
// state machine target. Unknown statuses resolve to targetIgnore so a new
// gateway status cannot corrupt a subscription.
func resolveTarget(ev WebhookEvent) webhookTarget {
	switch ev.TransactionStatus {
	case "capture":
		switch ev.FraudStatus {
		case "accept":
			return targetActivate
		case "challenge":
			return targetChallenge
		default:
			return targetIgnore
		}
	case "settlement":
		return targetActivate
	case "cancel", "deny", "expire":
		return targetFail
	case "pending":
		return targetNoop
	default:
		return targetIgnore
	}
}

// Service owns the subscription lifecycle: checkout session creation,
// webhook reconciliation, and the entitlement writes that follow a state
// change. All side effects beyond the store and entitlement writes are
// best-effort and bounded by sideEffectTimeout.
type Service struct {
	store    Store
	users    UserDirectory
	gateway  PaymentGateway
	notifier Notifier
	mailer   email.EmailSender
	logger   *slog.Logger

	sideEffectTimeout time.Duration
	now               func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithMailer enables payment confirmation emails.
func WithMailer(m email.EmailSender) ServiceOption {
	return func(s *Service) { s.mailer = m }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithSideEffectTimeout bounds notification and email side effects.
func WithSideEffectTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.sideEffectTimeout = d }
}

// NewService creates the billing service.
func NewService(store Store, users UserDirectory, gateway PaymentGateway, notifier Notifier, opts ...ServiceOption) *Service {
	s := &Service{
		store:             store,
		users:             users,
		gateway:           gateway,
		notifier:          notifier,
		logger:            slog.Default(),
		sideEffectTimeout: 5 * time.Second,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction opens a checkout session for the given plan. The
// subscription record is created in pending before the gateway call, so a
// webhook can never reference an order this service does not know.
func (s *Service) CreateTransaction(ctx context.Context, userID uuid.UUID, plan Plan) (*CheckoutSession, error) {
	spec, ok := LookupPlan(plan)
	if !ok || !spec.Purchasable() {
		return nil, ErrUnknownPlan
	}

	// One active subscription per user; a renewal goes through checkout
	// only after the current one expires.
	if latest, err := s.store.FindLatestByUserID(ctx, userID); err == nil {
		if latest.IsActive() {
			return nil, ErrActiveSubscriptionExists
		}
	} else if !errors.Is(err, ErrSubscriptionNotFound) {
		return nil, err
	}

	customerEmail, err := s.users.GetEmail(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve customer email: %w", err)
	}

	now := s.now().UTC()
	sub := &Subscription{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      plan,
		Amount:    spec.PriceIDR,
		OrderID:   "KJG-" + uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	token, err := s.gateway.CreateTransaction(ctx, ChargeRequest{
		OrderID:       sub.OrderID,
		Amount:        sub.Amount,
		Plan:          sub.Plan,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return nil, err
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "checkout session created",
		logger.UserID(userID),
		logger.OrderID(sub.OrderID),
		logger.Plan(plan),
	)

	return &CheckoutSession{
		OrderID:     sub.OrderID,
		Token:       token.Token,
		RedirectURL: token.RedirectURL,
	}, nil
}

// HandleWebhook reconciles one gateway delivery against the subscription
// state machine. Deliveries are processed under at-least-once semantics:
// redelivery of an already-applied status is a logged no-op, and an error
// return tells the gateway to retry.
func (s *Service) HandleWebhook(ctx context.Context, ev WebhookEvent) error {
	sub, err := s.store.FindByOrderID(ctx, ev.OrderID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			metrics.WebhookEvents.WithLabelValues("unknown_order").Inc()
		}
		return err
	}

	switch resolveTarget(ev) {
	case targetActivate:
		return s.activate(ctx, sub)

	case targetChallenge:
		applied, err := s.store.MarkChallenge(ctx, sub.ID)
		if err != nil {
			return err
		}
		if !applied {
			s.logNoop(ctx, sub, ev)
			return nil
		}
		metrics.WebhookEvents.WithLabelValues("challenge").Inc()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "payment held for fraud review",
			logger.SubscriptionID(sub.ID), logger.OrderID(ev.OrderID))
		return nil

	case targetFail:
		applied, err := s.store.MarkFailed(ctx, sub.ID)
		if err != nil {
			return err
		}
		if !applied {
			s.logNoop(ctx, sub, ev)
			return nil
		}
		metrics.WebhookEvents.WithLabelValues("failed").Inc()
		s.logger.LogAttrs(ctx, slog.LevelInfo, "payment failed",
			logger.SubscriptionID(sub.ID),
			logger.OrderID(ev.OrderID),
			slog.String("transaction_status", ev.TransactionStatus),
		)
		return nil

	case targetNoop:
		metrics.WebhookEvents.WithLabelValues("noop").Inc()
		return nil

	default:
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		s.logger.LogAttrs(ctx, slog.LevelWarn, "ignoring webhook with unrecognized status",
			logger.OrderID(ev.OrderID),
			slog.String("transaction_status", ev.TransactionStatus),
			slog.String("fraud_status", ev.FraudStatus),
		)
		return nil
	}
}

// activate applies the pending/challenge→active transition and, exactly
// once per subscription, the entitlement write and the user-facing side
// effects. The subscription write is the commit point: if the entitlement
// write fails afterwards, the error return makes the gateway redeliver and
// the repair branch below converges the plan.
func (s *Service) activate(ctx context.Context, sub *Subscription) error {
	spec, ok := LookupPlan(sub.Plan)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, sub.Plan)
	}

	now := s.now().UTC()
	end := now.AddDate(0, 0, spec.DurationDays)

	applied, err := s.store.MarkActive(ctx, sub.ID, now, end, now)
	if err != nil {
		return err
	}

	if !applied {
		metrics.WebhookEvents.WithLabelValues("noop").Inc()
		return s.repairEntitlement(ctx, sub.OrderID)
	}

	// A user may have opened several checkouts while nothing was active;
	// if more than one settles, the last activation wins and supersedes
	// the rest. Failing here makes the gateway redeliver, and the repair
	// branch finishes the supersede on the retry.
	if err := s.supersedeOthers(ctx, sub); err != nil {
		return err
	}

	if err := s.users.SetPlan(ctx, sub.UserID, sub.Plan); err != nil {
		return errors.Join(ErrEntitlementUpdateFailed, err)
	}

	metrics.WebhookEvents.WithLabelValues("activated").Inc()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "subscription activated",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		logger.Plan(sub.Plan),
		slog.Time("end_date", end),
	)

	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
	defer cancel()

	if err := s.notifier.Send(sideCtx, notify.Notification{
		UserID:    sub.UserID.String(),
		Type:      notify.TypeSubscriptionActive,
		Message:   fmt.Sprintf("Your %s subscription is now active until %s.", sub.Plan, end.Format("2 January 2006")),
		RelatedID: sub.ID.String(),
	}); err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send activation notification",
			logger.SubscriptionID(sub.ID), logger.Error(err))
	}

	s.sendConfirmationEmail(sideCtx, sub, end)

	return nil
}

// repairEntitlement handles the duplicate-activation path. The record has
// already left pending; if it sits in active but the user's plan does not
// match, a previous delivery committed the subscription and then lost the
// entitlement write, so redo just that write.
func (s *Service) repairEntitlement(ctx context.Context, orderID string) error {
	sub, err := s.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return err
	}
	if sub.Status != StatusActive {
		return nil
	}

	if err := s.supersedeOthers(ctx, sub); err != nil {
		return err
	}

	current, err := s.users.GetPlan(ctx, sub.UserID)
	if err != nil {
		return fmt.Errorf("failed to read user plan for repair: %w", err)
	}
	if current == sub.Plan {
		return nil
	}

	if err := s.users.SetPlan(ctx, sub.UserID, sub.Plan); err != nil {
		return errors.Join(ErrEntitlementUpdateFailed, err)
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "repaired user entitlement from duplicate delivery",
		logger.SubscriptionID(sub.ID),
		logger.UserID(sub.UserID),
		logger.Plan(sub.Plan),
	)
	return nil
}

// supersedeOthers expires any other active subscription the user holds, so
// that concurrent checkouts settling back to back leave exactly one active
// record. Superseded records are already off the sweep's notification path.
func (s *Service) supersedeOthers(ctx context.Context, sub *Subscription) error {
	n, err := s.store.ExpireActiveExcept(ctx, sub.UserID, sub.ID)
	if err != nil {
		return fmt.Errorf("failed to expire superseded subscriptions: %w", err)
	}
	if n > 0 {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "superseded previously active subscriptions",
			logger.SubscriptionID(sub.ID),
			logger.UserID(sub.UserID),
			slog.Int64("superseded", n),
		)
	}
	return nil
}

func (s *Service) sendConfirmationEmail(ctx context.Context, sub *Subscription, end time.Time) {
	if s.mailer == nil {
		return
	}

	addr, err := s.users.GetEmail(ctx, sub.UserID)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to resolve email for payment confirmation",
			logger.UserID(sub.UserID), logger.Error(err))
		return
	}

	err = s.mailer.SendEmail(ctx, email.SendEmailParams{
		SendTo:  addr,
		Subject: "Payment confirmed",
		BodyHTML: fmt.Sprintf(
			"<p>Your payment for the <strong>%s</strong> plan was received.</p><p>Order %s. Your subscription is active until %s.</p>",
			sub.Plan, sub.OrderID, end.Format("2 January 2006")),
		Tag: "payment-confirmation",
	})
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to send payment confirmation email",
			logger.UserID(sub.UserID), logger.Error(err))
	}
}

func (s *Service) logNoop(ctx context.Context, sub *Subscription, ev WebhookEvent) {
	metrics.WebhookEvents.WithLabelValues("noop").Inc()
	s.logger.LogAttrs(ctx, slog.LevelInfo, "webhook delivery did not change subscription state",
		logger.SubscriptionID(sub.ID),
		logger.OrderID(ev.OrderID),
		slog.String("transaction_status", ev.TransactionStatus),
	)
}

// Subscription returns the user's most recent subscription record.
func (s *Service) Subscription(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	return s.store.FindLatestByUserID(ctx, userID)
}
