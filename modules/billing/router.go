package billing

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kerjago/kerjago/pkg/httpx"
	"github.com/kerjago/kerjago/pkg/logger"
	"github.com/kerjago/kerjago/pkg/token"
	billingsvc "github.com/kerjago/kerjago/svc/billing"
)

// RouterOptions configures the billing HTTP module.
type RouterOptions struct {
	Service *billingsvc.Service
	// Auth guards the user-facing routes. The webhook route is
	// authenticated by payload verification at the service layer, never by
	// a user token.
	Auth   func(http.Handler) http.Handler
	Logger *slog.Logger
}

// Router mounts the billing endpoints:
//
//	POST /webhook      gateway payment notifications (no user auth)
//	POST /checkout     open a checkout session for a plan
//	GET  /subscription current subscription of the caller
func Router(opts RouterOptions) chi.Router {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Post("/webhook", handleWebhook(opts.Service, log))

	r.Group(func(authed chi.Router) {
		authed.Use(opts.Auth)
		authed.Post("/checkout", handleCheckout(opts.Service))
		authed.Get("/subscription", handleSubscription(opts.Service))
	})

	return r
}

// handleWebhook maps reconciliation outcomes onto the status codes the
// gateway's retry policy keys off: 200 stops redelivery, 404 is a permanent
// rejection for unknown orders, 5xx requests a retry.
func handleWebhook(svc *billingsvc.Service, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev billingsvc.WebhookEvent
		if err := httpx.Decode(r, &ev); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid webhook payload")
			return
		}
		if ev.OrderID == "" {
			httpx.Error(w, http.StatusBadRequest, "order_id is required")
			return
		}

		if err := svc.HandleWebhook(r.Context(), ev); err != nil {
			if errors.Is(err, billingsvc.ErrSubscriptionNotFound) {
				httpx.Error(w, http.StatusNotFound, "unknown order")
				return
			}
			log.LogAttrs(r.Context(), slog.LevelError, "webhook processing failed",
				logger.OrderID(ev.OrderID), logger.Error(err))
			httpx.Error(w, http.StatusInternalServerError, "failed to process notification")
			return
		}

		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleCheckout(svc *billingsvc.Service) http.HandlerFunc {
	type request struct {
		Plan billingsvc.Plan `json:"plan"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req request
		if err := httpx.Decode(r, &req); err != nil {
			httpx.Error(w, http.StatusBadRequest, "invalid request body")
			return
		}

		session, err := svc.CreateTransaction(r.Context(), userID, req.Plan)
		if err != nil {
			switch {
			case errors.Is(err, billingsvc.ErrUnknownPlan):
				httpx.Error(w, http.StatusBadRequest, "unknown or non-purchasable plan")
			case errors.Is(err, billingsvc.ErrActiveSubscriptionExists):
				httpx.Error(w, http.StatusConflict, "an active subscription already exists")
			default:
				httpx.Error(w, http.StatusInternalServerError, "failed to create checkout session")
			}
			return
		}

		httpx.JSON(w, http.StatusCreated, session)
	}
}

func handleSubscription(svc *billingsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(r)
		if !ok {
			httpx.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		sub, err := svc.Subscription(r.Context(), userID)
		if err != nil {
			if errors.Is(err, billingsvc.ErrSubscriptionNotFound) {
				httpx.Error(w, http.StatusNotFound, "no subscription")
				return
			}
			httpx.Error(w, http.StatusInternalServerError, "failed to load subscription")
			return
		}

		httpx.JSON(w, http.StatusOK, sub)
	}
}

func callerID(r *http.Request) (uuid.UUID, bool) {
	raw, ok := token.UserID(r.Context())
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
