package billing

import "errors"

var (
	// ErrUnknownPlan is returned when a checkout names an unrecognized or
	// non-purchasable plan tier.
	ErrUnknownPlan = errors.New("unknown or non-purchasable plan")

	// ErrSubscriptionNotFound is returned when no subscription matches the
	// lookup. For webhook deliveries this maps to a permanent rejection.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrActiveSubscriptionExists is returned when a checkout is attempted
	// while the user already holds an active subscription.
	ErrActiveSubscriptionExists = errors.New("an active subscription already exists")

	// ErrGatewayFailed wraps payment gateway request failures.
	ErrGatewayFailed = errors.New("payment gateway request failed")

	// ErrEntitlementUpdateFailed wraps a failed user plan write after the
	// subscription state change committed. Surfaced so the gateway retries
	// and the repair path converges the entitlement.
	ErrEntitlementUpdateFailed = errors.New("failed to update user entitlement")
)
