package billing

import "context"

// ChargeRequest describes a payment the gateway should collect.
type ChargeRequest struct {
	OrderID       string
	Amount        int64 // whole IDR
	Plan          Plan
	CustomerEmail string
}

// PaymentToken is the handle the client uses to complete payment.
type PaymentToken struct {
	Token       string
	RedirectURL string
}

// PaymentGateway creates payment sessions with the external provider. The
// provider reports the payment outcome asynchronously through the webhook
// endpoint, never through this interface.
type PaymentGateway interface {
	CreateTransaction(ctx context.Context, req ChargeRequest) (*PaymentToken, error)
}
