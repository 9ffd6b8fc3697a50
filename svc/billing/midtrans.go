package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

// MidtransConfig describes gateway settings loadable from the environment.
type MidtransConfig struct {
	ServerKey  string `env:"MIDTRANS_SERVER_KEY,required"`
	Production bool   `env:"MIDTRANS_PRODUCTION" envDefault:"false"`
}

// MidtransGateway creates Snap payment sessions.
type MidtransGateway struct {
	client snap.Client
}

// NewMidtransGateway creates a Snap-backed payment gateway.
func NewMidtransGateway(cfg MidtransConfig) (*MidtransGateway, error) {
	if cfg.ServerKey == "" {
		return nil, errors.New("midtrans server key is required")
	}

	env := midtrans.Sandbox
	if cfg.Production {
		env = midtrans.Production
	}

	g := &MidtransGateway{}
	g.client.New(cfg.ServerKey, env)
	return g, nil
}

// CreateTransaction requests a Snap token for the order. The Snap API has
// no context support; cancellation is bounded by the client's own HTTP
// timeout.
func (g *MidtransGateway) CreateTransaction(_ context.Context, req ChargeRequest) (*PaymentToken, error) {
	resp, mErr := g.client.CreateTransaction(&snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.CustomerEmail,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:    string(req.Plan),
			Name:  fmt.Sprintf("%s plan (30 days)", req.Plan),
			Price: req.Amount,
			Qty:   1,
		}},
	})
	if mErr != nil {
		return nil, errors.Join(ErrGatewayFailed, mErr)
	}

	return &PaymentToken{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}
