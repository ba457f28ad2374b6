// Package payment isolates every interaction with the remote payment
// provider: creating remote orders, fetching payments and signing callbacks.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Remote payment statuses reported by the provider.
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
)

type RemoteOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
	Status   string `json:"status,omitempty"`
}

type RemotePayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Method   string `json:"method"`
}

// Successful reports whether the payment has been authorized or captured.
func (p RemotePayment) Successful() bool {
	return p.Status == StatusCaptured || p.Status == StatusAuthorized
}

// Gateway is the remote provider. Implementations return *domain.GatewayError
// on transport failures and provider rejections.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*RemoteOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*RemotePayment, error)
}

// ToMinorUnits converts a major-unit amount (rupees) to the provider's minor
// units (paise), rounding to the nearest integer.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
