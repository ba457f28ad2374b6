package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

// FakeGateway is an in-process stand-in for the provider, used in tests and
// when the service runs with PAYMENT_GATEWAY=fake.
type FakeGateway struct {
	mu       sync.RWMutex
	orders   map[string]RemoteOrder
	payments map[string]RemotePayment

	// CreateErr and FetchErr, when set, are returned wrapped in a GatewayError.
	CreateErr error
	FetchErr  error
}

func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		orders:   make(map[string]RemoteOrder),
		payments: make(map[string]RemotePayment),
	}
}

func (g *FakeGateway) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Op: "create order", Err: err}
	}
	if g.CreateErr != nil {
		return nil, &domain.GatewayError{Op: "create order", Err: g.CreateErr}
	}

	order := RemoteOrder{
		ID:       "order_" + compactID(),
		Amount:   ToMinorUnits(amount),
		Currency: currency,
		Status:   StatusCreated,
	}

	g.mu.Lock()
	g.orders[order.ID] = order
	g.mu.Unlock()

	return &order, nil
}

func (g *FakeGateway) FetchPayment(ctx context.Context, paymentID string) (*RemotePayment, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.GatewayError{Op: "fetch payment", Err: err}
	}
	if g.FetchErr != nil {
		return nil, &domain.GatewayError{Op: "fetch payment", Err: g.FetchErr}
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.payments[paymentID]
	if !ok {
		return nil, &domain.GatewayError{Op: "fetch payment", StatusCode: 400, Err: fmt.Errorf("payment %s does not exist", paymentID)}
	}
	return &p, nil
}

// RecordPayment simulates the customer paying a remote order and returns the
// resulting payment with the given status.
func (g *FakeGateway) RecordPayment(remoteOrderID, method, status string) (RemotePayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, ok := g.orders[remoteOrderID]
	if !ok {
		return RemotePayment{}, errors.New("unknown remote order " + remoteOrderID)
	}

	p := RemotePayment{
		ID:       "pay_" + compactID(),
		OrderID:  order.ID,
		Status:   status,
		Amount:   order.Amount,
		Currency: order.Currency,
		Method:   method,
	}
	g.payments[p.ID] = p
	return p, nil
}

// Order returns a remote order previously created through the fake.
func (g *FakeGateway) Order(id string) (RemoteOrder, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	o, ok := g.orders[id]
	return o, ok
}

func compactID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:7])
}
