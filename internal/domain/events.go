package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderCreated     EventType = "order.created"
	EventPaymentCompleted EventType = "order.payment_completed"
	EventCODConfirmed     EventType = "order.cod_confirmed"
)

// OrderEvent is published after every lifecycle transition.
type OrderEvent struct {
	Type          EventType       `json:"type"`
	OrderID       string          `json:"order_id"`
	Status        OrderStatus     `json:"status"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewOrderEvent(t EventType, o *Order) OrderEvent {
	return OrderEvent{
		Type:          t,
		OrderID:       o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		Total:         o.Total,
		Timestamp:     o.UpdatedAt,
	}
}

// RoutingKey is the broker routing key / header value for the event.
func (e OrderEvent) RoutingKey() string {
	return string(e.Type)
}
