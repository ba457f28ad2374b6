package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts go over the wire as JSON numbers, matching what the checkout client sends.
	decimal.MarshalJSONWithoutQuotes = true
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodUPI  PaymentMethod = "upi"
	PaymentMethodQR   PaymentMethod = "qr"
	PaymentMethodCard PaymentMethod = "card"
	PaymentMethodCOD  PaymentMethod = "cod"
)

// Valid reports whether m is one of the recognised payment methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodQR, PaymentMethodCard, PaymentMethodCOD:
		return true
	}
	return false
}

// UsesGateway reports whether orders paid with m go through the remote gateway.
func (m PaymentMethod) UsesGateway() bool {
	return m.Valid() && m != PaymentMethodCOD
}

// CODFee is the flat surcharge added to cash-on-delivery orders.
var CODFee = decimal.NewFromInt(20)

// FeeFor returns the surcharge for the given payment method.
func FeeFor(m PaymentMethod) decimal.Decimal {
	if m == PaymentMethodCOD {
		return CODFee
	}
	return decimal.Zero
}

type BillingAddress struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Address   string `json:"address" validate:"required"`
	City      string `json:"city" validate:"required"`
	Pincode   string `json:"pincode" validate:"required,len=6"`
}

type OrderItem struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"orderId"`
	Name     string          `json:"name"`
	Variant  *string         `json:"variant"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	ImageURL *string         `json:"imageUrl"`
}

// Order is one checkout attempt. BillingAddress holds the serialized address
// exactly as it was captured at creation.
type Order struct {
	ID               string          `json:"id"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	GatewayOrderID   *string         `json:"razorpayOrderId"`
	GatewayPaymentID *string         `json:"razorpayPaymentId"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	CODFee           decimal.Decimal `json:"codFee"`
	Total            decimal.Decimal `json:"total"`
	BillingAddress   string          `json:"billingAddress"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// OrderUpdate is a partial update; nil fields are left untouched.
type OrderUpdate struct {
	Status           *OrderStatus
	PaymentStatus    *PaymentStatus
	GatewayOrderID   *string
	GatewayPaymentID *string
}

// Apply copies the non-nil fields of u onto o.
func (u OrderUpdate) Apply(o *Order) {
	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.GatewayOrderID != nil {
		id := *u.GatewayOrderID
		o.GatewayOrderID = &id
	}
	if u.GatewayPaymentID != nil {
		id := *u.GatewayPaymentID
		o.GatewayPaymentID = &id
	}
}

// OrderDetails is an Order joined with its items and its decoded billing address.
type OrderDetails struct {
	ID               string          `json:"id"`
	Status           OrderStatus     `json:"status"`
	PaymentMethod    PaymentMethod   `json:"paymentMethod"`
	PaymentStatus    PaymentStatus   `json:"paymentStatus"`
	GatewayOrderID   *string         `json:"razorpayOrderId"`
	GatewayPaymentID *string         `json:"razorpayPaymentId"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	Tax              decimal.Decimal `json:"tax"`
	CODFee           decimal.Decimal `json:"codFee"`
	Total            decimal.Decimal `json:"total"`
	BillingAddress   BillingAddress  `json:"billingAddress"`
	Items            []OrderItem     `json:"items"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// OrderStatusView is the slim projection served to polling clients.
type OrderStatusView struct {
	ID            string        `json:"id"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func (o *Order) StatusView() OrderStatusView {
	return OrderStatusView{
		ID:            o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		UpdatedAt:     o.UpdatedAt,
	}
}
