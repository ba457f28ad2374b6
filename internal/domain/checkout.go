package domain

import "github.com/shopspring/decimal"

type LineItem struct {
	Name     string          `json:"name"`
	Variant  string          `json:"variant,omitempty"`
	Quantity int             `json:"quantity" validate:"gte=1,lte=2147483647"`
	Price    decimal.Decimal `json:"price" validate:"gte=0,lte=99999999.99"`
	ImageURL string          `json:"imageUrl,omitempty"`
}

// CreateOrderInput is everything the checkout client submits to open an order.
type CreateOrderInput struct {
	PaymentMethod  PaymentMethod   `json:"paymentMethod" validate:"required,oneof=upi qr card cod"`
	BillingAddress BillingAddress  `json:"billingAddress"`
	Items          []LineItem      `json:"items" validate:"required,min=1,dive"`
	Subtotal       decimal.Decimal `json:"subtotal" validate:"gte=0,lte=99999999.99"`
	Tax            decimal.Decimal `json:"tax" validate:"gte=0,lte=99999999.99"`
}

// Total is what the order will charge: subtotal, tax and the method's fee.
func (in CreateOrderInput) Total() decimal.Decimal {
	return in.Subtotal.Add(in.Tax).Add(FeeFor(in.PaymentMethod))
}

// CheckoutSession is the client-held state of one checkout: the cart, the
// captured billing address and the selected payment method. It is passed
// explicitly through the flow instead of living in ambient storage.
type CheckoutSession struct {
	Cart           []LineItem
	BillingAddress BillingAddress
	PaymentMethod  PaymentMethod
	TaxRate        decimal.Decimal
}

// Subtotal sums price x quantity over the cart.
func (s CheckoutSession) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Cart {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// Tax applies TaxRate to the subtotal, rounded to whole currency units as the
// storefront displays it.
func (s CheckoutSession) Tax() decimal.Decimal {
	return s.Subtotal().Mul(s.TaxRate).Round(0)
}

func (s CheckoutSession) Input() CreateOrderInput {
	items := make([]LineItem, len(s.Cart))
	copy(items, s.Cart)
	return CreateOrderInput{
		PaymentMethod:  s.PaymentMethod,
		BillingAddress: s.BillingAddress,
		Items:          items,
		Subtotal:       s.Subtotal(),
		Tax:            s.Tax(),
	}
}
