package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCheckoutSession(t *testing.T) {
	session := CheckoutSession{
		Cart: []LineItem{
			{Name: "Desk Lamp", Quantity: 2, Price: decimal.NewFromInt(300)},
			{Name: "Notebook", Quantity: 1, Price: decimal.RequireFromString("399.50")},
		},
		BillingAddress: BillingAddress{FirstName: "Asha", LastName: "Rao", Address: "12 MG Road", City: "Bengaluru", Pincode: "560001"},
		PaymentMethod:  PaymentMethodUPI,
		TaxRate:        decimal.RequireFromString("0.18"),
	}

	if got := session.Subtotal(); !got.Equal(decimal.RequireFromString("999.50")) {
		t.Errorf("Subtotal() = %s, want 999.50", got)
	}
	// 999.50 * 0.18 = 179.91
	if got := session.Tax(); !got.Equal(decimal.NewFromInt(180)) {
		t.Errorf("Tax() = %s, want 180", got)
	}

	in := session.Input()
	if err := Validate(in); err != nil {
		t.Fatalf("session input should validate: %v", err)
	}
	if in.PaymentMethod != PaymentMethodUPI || len(in.Items) != 2 {
		t.Errorf("input = %+v", in)
	}

	in.Items[0].Quantity = 99
	if session.Cart[0].Quantity != 2 {
		t.Error("Input() must not alias the cart")
	}
}

func TestCheckoutSession_EmptyCart(t *testing.T) {
	session := CheckoutSession{PaymentMethod: PaymentMethodCOD}

	if !session.Subtotal().IsZero() {
		t.Errorf("Subtotal() = %s, want 0", session.Subtotal())
	}
	if err := Validate(session.Input()); err == nil {
		t.Error("empty cart should fail validation")
	}
}
