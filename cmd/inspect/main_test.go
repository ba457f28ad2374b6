package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

func TestRender(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	remote := "order_ok"
	list := []domain.OrderDetails{
		{
			ID:             "healthy-order",
			PaymentMethod:  domain.PaymentMethodUPI,
			GatewayOrderID: &remote,
			Total:          decimal.NewFromInt(1180),
			Items:          []domain.OrderItem{{Name: "Lamp", Quantity: 1}},
			CreatedAt:      now.Add(-time.Hour),
		},
		{
			ID:            "broken-order",
			PaymentMethod: domain.PaymentMethodCard,
			Total:         decimal.NewFromInt(590),
			CreatedAt:     now.Add(-2 * time.Hour),
		},
	}

	t.Run("all pending", func(t *testing.T) {
		var buf bytes.Buffer
		if err := render(&buf, list, false, now); err != nil {
			t.Fatalf("render: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"healthy-order", "broken-order", "order_ok", "1180.00", "missing items", "2 pending order(s)"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("broken only", func(t *testing.T) {
		var buf bytes.Buffer
		if err := render(&buf, list, true, now); err != nil {
			t.Fatalf("render: %v", err)
		}
		out := buf.String()
		if strings.Contains(out, "healthy-order") {
			t.Errorf("healthy order should be hidden:\n%s", out)
		}
		if !strings.Contains(out, "1 pending order(s)") {
			t.Errorf("unexpected footer:\n%s", out)
		}
	})
}
