package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

func newOrder(createdAt time.Time, method domain.PaymentMethod) *domain.Order {
	return &domain.Order{
		Status:         domain.OrderStatusPending,
		PaymentMethod:  method,
		PaymentStatus:  domain.PaymentStatusPending,
		Subtotal:       decimal.NewFromInt(100),
		Tax:            decimal.NewFromInt(18),
		CODFee:         domain.FeeFor(method),
		Total:          decimal.NewFromInt(118).Add(domain.FeeFor(method)),
		BillingAddress: `{"firstName":"Asha"}`,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
}

func TestMemoryStore_Orders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.Add(time.Hour) }

	order := newOrder(base, domain.PaymentMethodUPI)
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.ID == "" {
		t.Fatal("CreateOrder should assign an id")
	}

	t.Run("get returns a copy", func(t *testing.T) {
		got, err := store.GetOrder(ctx, order.ID)
		if err != nil {
			t.Fatalf("GetOrder: %v", err)
		}
		got.Status = domain.OrderStatusCancelled

		again, _ := store.GetOrder(ctx, order.ID)
		if again.Status != domain.OrderStatusPending {
			t.Error("mutating a returned order changed the store")
		}
	})

	t.Run("update applies fields and refreshes updated_at", func(t *testing.T) {
		remote := "order_123"
		updated, err := store.UpdateOrder(ctx, order.ID, domain.OrderUpdate{GatewayOrderID: &remote})
		if err != nil {
			t.Fatalf("UpdateOrder: %v", err)
		}
		if updated.GatewayOrderID == nil || *updated.GatewayOrderID != remote {
			t.Errorf("gateway order id = %v", updated.GatewayOrderID)
		}
		if !updated.UpdatedAt.Equal(base.Add(time.Hour)) {
			t.Errorf("updated_at = %v", updated.UpdatedAt)
		}
		if !updated.CreatedAt.Equal(base) {
			t.Errorf("created_at changed to %v", updated.CreatedAt)
		}
		if updated.Status != domain.OrderStatusPending {
			t.Errorf("status = %s, want untouched pending", updated.Status)
		}
	})

	t.Run("unknown order", func(t *testing.T) {
		if _, err := store.GetOrder(ctx, "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("GetOrder: expected ErrOrderNotFound, got %v", err)
		}
		if _, err := store.UpdateOrder(ctx, "missing", domain.OrderUpdate{}); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("UpdateOrder: expected ErrOrderNotFound, got %v", err)
		}
	})
}

func TestMemoryStore_Items(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	order := newOrder(time.Now().UTC(), domain.PaymentMethodCOD)
	if err := store.CreateOrder(ctx, order); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	for _, name := range []string{"Lamp", "Notebook"} {
		item := &domain.OrderItem{OrderID: order.ID, Name: name, Quantity: 1, Price: decimal.NewFromInt(50)}
		if err := store.CreateOrderItem(ctx, item); err != nil {
			t.Fatalf("CreateOrderItem: %v", err)
		}
		if item.ID == "" {
			t.Error("CreateOrderItem should assign an id")
		}
	}

	t.Run("items keep insertion order", func(t *testing.T) {
		items, err := store.ListOrderItems(ctx, order.ID)
		if err != nil {
			t.Fatalf("ListOrderItems: %v", err)
		}
		if len(items) != 2 || items[0].Name != "Lamp" || items[1].Name != "Notebook" {
			t.Errorf("items = %+v", items)
		}
	})

	t.Run("orphan items are rejected", func(t *testing.T) {
		err := store.CreateOrderItem(ctx, &domain.OrderItem{OrderID: "missing", Name: "Ghost", Quantity: 1})
		if !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
	})

	t.Run("batch lookup", func(t *testing.T) {
		byOrder, err := store.ListItemsForOrders(ctx, []string{order.ID, "missing"})
		if err != nil {
			t.Fatalf("ListItemsForOrders: %v", err)
		}
		if len(byOrder[order.ID]) != 2 {
			t.Errorf("items for order = %d, want 2", len(byOrder[order.ID]))
		}
		if items, ok := byOrder["missing"]; !ok || len(items) != 0 {
			t.Errorf("unknown order should map to an empty slice, got %v", items)
		}
	})
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		o := newOrder(base.Add(time.Duration(i)*time.Minute), domain.PaymentMethodCard)
		if err := store.CreateOrder(ctx, o); err != nil {
			t.Fatalf("CreateOrder: %v", err)
		}
		ids = append(ids, o.ID)
	}
	completed := domain.OrderStatusCompleted
	if _, err := store.UpdateOrder(ctx, ids[0], domain.OrderUpdate{Status: &completed}); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}

	t.Run("newest first with limit", func(t *testing.T) {
		orders, err := store.ListOrders(ctx, 2)
		if err != nil {
			t.Fatalf("ListOrders: %v", err)
		}
		if len(orders) != 2 || orders[0].ID != ids[2] || orders[1].ID != ids[1] {
			t.Errorf("orders = %v", orders)
		}
	})

	t.Run("pending before cutoff", func(t *testing.T) {
		orders, err := store.ListPendingBefore(ctx, base.Add(90*time.Second), 0)
		if err != nil {
			t.Fatalf("ListPendingBefore: %v", err)
		}
		if len(orders) != 1 || orders[0].ID != ids[1] {
			t.Errorf("orders = %v, want only %s", orders, ids[1])
		}
	})
}
