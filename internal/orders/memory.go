package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

// MemoryStore is a Store kept in process memory. It backs tests and runs
// without POSTGRES_URL; contents are lost on restart.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
	items  map[string][]domain.OrderItem
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]domain.Order),
		items:  make(map[string][]domain.OrderItem),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order.ID = uuid.New().String()
	s.orders[order.ID] = cloneOrder(*order)
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	o = cloneOrder(o)
	return &o, nil
}

func (s *MemoryStore) UpdateOrder(ctx context.Context, id string, update domain.OrderUpdate) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	update.Apply(&o)
	o.UpdatedAt = s.now()
	s.orders[id] = o

	o = cloneOrder(o)
	return &o, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.list(limit, func(domain.Order) bool { return true }), nil
}

func (s *MemoryStore) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	return s.list(limit, func(o domain.Order) bool {
		return o.Status == domain.OrderStatusPending && o.CreatedAt.Before(before)
	}), nil
}

func (s *MemoryStore) list(limit int, keep func(domain.Order) bool) []domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) CreateOrderItem(ctx context.Context, item *domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[item.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	item.ID = uuid.New().String()
	s.items[item.OrderID] = append(s.items[item.OrderID], *item)
	return nil
}

func (s *MemoryStore) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.OrderItem, len(s.items[orderID]))
	copy(items, s.items[orderID])
	return items, nil
}

func (s *MemoryStore) ListItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string][]domain.OrderItem, len(orderIDs))
	for _, id := range orderIDs {
		items := make([]domain.OrderItem, len(s.items[id]))
		copy(items, s.items[id])
		out[id] = items
	}
	return out, nil
}

func cloneOrder(o domain.Order) domain.Order {
	if o.GatewayOrderID != nil {
		v := *o.GatewayOrderID
		o.GatewayOrderID = &v
	}
	if o.GatewayPaymentID != nil {
		v := *o.GatewayPaymentID
		o.GatewayPaymentID = &v
	}
	return o
}
