package orders

import (
	"context"
	"time"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

// Store persists orders and their items. It holds no business rules; lookups
// of unknown orders return domain.ErrOrderNotFound.
type Store interface {
	// CreateOrder assigns order.ID and saves it.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	// UpdateOrder applies the non-nil fields of update, refreshes UpdatedAt and
	// returns the stored result.
	UpdateOrder(ctx context.Context, id string, update domain.OrderUpdate) (*domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
	ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error)

	// CreateOrderItem assigns item.ID and saves it under item.OrderID.
	CreateOrderItem(ctx context.Context, item *domain.OrderItem) error
	ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error)
	ListItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error)
}
