package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

const orderColumns = `id, status, payment_method, payment_status, razorpay_order_id, razorpay_payment_id,
	subtotal, tax, cod_fee, total, billing_address, created_at, updated_at`

// OrderRepository is the Postgres-backed Store.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(
		&o.ID,
		&o.Status,
		&o.PaymentMethod,
		&o.PaymentStatus,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&o.Subtotal,
		&o.Tax,
		&o.CODFee,
		&o.Total,
		&o.BillingAddress,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	order.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (id, status, payment_method, payment_status, subtotal, tax, cod_fee, total, billing_address, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, order.ID, order.Status, order.PaymentMethod, order.PaymentStatus,
		order.Subtotal, order.Tax, order.CODFee, order.Total, order.BillingAddress,
		order.CreatedAt, order.UpdatedAt)
	return err
}

func (r *OrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) UpdateOrder(ctx context.Context, id string, update domain.OrderUpdate) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		UPDATE orders SET
			status = COALESCE($2, status),
			payment_status = COALESCE($3, payment_status),
			razorpay_order_id = COALESCE($4, razorpay_order_id),
			razorpay_payment_id = COALESCE($5, razorpay_payment_id),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns,
		id, update.Status, update.PaymentStatus, update.GatewayOrderID, update.GatewayPaymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func (r *OrderRepository) ListPendingBefore(ctx context.Context, before time.Time, limit int) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, domain.OrderStatusPending, before, limit)
	if err != nil {
		return nil, err
	}
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]domain.Order, error) {
	defer func() { _ = rows.Close() }()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) CreateOrderItem(ctx context.Context, item *domain.OrderItem) error {
	item.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_items (id, order_id, name, variant, quantity, price, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, item.ID, item.OrderID, item.Name, item.Variant, item.Quantity, item.Price, item.ImageURL)
	return err
}

func (r *OrderRepository) ListOrderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, name, variant, quantity, price, image_url
		FROM order_items
		WHERE order_id = $1
		ORDER BY seq
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.OrderItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *OrderRepository) ListItemsForOrders(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	out := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	for _, id := range orderIDs {
		out[id] = []domain.OrderItem{}
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, name, variant, quantity, price, image_url
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY seq
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.OrderID] = append(out[item.OrderID], item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanItem(row rowScanner) (domain.OrderItem, error) {
	var item domain.OrderItem
	err := row.Scan(&item.ID, &item.OrderID, &item.Name, &item.Variant, &item.Quantity, &item.Price, &item.ImageURL)
	return item, err
}
