package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
	"github.com/joao-fontenele/checkoutflow/internal/payment"
	"github.com/joao-fontenele/checkoutflow/internal/telemetry"
)

var tracer = otel.Tracer("orders/service")

const defaultListLimit = 50

// Publisher delivers lifecycle events keyed by order id.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// StatusCache fronts status polling. Implementations call load on a miss.
type StatusCache interface {
	GetOrLoad(ctx context.Context, orderID string, load func(context.Context) (domain.OrderStatusView, error)) (domain.OrderStatusView, error)
	Invalidate(ctx context.Context, orderID string) error
}

type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Key      string `json:"key"`
}

type CreateOrderResult struct {
	OrderID       string
	Total         decimal.Decimal
	PaymentMethod domain.PaymentMethod
	GatewayOrder  *GatewayOrder
}

type VerifyPaymentInput struct {
	OrderID          string
	GatewayPaymentID string
	GatewayOrderID   string
	Signature        string
}

type ServiceConfig struct {
	// KeyID is the publishable gateway key handed to clients.
	KeyID    string
	Currency string
}

// Service owns every order state transition.
type Service struct {
	store     Store
	gateway   payment.Gateway
	signer    *payment.Signer
	cfg       ServiceConfig
	publisher Publisher
	cache     StatusCache
	metrics   *telemetry.CheckoutMetrics
	logger    *slog.Logger
	now       func() time.Time
}

type ServiceOption func(*Service)

func WithPublisher(p Publisher) ServiceOption {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithStatusCache(c StatusCache) ServiceOption {
	return func(s *Service) {
		s.cache = c
	}
}

func WithMetrics(m *telemetry.CheckoutMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(store Store, gateway payment.Gateway, signer *payment.Signer, cfg ServiceConfig, logger *slog.Logger, opts ...ServiceOption) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	s := &Service{
		store:   store,
		gateway: gateway,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, in domain.CreateOrderInput) (res *CreateOrderResult, err error) {
	ctx, span := tracer.Start(ctx, "CreateOrder", trace.WithAttributes(
		attribute.String("checkout.payment_method", string(in.PaymentMethod)),
	))
	defer func() { endSpan(span, err) }()

	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	billing, err := json.Marshal(in.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("marshal billing address: %w", err)
	}

	fee := domain.FeeFor(in.PaymentMethod)
	now := s.now()
	order := &domain.Order{
		Status:         domain.OrderStatusPending,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  domain.PaymentStatusPending,
		Subtotal:       in.Subtotal,
		Tax:            in.Tax,
		CODFee:         fee,
		Total:          in.Total(),
		BillingAddress: string(billing),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	span.SetAttributes(attribute.String("checkout.order_id", order.ID))

	// Order, items and the remote order are written one after another with no
	// transaction; a failure below leaves a pending order behind.
	for _, li := range in.Items {
		item := &domain.OrderItem{
			OrderID:  order.ID,
			Name:     li.Name,
			Variant:  optional(li.Variant),
			Quantity: li.Quantity,
			Price:    li.Price,
			ImageURL: optional(li.ImageURL),
		}
		if err := s.store.CreateOrderItem(ctx, item); err != nil {
			s.logger.ErrorContext(ctx, "order left without all items", "order_id", order.ID, "error", err)
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	res = &CreateOrderResult{
		OrderID:       order.ID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
	}

	if order.PaymentMethod.UsesGateway() {
		remote, err := s.gateway.CreateOrder(ctx, order.Total, s.cfg.Currency)
		if err != nil {
			s.logger.ErrorContext(ctx, "gateway order creation failed, order left pending", "order_id", order.ID, "error", err)
			return nil, err
		}

		updated, err := s.store.UpdateOrder(ctx, order.ID, domain.OrderUpdate{GatewayOrderID: &remote.ID})
		if err != nil {
			return nil, fmt.Errorf("attach gateway order: %w", err)
		}
		order = updated

		res.GatewayOrder = &GatewayOrder{
			ID:       remote.ID,
			Amount:   remote.Amount,
			Currency: remote.Currency,
			Key:      s.cfg.KeyID,
		}
	}

	s.metrics.OrderCreated(ctx, string(order.PaymentMethod))
	s.publish(ctx, domain.EventOrderCreated, order)

	s.logger.InfoContext(ctx, "order created", "order_id", order.ID, "payment_method", order.PaymentMethod, "total", order.Total.String())
	return res, nil
}

func (s *Service) VerifyPayment(ctx context.Context, in VerifyPaymentInput) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "VerifyPayment", trace.WithAttributes(
		attribute.String("checkout.order_id", in.OrderID),
	))
	defer func() { endSpan(span, err) }()

	if !s.signer.Verify(in.GatewayOrderID, in.GatewayPaymentID, in.Signature) {
		s.metrics.PaymentVerified(ctx, "invalid_signature")
		s.logger.WarnContext(ctx, "payment signature mismatch", "order_id", in.OrderID)
		return nil, domain.ErrInvalidSignature
	}

	current, err := s.store.GetOrder(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if !current.PaymentMethod.UsesGateway() || !canComplete(current.Status) {
		return nil, fmt.Errorf("%w: %s order is %s", domain.ErrInvalidTransition, current.PaymentMethod, current.Status)
	}
	// The signature only binds the two gateway ids; the pair must also belong to this order.
	if current.GatewayOrderID == nil || *current.GatewayOrderID != in.GatewayOrderID {
		s.metrics.PaymentVerified(ctx, "order_mismatch")
		s.logger.WarnContext(ctx, "gateway order does not belong to order", "order_id", in.OrderID, "gateway_order_id", in.GatewayOrderID)
		return nil, domain.ErrInvalidSignature
	}

	remote, err := s.gateway.FetchPayment(ctx, in.GatewayPaymentID)
	if err != nil {
		s.metrics.PaymentVerified(ctx, "gateway_error")
		return nil, err
	}
	if remote.OrderID != in.GatewayOrderID {
		s.metrics.PaymentVerified(ctx, "order_mismatch")
		s.logger.WarnContext(ctx, "payment belongs to another gateway order", "order_id", in.OrderID, "payment_id", in.GatewayPaymentID)
		return nil, domain.ErrInvalidSignature
	}
	if !remote.Successful() {
		s.metrics.PaymentVerified(ctx, "not_successful")
		s.logger.WarnContext(ctx, "payment not successful", "order_id", in.OrderID, "remote_status", remote.Status)
		return nil, domain.ErrPaymentNotSuccessful
	}

	completed := domain.OrderStatusCompleted
	paid := domain.PaymentStatusCompleted
	order, err = s.store.UpdateOrder(ctx, in.OrderID, domain.OrderUpdate{
		Status:           &completed,
		PaymentStatus:    &paid,
		GatewayPaymentID: &in.GatewayPaymentID,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order.ID)
	s.metrics.PaymentVerified(ctx, "completed")
	s.publish(ctx, domain.EventPaymentCompleted, order)

	s.logger.InfoContext(ctx, "payment verified", "order_id", order.ID, "payment_id", in.GatewayPaymentID)
	return order, nil
}

func (s *Service) ConfirmCOD(ctx context.Context, orderID string) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "ConfirmCOD", trace.WithAttributes(
		attribute.String("checkout.order_id", orderID),
	))
	defer func() { endSpan(span, err) }()

	current, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if current.PaymentMethod != domain.PaymentMethodCOD || !canConfirm(current.Status) {
		return nil, fmt.Errorf("%w: %s order is %s", domain.ErrInvalidTransition, current.PaymentMethod, current.Status)
	}

	// Cash is collected at delivery, so the payment stays pending.
	confirmed := domain.OrderStatusConfirmed
	pending := domain.PaymentStatusPending
	order, err = s.store.UpdateOrder(ctx, orderID, domain.OrderUpdate{
		Status:        &confirmed,
		PaymentStatus: &pending,
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, order.ID)
	s.metrics.CODConfirmed(ctx)
	s.publish(ctx, domain.EventCODConfirmed, order)

	s.logger.InfoContext(ctx, "cod order confirmed", "order_id", order.ID)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID string) (*domain.OrderDetails, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	return details(order, items)
}

// GetOrderStatus serves client polling, through the status cache when one is configured.
func (s *Service) GetOrderStatus(ctx context.Context, orderID string) (domain.OrderStatusView, error) {
	load := func(ctx context.Context) (domain.OrderStatusView, error) {
		order, err := s.store.GetOrder(ctx, orderID)
		if err != nil {
			return domain.OrderStatusView{}, err
		}
		return order.StatusView(), nil
	}

	if s.cache == nil {
		return load(ctx)
	}
	return s.cache.GetOrLoad(ctx, orderID, load)
}

func (s *Service) ListOrders(ctx context.Context, limit int) ([]domain.OrderDetails, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	orders, err := s.store.ListOrders(ctx, limit)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, orders)
}

// ListStalePending returns pending orders created before the cutoff, for
// manual inspection of checkouts that never completed.
func (s *Service) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.OrderDetails, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	orders, err := s.store.ListPendingBefore(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, orders)
}

func (s *Service) withItems(ctx context.Context, orders []domain.Order) ([]domain.OrderDetails, error) {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	items, err := s.store.ListItemsForOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}

	out := make([]domain.OrderDetails, 0, len(orders))
	for i := range orders {
		d, err := details(&orders[i], items[orders[i].ID])
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *Service) publish(ctx context.Context, t domain.EventType, order *domain.Order) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, order.ID, domain.NewOrderEvent(t, order)); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order event", "error", err, "order_id", order.ID, "event", t)
	}
}

func (s *Service) invalidate(ctx context.Context, orderID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, orderID); err != nil {
		s.logger.ErrorContext(ctx, "failed to invalidate status cache", "error", err, "order_id", orderID)
	}
}

func canComplete(status domain.OrderStatus) bool {
	return status == domain.OrderStatusPending || status == domain.OrderStatusCompleted
}

func canConfirm(status domain.OrderStatus) bool {
	return status == domain.OrderStatusPending || status == domain.OrderStatusConfirmed
}

func details(order *domain.Order, items []domain.OrderItem) (*domain.OrderDetails, error) {
	var billing domain.BillingAddress
	if err := json.Unmarshal([]byte(order.BillingAddress), &billing); err != nil {
		return nil, fmt.Errorf("decode billing address of order %s: %w", order.ID, err)
	}
	if items == nil {
		items = []domain.OrderItem{}
	}

	return &domain.OrderDetails{
		ID:               order.ID,
		Status:           order.Status,
		PaymentMethod:    order.PaymentMethod,
		PaymentStatus:    order.PaymentStatus,
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.GatewayPaymentID,
		Subtotal:         order.Subtotal,
		Tax:              order.Tax,
		CODFee:           order.CODFee,
		Total:            order.Total,
		BillingAddress:   billing,
		Items:            items,
		CreatedAt:        order.CreatedAt,
		UpdatedAt:        order.UpdatedAt,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
