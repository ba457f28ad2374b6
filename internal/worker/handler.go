package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

// NotificationHandler turns checkout lifecycle events into merchant emails.
type NotificationHandler struct {
	emailServiceURL  string
	ordersServiceURL string
	notifyEmail      string
	httpClient       *http.Client
	logger           *slog.Logger
}

func NewNotificationHandler(emailServiceURL, ordersServiceURL, notifyEmail string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		emailServiceURL:  emailServiceURL,
		ordersServiceURL: ordersServiceURL,
		notifyEmail:      notifyEmail,
		httpClient:       client,
		logger:           logger,
	}
}

type orderResponse struct {
	Success bool                `json:"success"`
	Order   domain.OrderDetails `json:"order"`
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	switch event.Type {
	case domain.EventPaymentCompleted, domain.EventCODConfirmed:
	default:
		h.logger.InfoContext(ctx, "skipping order event", "order_id", event.OrderID, "event", event.Type)
		return nil
	}

	h.logger.InfoContext(ctx, "processing order event", "order_id", event.OrderID, "event", event.Type)

	order, err := h.fetchOrder(ctx, event.OrderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to fetch order", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("fetch order: %w", err)
	}

	if err := h.sendEmail(ctx, notification(event.Type, order, h.notifyEmail)); err != nil {
		h.logger.ErrorContext(ctx, "failed to send notification email", "error", err, "order_id", event.OrderID)
		return fmt.Errorf("send notification email: %w", err)
	}

	h.logger.InfoContext(ctx, "merchant notified", "order_id", event.OrderID, "event", event.Type)
	return nil
}

func (h *NotificationHandler) fetchOrder(ctx context.Context, orderID string) (*domain.OrderDetails, error) {
	url := fmt.Sprintf("%s/api/orders/%s", h.ordersServiceURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout service returned status %d", resp.StatusCode)
	}

	var body orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &body.Order, nil
}

func notification(t domain.EventType, order *domain.OrderDetails, to string) map[string]string {
	subject := "Payment received: " + order.ID
	headline := fmt.Sprintf("Order %s was paid online (%s).", order.ID, order.PaymentMethod)
	if t == domain.EventCODConfirmed {
		subject = "COD order confirmed: " + order.ID
		headline = fmt.Sprintf("Order %s was confirmed for cash on delivery; collect %s at delivery.", order.ID, order.Total.StringFixed(2))
	}

	var b strings.Builder
	b.WriteString(headline)
	b.WriteString("\n\n")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "%d x %s @ %s\n", item.Quantity, item.Name, item.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "\nTotal: %s\n", order.Total.StringFixed(2))
	fmt.Fprintf(&b, "Ship to: %s %s, %s, %s %s\n",
		order.BillingAddress.FirstName, order.BillingAddress.LastName,
		order.BillingAddress.Address, order.BillingAddress.City, order.BillingAddress.Pincode)

	return map[string]string{
		"to":      to,
		"subject": subject,
		"body":    b.String(),
	}
}

func (h *NotificationHandler) sendEmail(ctx context.Context, body map[string]string) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}
