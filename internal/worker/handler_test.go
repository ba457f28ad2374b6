package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

const orderJSON = `{
	"success": true,
	"order": {
		"id": "ord-1",
		"status": "confirmed",
		"paymentMethod": "cod",
		"paymentStatus": "pending",
		"total": 1200,
		"billingAddress": {"firstName": "Asha", "lastName": "Rao", "address": "12 MG Road", "city": "Bengaluru", "pincode": "560001"},
		"items": [{"id": "it-1", "orderId": "ord-1", "name": "Desk Lamp", "quantity": 2, "price": 300}]
	}
}`

type emailSink struct {
	mu     sync.Mutex
	emails []map[string]string
	status int
}

func (s *emailSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	s.emails = append(s.emails, body)
	status := s.status
	s.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (s *emailSink) sent() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]string(nil), s.emails...)
}

func eventPayload(t *testing.T, typ domain.EventType) []byte {
	t.Helper()
	data, err := json.Marshal(domain.OrderEvent{
		Type:          typ,
		OrderID:       "ord-1",
		PaymentMethod: domain.PaymentMethodCOD,
		Total:         decimal.NewFromInt(1200),
		Timestamp:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return data
}

func setup(t *testing.T, ordersStatus int) (*NotificationHandler, *emailSink, *atomic.Int32) {
	t.Helper()

	var orderFetches atomic.Int32
	orders := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orderFetches.Add(1)
		if r.URL.Path != "/api/orders/ord-1" {
			t.Errorf("expected /api/orders/ord-1, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ordersStatus)
		_, _ = w.Write([]byte(orderJSON))
	}))
	t.Cleanup(orders.Close)

	sink := &emailSink{}
	email := httptest.NewServer(sink)
	t.Cleanup(email.Close)

	h := NewNotificationHandler(email.URL, orders.URL, "merchant@example.com", http.DefaultClient,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, sink, &orderFetches
}

func TestNotificationHandler_Handle(t *testing.T) {
	t.Run("cod confirmation emails the merchant", func(t *testing.T) {
		h, sink, _ := setup(t, http.StatusOK)

		if err := h.Handle(context.Background(), eventPayload(t, domain.EventCODConfirmed)); err != nil {
			t.Fatalf("Handle: %v", err)
		}

		emails := sink.sent()
		if len(emails) != 1 {
			t.Fatalf("emails = %d, want 1", len(emails))
		}
		email := emails[0]
		if email["to"] != "merchant@example.com" {
			t.Errorf("to = %q", email["to"])
		}
		if email["subject"] != "COD order confirmed: ord-1" {
			t.Errorf("subject = %q", email["subject"])
		}
		for _, want := range []string{"collect 1200.00", "2 x Desk Lamp @ 300.00", "Bengaluru 560001"} {
			if !strings.Contains(email["body"], want) {
				t.Errorf("body missing %q:\n%s", want, email["body"])
			}
		}
	})

	t.Run("payment completed", func(t *testing.T) {
		h, sink, _ := setup(t, http.StatusOK)

		if err := h.Handle(context.Background(), eventPayload(t, domain.EventPaymentCompleted)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		emails := sink.sent()
		if len(emails) != 1 || emails[0]["subject"] != "Payment received: ord-1" {
			t.Errorf("emails = %v", emails)
		}
	})

	t.Run("order created is skipped", func(t *testing.T) {
		h, sink, fetches := setup(t, http.StatusOK)

		if err := h.Handle(context.Background(), eventPayload(t, domain.EventOrderCreated)); err != nil {
			t.Fatalf("Handle: %v", err)
		}
		if fetches.Load() != 0 || len(sink.sent()) != 0 {
			t.Errorf("fetches = %d, emails = %d, want none", fetches.Load(), len(sink.sent()))
		}
	})

	t.Run("checkout service error", func(t *testing.T) {
		h, sink, _ := setup(t, http.StatusNotFound)

		err := h.Handle(context.Background(), eventPayload(t, domain.EventCODConfirmed))
		if err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status 404 error, got %v", err)
		}
		if len(sink.sent()) != 0 {
			t.Error("no email should be sent without the order")
		}
	})

	t.Run("email service error", func(t *testing.T) {
		h, sink, _ := setup(t, http.StatusOK)
		sink.mu.Lock()
		sink.status = http.StatusInternalServerError
		sink.mu.Unlock()

		err := h.Handle(context.Background(), eventPayload(t, domain.EventCODConfirmed))
		if err == nil || !strings.Contains(err.Error(), "send notification email") {
			t.Errorf("expected email error, got %v", err)
		}
	})

	t.Run("malformed payload", func(t *testing.T) {
		h, _, _ := setup(t, http.StatusOK)

		if err := h.Handle(context.Background(), []byte("not json")); err == nil {
			t.Error("expected unmarshal error")
		}
	})
}
