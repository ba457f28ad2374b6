package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/checkoutflow/internal/domain"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

type createOrderResponse struct {
	Success       bool                 `json:"success"`
	OrderID       string               `json:"orderId"`
	Total         decimal.Decimal      `json:"total"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	RazorpayOrder *GatewayOrder        `json:"razorpayOrder"`
}

type verifyPaymentRequest struct {
	OrderID           string `json:"orderId" validate:"required"`
	RazorpayPaymentID string `json:"razorpayPaymentId" validate:"required"`
	RazorpaySignature string `json:"razorpaySignature" validate:"required"`
	RazorpayOrderID   string `json:"razorpayOrderId" validate:"required"`
}

type confirmCODRequest struct {
	OrderID string `json:"orderId" validate:"required"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Order   any    `json:"order"`
}

type ordersResponse struct {
	Success bool                  `json:"success"`
	Orders  []domain.OrderDetails `json:"orders"`
}

type errorResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrderInput
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to create payment order")
		return
	}

	h.writeJSON(w, http.StatusOK, createOrderResponse{
		Success:       true,
		OrderID:       res.OrderID,
		Total:         res.Total,
		PaymentMethod: res.PaymentMethod,
		RazorpayOrder: res.GatewayOrder,
	})
}

func (h *Handler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.svc.VerifyPayment(r.Context(), VerifyPaymentInput{
		OrderID:          req.OrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		GatewayOrderID:   req.RazorpayOrderID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		var gerr *domain.GatewayError
		if errors.As(err, &gerr) {
			h.writeServiceError(w, r, err, "Could not verify payment with Razorpay")
			return
		}
		h.writeServiceError(w, r, err, "Payment verification failed")
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{
		Success: true,
		Message: "Payment verified successfully",
		Order:   order,
	})
}

func (h *Handler) HandleConfirmCOD(w http.ResponseWriter, r *http.Request) {
	var req confirmCODRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.svc.ConfirmCOD(r.Context(), req.OrderID)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to confirm COD order")
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{
		Success: true,
		Message: "COD order confirmed successfully",
		Order:   order,
	})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	order, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to fetch order")
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := h.svc.GetOrderStatus(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to fetch order status")
		return
	}

	h.writeJSON(w, http.StatusOK, orderResponse{Success: true, Order: view})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{
				Message: "Validation error",
				Errors:  []domain.FieldError{{Field: "limit", Message: "must be a positive integer"}},
			})
			return
		}
		limit = n
	}

	orders, err := h.svc.ListOrders(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err, "Failed to list orders")
		return
	}

	h.logger.InfoContext(r.Context(), "orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, ordersResponse{Success: true, Orders: orders})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into v and validates it, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body"})
		return false
	}
	if err := domain.Validate(v); err != nil {
		h.writeServiceError(w, r, err, "Validation error")
		return false
	}
	return true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: verr.Fields})
	case errors.Is(err, domain.ErrOrderNotFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Message: "Order not found"})
	case errors.Is(err, domain.ErrInvalidSignature):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid payment signature"})
	case errors.Is(err, domain.ErrPaymentNotSuccessful):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Payment not successful"})
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeJSON(w, http.StatusConflict, errorResponse{Message: "Order cannot be updated in its current state"})
	default:
		h.logger.ErrorContext(r.Context(), fallback, "error", err, "path", r.URL.Path)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Message: fallback})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}
