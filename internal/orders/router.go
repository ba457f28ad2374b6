package orders

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joao-fontenele/checkoutflow/internal/telemetry"
)

// NewRouter mounts the checkout API. metrics is served at /metrics when non-nil.
func NewRouter(handler *Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(telemetry.WithChiRoute)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.HandleHealth)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/payment/create-order", handler.HandleCreateOrder)
		r.Post("/payment/verify", handler.HandleVerifyPayment)
		r.Post("/payment/confirm-cod", handler.HandleConfirmCOD)

		r.Get("/orders", handler.HandleList)
		r.Get("/orders/{id}", handler.HandleGet)
		r.Get("/orders/{id}/status", handler.HandleStatus)
	})

	return r
}
