package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/amsoft/dukpay-checkout/internal/order"
	"github.com/amsoft/dukpay-checkout/internal/transport/middleware"
	"github.com/amsoft/dukpay-checkout/internal/transport/swagger"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, checkoutHandler *order.Handler, webhookHandler *order.WebhookHandler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway-facing callback; authenticated by payload signature, not
		// by any middleware
		if webhookHandler != nil {
			r.Post("/payment/callback", webhookHandler.HandlePaymentCallback)
		}

		// Browser-facing checkout flow
		if checkoutHandler != nil {
			r.Post("/checkout", checkoutHandler.Checkout)
			r.Get("/checkout/return", checkoutHandler.Return)
		}
	})
}
