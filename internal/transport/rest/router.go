package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/Zura1555/ecommerce/internal/checkout"
	"github.com/Zura1555/ecommerce/internal/payment"
	"github.com/Zura1555/ecommerce/internal/transport/middleware"
	"github.com/Zura1555/ecommerce/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, checkoutHandler *checkout.Handler, webhookHandler *payment.WebhookHandler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestIDHeader)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check routes
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Gateway webhook: POST for callbacks, GET for probes. Other
		// methods get chi's default 405.
		if webhookHandler != nil {
			r.Post("/sepay/webhook", webhookHandler.HandleWebhook)
			r.Get("/sepay/webhook", webhookHandler.WebhookStatus)
		}

		if checkoutHandler != nil {
			r.Post("/checkout", checkoutHandler.Checkout)
			r.Get("/orders/{orderID}", checkoutHandler.GetOrderStatus)
			r.Post("/orders/{orderID}/payment/retry", checkoutHandler.RetryPayment)
		}
	})
}
