package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Middleware chain
	chain := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)

	// Notifications
	mux.Handle("POST /api/v1/notifications", chain(http.HandlerFunc(h.EnqueueNotification)))
	mux.Handle("GET /api/v1/notifications", chain(http.HandlerFunc(h.ListNotifications)))
	mux.Handle("GET /api/v1/notifications/{id}", chain(http.HandlerFunc(h.GetNotification)))
	mux.Handle("GET /api/v1/notifications/correlation/{id}", chain(http.HandlerFunc(h.GetNotificationByCorrelation)))

	// Webhooks провайдеров
	mux.Handle("POST /webhooks/{provider}", chain(http.HandlerFunc(h.HandleWebhook)))
}
