package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/phone"
	"github.com/shaiso/Confirma/internal/repo"
	"github.com/shaiso/Confirma/internal/telemetry"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// defaultProviderFor возвращает провайдера по умолчанию для канала.
func defaultProviderFor(channel string) string {
	switch channel {
	case "whatsapp":
		return "zapi"
	case "telegram":
		return "telegram"
	default:
		return ""
	}
}

// EnqueueNotification ставит вопрос-подтверждение в очередь.
// POST /api/v1/notifications
func (h *Handler) EnqueueNotification(w http.ResponseWriter, r *http.Request) {
	var req EnqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.UserID <= 0 {
		BadRequest(w, "user_id is required")
		return
	}
	if req.Recipient == "" {
		BadRequest(w, "recipient is required")
		return
	}
	if req.AlertType == "" {
		BadRequest(w, "alert_type is required")
		return
	}
	if req.EntityType == "" || req.EntityID <= 0 {
		BadRequest(w, "entity_type and entity_id are required")
		return
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = defaultProviderFor(req.Channel)
	}
	if providerName == "" {
		BadRequest(w, "unknown channel: "+req.Channel)
		return
	}
	if _, err := h.providers.Get(providerName); err != nil {
		BadRequest(w, "unknown provider: "+providerName)
		return
	}

	kind := domain.InteractionKind(req.InteractionKind)
	if kind == "" {
		kind = domain.InteractionAskDetails
	}

	recipient := req.Recipient
	if req.Channel == "whatsapp" {
		normalized, err := phone.Normalize(recipient)
		if err != nil {
			BadRequest(w, "invalid recipient: "+recipient)
			return
		}
		recipient = normalized
	}

	n := domain.New(req.UserID, req.Channel, providerName, recipient, kind)
	n.AlertType = req.AlertType
	n.EntityType = req.EntityType
	n.EntityID = req.EntityID
	n.SavedSearchID = req.SavedSearchID
	n.Payload = req.Payload

	if err := h.notificationRepo.Create(r.Context(), n); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			telemetry.DedupConflicts.Inc()
			h.logger.Info("dedup conflict", "dedup_key", n.DedupKey().String())

			// Вернём correlation_id существующей строки, чтобы backend
			// мог привязаться к уже заданному вопросу.
			correlationID := ""
			if existing, lookupErr := h.notificationRepo.GetActiveByDedupKey(r.Context(), n.DedupKey()); lookupErr == nil {
				correlationID = existing.CorrelationID.String()
			}
			AlreadyOutstanding(w, "an active notification with the same key already exists", correlationID)
			return
		}
		InternalError(w, h.logger, err)
		return
	}

	telemetry.NotificationsEnqueued.Inc()

	// Подсказка диспетчеру; при недоступном MQ строку подберёт polling.
	if h.publisher != nil {
		if err := h.publisher.PublishNotificationEnqueued(r.Context(), n.ID); err != nil {
			h.logger.Warn("enqueue hint not published", "notification_id", n.ID, "error", err)
		}
	}

	Created(w, NotificationFromDomain(*n))
}

// GetNotification возвращает строку очереди по ID.
// GET /api/v1/notifications/{id}
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid notification id")
		return
	}

	n, err := h.notificationRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "notification not found") {
		return
	}

	Success(w, NotificationFromDomain(*n))
}

// GetNotificationByCorrelation возвращает строку по внешнему correlation id.
// GET /api/v1/notifications/correlation/{id}
func (h *Handler) GetNotificationByCorrelation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid correlation id")
		return
	}

	n, err := h.notificationRepo.GetByCorrelationID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "notification not found") {
		return
	}

	Success(w, NotificationFromDomain(*n))
}

// ListNotifications возвращает строки очереди, опционально по статусу.
// GET /api/v1/notifications?status=pending&limit=100
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	switch status {
	case "", domain.StatusPending, domain.StatusSent, domain.StatusResponded, domain.StatusFailed:
	default:
		BadRequest(w, "invalid status: "+string(status))
		return
	}

	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 || v > maxListLimit {
			BadRequest(w, "invalid limit")
			return
		}
		limit = v
	}

	notifications, err := h.notificationRepo.List(r.Context(), status, limit)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		result[i] = NotificationFromDomain(n)
	}

	List(w, result, len(result))
}
