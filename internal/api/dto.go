package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Confirma/internal/domain"
)

// Notification DTOs

// EnqueueRequest — запрос на постановку вопроса в очередь.
type EnqueueRequest struct {
	UserID        int64  `json:"user_id"`
	Channel       string `json:"channel"`
	Provider      string `json:"provider,omitempty"` // default: по каналу
	Recipient     string `json:"recipient"`
	AlertType     string `json:"alert_type"`
	EntityType    string `json:"entity_type"`
	EntityID      int64  `json:"entity_id"`
	SavedSearchID int64  `json:"saved_search_id"`

	InteractionKind string         `json:"interaction_kind,omitempty"` // default: ask_details
	Payload         map[string]any `json:"payload,omitempty"`
}

// NotificationResponse — ответ со строкой очереди.
type NotificationResponse struct {
	ID              uuid.UUID  `json:"id"`
	CorrelationID   uuid.UUID  `json:"correlation_id"`
	UserID          int64      `json:"user_id"`
	Channel         string     `json:"channel"`
	AlertType       string     `json:"alert_type"`
	EntityType      string     `json:"entity_type"`
	EntityID        int64      `json:"entity_id"`
	SavedSearchID   int64      `json:"saved_search_id"`
	Recipient       string     `json:"recipient"`
	InteractionKind string     `json:"interaction_kind"`
	Status          string     `json:"status"`
	AttemptCount    int        `json:"attempt_count"`
	NextAttemptAt   *time.Time `json:"next_attempt_at,omitempty"`
	Provider        string     `json:"provider"`
	ProviderStatus  string     `json:"provider_status,omitempty"`
	Responded       bool       `json:"responded"`
	ResponseValue   string     `json:"response_value,omitempty"`
	ResponseAt      *time.Time `json:"response_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NotificationFromDomain конвертирует domain.Notification в NotificationResponse.
func NotificationFromDomain(n domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:              n.ID,
		CorrelationID:   n.CorrelationID,
		UserID:          n.UserID,
		Channel:         n.Channel,
		AlertType:       n.AlertType,
		EntityType:      n.EntityType,
		EntityID:        n.EntityID,
		SavedSearchID:   n.SavedSearchID,
		Recipient:       n.Recipient,
		InteractionKind: string(n.InteractionKind),
		Status:          string(n.Status),
		AttemptCount:    n.AttemptCount,
		NextAttemptAt:   n.NextAttemptAt,
		Provider:        n.Provider,
		ProviderStatus:  n.ProviderStatus,
		Responded:       n.Responded,
		ResponseValue:   n.ResponseValue,
		ResponseAt:      n.ResponseAt,
		CreatedAt:       n.CreatedAt,
	}
}

// Webhook DTOs

// WebhookResult — итог обработки одного элемента webhook-запроса.
type WebhookResult struct {
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

// WebhookResponse — ответ на webhook-запрос.
type WebhookResponse struct {
	Processed int             `json:"processed"`
	Results   []WebhookResult `json:"results"`
}
