// Package actions публикует downstream actions, порождённые ответами
// пользователей. Сами бизнес-действия («отправить детали лота»,
// «отправить ссылку на редактирование поиска») выполняются внешними
// сервисами; для этого ядра action — opaque побочный эффект.
//
// Webhook Receiver обязан отвечать провайдеру быстро, поэтому action
// не выполняется inline, а ставится в очередь (MQTrigger). Гарантию
// «ровно один action на строку» даёт не эта очередь, а conditional
// update MarkResponded перед публикацией.
package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/telemetry"
)

// Trigger запускает downstream action для строки, получившей ответ.
type Trigger interface {
	// SendLotDetails — «отправить детали лота X пользователю Y»
	// (утвердительный ответ).
	SendLotDetails(ctx context.Context, n *domain.Notification) error

	// SendEditSearchLink — «отправить ссылку на редактирование
	// сохранённого поиска Z пользователю Y» (отрицательный ответ).
	SendEditSearchLink(ctx context.Context, n *domain.Notification) error
}

// MQTrigger публикует actions в RabbitMQ (confirma.actions).
type MQTrigger struct {
	publisher *mq.Publisher
}

// NewMQTrigger создаёт MQ-backed Trigger.
func NewMQTrigger(publisher *mq.Publisher) *MQTrigger {
	return &MQTrigger{publisher: publisher}
}

// SendLotDetails публикует action.lot_details.
func (t *MQTrigger) SendLotDetails(ctx context.Context, n *domain.Notification) error {
	if err := t.publisher.PublishLotDetailsAction(ctx, actionPayload(n, domain.DecisionAffirmative)); err != nil {
		return fmt.Errorf("publish lot_details action: %w", err)
	}
	telemetry.ActionsTriggered.WithLabelValues("lot_details").Inc()
	return nil
}

// SendEditSearchLink публикует action.edit_search.
func (t *MQTrigger) SendEditSearchLink(ctx context.Context, n *domain.Notification) error {
	if err := t.publisher.PublishEditSearchAction(ctx, actionPayload(n, domain.DecisionNegative)); err != nil {
		return fmt.Errorf("publish edit_search action: %w", err)
	}
	telemetry.ActionsTriggered.WithLabelValues("edit_search").Inc()
	return nil
}

func actionPayload(n *domain.Notification, decision domain.Decision) mq.ActionPayload {
	return mq.ActionPayload{
		NotificationID: n.ID,
		CorrelationID:  n.CorrelationID,
		UserID:         n.UserID,
		EntityType:     n.EntityType,
		EntityID:       n.EntityID,
		SavedSearchID:  n.SavedSearchID,
		Recipient:      n.Recipient,
		Decision:       string(decision),
	}
}

// LogTrigger пишет actions в лог. Используется, когда RabbitMQ недоступен
// (degraded mode): action фиксируется в логе оператору, строка всё равно
// переходит в responded.
type LogTrigger struct {
	logger *slog.Logger
}

// NewLogTrigger создаёт логирующий Trigger.
func NewLogTrigger(logger *slog.Logger) *LogTrigger {
	return &LogTrigger{logger: logger}
}

// SendLotDetails логирует action «детали лота».
func (t *LogTrigger) SendLotDetails(_ context.Context, n *domain.Notification) error {
	t.logger.Info("action: send lot details",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"entity_type", n.EntityType,
		"entity_id", n.EntityID,
	)
	telemetry.ActionsTriggered.WithLabelValues("lot_details").Inc()
	return nil
}

// SendEditSearchLink логирует action «ссылка на редактирование поиска».
func (t *LogTrigger) SendEditSearchLink(_ context.Context, n *domain.Notification) error {
	t.logger.Info("action: send edit-search link",
		"notification_id", n.ID,
		"user_id", n.UserID,
		"saved_search_id", n.SavedSearchID,
	)
	telemetry.ActionsTriggered.WithLabelValues("edit_search").Inc()
	return nil
}
