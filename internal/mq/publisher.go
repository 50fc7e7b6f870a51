package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в envelope.
type MessageType string

const (
	MessageTypeNotificationEnqueued MessageType = "notification.enqueued"
	MessageTypeActionLotDetails     MessageType = "action.lot_details"
	MessageTypeActionEditSearch     MessageType = "action.edit_search"
)

// Message — envelope всех сообщений Confirma: идентификатор, тип и
// типизированный payload. Потребитель выбирает тип payload'а по Type
// и разворачивает его через ParsePayload.
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NotificationEnqueuedPayload — подсказка диспетчеру: появилась новая
// pending-строка, можно не ждать следующего poll-тика.
type NotificationEnqueuedPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
}

// ActionPayload — downstream action, порождённый ответом пользователя.
// Потребитель — внешний бизнес-сервис; для этого ядра сообщение opaque.
type ActionPayload struct {
	NotificationID uuid.UUID `json:"notification_id"`
	CorrelationID  uuid.UUID `json:"correlation_id"`
	UserID         int64     `json:"user_id"`
	EntityType     string    `json:"entity_type"`
	EntityID       int64     `json:"entity_id"`
	SavedSearchID  int64     `json:"saved_search_id"`
	Recipient      string    `json:"recipient"`
	Decision       string    `json:"decision"`
}

// Publisher публикует persistent-сообщения Confirma в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher поверх соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{conn: conn, logger: logger}
}

// Publish заворачивает payload в envelope и публикует его.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", msgType, err)
	}

	msg := Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payloadJSON,
		Timestamp: time.Now(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	pub := amqp.Publishing{
		ContentType: "application/json",
		// persistent: сообщение переживёт рестарт брокера
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.Timestamp,
		Body:         body,
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		return ch.PublishWithContext(ctx, string(exchange), string(routingKey), false, false, pub)
	})
	if err != nil {
		return fmt.Errorf("publish %s to %s/%s: %w", msgType, exchange, routingKey, err)
	}

	p.logger.Debug("message published",
		"exchange", exchange,
		"routing_key", routingKey,
		"message_id", msg.ID,
		"type", msg.Type,
	)
	return nil
}

// PublishNotificationEnqueued публикует подсказку о новой pending-строке.
// Потребитель: Dispatcher.
func (p *Publisher) PublishNotificationEnqueued(ctx context.Context, notificationID uuid.UUID) error {
	return p.Publish(ctx, ExchangeNotifications, RoutingKeyEnqueued,
		MessageTypeNotificationEnqueued,
		NotificationEnqueuedPayload{NotificationID: notificationID},
	)
}

// PublishLotDetailsAction публикует action «отправить детали лота».
// Потребитель: внешний бизнес-сервис.
func (p *Publisher) PublishLotDetailsAction(ctx context.Context, payload ActionPayload) error {
	return p.Publish(ctx, ExchangeActions, RoutingKeyLotDetails, MessageTypeActionLotDetails, payload)
}

// PublishEditSearchAction публикует action «отправить ссылку на
// редактирование поиска». Потребитель: внешний бизнес-сервис.
func (p *Publisher) PublishEditSearchAction(ctx context.Context, payload ActionPayload) error {
	return p.Publish(ctx, ExchangeActions, RoutingKeyEditSearch, MessageTypeActionEditSearch, payload)
}
