package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeNotifications Exchange = "confirma.notifications"
	ExchangeActions       Exchange = "confirma.actions"
	ExchangeDLQ           Exchange = "confirma.dlq"
)

const (
	// QueueNotificationsEnqueued — подсказки диспетчеру о новых строках.
	// Потеря сообщения не критична: polling fallback подхватит строку.
	QueueNotificationsEnqueued Queue = "notifications.enqueued"

	// QueueActionsLotDetails — downstream action «отправить детали лота».
	QueueActionsLotDetails Queue = "actions.lot_details"

	// QueueActionsEditSearch — downstream action «отправить ссылку на
	// редактирование сохранённого поиска».
	QueueActionsEditSearch Queue = "actions.edit_search"

	// QueueDLQActions — DLQ для actions (обрабатывается вручную).
	QueueDLQActions Queue = "dlq.actions"
)

const (
	RoutingKeyEnqueued   RoutingKey = "enqueued"
	RoutingKeyLotDetails RoutingKey = "lot_details"
	RoutingKeyEditSearch RoutingKey = "edit_search"
	RoutingKeyDLQActions RoutingKey = "actions"
)

// binding описывает очередь вместе с её привязкой и аргументами.
type binding struct {
	queue    Queue
	key      RoutingKey
	exchange Exchange
	args     amqp.Table
}

// SetupTopology объявляет exchanges, queues и bindings.
// Идемпотентно — вызывается при каждом старте процесса.
func SetupTopology(ctx context.Context, conn *Connection) error {
	// Actions — внешние побочные эффекты: при ошибке обработчика
	// сообщение должно уйти в DLQ, а не потеряться.
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQActions),
	}

	bindings := []binding{
		// notifications.enqueued — без DLQ: это hint, истина в БД
		{QueueNotificationsEnqueued, RoutingKeyEnqueued, ExchangeNotifications, nil},
		{QueueActionsLotDetails, RoutingKeyLotDetails, ExchangeActions, dlqArgs},
		{QueueActionsEditSearch, RoutingKeyEditSearch, ExchangeActions, dlqArgs},
		{QueueDLQActions, RoutingKeyDLQActions, ExchangeDLQ, nil},
	}

	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeNotifications, ExchangeActions, ExchangeDLQ} {
			if err := ch.ExchangeDeclare(string(ex), "direct", true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, b.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.key), string(b.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
			}
		}
		return nil
	})
}
