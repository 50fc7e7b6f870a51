// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений
//   - consumer.go   — потребление сообщений
//
// Типы сообщений:
//   - notification.enqueued — новая pending-строка (hint диспетчеру)
//   - action.lot_details    — отправить пользователю детали лота
//   - action.edit_search    — отправить ссылку на редактирование поиска
//
// Exchanges:
//   - confirma.notifications — события постановки в очередь
//   - confirma.actions       — downstream actions (внешние потребители)
//   - confirma.dlq           — dead letter queue
//
// Источник истины о состоянии notification — БД; очередь notification.enqueued
// лишь снижает латентность диспетчера между poll-тиками. Actions, напротив,
// публикуются ровно один раз на строку (гарантия MarkResponded) и защищены DLQ.
package mq
