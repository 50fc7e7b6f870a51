package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Confirma/internal/domain"
)

// Provider — интерфейс messaging-провайдера.
//
// Реализации: ZAPI (WhatsApp через Z-API), Telegram.
//
// Send обязан быть ограничен таймаутом через ctx: зависший вызов
// трактуется диспетчером как transport failure и уходит в retry.
type Provider interface {
	// Name возвращает имя провайдера (совпадает с колонкой provider).
	Name() string

	// Send отправляет вопрос-подтверждение получателю notification.
	// Возвращает идентификатор сообщения у провайдера — ключ корреляции
	// для последующих webhook'ов.
	Send(ctx context.Context, n *domain.Notification) (*SendResult, error)

	// SendText отправляет простое текстовое сообщение (re-prompt после
	// нераспознанного ответа). Состояние очереди не меняет.
	SendText(ctx context.Context, recipient, text string) error

	// ParseWebhook разбирает сырой callback провайдера в нейтральное
	// событие. Возвращает (nil, nil) для payload'ов, не относящихся
	// к этой подсистеме (их просто игнорируют).
	ParseWebhook(body []byte) (*WebhookEvent, error)
}

// SendResult — результат успешной отправки.
type SendResult struct {
	// MessageID — идентификатор сообщения у провайдера.
	MessageID string

	// Status — начальный статус доставки ("queued", "sent", ...).
	Status string
}

// WebhookEvent — нейтральное представление входящего callback.
//
// Для reply-событий MessageID — идентификатор исходного сообщения,
// на которое отвечает пользователь (а не самого ответа): именно по нему
// Correlation Resolver находит строку.
type WebhookEvent struct {
	// Provider — имя провайдера, приславшего callback.
	Provider string

	// MessageID — ключ корреляции (см. выше).
	MessageID string

	// DeliveryStatus — статус доставки; непустой для status-only событий.
	DeliveryStatus string

	// ReplyText — свободный текст ответа пользователя.
	ReplyText string

	// ButtonID — идентификатор нажатой кнопки (button postback).
	ButtonID string

	// Raw — сырой payload для аудита.
	Raw json.RawMessage
}

// IsReply возвращает true, если событие содержит ответ пользователя.
// Событие без ответа — чистое обновление статуса доставки.
func (e *WebhookEvent) IsReply() bool {
	return e.ReplyText != "" || e.ButtonID != ""
}

// ReplyValue возвращает содержимое ответа: button postback имеет
// приоритет над свободным текстом.
func (e *WebhookEvent) ReplyValue() string {
	if e.ButtonID != "" {
		return e.ButtonID
	}
	return e.ReplyText
}

// Registry — реестр провайдеров по имени.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register добавляет провайдера в реестр.
func (r *Registry) Register(p Provider) {
	r.providers[p.Name()] = p
}

// Get возвращает провайдера по имени.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names возвращает имена зарегистрированных провайдеров.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
