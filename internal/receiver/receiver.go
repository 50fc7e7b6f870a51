package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Confirma/internal/actions"
	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/provider"
	"github.com/shaiso/Confirma/internal/reply"
	"github.com/shaiso/Confirma/internal/repo"
	"github.com/shaiso/Confirma/internal/telemetry"
)

// Store — операции хранилища, нужные обработчику webhook'ов.
// Реализуется *repo.NotificationRepo.
type Store interface {
	GetByProviderMessageID(ctx context.Context, messageID string) (*domain.Notification, error)
	RecordDeliveryStatus(ctx context.Context, id uuid.UUID, providerStatus string, payload []byte, receivedAt time.Time) error
	RecordWebhookAudit(ctx context.Context, id uuid.UUID, payload []byte, receivedAt time.Time) error
	MarkResponded(ctx context.Context, id uuid.UUID, decision domain.Decision, payload []byte, respondedAt time.Time) error
}

// Outcome — итог обработки одного webhook-события.
type Outcome string

const (
	// OutcomeStatusRecorded — обновлён статус доставки провайдера.
	OutcomeStatusRecorded Outcome = "status"
	// OutcomeResponded — принят первый валидный ответ, строка закрыта.
	OutcomeResponded Outcome = "responded"
	// OutcomeDuplicate — повторный ответ на уже закрытую строку, no-op.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeUnresolved — событие не сопоставлено ни с одной строкой.
	OutcomeUnresolved Outcome = "unresolved"
	// OutcomeUnrecognized — ответ не классифицирован, строка осталась открытой.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeIgnored — событие не требует обработки.
	OutcomeIgnored Outcome = "ignored"
)

// Config — зависимости Receiver'а.
type Config struct {
	Store       Store
	Classifiers *reply.Registry
	Trigger     actions.Trigger

	// Providers нужен только для re-prompt после нераспознанного ответа.
	// nil — re-prompt выключен.
	Providers *provider.Registry

	Logger *slog.Logger
}

// Receiver сопоставляет webhook-события со строками очереди и применяет
// их к состоянию: статусы доставки, первый валидный ответ, повторы.
//
// Обработка одного события изолирована: ни один исход (включая ошибку)
// не должен прерывать обработку остальных событий пакета — это
// обеспечивает вызывающий, Receiver лишь возвращает исход per-event.
type Receiver struct {
	store       Store
	classifiers *reply.Registry
	trigger     actions.Trigger
	providers   *provider.Registry
	logger      *slog.Logger
}

// New создаёт Receiver.
func New(cfg Config) *Receiver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		store:       cfg.Store,
		classifiers: cfg.Classifiers,
		trigger:     cfg.Trigger,
		providers:   cfg.Providers,
		logger:      logger,
	}
}

// Process применяет одно webhook-событие к состоянию очереди.
//
// Порядок разбора:
//  1. корреляция по provider message id; не нашли — discard + лог,
//     состояние не меняется;
//  2. статусное событие — обновить provider_status, строку не закрывать;
//  3. ответ на закрытую строку — аудит, no-op;
//  4. ответ на открытую строку — классифицировать; распознанный ответ
//     закрывает строку conditional update'ом, победитель гонки запускает
//     ровно один downstream action; нераспознанный — аудит + re-prompt,
//     строка остаётся открытой.
func (r *Receiver) Process(ctx context.Context, ev *provider.WebhookEvent) (Outcome, error) {
	if ev == nil {
		return OutcomeIgnored, nil
	}

	now := time.Now().UTC()

	if ev.MessageID == "" {
		r.logger.Warn("webhook event without message id, discarding", "provider", ev.Provider)
		telemetry.WebhookEvents.WithLabelValues("unresolved").Inc()
		return OutcomeUnresolved, nil
	}

	n, err := r.store.GetByProviderMessageID(ctx, ev.MessageID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// Чужое сообщение либо ответ пришёл до коммита MarkSent.
			// Состояние не меняем: провайдер может повторить доставку.
			r.logger.Warn("webhook event unresolved, discarding",
				"provider", ev.Provider,
				"provider_message_id", ev.MessageID,
			)
			telemetry.WebhookEvents.WithLabelValues("unresolved").Inc()
			return OutcomeUnresolved, nil
		}
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, fmt.Errorf("resolve webhook event: %w", err)
	}

	if !ev.IsReply() {
		return r.recordStatus(ctx, n, ev, now)
	}
	return r.processReply(ctx, n, ev, now)
}

// recordStatus фиксирует обновление статуса доставки.
func (r *Receiver) recordStatus(ctx context.Context, n *domain.Notification, ev *provider.WebhookEvent, now time.Time) (Outcome, error) {
	if err := r.store.RecordDeliveryStatus(ctx, n.ID, ev.DeliveryStatus, ev.Raw, now); err != nil {
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, fmt.Errorf("record delivery status: %w", err)
	}

	r.logger.Debug("delivery status recorded",
		"notification_id", n.ID,
		"provider", ev.Provider,
		"provider_status", ev.DeliveryStatus,
	)
	telemetry.WebhookEvents.WithLabelValues("status").Inc()
	return OutcomeStatusRecorded, nil
}

// processReply обрабатывает входящий ответ пользователя.
func (r *Receiver) processReply(ctx context.Context, n *domain.Notification, ev *provider.WebhookEvent, now time.Time) (Outcome, error) {
	if n.Responded || n.Status.IsTerminal() {
		return r.recordDuplicate(ctx, n, ev, now)
	}

	classifier, err := r.classifiers.Get(n.InteractionKind)
	if err != nil {
		// Строка записана более новой версией сервиса; повтор не поможет.
		r.logger.Error("no classifier for interaction kind, discarding reply",
			"notification_id", n.ID,
			"interaction_kind", n.InteractionKind,
		)
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, nil
	}

	decision := classifier.Classify(ev.ReplyValue())
	if decision == domain.DecisionUnrecognized {
		return r.recordUnrecognized(ctx, n, ev, now)
	}

	err = r.store.MarkResponded(ctx, n.ID, decision, ev.Raw, now)
	switch {
	case errors.Is(err, repo.ErrAlreadyResponded):
		// Проиграли гонку конкурентному ответу — он уже закрыл строку.
		return r.recordDuplicate(ctx, n, ev, now)
	case err != nil:
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, fmt.Errorf("mark responded: %w", err)
	}

	r.logger.Info("reply accepted",
		"notification_id", n.ID,
		"correlation_id", n.CorrelationID,
		"decision", decision,
	)
	telemetry.WebhookEvents.WithLabelValues("responded").Inc()

	// Сюда доходит только победитель conditional update'а, поэтому
	// action запускается ровно один раз на строку.
	if err := r.fireTrigger(ctx, n, decision); err != nil {
		// Строка уже закрыта; потерянный action виден оператору
		// в логе и метриках, повтор webhook'а его не воскресит.
		r.logger.Error("downstream action failed",
			"notification_id", n.ID,
			"decision", decision,
			"error", err,
		)
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeResponded, fmt.Errorf("%w: %v", ErrTriggerFailed, err)
	}

	return OutcomeResponded, nil
}

// recordDuplicate фиксирует повторный ответ на закрытую строку.
func (r *Receiver) recordDuplicate(ctx context.Context, n *domain.Notification, ev *provider.WebhookEvent, now time.Time) (Outcome, error) {
	if err := r.store.RecordWebhookAudit(ctx, n.ID, ev.Raw, now); err != nil {
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, fmt.Errorf("record duplicate reply: %w", err)
	}

	r.logger.Info("duplicate reply ignored",
		"notification_id", n.ID,
		"provider", ev.Provider,
	)
	telemetry.WebhookEvents.WithLabelValues("duplicate").Inc()
	return OutcomeDuplicate, nil
}

// recordUnrecognized фиксирует нераспознанный ответ. Строка остаётся
// открытой: более поздний валидный ответ всё ещё будет принят.
func (r *Receiver) recordUnrecognized(ctx context.Context, n *domain.Notification, ev *provider.WebhookEvent, now time.Time) (Outcome, error) {
	if err := r.store.RecordWebhookAudit(ctx, n.ID, ev.Raw, now); err != nil {
		telemetry.WebhookEvents.WithLabelValues("error").Inc()
		return OutcomeIgnored, fmt.Errorf("record unrecognized reply: %w", err)
	}

	r.logger.Info("unrecognized reply",
		"notification_id", n.ID,
		"provider", ev.Provider,
		"reply", ev.ReplyValue(),
	)
	telemetry.WebhookEvents.WithLabelValues("unrecognized").Inc()

	r.reprompt(ctx, n)
	return OutcomeUnrecognized, nil
}

// reprompt просит пользователя переформулировать ответ. Состояние очереди
// не меняет; любая ошибка только логируется.
func (r *Receiver) reprompt(ctx context.Context, n *domain.Notification) {
	if r.providers == nil {
		return
	}
	p, err := r.providers.Get(n.Provider)
	if err != nil {
		r.logger.Warn("reprompt skipped", "notification_id", n.ID, "error", err)
		return
	}
	q := provider.BuildReprompt(n)
	if err := p.SendText(ctx, n.Recipient, q.Text); err != nil {
		r.logger.Warn("reprompt failed", "notification_id", n.ID, "error", err)
	}
}

// fireTrigger запускает downstream action, соответствующий решению.
func (r *Receiver) fireTrigger(ctx context.Context, n *domain.Notification, decision domain.Decision) error {
	switch decision {
	case domain.DecisionAffirmative:
		return r.trigger.SendLotDetails(ctx, n)
	case domain.DecisionNegative:
		return r.trigger.SendEditSearchLink(ctx, n)
	default:
		return fmt.Errorf("no action for decision %q", decision)
	}
}
