package dispatcher

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/telemetry"
)

// handleEnqueued обрабатывает hint о новой pending-строке.
//
// Сообщение не несёт состояния — истина в БД, поэтому обработчик просто
// инициирует внеочередной poll: claim сохраняет at-most-once даже если
// hint продублирован или пришёл к нескольким экземплярам.
func (d *Dispatcher) handleEnqueued(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.NotificationEnqueuedPayload](&delivery.Message)
	if err != nil {
		d.logger.Error("failed to parse notification.enqueued payload", "error", err)
		// Некорректный hint не стоит requeue'ить
		return nil
	}

	d.logger.Debug("received notification.enqueued hint",
		"notification_id", payload.NotificationID,
	)

	d.requestPoll()
	return nil
}

// dispatch выполняет одну попытку отправки захваченной строки.
//
// Успех → sent + provider_message_id (присваивается ровно один раз).
// Transport failure → attempt_count+1 и retry по Backoff; после
// исчерпания MaxAttempts строка уходит в терминальный failed.
func (d *Dispatcher) dispatch(ctx context.Context, n *domain.Notification) error {
	p, err := d.providers.Get(n.Provider)
	if err != nil {
		// Неизвестный провайдер — тоже transport failure: конфигурация
		// могла ещё не доехать до этого экземпляра
		return d.recordFailure(ctx, n, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	start := time.Now()
	result, sendErr := p.Send(sendCtx, n)
	telemetry.SendDuration.Observe(time.Since(start).Seconds())

	if sendErr != nil {
		return d.recordFailure(ctx, n, sendErr)
	}

	if err := d.store.MarkSent(ctx, n.ID, result.MessageID, result.Status); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	telemetry.SendAttempts.WithLabelValues("sent").Inc()
	d.logger.Info("notification sent",
		"notification_id", n.ID,
		"correlation_id", n.CorrelationID,
		"provider", n.Provider,
		"provider_message_id", result.MessageID,
		"attempt", n.AttemptCount+1,
	)
	return nil
}

// recordFailure учитывает неудачную попытку: retry или терминальный failed.
// Строка никогда не теряется — она остаётся pending до явного исчерпания.
func (d *Dispatcher) recordFailure(ctx context.Context, n *domain.Notification, sendErr error) error {
	attempt := n.AttemptCount + 1

	if attempt >= d.maxAttempts {
		if err := d.store.MarkFailed(ctx, n.ID); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}

		telemetry.SendAttempts.WithLabelValues("exhausted").Inc()
		d.logger.Warn("send attempts exhausted, notification failed",
			"notification_id", n.ID,
			"correlation_id", n.CorrelationID,
			"provider", n.Provider,
			"attempts", attempt,
			"error", sendErr,
		)
		return fmt.Errorf("%w: %v", ErrAttemptsExhausted, sendErr)
	}

	nextAt := d.backoff.NextAttemptAt(time.Now().UTC(), attempt)
	if err := d.store.ScheduleRetry(ctx, n.ID, nextAt); err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}

	telemetry.SendAttempts.WithLabelValues("retry").Inc()
	d.logger.Warn("send failed, retry scheduled",
		"notification_id", n.ID,
		"provider", n.Provider,
		"attempt", attempt,
		"next_attempt_at", nextAt,
		"error", sendErr,
	)
	return nil
}
