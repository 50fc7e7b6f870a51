package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Confirma/internal/domain"
)

// Имя partial unique index, реализующего Dedup Guard.
const dedupIndexName = "notifications_queue_dedup_active"

// Полный список колонок для SELECT (порядок согласован со scan-хелперами).
const notificationColumns = `
	id, correlation_id,
	user_id, channel, alert_type, entity_type, entity_id, saved_search_id,
	recipient, interaction_kind, payload,
	status, attempt_count, next_attempt_at, claimed_at,
	provider, provider_message_id, provider_status, webhook_payload, webhook_received_at,
	responded, response_value, response_at, created_at`

// NotificationRepo — репозиторий для работы с notifications_queue.
//
// Это единственный источник истины о состоянии notification. Все
// инварианты конкурентности выражены здесь одиночными условными
// statement'ами: claim через FOR UPDATE SKIP LOCKED, ответ через
// conditional update с responded = FALSE.
type NotificationRepo struct {
	pool *pgxpool.Pool
}

// NewNotificationRepo создаёт новый NotificationRepo.
func NewNotificationRepo(pool *pgxpool.Pool) *NotificationRepo {
	return &NotificationRepo{pool: pool}
}

// Create вставляет новый notification в статусе pending.
//
// Dedup Guard: если активная строка (pending/sent) с тем же dedup-ключом
// уже существует, вставка атомарно отклоняется partial unique index'ом
// и возвращается ErrDuplicate. Отдельной блокировки не требуется.
func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	payloadJSON, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
		INSERT INTO notifications_queue (
			id, correlation_id,
			user_id, channel, alert_type, entity_type, entity_id, saved_search_id,
			recipient, interaction_kind, payload,
			status, attempt_count, provider, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.pool.Exec(ctx, query,
		n.ID,
		n.CorrelationID,
		n.UserID,
		n.Channel,
		n.AlertType,
		n.EntityType,
		n.EntityID,
		n.SavedSearchID,
		n.Recipient,
		n.InteractionKind,
		payloadJSON,
		n.Status,
		n.AttemptCount,
		n.Provider,
		n.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == dedupIndexName {
			return fmt.Errorf("%w: %s", ErrDuplicate, n.DedupKey())
		}
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// GetByID возвращает notification по внутреннему ID.
func (r *NotificationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications_queue WHERE id = $1`
	return scanNotification(r.pool.QueryRow(ctx, query, id))
}

// GetByCorrelationID возвращает notification по внешнему correlation_id.
func (r *NotificationRepo) GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications_queue
		WHERE correlation_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanNotification(r.pool.QueryRow(ctx, query, correlationID))
}

// GetByProviderMessageID находит строку, к которой относится webhook.
// Это ключ корреляции: provider_message_id присваивается один раз при
// отправке и далее неизменен.
func (r *NotificationRepo) GetByProviderMessageID(ctx context.Context, messageID string) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications_queue WHERE provider_message_id = $1`
	return scanNotification(r.pool.QueryRow(ctx, query, messageID))
}

// GetActiveByDedupKey возвращает активную (pending/sent) строку с данным
// dedup-ключом. Таких строк не бывает больше одной — это гарантирует
// partial unique index.
func (r *NotificationRepo) GetActiveByDedupKey(ctx context.Context, key domain.DedupKey) (*domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications_queue
		WHERE user_id = $1 AND channel = $2 AND alert_type = $3
		  AND entity_type = $4 AND entity_id = $5 AND saved_search_id = $6
		  AND status IN ('pending', 'sent')
	`
	return scanNotification(r.pool.QueryRow(ctx, query,
		key.UserID, key.Channel, key.AlertType, key.EntityType, key.EntityID, key.SavedSearchID))
}

// List возвращает notifications, опционально фильтруя по статусу.
func (r *NotificationRepo) List(ctx context.Context, status domain.Status, limit int) ([]domain.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications_queue
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ClaimDue атомарно захватывает пачку due-строк для отправки.
//
// Выбираются pending-строки с next_attempt_at IS NULL или <= now,
// не захваченные другим диспетчером, в порядке created_at (oldest first —
// ограничивает worst-case latency). FOR UPDATE SKIP LOCKED гарантирует,
// что конкурирующие диспетчеры не получат одну и ту же строку.
func (r *NotificationRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error) {
	query := `
		UPDATE notifications_queue
		SET claimed_at = $1
		WHERE id IN (
			SELECT id FROM notifications_queue
			WHERE status = 'pending'
			  AND (next_attempt_at IS NULL OR next_attempt_at <= $1)
			  AND claimed_at IS NULL
			ORDER BY created_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + notificationColumns
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// MarkSent фиксирует успешную отправку: присваивает provider_message_id
// (ровно один раз), переводит строку в sent и инкрементирует attempt_count.
func (r *NotificationRepo) MarkSent(ctx context.Context, id uuid.UUID, providerMessageID, providerStatus string) error {
	query := `
		UPDATE notifications_queue
		SET status = 'sent',
		    provider_message_id = $2,
		    provider_status = $3,
		    attempt_count = attempt_count + 1,
		    next_attempt_at = NULL,
		    claimed_at = NULL
		WHERE id = $1 AND status = 'pending' AND provider_message_id IS NULL
	`
	result, err := r.pool.Exec(ctx, query, id, providerMessageID, providerStatus)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s is not pending", ErrInvalidState, id)
	}
	return nil
}

// ScheduleRetry учитывает неудачную попытку и назначает следующую.
// Строка остаётся pending; claim снимается.
func (r *NotificationRepo) ScheduleRetry(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error {
	query := `
		UPDATE notifications_queue
		SET attempt_count = attempt_count + 1,
		    next_attempt_at = $2,
		    claimed_at = NULL
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.pool.Exec(ctx, query, id, nextAttemptAt)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s is not pending", ErrInvalidState, id)
	}
	return nil
}

// MarkFailed переводит строку в терминальный failed после исчерпания
// попыток. Дальнейших отправок не будет.
func (r *NotificationRepo) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications_queue
		SET status = 'failed',
		    attempt_count = attempt_count + 1,
		    next_attempt_at = NULL,
		    claimed_at = NULL
		WHERE id = $1 AND status = 'pending'
	`
	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: notification %s is not pending", ErrInvalidState, id)
	}
	return nil
}

// RecordDeliveryStatus сохраняет delivery-status callback провайдера.
// Обновляет только provider_status и аудит-поля; responded и status
// не затрагиваются. attempt_count не меняется — webhook не попытка отправки.
func (r *NotificationRepo) RecordDeliveryStatus(ctx context.Context, id uuid.UUID, providerStatus string, payload []byte, receivedAt time.Time) error {
	query := `
		UPDATE notifications_queue
		SET provider_status = $2,
		    webhook_payload = $3,
		    webhook_received_at = $4
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, providerStatus, payload, receivedAt)
	if err != nil {
		return fmt.Errorf("record delivery status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordWebhookAudit сохраняет сырой callback для аудита без каких-либо
// изменений состояния (повторная доставка, нераспознанный ответ).
// История payload'ов не ведётся — overwrite-last-value.
func (r *NotificationRepo) RecordWebhookAudit(ctx context.Context, id uuid.UUID, payload []byte, receivedAt time.Time) error {
	query := `
		UPDATE notifications_queue
		SET webhook_payload = $2,
		    webhook_received_at = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, id, payload, receivedAt)
	if err != nil {
		return fmt.Errorf("record webhook audit: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkResponded атомарно фиксирует ответ пользователя.
//
// Guard `responded = FALSE AND status = 'sent'` в одном statement — это
// граница корректности at-most-once: из двух конкурирующих одинаковых
// ответов ровно один получит RowsAffected = 1, второй — ErrAlreadyResponded.
// Downstream action можно запускать только после успешного возврата.
func (r *NotificationRepo) MarkResponded(ctx context.Context, id uuid.UUID, decision domain.Decision, payload []byte, respondedAt time.Time) error {
	query := `
		UPDATE notifications_queue
		SET responded = TRUE,
		    response_value = $2,
		    response_at = $3,
		    status = 'responded',
		    webhook_payload = $4,
		    webhook_received_at = $3
		WHERE id = $1 AND responded = FALSE AND status = 'sent'
	`
	result, err := r.pool.Exec(ctx, query, id, string(decision), respondedAt, payload)
	if err != nil {
		return fmt.Errorf("mark responded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrAlreadyResponded
	}
	return nil
}

// RequeueStaleClaims снимает протухшие claims (диспетчер упал между
// захватом и финальным обновлением). Строки снова становятся доступными
// для ClaimDue. Возвращает количество освобождённых строк.
func (r *NotificationRepo) RequeueStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error) {
	query := `
		UPDATE notifications_queue
		SET claimed_at = NULL
		WHERE status = 'pending' AND claimed_at IS NOT NULL AND claimed_at < $1
	`
	result, err := r.pool.Exec(ctx, query, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("requeue stale claims: %w", err)
	}
	return result.RowsAffected(), nil
}

// --- Helpers ---

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	n, err := scanNotificationFrom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return n, err
}

func collectNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var out []domain.Notification
	for rows.Next() {
		n, err := scanNotificationFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func scanNotificationFrom(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var payloadJSON []byte
	var providerMessageID, providerStatus, responseValue *string

	err := row.Scan(
		&n.ID,
		&n.CorrelationID,
		&n.UserID,
		&n.Channel,
		&n.AlertType,
		&n.EntityType,
		&n.EntityID,
		&n.SavedSearchID,
		&n.Recipient,
		&n.InteractionKind,
		&payloadJSON,
		&n.Status,
		&n.AttemptCount,
		&n.NextAttemptAt,
		&n.ClaimedAt,
		&n.Provider,
		&providerMessageID,
		&providerStatus,
		&n.WebhookPayload,
		&n.WebhookReceivedAt,
		&n.Responded,
		&responseValue,
		&n.ResponseAt,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	if payloadJSON != nil {
		if err := json.Unmarshal(payloadJSON, &n.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	if providerMessageID != nil {
		n.ProviderMessageID = *providerMessageID
	}
	if providerStatus != nil {
		n.ProviderStatus = *providerStatus
	}
	if responseValue != nil {
		n.ResponseValue = *responseValue
	}

	return &n, nil
}
