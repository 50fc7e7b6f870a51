package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Notification — одна строка в notifications_queue: логическая попытка
// задать пользователю вопрос через messaging-провайдера и дождаться ответа.
//
// Строка создаётся backend'ом (через API), отправляется Dispatcher'ом,
// а ответ привязывается обратно Webhook Receiver'ом по ProviderMessageID.
// Строки не удаляются — терминальная строка остаётся для аудита.
type Notification struct {
	// ID — внутренний идентификатор строки.
	ID uuid.UUID `json:"id"`

	// CorrelationID — внешне видимый идентификатор. Генерируется один раз
	// при создании и никогда не переиспользуется.
	CorrelationID uuid.UUID `json:"correlation_id"`

	// --- Dedup key (уникален среди строк со статусом pending/sent) ---

	// UserID — пользователь, которому адресован вопрос.
	UserID int64 `json:"user_id"`

	// Channel — канал доставки: "whatsapp", "telegram".
	Channel string `json:"channel"`

	// AlertType — тип алерта, породившего вопрос (напр. "new_search_result").
	AlertType string `json:"alert_type"`

	// EntityType — тип сущности, о которой идёт речь (напр. "lot").
	EntityType string `json:"entity_type"`

	// EntityID — идентификатор сущности.
	EntityID int64 `json:"entity_id"`

	// SavedSearchID — сохранённый поиск, из которого пришёл результат.
	SavedSearchID int64 `json:"saved_search_id"`

	// --- Содержимое сообщения ---

	// Recipient — адрес доставки у провайдера (телефон / chat id).
	Recipient string `json:"recipient"`

	// InteractionKind — тип вопроса. Определяет classifier ответа.
	InteractionKind InteractionKind `json:"interaction_kind"`

	// Payload — данные для составления текста сообщения
	// (имя пользователя, название лота и т.п.).
	Payload map[string]any `json:"payload,omitempty"`

	// --- Жизненный цикл отправки ---

	// Status — текущий статус строки.
	Status Status `json:"status"`

	// AttemptCount — число попыток отправки (успешных и неуспешных).
	// Увеличивается только при отправке, никогда при обработке webhook.
	AttemptCount int `json:"attempt_count"`

	// NextAttemptAt — когда можно делать следующую попытку.
	// nil означает «готов сейчас» (или retry не запланирован).
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`

	// ClaimedAt — момент захвата строки диспетчером на время отправки.
	// Сбрасывается при переходе в sent/pending(retry)/failed;
	// протухший claim снимает janitor.
	ClaimedAt *time.Time `json:"claimed_at,omitempty"`

	// --- Привязка к провайдеру ---

	// Provider — имя провайдера ("zapi", "telegram").
	Provider string `json:"provider"`

	// ProviderMessageID — идентификатор отправленного сообщения у провайдера.
	// Присваивается один раз и далее неизменен; ключ корреляции webhook'ов.
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	// ProviderStatus — последний известный статус доставки от провайдера.
	ProviderStatus string `json:"provider_status,omitempty"`

	// WebhookPayload — последний сырой callback (для аудита, overwrite-last).
	WebhookPayload []byte `json:"webhook_payload,omitempty"`

	// WebhookReceivedAt — время последнего callback.
	WebhookReceivedAt *time.Time `json:"webhook_received_at,omitempty"`

	// --- Ответ пользователя ---

	// Responded — монотонный флаг false→true; ставится ровно один раз.
	Responded bool `json:"responded"`

	// ResponseValue — классифицированный ответ ("affirmative"/"negative").
	ResponseValue string `json:"response_value,omitempty"`

	// ResponseAt — время ответа.
	ResponseAt *time.Time `json:"response_at,omitempty"`

	// CreatedAt — время создания строки.
	CreatedAt time.Time `json:"created_at"`
}

// DedupKey — кортеж, определяющий «тот же самый логический notification».
// Уникальность среди активных строк обеспечивается partial unique index
// в БД, а не в памяти процесса.
type DedupKey struct {
	UserID        int64
	Channel       string
	AlertType     string
	EntityType    string
	EntityID      int64
	SavedSearchID int64
}

// DedupKey возвращает dedup-ключ строки.
func (n *Notification) DedupKey() DedupKey {
	return DedupKey{
		UserID:        n.UserID,
		Channel:       n.Channel,
		AlertType:     n.AlertType,
		EntityType:    n.EntityType,
		EntityID:      n.EntityID,
		SavedSearchID: n.SavedSearchID,
	}
}

// String возвращает компактное представление ключа для логов.
func (k DedupKey) String() string {
	return fmt.Sprintf("user=%d channel=%s alert=%s %s=%d search=%d",
		k.UserID, k.Channel, k.AlertType, k.EntityType, k.EntityID, k.SavedSearchID)
}

// New создаёт notification в статусе pending с новым ID и CorrelationID.
func New(userID int64, channel, provider, recipient string, kind InteractionKind) *Notification {
	return &Notification{
		ID:              uuid.New(),
		CorrelationID:   uuid.New(),
		UserID:          userID,
		Channel:         channel,
		Provider:        provider,
		Recipient:       recipient,
		InteractionKind: kind,
		Status:          StatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

// CanRetry проверяет, остались ли попытки отправки.
func (n *Notification) CanRetry(maxAttempts int) bool {
	return n.AttemptCount < maxAttempts
}

// AwaitingReply возвращает true, если строка отправлена и ещё ждёт ответа.
func (n *Notification) AwaitingReply() bool {
	return n.Status == StatusSent && !n.Responded
}

// PayloadString возвращает строковое поле payload или fallback.
func (n *Notification) PayloadString(key, fallback string) string {
	if n.Payload == nil {
		return fallback
	}
	if v, ok := n.Payload[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
