package domain

// Status — статус notification в очереди.
//
// Жизненный цикл:
//
//	pending → sent → responded
//	        ↘ failed (после исчерпания retry)
type Status string

const (
	// StatusPending — notification создан, ожидает отправки (или retry).
	StatusPending Status = "pending"

	// StatusSent — провайдер принял сообщение, ждём ответа пользователя.
	StatusSent Status = "sent"

	// StatusResponded — пользователь ответил, downstream action выполнен.
	StatusResponded Status = "responded"

	// StatusFailed — отправка не удалась после всех попыток.
	StatusFailed Status = "failed"
)

// IsTerminal возвращает true, если статус финальный.
// Терминальная строка не блокирует повторное создание того же
// логического notification (dedup-ограничение действует только
// на pending/sent).
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResponded, StatusFailed:
		return true
	default:
		return false
	}
}

// IsActive возвращает true, если строка участвует в dedup-ограничении.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusSent
}

// InteractionKind — тип задаваемого вопроса.
//
// Классификация ответа выполняется отдельным classifier'ом для каждого
// kind, поэтому новые типы вопросов не трогают логику корреляции.
type InteractionKind string

const (
	// InteractionAskDetails — "нашли лот, прислать детали?" (да/нет).
	InteractionAskDetails InteractionKind = "ask_details"
)

// Decision — результат классификации ответа пользователя.
type Decision string

const (
	// DecisionAffirmative — пользователь согласился ("sim"/"yes"/кнопка «да»).
	DecisionAffirmative Decision = "affirmative"

	// DecisionNegative — пользователь отказался ("não"/"no"/кнопка «нет»).
	DecisionNegative Decision = "negative"

	// DecisionUnrecognized — текст не распознан; строка остаётся открытой.
	DecisionUnrecognized Decision = "unrecognized"
)
