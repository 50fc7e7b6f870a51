package dispatcher

import "errors"

// Ошибки диспетчера.
var (
	// ErrNotificationNotFound — notification не найден в БД.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrAttemptsExhausted — все попытки отправки исчерпаны, строка
	// переведена в failed.
	ErrAttemptsExhausted = errors.New("send attempts exhausted")
)
