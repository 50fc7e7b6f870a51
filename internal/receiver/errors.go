package receiver

import "errors"

// Ошибки обработки webhook-событий.
var (
	// ErrUnresolved — событие не удалось сопоставить ни с одной строкой
	// очереди по provider message id.
	ErrUnresolved = errors.New("webhook event does not match any notification")

	// ErrTriggerFailed — строка переведена в responded, но downstream
	// action опубликовать не удалось.
	ErrTriggerFailed = errors.New("downstream action trigger failed")
)
