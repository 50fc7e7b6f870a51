package provider

import "errors"

// Ошибки провайдеров.
var (
	// ErrUnknownProvider — нет провайдера с таким именем.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNotConfigured — не заданы обязательные credentials.
	ErrNotConfigured = errors.New("provider is not configured")

	// ErrTransport — отправка не удалась (сеть, таймаут, 4xx/5xx от API).
	// Диспетчер трактует как retriable.
	ErrTransport = errors.New("transport failure")

	// ErrNoMessageID — провайдер принял сообщение, но не вернул message id;
	// без него корреляция ответа невозможна.
	ErrNoMessageID = errors.New("provider response has no message id")
)
