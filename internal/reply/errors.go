package reply

import "errors"

// Ошибки классификации.
var (
	// ErrUnknownInteractionKind — нет classifier'а для данного типа вопроса.
	ErrUnknownInteractionKind = errors.New("unknown interaction kind")
)
