package repo

import "errors"

// Общие ошибки репозитория.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate — активный notification с таким dedup-ключом уже есть
	// (конфликт partial unique index). Для вызывающего это «вопрос уже
	// задан», а не сбой.
	ErrDuplicate = errors.New("active notification already exists")

	// ErrAlreadyResponded — строка уже получила ответ; повторный webhook
	// обрабатывается как no-op.
	ErrAlreadyResponded = errors.New("notification already responded")

	// ErrInvalidState — операция невозможна в текущем статусе строки.
	ErrInvalidState = errors.New("invalid state")
)
