// Package telemetry — наблюдаемость процессов Confirma.
//
// SetupLogger настраивает structured logging (slog, JSON по умолчанию)
// с атрибутом service; metrics.go объявляет Prometheus-метрики очереди:
// enqueue/dedup, попытки отправки, webhook-события, downstream actions.
// Каждый процесс экспортирует их на своём /metrics endpoint.
package telemetry
