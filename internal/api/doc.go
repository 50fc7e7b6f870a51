// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go              — Handler с DI (репозиторий, receiver, publisher)
//   - routes.go               — регистрация маршрутов
//   - middleware.go           — middleware (logging, recovery)
//   - response.go             — унифицированные JSON-ответы и обработка ошибок
//   - dto.go                  — Data Transfer Objects (request/response)
//   - notification_handler.go — постановка в очередь и чтение строк
//   - webhook_handler.go      — приём callbacks провайдеров
//
// API предоставляет два входа: REST endpoints для backend'а
// (постановка вопросов, статус по correlation id) и webhook endpoints
// для messaging-провайдеров (статусы доставки, ответы пользователей).
package api
