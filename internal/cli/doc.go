// Package cli реализует инструмент командной строки Confirma.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Confirma API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// Используется оператором для постановки вопросов вручную и для
// проверки состояния очереди.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Confirma API. Инкапсулирует HTTP-запросы, парсинг
// ответов (DataResponse, ListResponse, ErrorResponse) и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	notifications, err := client.ListNotifications(cli.ListNotificationsOpts{})
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: confirma notification list --json | jq .
//
// ## Commands
//
// Cobra-команды:
//   - notification: list, enqueue, show, correlation
//
// Группа создаётся фабричной функцией NewNotificationCmd, принимающей
// clientFn и outputFn — замыкания для ленивого создания Client и Output
// после парсинга PersistentFlags.
package cli
