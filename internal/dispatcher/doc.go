// Package dispatcher отправляет pending notifications через провайдеров.
//
// # Обзор
//
// Dispatcher — stateless компонент системы Confirma, который превращает
// pending-строки notifications_queue в отправленные вопросы. Отвечает за:
//
//   - Получение hints из очереди notifications.enqueued (event-driven)
//   - Периодический claim due pending-строк в БД (polling fallback)
//   - Отправку через провайдера строки (zapi, telegram) с таймаутом
//   - Retry с exponential backoff и терминальный failed после исчерпания
//
// Dispatchers масштабируются горизонтально — несколько экземпляров
// опрашивают одну БД.
//
// # Корректность под конкуренцией
//
// Единственная граница корректности — атомарный claim в Store.ClaimDue
// (UPDATE ... WHERE id IN (SELECT ... FOR UPDATE SKIP LOCKED)): из N
// конкурирующих экземпляров строку получает ровно один, и ровно один
// записывает provider_message_id. MQ hint лишь инициирует внеочередной
// poll и не несёт состояния, поэтому дубликаты hints безвредны.
//
// Если процесс падает между claim и финальным обновлением, строка
// остаётся захваченной; протухший claim снимает janitor, после чего
// строка снова доступна для отправки.
//
// # Retry
//
// Backoff — чистая функция номера попытки: Initial * 2^(attempt-1)
// с потолком Max, без jitter. «Сейчас» передаётся аргументом, так что
// планирование детерминировано и тестируется без wall clock.
// attempt_count растёт только на попытках отправки; webhook-обработка
// его не трогает.
package dispatcher
