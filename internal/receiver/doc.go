// Package receiver обрабатывает входящие webhook-события провайдеров.
//
// Receiver — единственное место, где внешние события меняют состояние
// строк очереди: он сопоставляет событие со строкой по provider message
// id, разводит статусы доставки и ответы пользователей, и закрывает
// строку первым распознанным ответом.
//
// Идемпотентность: повтор любого события даёт то же итоговое состояние
// и не порождает повторных downstream actions. Гарантию «ровно один
// action на строку» даёт conditional update MarkResponded — action
// запускает только тот обработчик, чей update изменил строку.
//
// Несопоставимые события отбрасываются с логом и метрикой; состояние
// при этом не меняется, чтобы повторная доставка провайдером могла
// успеть за коммитом отправки.
package receiver
