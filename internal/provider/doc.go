// Package provider абстрагирует messaging-провайдеров.
//
// # Обзор
//
// Провайдер отвечает за две стороны одного канала:
//
//   - Send — отправить вопрос-подтверждение и вернуть message id,
//     по которому позже коррелируются входящие callbacks
//   - ParseWebhook — разобрать сырой callback провайдера в нейтральный
//     WebhookEvent (статус доставки либо ответ пользователя)
//
// Реализации:
//   - ZAPI     — WhatsApp через Z-API (send-button-list, ReceivedCallback)
//   - Telegram — Bot API (sendMessage + inline keyboard, callback_query)
//
// Новый провайдер добавляется реализацией интерфейса и регистрацией в
// Registry; очередь, корреляция и классификация ответов его не знают.
//
// # Корреляция
//
// Для status-событий MessageID — id самого сообщения. Для reply-событий
// MessageID — id сообщения, НА которое отвечает пользователь (reference /
// reply_to / callback_query.message): только он указывает на строку
// в notifications_queue. Событие без корреляционного id разрешается
// Receiver'ом в UnresolvedCorrelation и отбрасывается с логом.
package provider
