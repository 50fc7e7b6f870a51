package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shaiso/Confirma/internal/receiver"
)

// maxWebhookBody ограничивает размер тела webhook-запроса.
const maxWebhookBody = 1 << 20

// HandleWebhook принимает callbacks провайдера.
// POST /webhooks/{provider}
//
// Тело — либо один callback-объект, либо массив callbacks (Z-API при
// batching присылает массив). Каждый элемент разбирается и обрабатывается
// независимо: кривой элемент или сбой обработки не прерывает остальные.
//
// Неразрешимые элементы (кривой JSON, неизвестный message id, упавший
// триггер) отвечаются 200: redelivery провайдера им не поможет. Сбой
// хранилища — другое дело: обработка идемпотентна, и redelivery доставит
// потерянный ответ, поэтому при хотя бы одном таком сбое возвращаем 500.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")
	p, err := h.providers.Get(providerName)
	if err != nil {
		NotFound(w, "unknown provider: "+providerName)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		BadRequest(w, "read body")
		return
	}

	events := splitWebhookBody(body)
	if events == nil {
		BadRequest(w, "invalid webhook body")
		return
	}

	resp := WebhookResponse{Results: make([]WebhookResult, 0, len(events))}
	retryable := false
	for _, raw := range events {
		result := WebhookResult{}

		ev, err := p.ParseWebhook(raw)
		switch {
		case err != nil:
			h.logger.Warn("webhook parse failed", "provider", providerName, "error", err)
			result.Outcome = "error"
			result.Error = "unparseable event"
		case ev == nil:
			result.Outcome = string(receiver.OutcomeIgnored)
		default:
			outcome, err := h.receiver.Process(r.Context(), ev)
			result.Outcome = string(outcome)
			if err != nil {
				h.logger.Error("webhook processing failed",
					"provider", providerName,
					"provider_message_id", ev.MessageID,
					"error", err,
				)
				result.Error = "processing failed"
				if !errors.Is(err, receiver.ErrTriggerFailed) {
					retryable = true
				}
			}
		}

		resp.Results = append(resp.Results, result)
		resp.Processed++
	}

	if retryable {
		JSON(w, http.StatusInternalServerError, DataResponse{Data: resp})
		return
	}
	Success(w, resp)
}

// splitWebhookBody разбивает тело на элементы: массив → поэлементно,
// объект → один элемент. nil — тело не является валидным JSON.
func splitWebhookBody(body []byte) []json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}

	if trimmed[0] == '[' {
		var events []json.RawMessage
		if err := json.Unmarshal(trimmed, &events); err != nil {
			return nil
		}
		return events
	}

	if !json.Valid(trimmed) {
		return nil
	}
	return []json.RawMessage{trimmed}
}
