package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/shaiso/Confirma/internal/domain"
)

const (
	zapiName           = "zapi"
	zapiDefaultBaseURL = "https://api.z-api.io"
	zapiDefaultTimeout = 30 * time.Second
)

// ZAPI — провайдер WhatsApp через Z-API.
//
// Отправка: POST /instances/{id}/token/{token}/send-button-list
// с кнопками Sim/Não. Идентификатор отправленного сообщения — messageId
// из ответа (fallback: zaapId) — используется для корреляции webhook'ов.
//
// Входящие callbacks:
//   - MessageStatusCallback — обновление статуса доставки (ids + status)
//   - ReceivedCallback — входящее сообщение; ответ на наш вопрос несёт
//     referenceMessageId исходного сообщения и либо text.message,
//     либо buttonsResponseMessage.buttonId
type ZAPI struct {
	baseURL       string
	instanceID    string
	instanceToken string
	clientToken   string
	client        *http.Client
}

// ZAPIConfig — конфигурация Z-API провайдера.
type ZAPIConfig struct {
	BaseURL       string // default: https://api.z-api.io
	InstanceID    string
	InstanceToken string
	ClientToken   string
	Timeout       time.Duration // default: 30s
}

// NewZAPI создаёт Z-API провайдера.
func NewZAPI(cfg ZAPIConfig) (*ZAPI, error) {
	if cfg.InstanceID == "" || cfg.InstanceToken == "" || cfg.ClientToken == "" {
		return nil, fmt.Errorf("%w: ZAPI_INSTANCE_ID, ZAPI_INSTANCE_TOKEN, ZAPI_CLIENT_TOKEN are required", ErrNotConfigured)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = zapiDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = zapiDefaultTimeout
	}

	return &ZAPI{
		baseURL:       baseURL,
		instanceID:    cfg.InstanceID,
		instanceToken: cfg.InstanceToken,
		clientToken:   cfg.ClientToken,
		client:        &http.Client{Timeout: timeout},
	}, nil
}

// NewZAPIFromEnv создаёт Z-API провайдера из переменных окружения.
func NewZAPIFromEnv() (*ZAPI, error) {
	return NewZAPI(ZAPIConfig{
		BaseURL:       os.Getenv("ZAPI_BASE_URL"),
		InstanceID:    os.Getenv("ZAPI_INSTANCE_ID"),
		InstanceToken: os.Getenv("ZAPI_INSTANCE_TOKEN"),
		ClientToken:   os.Getenv("ZAPI_CLIENT_TOKEN"),
	})
}

// Name возвращает имя провайдера.
func (z *ZAPI) Name() string { return zapiName }

// zapiSendResponse — ответ Z-API на отправку.
type zapiSendResponse struct {
	ZaapID    string `json:"zaapId"`
	MessageID string `json:"messageId"`
}

// Send отправляет вопрос с кнопками через send-button-list.
func (z *ZAPI) Send(ctx context.Context, n *domain.Notification) (*SendResult, error) {
	q, err := BuildQuestion(n)
	if err != nil {
		return nil, err
	}

	buttons := make([]map[string]string, 0, len(q.Buttons))
	for _, b := range q.Buttons {
		buttons = append(buttons, map[string]string{"id": b.ID, "label": b.Label})
	}

	payload := map[string]any{
		"phone":   n.Recipient,
		"message": q.Text,
	}
	if len(buttons) > 0 {
		payload["buttonList"] = map[string]any{"buttons": buttons}
	}

	var resp zapiSendResponse
	if err := z.post(ctx, "send-button-list", payload, &resp); err != nil {
		return nil, err
	}

	// Z-API возвращает и zaapId, и messageId; webhooks ссылаются на messageId
	messageID := resp.MessageID
	if messageID == "" {
		messageID = resp.ZaapID
	}
	if messageID == "" {
		return nil, ErrNoMessageID
	}

	return &SendResult{MessageID: messageID, Status: "queued"}, nil
}

// SendText отправляет простое текстовое сообщение через send-text.
func (z *ZAPI) SendText(ctx context.Context, recipient, text string) error {
	payload := map[string]any{
		"phone":   recipient,
		"message": text,
	}
	return z.post(ctx, "send-text", payload, nil)
}

// post выполняет POST к endpoint инстанса с разбором JSON-ответа.
func (z *ZAPI) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/instances/%s/token/%s/%s", z.baseURL, z.instanceID, z.instanceToken, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Client-Token", z.clientToken)

	resp, err := z.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: z-api %s: status %d: %s", ErrTransport, endpoint, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// zapiWebhook — общая форма входящего callback Z-API.
type zapiWebhook struct {
	Type               string   `json:"type"`
	Status             string   `json:"status"`
	IDs                []string `json:"ids"`
	MessageID          string   `json:"messageId"`
	ReferenceMessageID string   `json:"referenceMessageId"`
	Phone              string   `json:"phone"`

	Text *struct {
		Message string `json:"message"`
	} `json:"text"`

	ButtonsResponseMessage *struct {
		ButtonID string `json:"buttonId"`
		Message  string `json:"message"`
	} `json:"buttonsResponseMessage"`
}

// ParseWebhook разбирает callback Z-API в нейтральное событие.
func (z *ZAPI) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var wh zapiWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, fmt.Errorf("unmarshal z-api webhook: %w", err)
	}

	switch wh.Type {
	case "MessageStatusCallback", "DeliveryCallback":
		if len(wh.IDs) == 0 || wh.Status == "" {
			return nil, nil
		}
		return &WebhookEvent{
			Provider:       zapiName,
			MessageID:      wh.IDs[0],
			DeliveryStatus: wh.Status,
			Raw:            json.RawMessage(body),
		}, nil

	case "ReceivedCallback":
		ev := &WebhookEvent{
			Provider: zapiName,
			// Ответ коррелируется по id сообщения, НА которое отвечают
			MessageID: wh.ReferenceMessageID,
			Raw:       json.RawMessage(body),
		}
		if wh.ButtonsResponseMessage != nil {
			ev.ButtonID = wh.ButtonsResponseMessage.ButtonID
			ev.ReplyText = wh.ButtonsResponseMessage.Message
		} else if wh.Text != nil {
			ev.ReplyText = wh.Text.Message
		}
		if !ev.IsReply() {
			// Входящее без текста и без кнопки (медиа и т.п.) — не наше
			return nil, nil
		}
		return ev, nil

	default:
		// Прочие callbacks (presence, connected, ...) игнорируем
		return nil, nil
	}
}
