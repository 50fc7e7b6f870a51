package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/shaiso/Confirma/internal/domain"
)

const (
	telegramName           = "telegram"
	telegramDefaultBaseURL = "https://api.telegram.org"
	telegramDefaultTimeout = 30 * time.Second
)

// Telegram — провайдер через Telegram Bot API.
//
// Вопрос отправляется как sendMessage с inline keyboard; кнопки несут
// callback_data с идентификатором решения. Ответ приходит как
// callback_query с message.message_id нашего исходного сообщения.
// Свободный текст коррелируется только если пользователь ответил
// реплаем (reply_to_message).
//
// message_id у Telegram уникален только внутри чата, поэтому ключ
// корреляции — пара "<chat_id>:<message_id>"; chat_id берётся из
// ответа Bot API и из update, а не из recipient (recipient может быть
// @username, update всегда несёт числовой id).
type Telegram struct {
	baseURL string
	token   string
	client  *http.Client
}

// TelegramConfig — конфигурация Telegram провайдера.
type TelegramConfig struct {
	BaseURL string // default: https://api.telegram.org
	Token   string
	Timeout time.Duration // default: 30s
}

// NewTelegram создаёт Telegram провайдера.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required", ErrNotConfigured)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = telegramDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = telegramDefaultTimeout
	}

	return &Telegram{
		baseURL: baseURL,
		token:   cfg.Token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// NewTelegramFromEnv создаёт Telegram провайдера из переменных окружения.
func NewTelegramFromEnv() (*Telegram, error) {
	return NewTelegram(TelegramConfig{Token: os.Getenv("TELEGRAM_BOT_TOKEN")})
}

// Name возвращает имя провайдера.
func (t *Telegram) Name() string { return telegramName }

// tgSendResponse — ответ Bot API на sendMessage.
type tgSendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"result"`
	Description string `json:"description"`
}

// telegramCorrelationKey собирает ключ корреляции из chat id и
// message id. message_id уникален только внутри чата.
func telegramCorrelationKey(chatID, messageID int64) string {
	return strconv.FormatInt(chatID, 10) + ":" + strconv.FormatInt(messageID, 10)
}

// Send отправляет вопрос с inline keyboard.
func (t *Telegram) Send(ctx context.Context, n *domain.Notification) (*SendResult, error) {
	q, err := BuildQuestion(n)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"chat_id":    n.Recipient,
		"text":       q.Text,
		"parse_mode": "Markdown",
	}

	if len(q.Buttons) > 0 {
		row := make([]map[string]string, 0, len(q.Buttons))
		for _, b := range q.Buttons {
			row = append(row, map[string]string{"text": b.Label, "callback_data": b.ID})
		}
		// Bot API ожидает массив рядов кнопок
		payload["reply_markup"] = map[string]any{"inline_keyboard": [][]map[string]string{row}}
	}

	var resp tgSendResponse
	if err := t.call(ctx, "sendMessage", payload, &resp); err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%w: telegram: %s", ErrTransport, resp.Description)
	}
	if resp.Result.MessageID == 0 || resp.Result.Chat.ID == 0 {
		return nil, ErrNoMessageID
	}

	return &SendResult{
		MessageID: telegramCorrelationKey(resp.Result.Chat.ID, resp.Result.MessageID),
		Status:    "sent",
	}, nil
}

// SendText отправляет простое текстовое сообщение без клавиатуры.
func (t *Telegram) SendText(ctx context.Context, recipient, text string) error {
	payload := map[string]any{
		"chat_id": recipient,
		"text":    text,
	}

	var resp tgSendResponse
	if err := t.call(ctx, "sendMessage", payload, &resp); err != nil {
		return err
	}
	if !resp.OK {
		return fmt.Errorf("%w: telegram: %s", ErrTransport, resp.Description)
	}
	return nil
}

// call выполняет метод Bot API с разбором JSON-ответа.
func (t *Telegram) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: telegram %s: status %d: %s", ErrTransport, method, resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// tgUpdate — входящий update Bot API (webhook mode).
type tgUpdate struct {
	UpdateID int64 `json:"update_id"`

	CallbackQuery *struct {
		ID      string `json:"id"`
		Data    string `json:"data"`
		Message *struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`

	Message *struct {
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		Chat      struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		ReplyToMessage *struct {
			MessageID int64 `json:"message_id"`
		} `json:"reply_to_message"`
	} `json:"message"`
}

// ParseWebhook разбирает Telegram update в нейтральное событие.
func (t *Telegram) ParseWebhook(body []byte) (*WebhookEvent, error) {
	var upd tgUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		return nil, fmt.Errorf("unmarshal telegram update: %w", err)
	}

	switch {
	case upd.CallbackQuery != nil && upd.CallbackQuery.Message != nil:
		msg := upd.CallbackQuery.Message
		return &WebhookEvent{
			Provider:  telegramName,
			MessageID: telegramCorrelationKey(msg.Chat.ID, msg.MessageID),
			ButtonID:  upd.CallbackQuery.Data,
			Raw:       json.RawMessage(body),
		}, nil

	case upd.Message != nil && upd.Message.ReplyToMessage != nil && upd.Message.Text != "":
		// Реплай приходит в том же чате, что и исходное сообщение
		return &WebhookEvent{
			Provider:  telegramName,
			MessageID: telegramCorrelationKey(upd.Message.Chat.ID, upd.Message.ReplyToMessage.MessageID),
			ReplyText: upd.Message.Text,
			Raw:       json.RawMessage(body),
		}, nil

	default:
		// Update без ответа на наш вопрос (обычное сообщение, edit, ...)
		return nil, nil
	}
}
