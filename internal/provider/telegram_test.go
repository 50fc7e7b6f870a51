package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Confirma/internal/domain"
)

func testTelegram(t *testing.T, baseURL string) *Telegram {
	t.Helper()
	tg, err := NewTelegram(TelegramConfig{BaseURL: baseURL, Token: "bot-token"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tg
}

func telegramNotification(recipient string) *domain.Notification {
	n := domain.New(42, "telegram", "telegram", recipient, domain.InteractionAskDetails)
	n.Payload = map[string]any{"user_name": "Ana"}
	return n
}

// --- Send Tests ---

func TestTelegram_Send_RequestShape(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 777,
				"chat":       map[string]any{"id": 123456},
			},
		})
	}))
	defer server.Close()

	tg := testTelegram(t, server.URL)
	result, err := tg.Send(context.Background(), telegramNotification("123456"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/botbot-token/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["chat_id"] != "123456" {
		t.Errorf("chat_id = %v", gotBody["chat_id"])
	}
	if _, ok := gotBody["reply_markup"]; !ok {
		t.Error("reply_markup with inline keyboard should be present")
	}
	// Ключ корреляции — пара chat:message, не голый message_id
	if result.MessageID != "123456:777" {
		t.Errorf("message id = %q, want 123456:777", result.MessageID)
	}
}

// message_id у Telegram уникален только внутри чата: отправки в разные
// чаты возвращают непересекающиеся ключи корреляции, даже когда Bot API
// выдаёт обоим один и тот же message_id.
func TestTelegram_Send_SameMessageIDDifferentChats(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)

		chatID := int64(1001)
		if req["chat_id"] == "2002" {
			chatID = 2002
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"message_id": 100,
				"chat":       map[string]any{"id": chatID},
			},
		})
	}))
	defer server.Close()

	tg := testTelegram(t, server.URL)

	resultA, err := tg.Send(context.Background(), telegramNotification("1001"))
	if err != nil {
		t.Fatalf("send to chat A: %v", err)
	}
	resultB, err := tg.Send(context.Background(), telegramNotification("2002"))
	if err != nil {
		t.Fatalf("send to chat B: %v", err)
	}

	if resultA.MessageID == resultB.MessageID {
		t.Fatalf("correlation key collision across chats: both %q", resultA.MessageID)
	}
	if resultA.MessageID != "1001:100" {
		t.Errorf("chat A key = %q, want 1001:100", resultA.MessageID)
	}
	if resultB.MessageID != "2002:100" {
		t.Errorf("chat B key = %q, want 2002:100", resultB.MessageID)
	}
}

func TestTelegram_Send_MissingChatID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": 777},
		})
	}))
	defer server.Close()

	tg := testTelegram(t, server.URL)
	_, err := tg.Send(context.Background(), telegramNotification("123456"))
	if !errors.Is(err, ErrNoMessageID) {
		t.Fatalf("expected ErrNoMessageID without chat id, got %v", err)
	}
}

func TestTelegram_Send_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false, "description": "chat not found"})
	}))
	defer server.Close()

	tg := testTelegram(t, server.URL)
	_, err := tg.Send(context.Background(), telegramNotification("123456"))
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestTelegram_New_RequiresToken(t *testing.T) {
	_, err := NewTelegram(TelegramConfig{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// --- ParseWebhook Tests ---

func TestTelegram_ParseWebhook_CallbackQuery(t *testing.T) {
	tg := testTelegram(t, "http://unused")

	body := []byte(`{"update_id":1,"callback_query":{"id":"cb1","data":"no_details","message":{"message_id":777,"chat":{"id":123456}}}}`)
	ev, err := tg.ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil {
		t.Fatal("expected event")
	}
	// message.message_id — id нашего исходного сообщения в этом чате
	if ev.MessageID != "123456:777" {
		t.Errorf("message id = %q, want 123456:777", ev.MessageID)
	}
	if ev.ReplyValue() != "no_details" {
		t.Errorf("reply value = %q, want no_details", ev.ReplyValue())
	}
}

// Одинаковый message_id в callback'ах из разных чатов даёт разные ключи:
// ответ пользователя B не может разрешиться в строку пользователя A.
func TestTelegram_ParseWebhook_CallbackScopedByChat(t *testing.T) {
	tg := testTelegram(t, "http://unused")

	fromA := []byte(`{"update_id":1,"callback_query":{"id":"cb1","data":"yes_details","message":{"message_id":100,"chat":{"id":1001}}}}`)
	fromB := []byte(`{"update_id":2,"callback_query":{"id":"cb2","data":"yes_details","message":{"message_id":100,"chat":{"id":2002}}}}`)

	evA, err := tg.ParseWebhook(fromA)
	if err != nil {
		t.Fatalf("parse chat A: %v", err)
	}
	evB, err := tg.ParseWebhook(fromB)
	if err != nil {
		t.Fatalf("parse chat B: %v", err)
	}

	if evA.MessageID == evB.MessageID {
		t.Fatalf("callbacks from different chats resolved to the same key %q", evA.MessageID)
	}
	if evA.MessageID != "1001:100" || evB.MessageID != "2002:100" {
		t.Errorf("keys = %q / %q, want 1001:100 / 2002:100", evA.MessageID, evB.MessageID)
	}
}

func TestTelegram_ParseWebhook_TextReply(t *testing.T) {
	tg := testTelegram(t, "http://unused")

	body := []byte(`{"update_id":2,"message":{"message_id":900,"text":"sim","chat":{"id":123456},"reply_to_message":{"message_id":777}}}`)
	ev, err := tg.ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev == nil {
		t.Fatal("expected event")
	}
	if ev.MessageID != "123456:777" {
		t.Errorf("message id = %q, want 123456:777 (replied-to message)", ev.MessageID)
	}
	if ev.ReplyValue() != "sim" {
		t.Errorf("reply value = %q, want sim", ev.ReplyValue())
	}
}

func TestTelegram_ParseWebhook_PlainMessageIgnored(t *testing.T) {
	tg := testTelegram(t, "http://unused")

	// Сообщение без reply_to_message не коррелируется
	body := []byte(`{"update_id":3,"message":{"message_id":901,"text":"oi","chat":{"id":123456}}}`)
	ev, err := tg.ParseWebhook(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev != nil {
		t.Errorf("expected nil event, got %+v", ev)
	}
}
