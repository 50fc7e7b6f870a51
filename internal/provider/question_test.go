package provider

import (
	"strings"
	"testing"

	"github.com/shaiso/Confirma/internal/domain"
)

// --- BuildQuestion Tests ---

func TestBuildQuestion_AskDetails(t *testing.T) {
	n := domain.New(42, "whatsapp", "zapi", "5511999998888", domain.InteractionAskDetails)
	n.Payload = map[string]any{"user_name": "Ana", "lot_name": "Cavalo Manso"}

	q, err := BuildQuestion(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(q.Text, "Ana") || !strings.Contains(q.Text, "Cavalo Manso") {
		t.Errorf("question text missing payload data: %q", q.Text)
	}
	if len(q.Buttons) != 2 {
		t.Fatalf("buttons = %d, want 2", len(q.Buttons))
	}
	if q.Buttons[0].ID != ButtonYesDetails || q.Buttons[1].ID != ButtonNoDetails {
		t.Errorf("button ids = %q, %q", q.Buttons[0].ID, q.Buttons[1].ID)
	}
}

func TestBuildQuestion_WithoutUserName(t *testing.T) {
	n := domain.New(42, "whatsapp", "zapi", "5511999998888", domain.InteractionAskDetails)

	q, err := BuildQuestion(n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(q.Text, "Olá!") {
		t.Errorf("expected generic greeting, got %q", q.Text)
	}
}

func TestBuildQuestion_UnknownKind(t *testing.T) {
	n := domain.New(42, "whatsapp", "zapi", "5511999998888", domain.InteractionKind("ask_price"))

	if _, err := BuildQuestion(n); err == nil {
		t.Fatal("expected error for unknown interaction kind")
	}
}

func TestBuildReprompt(t *testing.T) {
	n := domain.New(42, "whatsapp", "zapi", "5511999998888", domain.InteractionAskDetails)

	q := BuildReprompt(n)
	if q.Text == "" {
		t.Fatal("reprompt text should not be empty")
	}
	if len(q.Buttons) != 0 {
		t.Error("reprompt should be a plain text message")
	}
}
