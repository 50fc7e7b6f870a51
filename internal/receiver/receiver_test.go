package receiver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Confirma/internal/actions"
	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/provider"
	"github.com/shaiso/Confirma/internal/reply"
	"github.com/shaiso/Confirma/internal/repo"
)

// --- Fakes ---

// fakeStore эмулирует поведение NotificationRepo в памяти, включая
// CAS-семантику MarkResponded.
type fakeStore struct {
	byMessageID map[string]*domain.Notification

	statusRecorded string
	auditCount     int

	respondedID       uuid.UUID
	respondedDecision domain.Decision
	respondErr        error
}

func newFakeStore(ns ...*domain.Notification) *fakeStore {
	s := &fakeStore{byMessageID: make(map[string]*domain.Notification)}
	for _, n := range ns {
		s.byMessageID[n.ProviderMessageID] = n
	}
	return s
}

func (s *fakeStore) GetByProviderMessageID(_ context.Context, messageID string) (*domain.Notification, error) {
	n, ok := s.byMessageID[messageID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *fakeStore) RecordDeliveryStatus(_ context.Context, _ uuid.UUID, providerStatus string, _ []byte, _ time.Time) error {
	s.statusRecorded = providerStatus
	return nil
}

func (s *fakeStore) RecordWebhookAudit(_ context.Context, _ uuid.UUID, _ []byte, _ time.Time) error {
	s.auditCount++
	return nil
}

func (s *fakeStore) MarkResponded(_ context.Context, id uuid.UUID, decision domain.Decision, _ []byte, _ time.Time) error {
	if s.respondErr != nil {
		return s.respondErr
	}
	for _, n := range s.byMessageID {
		if n.ID == id {
			if n.Responded {
				return repo.ErrAlreadyResponded
			}
			n.Responded = true
			n.Status = domain.StatusResponded
			n.ResponseValue = string(decision)
		}
	}
	s.respondedID = id
	s.respondedDecision = decision
	return nil
}

// fakeTrigger считает вызовы downstream actions.
type fakeTrigger struct {
	lotDetails int
	editSearch int
	err        error
}

func (t *fakeTrigger) SendLotDetails(_ context.Context, _ *domain.Notification) error {
	t.lotDetails++
	return t.err
}

func (t *fakeTrigger) SendEditSearchLink(_ context.Context, _ *domain.Notification) error {
	t.editSearch++
	return t.err
}

// fakeReprompter фиксирует re-prompt'ы.
type fakeReprompter struct {
	name  string
	texts []string
}

func (p *fakeReprompter) Name() string { return p.name }

func (p *fakeReprompter) Send(_ context.Context, _ *domain.Notification) (*provider.SendResult, error) {
	return nil, errors.New("not used")
}

func (p *fakeReprompter) SendText(_ context.Context, _, text string) error {
	p.texts = append(p.texts, text)
	return nil
}

func (p *fakeReprompter) ParseWebhook(_ []byte) (*provider.WebhookEvent, error) { return nil, nil }

func sentNotification(messageID string) *domain.Notification {
	n := domain.New(42, "whatsapp", "zapi", "5511999998888", domain.InteractionAskDetails)
	n.Status = domain.StatusSent
	n.ProviderMessageID = messageID
	return n
}

func testReceiver(store Store, trigger actions.Trigger, providers *provider.Registry) *Receiver {
	return New(Config{
		Store:       store,
		Classifiers: reply.NewRegistry(),
		Trigger:     trigger,
		Providers:   providers,
		Logger:      slog.New(slog.DiscardHandler),
	})
}

func replyEvent(messageID, text string) *provider.WebhookEvent {
	return &provider.WebhookEvent{
		Provider:  "zapi",
		MessageID: messageID,
		ReplyText: text,
		Raw:       json.RawMessage(`{"test":true}`),
	}
}

// --- Process Tests ---

func TestProcess_DeliveryStatus(t *testing.T) {
	store := newFakeStore(sentNotification("m1"))
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	ev := &provider.WebhookEvent{Provider: "zapi", MessageID: "m1", DeliveryStatus: "DELIVERED"}
	outcome, err := r.Process(context.Background(), ev)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeStatusRecorded {
		t.Errorf("outcome = %v, want status", outcome)
	}
	if store.statusRecorded != "DELIVERED" {
		t.Errorf("recorded status = %q", store.statusRecorded)
	}
	if trigger.lotDetails+trigger.editSearch != 0 {
		t.Error("status event must not trigger actions")
	}
}

func TestProcess_Unresolved_DiscardsWithoutError(t *testing.T) {
	store := newFakeStore()
	r := testReceiver(store, &fakeTrigger{}, nil)

	outcome, err := r.Process(context.Background(), replyEvent("ghost", "sim"))
	if err != nil {
		t.Fatalf("unresolved event must not return error, got: %v", err)
	}
	if outcome != OutcomeUnresolved {
		t.Errorf("outcome = %v, want unresolved", outcome)
	}
	if store.auditCount != 0 || store.statusRecorded != "" {
		t.Error("unresolved event must not change state")
	}
}

func TestProcess_EmptyMessageID_Unresolved(t *testing.T) {
	r := testReceiver(newFakeStore(), &fakeTrigger{}, nil)

	outcome, err := r.Process(context.Background(), &provider.WebhookEvent{Provider: "zapi", ReplyText: "sim"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUnresolved {
		t.Errorf("outcome = %v, want unresolved", outcome)
	}
}

func TestProcess_AffirmativeReply(t *testing.T) {
	n := sentNotification("m1")
	store := newFakeStore(n)
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	outcome, err := r.Process(context.Background(), replyEvent("m1", "Sim!"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeResponded {
		t.Errorf("outcome = %v, want responded", outcome)
	}
	if store.respondedID != n.ID || store.respondedDecision != domain.DecisionAffirmative {
		t.Errorf("responded: id=%v decision=%v", store.respondedID, store.respondedDecision)
	}
	if trigger.lotDetails != 1 || trigger.editSearch != 0 {
		t.Errorf("triggers: lot=%d edit=%d, want exactly one lot_details", trigger.lotDetails, trigger.editSearch)
	}
}

func TestProcess_NegativeReply(t *testing.T) {
	store := newFakeStore(sentNotification("m1"))
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	outcome, err := r.Process(context.Background(), replyEvent("m1", "não, obrigado"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeResponded {
		t.Errorf("outcome = %v, want responded", outcome)
	}
	if store.respondedDecision != domain.DecisionNegative {
		t.Errorf("decision = %v, want negative", store.respondedDecision)
	}
	if trigger.editSearch != 1 || trigger.lotDetails != 0 {
		t.Errorf("triggers: lot=%d edit=%d, want exactly one edit_search", trigger.lotDetails, trigger.editSearch)
	}
}

func TestProcess_DuplicateReply_NoSecondAction(t *testing.T) {
	n := sentNotification("m1")
	store := newFakeStore(n)
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	// Первый ответ закрывает строку
	if _, err := r.Process(context.Background(), replyEvent("m1", "sim")); err != nil {
		t.Fatalf("first reply: %v", err)
	}
	// Повтор — no-op с аудитом
	outcome, err := r.Process(context.Background(), replyEvent("m1", "não"))
	if err != nil {
		t.Fatalf("duplicate reply must not return error, got: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Errorf("outcome = %v, want duplicate", outcome)
	}
	if trigger.lotDetails != 1 || trigger.editSearch != 0 {
		t.Errorf("triggers: lot=%d edit=%d, want the first action only", trigger.lotDetails, trigger.editSearch)
	}
	if store.auditCount != 1 {
		t.Errorf("audit count = %d, want 1", store.auditCount)
	}
}

func TestProcess_LostRace_IsDuplicate(t *testing.T) {
	// Конкурент успел закрыть строку между чтением и conditional update
	store := newFakeStore(sentNotification("m1"))
	store.respondErr = repo.ErrAlreadyResponded
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	outcome, err := r.Process(context.Background(), replyEvent("m1", "sim"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Errorf("outcome = %v, want duplicate", outcome)
	}
	if trigger.lotDetails != 0 {
		t.Error("race loser must not trigger an action")
	}
}

func TestProcess_UnrecognizedReply_RowStaysOpen(t *testing.T) {
	store := newFakeStore(sentNotification("m1"))
	trigger := &fakeTrigger{}
	r := testReceiver(store, trigger, nil)

	outcome, err := r.Process(context.Background(), replyEvent("m1", "quanto custa?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeUnrecognized {
		t.Errorf("outcome = %v, want unrecognized", outcome)
	}
	if store.respondedID != uuid.Nil {
		t.Error("unrecognized reply must not close the row")
	}
	if store.auditCount != 1 {
		t.Errorf("audit count = %d, want 1", store.auditCount)
	}

	// Более поздний валидный ответ всё ещё принимается
	outcome, err = r.Process(context.Background(), replyEvent("m1", "sim"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeResponded {
		t.Errorf("outcome = %v, want responded after recovery", outcome)
	}
	if trigger.lotDetails != 1 {
		t.Errorf("lot_details = %d, want 1", trigger.lotDetails)
	}
}

func TestProcess_UnrecognizedReply_Reprompts(t *testing.T) {
	store := newFakeStore(sentNotification("m1"))
	rp := &fakeReprompter{name: "zapi"}
	registry := provider.NewRegistry()
	registry.Register(rp)
	r := testReceiver(store, &fakeTrigger{}, registry)

	if _, err := r.Process(context.Background(), replyEvent("m1", "hmm")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rp.texts) != 1 {
		t.Fatalf("reprompts = %d, want 1", len(rp.texts))
	}
}

func TestProcess_TriggerFailure_RowStillClosed(t *testing.T) {
	store := newFakeStore(sentNotification("m1"))
	trigger := &fakeTrigger{err: errors.New("mq down")}
	r := testReceiver(store, trigger, nil)

	outcome, err := r.Process(context.Background(), replyEvent("m1", "sim"))
	if !errors.Is(err, ErrTriggerFailed) {
		t.Fatalf("expected ErrTriggerFailed, got %v", err)
	}
	if outcome != OutcomeResponded {
		t.Errorf("outcome = %v, want responded (row is closed either way)", outcome)
	}
	if store.respondedID == uuid.Nil {
		t.Error("row should be marked responded before the trigger runs")
	}
}

func TestProcess_NilEvent_Ignored(t *testing.T) {
	r := testReceiver(newFakeStore(), &fakeTrigger{}, nil)

	outcome, err := r.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("outcome = %v, want ignored", outcome)
	}
}
