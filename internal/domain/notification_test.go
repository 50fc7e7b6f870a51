package domain

import "testing"

// --- Notification Tests ---

func TestNew_Defaults(t *testing.T) {
	n := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)

	if n.ID == n.CorrelationID {
		t.Error("internal id and correlation id must differ")
	}
	if n.Status != StatusPending {
		t.Errorf("status = %v, want pending", n.Status)
	}
	if n.AttemptCount != 0 {
		t.Errorf("attempt count = %d, want 0", n.AttemptCount)
	}
	if n.Responded {
		t.Error("new notification must not be responded")
	}
}

func TestDedupKey_IgnoresLifecycleFields(t *testing.T) {
	a := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)
	a.AlertType = "new_search_result"
	a.EntityType = "lot"
	a.EntityID = 7
	a.SavedSearchID = 3

	b := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)
	b.AlertType = "new_search_result"
	b.EntityType = "lot"
	b.EntityID = 7
	b.SavedSearchID = 3
	b.Status = StatusSent
	b.AttemptCount = 4

	// Разные строки, разные id и статусы — тот же логический notification
	if a.DedupKey() != b.DedupKey() {
		t.Error("dedup keys should match")
	}

	b.EntityID = 8
	if a.DedupKey() == b.DedupKey() {
		t.Error("different entities should produce different keys")
	}
}

func TestCanRetry(t *testing.T) {
	n := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)

	n.AttemptCount = 4
	if !n.CanRetry(5) {
		t.Error("4 of 5 attempts used, retry should be possible")
	}
	n.AttemptCount = 5
	if n.CanRetry(5) {
		t.Error("all attempts used, retry should not be possible")
	}
}

func TestAwaitingReply(t *testing.T) {
	n := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)

	if n.AwaitingReply() {
		t.Error("pending row is not awaiting a reply")
	}

	n.Status = StatusSent
	if !n.AwaitingReply() {
		t.Error("sent and not responded row awaits a reply")
	}

	n.Responded = true
	if n.AwaitingReply() {
		t.Error("responded row does not await a reply")
	}
}

// --- Status Tests ---

func TestStatus_TerminalAndActive(t *testing.T) {
	cases := []struct {
		status   Status
		terminal bool
	}{
		{StatusPending, false},
		{StatusSent, false},
		{StatusResponded, true},
		{StatusFailed, true},
	}
	for _, c := range cases {
		if c.status.IsTerminal() != c.terminal {
			t.Errorf("%s: IsTerminal = %v, want %v", c.status, c.status.IsTerminal(), c.terminal)
		}
		// Активность и терминальность взаимоисключающие
		if c.status.IsActive() == c.terminal {
			t.Errorf("%s: IsActive and IsTerminal must not agree", c.status)
		}
	}
}

func TestPayloadString(t *testing.T) {
	n := New(42, "whatsapp", "zapi", "5511999998888", InteractionAskDetails)

	if got := n.PayloadString("user_name", "fallback"); got != "fallback" {
		t.Errorf("nil payload: got %q", got)
	}

	n.Payload = map[string]any{"user_name": "Ana", "count": 3, "empty": ""}
	if got := n.PayloadString("user_name", "fallback"); got != "Ana" {
		t.Errorf("got %q, want Ana", got)
	}
	if got := n.PayloadString("count", "fallback"); got != "fallback" {
		t.Errorf("non-string value: got %q", got)
	}
	if got := n.PayloadString("empty", "fallback"); got != "fallback" {
		t.Errorf("empty value: got %q", got)
	}
}
