package repo

// Интеграционные тесты против живого Postgres: инварианты, живущие
// в SQL (partial unique index, FOR UPDATE SKIP LOCKED), не проверить
// фейками. Запуск: DB_URL=postgresql://... go test ./internal/repo/.
// Без DB_URL тесты пропускаются.

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Confirma/internal/domain"
)

func integrationRepo(t *testing.T) (*NotificationRepo, context.Context) {
	t.Helper()
	if os.Getenv("DB_URL") == "" {
		t.Skip("DB_URL not set, skipping Postgres integration test")
	}

	ctx := context.Background()
	pool, err := NewPool(ctx)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := EnsureSchema(ctx, pool); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return NewNotificationRepo(pool), ctx
}

// queuedNotification собирает строку с полным dedup-ключом. userID
// уникален на каждый прогон, чтобы тесты не спотыкались о данные
// предыдущих запусков в общей базе.
func queuedNotification(userID, entityID int64) *domain.Notification {
	n := domain.New(userID, "whatsapp", "zapi", "5511999998888", domain.InteractionAskDetails)
	n.AlertType = "new_search_result"
	n.EntityType = "lot"
	n.EntityID = entityID
	n.SavedSearchID = 7
	return n
}

// --- Dedup Guard Tests ---

func TestNotificationRepo_DedupGuard(t *testing.T) {
	r, ctx := integrationRepo(t)
	userID := time.Now().UnixNano()

	first := queuedNotification(userID, 1)
	if err := r.Create(ctx, first); err != nil {
		t.Fatalf("create first: %v", err)
	}

	// pending-строка блокирует повторную вставку того же ключа
	if err := r.Create(ctx, queuedNotification(userID, 1)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate over pending: err = %v, want ErrDuplicate", err)
	}

	// существующая активная строка достижима по ключу
	existing, err := r.GetActiveByDedupKey(ctx, first.DedupKey())
	if err != nil {
		t.Fatalf("get active by dedup key: %v", err)
	}
	if existing.CorrelationID != first.CorrelationID {
		t.Errorf("active correlation = %s, want %s", existing.CorrelationID, first.CorrelationID)
	}

	// sent — по-прежнему активный статус
	if err := r.MarkSent(ctx, first.ID, uuid.NewString(), "SENT"); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := r.Create(ctx, queuedNotification(userID, 1)); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate over sent: err = %v, want ErrDuplicate", err)
	}

	// ответ закрывает строку — ключ освобождается
	if err := r.MarkResponded(ctx, first.ID, domain.DecisionAffirmative, []byte(`{}`), time.Now().UTC()); err != nil {
		t.Fatalf("mark responded: %v", err)
	}
	second := queuedNotification(userID, 1)
	if err := r.Create(ctx, second); err != nil {
		t.Fatalf("re-insert after responded: %v", err)
	}

	// failed — тоже терминальный, ключ освобождается снова
	if err := r.MarkFailed(ctx, second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := r.Create(ctx, queuedNotification(userID, 1)); err != nil {
		t.Fatalf("re-insert after failed: %v", err)
	}
}

// --- ClaimDue Tests ---

func TestNotificationRepo_ClaimDueConcurrent(t *testing.T) {
	r, ctx := integrationRepo(t)

	// Сначала выгребаем чужие due-строки, чтобы счёт был детерминированным.
	for {
		stale, err := r.ClaimDue(ctx, time.Now().UTC(), 100)
		if err != nil {
			t.Fatalf("drain: %v", err)
		}
		if len(stale) == 0 {
			break
		}
	}

	userID := time.Now().UnixNano()
	want := make(map[uuid.UUID]bool, 30)
	for i := int64(0); i < 30; i++ {
		n := queuedNotification(userID, i)
		if err := r.Create(ctx, n); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
		want[n.ID] = true
	}

	// Три конкурирующих диспетчера; SKIP LOCKED обязан раздать
	// им непересекающиеся пачки.
	const workers = 3
	results := make([][]domain.Notification, workers)
	claimErrs := make([]error, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			results[w], claimErrs[w] = r.ClaimDue(ctx, time.Now().UTC(), 10)
		}(w)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]int)
	total := 0
	for w := 0; w < workers; w++ {
		if claimErrs[w] != nil {
			t.Fatalf("worker %d: %v", w, claimErrs[w])
		}
		for _, n := range results[w] {
			seen[n.ID]++
			total++
			if n.ClaimedAt == nil {
				t.Errorf("row %s claimed without claimed_at", n.ID)
			}
		}
	}

	if total != 30 {
		t.Fatalf("claimed %d rows, want 30", total)
	}
	for id, count := range seen {
		if count != 1 {
			t.Errorf("row %s claimed %d times", id, count)
		}
		if !want[id] {
			t.Errorf("claimed unexpected row %s", id)
		}
	}

	// Захваченная строка не видна повторному ClaimDue
	again, err := r.ClaimDue(ctx, time.Now().UTC(), 100)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("reclaimed %d rows, want 0", len(again))
	}
}
