package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Confirma/internal/telemetry"
)

const defaultClaimTTL = 5 * time.Minute

// Store — операции хранилища, нужные janitor'у.
// Реализуется *repo.NotificationRepo.
type Store interface {
	RequeueStaleClaims(ctx context.Context, staleBefore time.Time) (int64, error)
}

// Janitor возвращает в очередь строки, чей диспетчер умер между захватом
// и фиксацией исхода отправки. Claim считается протухшим, когда держится
// дольше ClaimTTL.
//
// TTL должен с запасом превышать send timeout диспетчера: иначе живой
// диспетчер и janitor могут столкнуться на одной строке, и сообщение
// уйдёт дважды.
type Janitor struct {
	store    Store
	claimTTL time.Duration
	logger   *slog.Logger
}

// Config — конфигурация Janitor.
type Config struct {
	Store    Store
	ClaimTTL time.Duration // default: 5m
	Logger   *slog.Logger
}

// New создаёт новый Janitor.
func New(cfg Config) *Janitor {
	ttl := cfg.ClaimTTL
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Janitor{
		store:    cfg.Store,
		claimTTL: ttl,
		logger:   logger,
	}
}

// Tick выполняет один проход: снимает все протухшие claims.
func (j *Janitor) Tick(ctx context.Context) error {
	staleBefore := time.Now().UTC().Add(-j.claimTTL)

	requeued, err := j.store.RequeueStaleClaims(ctx, staleBefore)
	if err != nil {
		return fmt.Errorf("requeue stale claims: %w", err)
	}

	if requeued > 0 {
		telemetry.StaleClaimsRequeued.Add(float64(requeued))
		j.logger.Warn("stale claims requeued",
			"count", requeued,
			"claim_ttl", j.claimTTL,
		)
	}
	return nil
}
