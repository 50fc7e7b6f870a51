// Confirma Janitor — возвращает в очередь строки с протухшим claim.
//
// Claim протухает, когда диспетчер умер между захватом строки
// и фиксацией исхода отправки. Janitor снимает такие claims,
// и строки снова становятся доступны для отправки.
//
// Работает в единственном экземпляре: лидерство через
// pg_try_advisory_lock, остальные реплики ждут.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Confirma/internal/janitor"
	"github.com/shaiso/Confirma/internal/repo"
	"github.com/shaiso/Confirma/internal/telemetry"
)

// janitorLockKey — ключ advisory lock для leader election.
const janitorLockKey int64 = 771231

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("confirma-janitor")
	logger.Info("starting confirma-janitor")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	claimTTL := 5 * time.Minute
	if v := os.Getenv("CLAIM_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			claimTTL = d
		}
	}

	scheduleExpr := os.Getenv("JANITOR_SCHEDULE")
	if scheduleExpr == "" {
		scheduleExpr = "1m"
	}
	sched, err := janitor.ParseSchedule(scheduleExpr)
	if err != nil {
		logger.Error("invalid janitor schedule", "schedule", scheduleExpr, "error", err)
		os.Exit(1)
	}

	j := janitor.New(janitor.Config{
		Store:    repo.NewNotificationRepo(pool),
		ClaimTTL: claimTTL,
		Logger:   logger,
	})

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("JANITOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Leader election: работает только держатель advisory lock
	go func() {
		// Lock живёт ровно столько, сколько его сессия, поэтому держим
		// выделенное соединение на весь срок лидерства: соединение из
		// общего пула health-check может перезапустить, молча потеряв lock.
		conn := acquireLeadership(ctx, pool, logger)
		if conn == nil {
			return
		}
		defer func() {
			_, _ = conn.Exec(context.Background(), "select pg_advisory_unlock($1)", janitorLockKey)
			conn.Release()
		}()

		logger.Info("janitor leader elected",
			"claim_ttl", claimTTL,
			"schedule", scheduleExpr,
		)
		if err := j.Run(ctx, sched); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("janitor loop failed", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("confirma-janitor stopped")
}

// acquireLeadership пытается взять advisory lock раз в 15 секунд, пока
// не станет лидером или не отменится контекст. Возвращает соединение,
// на сессии которого взят lock; вызывающий держит его до конца работы
// и освобождает вместе с lock'ом. nil — контекст отменён.
func acquireLeadership(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) *pgxpool.Conn {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		if conn := tryAdvisoryLock(ctx, pool, logger); conn != nil {
			return conn
		}
		if ctx.Err() != nil {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// tryAdvisoryLock делает одну попытку захвата. Соединение возвращается
// в пул при любом исходе, кроме успешного захвата.
func tryAdvisoryLock(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("advisory lock attempt failed", "error", err)
		}
		return nil
	}

	var acquired bool
	if err := conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", janitorLockKey).Scan(&acquired); err != nil {
		conn.Release()
		if ctx.Err() == nil {
			logger.Warn("advisory lock attempt failed", "error", err)
		}
		return nil
	}
	if !acquired {
		conn.Release()
		return nil
	}
	return conn
}
