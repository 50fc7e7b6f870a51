// Confirma Dispatcher — отправляет поставленные в очередь вопросы.
//
// Dispatcher:
//   - Захватывает due-строки (FOR UPDATE SKIP LOCKED)
//   - Отправляет через messaging-провайдера (Z-API, Telegram)
//   - Фиксирует provider message id для корреляции webhook'ов
//   - Реализует retry с exponential backoff
//
// Реагирует на MQ-подсказки о новых строках, но не зависит от них:
// polling подбирает всё, что подсказка потеряла.
//
// Диспетчеры масштабируются горизонтально.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Confirma/internal/dispatcher"
	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/provider"
	"github.com/shaiso/Confirma/internal/repo"
	"github.com/shaiso/Confirma/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("confirma-dispatcher")
	logger.Info("starting confirma-dispatcher")

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

	if err := repo.EnsureSchema(ctx, pool); err != nil {
		logger.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	notificationRepo := repo.NewNotificationRepo(pool)

	// Провайдеры: диспетчер без них бесполезен
	providers := provider.RegistryFromEnv(logger)
	if len(providers.Names()) == 0 {
		logger.Error("no messaging providers configured")
		os.Exit(1)
	}

	// RabbitMQ (опционально): подсказки о новых строках
	var mqConn *mq.Connection
	mqConn, err = mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
		mqConn = nil
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
	}

	d := dispatcher.New(dispatcher.Config{
		Store:        notificationRepo,
		Providers:    providers,
		Conn:         mqConn,
		Backoff:      dispatcher.NewBackoff(envDuration("RETRY_INITIAL_DELAY"), envDuration("RETRY_MAX_DELAY")),
		PollInterval: envDuration("DISPATCH_POLL_INTERVAL"),
		BatchSize:    envInt("DISPATCH_BATCH_SIZE"),
		SendTimeout:  envDuration("SEND_TIMEOUT"),
		MaxAttempts:  envInt("MAX_ATTEMPTS"),
		Logger:       logger,
	})

	if err := d.Start(ctx); err != nil {
		logger.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8082"
	if v := os.Getenv("DISPATCHER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port, "providers", providers.Names())
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	d.Stop()
	logger.Info("confirma-dispatcher stopped")
}

// envDuration читает duration из окружения; пусто или мусор — 0,
// дефолт подставит dispatcher.New.
func envDuration(name string) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// envInt читает int из окружения; пусто или мусор — 0.
func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
