// Confirma API — HTTP-вход системы подтверждений.
//
// Принимает:
//   - запросы backend'а на постановку вопросов (POST /api/v1/notifications)
//   - webhook callbacks провайдеров (POST /webhooks/{provider})
//
// Отправкой занимается confirma-dispatcher; API только пишет строки
// в очередь и применяет входящие события.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Confirma/internal/actions"
	"github.com/shaiso/Confirma/internal/api"
	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/provider"
	"github.com/shaiso/Confirma/internal/receiver"
	"github.com/shaiso/Confirma/internal/reply"
	"github.com/shaiso/Confirma/internal/repo"
	"github.com/shaiso/Confirma/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("confirma-api")
	logger.Info("starting confirma-api")

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

	// Провайдеры и классификаторы ответов
	providers := provider.RegistryFromEnv(logger)
	classifiers := reply.NewRegistry()

	// RabbitMQ: подсказки диспетчеру + публикация downstream actions.
	// Без MQ работаем в degraded mode: dispatcher подберёт строки polling'ом,
	// actions уходят в лог.
	var publisher *mq.Publisher
	var trigger actions.Trigger = actions.NewLogTrigger(logger)

	mqConn, err := mq.NewConnection(mq.DefaultURL(), logger)
	if err != nil {
		logger.Warn("RabbitMQ not available, running in degraded mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		publisher = mq.NewPublisher(mqConn, logger)
		trigger = actions.NewMQTrigger(publisher)
	}

	// Re-prompt после нераспознанного ответа; выключается REPROMPT_ENABLED=false
	var repromptProviders *provider.Registry
	if os.Getenv("REPROMPT_ENABLED") != "false" {
		repromptProviders = providers
	}

	rcv := receiver.New(receiver.Config{
		Store:       notificationRepo,
		Classifiers: classifiers,
		Trigger:     trigger,
		Providers:   repromptProviders,
		Logger:      logger,
	})

	handler := api.NewHandler(api.Config{
		NotificationRepo: notificationRepo,
		Receiver:         rcv,
		Providers:        providers,
		Publisher:        publisher,
		Logger:           logger,
	})

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr, "providers", providers.Names())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
