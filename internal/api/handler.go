package api

import (
	"log/slog"

	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/provider"
	"github.com/shaiso/Confirma/internal/receiver"
	"github.com/shaiso/Confirma/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	notificationRepo *repo.NotificationRepo
	receiver         *receiver.Receiver
	providers        *provider.Registry
	publisher        *mq.Publisher // nil — работаем без MQ-подсказок
	logger           *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	NotificationRepo *repo.NotificationRepo
	Receiver         *receiver.Receiver
	Providers        *provider.Registry
	Publisher        *mq.Publisher
	Logger           *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		notificationRepo: cfg.NotificationRepo,
		receiver:         cfg.Receiver,
		providers:        cfg.Providers,
		publisher:        cfg.Publisher,
		logger:           cfg.Logger,
	}
}
