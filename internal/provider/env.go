package provider

import (
	"errors"
	"log/slog"
)

// RegistryFromEnv собирает реестр из провайдеров, сконфигурированных
// переменными окружения. Провайдер без обязательных переменных просто
// пропускается — бинарник может работать с одним каналом.
func RegistryFromEnv(logger *slog.Logger) *Registry {
	r := NewRegistry()

	if z, err := NewZAPIFromEnv(); err == nil {
		r.Register(z)
	} else if !errors.Is(err, ErrNotConfigured) {
		logger.Warn("z-api provider not registered", "error", err)
	}

	if t, err := NewTelegramFromEnv(); err == nil {
		r.Register(t)
	} else if !errors.Is(err, ErrNotConfigured) {
		logger.Warn("telegram provider not registered", "error", err)
	}

	if len(r.Names()) == 0 {
		logger.Warn("no messaging providers configured")
	}
	return r
}
