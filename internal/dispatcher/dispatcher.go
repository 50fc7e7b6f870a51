package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Confirma/internal/domain"
	"github.com/shaiso/Confirma/internal/mq"
	"github.com/shaiso/Confirma/internal/provider"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 50
	defaultSendTimeout  = 30 * time.Second
	defaultMaxAttempts  = 5
	defaultPrefetch     = 5
)

// Store — операции хранилища, нужные диспетчеру.
// Реализуется *repo.NotificationRepo.
type Store interface {
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, providerMessageID, providerStatus string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
}

// Dispatcher отправляет pending notifications через провайдеров.
//
// Dispatcher — stateless компонент, который:
//   - Получает hints о новых строках из очереди notifications.enqueued
//   - Периодически забирает due pending-строки из БД (polling fallback)
//   - Отправляет вопрос через провайдера (с таймаутом)
//   - Успех → sent + provider_message_id; неудача → retry по Backoff,
//     после исчерпания попыток → failed
//
// Несколько экземпляров могут работать с одной БД: границей
// корректности служит атомарный claim в Store.ClaimDue, поэтому одна
// строка никогда не отправляется дважды.
type Dispatcher struct {
	store     Store
	providers *provider.Registry
	backoff   Backoff

	// MQ (опционально: без соединения работает polling-only)
	conn     *mq.Connection
	consumer *mq.Consumer

	// Configuration
	pollInterval time.Duration
	batchSize    int
	sendTimeout  time.Duration
	maxAttempts  int

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	// pollCh сериализует poll-запросы от ticker'а и MQ hints
	pollCh chan struct{}
}

// Config — конфигурация Dispatcher.
type Config struct {
	// Store — репозиторий notifications (обязателен).
	Store Store

	// Providers — реестр messaging-провайдеров (обязателен).
	Providers *provider.Registry

	// Conn — соединение с RabbitMQ; nil — polling-only режим.
	Conn *mq.Connection

	// Backoff — политика retry (default: 30s..15m exponential).
	Backoff Backoff

	// PollInterval — интервал polling (default: 10s).
	PollInterval time.Duration

	// BatchSize — количество строк за один claim (default: 50).
	BatchSize int

	// SendTimeout — таймаут одного вызова провайдера (default: 30s).
	SendTimeout time.Duration

	// MaxAttempts — потолок попыток отправки (default: 5).
	MaxAttempts int

	// Logger
	Logger *slog.Logger
}

// New создаёт новый Dispatcher.
func New(cfg Config) *Dispatcher {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	backoff := cfg.Backoff
	if backoff.Initial <= 0 {
		backoff = NewBackoff(0, 0)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		store:        cfg.Store,
		providers:    cfg.Providers,
		backoff:      backoff,
		conn:         cfg.Conn,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		sendTimeout:  sendTimeout,
		maxAttempts:  maxAttempts,
		logger:       logger,
		pollCh:       make(chan struct{}, 1),
	}
}

// Start запускает Dispatcher.
//
// Запускает:
//   - Consumer для notifications.enqueued (если есть MQ)
//   - Polling горутину
func (d *Dispatcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancelFunc = cancel

	d.logger.Info("starting dispatcher",
		"poll_interval", d.pollInterval,
		"batch_size", d.batchSize,
		"send_timeout", d.sendTimeout,
		"max_attempts", d.maxAttempts,
		"providers", d.providers.Names(),
	)

	if d.conn != nil {
		d.consumer = mq.NewConsumer(d.conn, d.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueNotificationsEnqueued),
			Handler:  d.handleEnqueued,
			Prefetch: defaultPrefetch,
		})

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("enqueued consumer error", "error", err)
			}
		}()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pollLoop(ctx)
	}()

	d.logger.Info("dispatcher started")
	return nil
}

// Stop останавливает Dispatcher и ждёт завершения горутин.
func (d *Dispatcher) Stop() {
	d.logger.Info("stopping dispatcher...")

	if d.cancelFunc != nil {
		d.cancelFunc()
	}
	if d.consumer != nil {
		d.consumer.Stop()
	}

	d.wg.Wait()

	d.logger.Info("dispatcher stopped")
}

// pollLoop — цикл polling.
func (d *Dispatcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте (подхватываем строки, созданные
	// пока процесс был выключен)
	d.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.poll(ctx)
		case <-d.pollCh:
			d.poll(ctx)
		}
	}
}

// requestPoll просит выполнить poll вне очередного тика (MQ hint).
func (d *Dispatcher) requestPoll() {
	select {
	case d.pollCh <- struct{}{}:
	default:
	}
}

// poll выполняет один цикл: claim пачки due-строк и отправка каждой.
func (d *Dispatcher) poll(ctx context.Context) {
	notifications, err := d.store.ClaimDue(ctx, time.Now().UTC(), d.batchSize)
	if err != nil {
		d.logger.Error("failed to claim due notifications", "error", err)
		return
	}

	if len(notifications) == 0 {
		return
	}

	d.logger.Debug("claimed due notifications", "count", len(notifications))

	for i := range notifications {
		n := &notifications[i]

		if err := d.dispatch(ctx, n); err != nil {
			d.logger.Error("failed to dispatch notification",
				"notification_id", n.ID,
				"error", err,
			)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
