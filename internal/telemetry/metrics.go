package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики ядра. Регистрируются в default registry и отдаются
// через /metrics (promhttp) в каждом бинарнике.
var (
	// NotificationsEnqueued — принятые в очередь notifications.
	NotificationsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirma_notifications_enqueued_total",
		Help: "Notifications accepted into the queue.",
	})

	// DedupConflicts — отклонённые вставки (активный дубликат уже есть).
	DedupConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirma_dedup_conflicts_total",
		Help: "Enqueue attempts rejected by the active-status dedup constraint.",
	})

	// SendAttempts — попытки отправки по исходу: sent, retry, exhausted.
	SendAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confirma_send_attempts_total",
		Help: "Provider send attempts by outcome.",
	}, []string{"outcome"})

	// SendDuration — длительность вызова провайдера.
	SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "confirma_send_duration_seconds",
		Help:    "Provider send call duration.",
		Buckets: prometheus.DefBuckets,
	})

	// WebhookEvents — обработанные webhook-события по результату:
	// status, responded, duplicate, unresolved, unrecognized, error.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confirma_webhook_events_total",
		Help: "Inbound webhook events by processing result.",
	}, []string{"result"})

	// ActionsTriggered — downstream actions по типу: lot_details, edit_search.
	ActionsTriggered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "confirma_actions_triggered_total",
		Help: "Downstream actions triggered by user replies.",
	}, []string{"action"})

	// StaleClaimsRequeued — строки, возвращённые janitor'ом в очередь
	// после протухшего claim.
	StaleClaimsRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "confirma_stale_claims_requeued_total",
		Help: "Notifications requeued after their dispatcher claim went stale.",
	})
)
